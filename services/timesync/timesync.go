// Package timesync keeps the appliance clock on German local time. It
// queries an SNTP server for UTC and applies the CET/CEST offset per the
// German daylight-saving rule, exposing the result through Now without
// touching the system clock.
package timesync

import (
	"context"
	"encoding/binary"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"avnotify/errcode"
)

// Seconds between the NTP epoch (1900) and the Unix epoch (1970).
const ntpEpochOffset = 2208988800

const (
	queryTimeout = 5 * time.Second
	syncInterval = 6 * time.Hour
)

// IsSummerTime reports whether the given German date and hour fall under
// daylight saving time (CEST). DST starts at 02:00 on the last Sunday of
// March and ends at 03:00 on the last Sunday of October.
func IsSummerTime(year int, month time.Month, day, hour int) bool {
	switch {
	case month > time.March && month < time.October:
		return true
	case month == time.March:
		last := lastSunday(year, time.March)
		return day > last || (day == last && hour >= 2)
	case month == time.October:
		last := lastSunday(year, time.October)
		return day < last || (day == last && hour < 3)
	default:
		return false
	}
}

func lastSunday(year int, month time.Month) int {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for d.Weekday() != time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d.Day()
}

// localOffset returns the German UTC offset for the given UTC instant.
func localOffset(utc time.Time) time.Duration {
	if IsSummerTime(utc.Year(), utc.Month(), utc.Day(), utc.Hour()) {
		return 2 * time.Hour
	}
	return time.Hour
}

type Service struct {
	server string
	log    zerolog.Logger

	// offset from the system clock to German local time, nanoseconds.
	offset atomic.Int64
	synced atomic.Bool
}

func New(server string, log zerolog.Logger) *Service {
	return &Service{
		server: server,
		log:    log.With().Str("service", "timesync").Logger(),
	}
}

// Now returns the current German local time. Before the first successful
// sync it falls back to the unadjusted system clock.
func (s *Service) Now() time.Time {
	return time.Now().Add(time.Duration(s.offset.Load()))
}

// Synced reports whether at least one sync has succeeded.
func (s *Service) Synced() bool { return s.synced.Load() }

// Sync queries the SNTP server once and updates the offset.
func (s *Service) Sync(ctx context.Context) error {
	utc, err := query(ctx, s.server)
	if err != nil {
		return err
	}
	tz := localOffset(utc)
	s.offset.Store(int64(utc.Sub(time.Now()) + tz))
	s.synced.Store(true)
	s.log.Info().
		Str("server", s.server).
		Str("offset", tz.String()).
		Time("local", utc.Add(tz)).
		Msg("time synchronized")
	return nil
}

// Run syncs immediately and then periodically until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) {
	if err := s.Sync(ctx); err != nil {
		s.log.Warn().Err(err).Msg("time sync failed")
	}
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.log.Warn().Err(err).Msg("time sync failed")
			}
		}
	}
}

// query performs one SNTP exchange and returns the server's UTC time.
func query(ctx context.Context, server string) (time.Time, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", server)
	if err != nil {
		return time.Time{}, &errcode.E{C: errcode.NotConnected, Op: "timesync.query", Msg: server, Err: err}
	}
	defer conn.Close()

	deadline := time.Now().Add(queryTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return time.Time{}, err
	}

	// Client request: LI 0, version 3, mode 3.
	req := make([]byte, 48)
	req[0] = 0x1B
	if _, err := conn.Write(req); err != nil {
		return time.Time{}, err
	}

	resp := make([]byte, 48)
	if _, err := conn.Read(resp); err != nil {
		return time.Time{}, &errcode.E{C: errcode.Timeout, Op: "timesync.query", Msg: server, Err: err}
	}

	// Transmit timestamp: seconds and fraction, bytes 40..47.
	secs := binary.BigEndian.Uint32(resp[40:44])
	frac := binary.BigEndian.Uint32(resp[44:48])
	if secs == 0 {
		return time.Time{}, &errcode.E{C: errcode.InvalidPayload, Op: "timesync.query", Msg: "zero transmit timestamp"}
	}
	nsec := int64(frac) * int64(time.Second) >> 32
	return time.Unix(int64(secs)-ntpEpochOffset, nsec).UTC(), nil
}
