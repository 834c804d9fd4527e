package timesync

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLastSunday(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.March, 30},
		{2025, time.October, 26},
		{2026, time.March, 29},
		{2026, time.October, 25},
		{2027, time.March, 28},
	}
	for _, c := range cases {
		if got := lastSunday(c.year, c.month); got != c.want {
			t.Errorf("lastSunday(%d, %v) = %d, want %d", c.year, c.month, got, c.want)
		}
	}
}

func TestIsSummerTime(t *testing.T) {
	cases := []struct {
		name  string
		year  int
		month time.Month
		day   int
		hour  int
		want  bool
	}{
		{"midsummer", 2026, time.July, 15, 12, true},
		{"midwinter", 2026, time.January, 15, 12, false},
		{"before switch in March", 2026, time.March, 29, 1, false},
		{"at switch in March", 2026, time.March, 29, 2, true},
		{"day after switch in March", 2026, time.March, 30, 0, true},
		{"before switch in October", 2026, time.October, 25, 2, true},
		{"at switch in October", 2026, time.October, 25, 3, false},
		{"day after switch in October", 2026, time.October, 26, 0, false},
		{"early March", 2026, time.March, 10, 12, false},
		{"late October", 2026, time.October, 30, 12, false},
	}
	for _, c := range cases {
		if got := IsSummerTime(c.year, c.month, c.day, c.hour); got != c.want {
			t.Errorf("%s: IsSummerTime(%d, %v, %d, %d) = %v, want %v",
				c.name, c.year, c.month, c.day, c.hour, got, c.want)
		}
	}
}

// fakeNTP answers every request with the given UTC time as the transmit
// timestamp and returns the server address.
func fakeNTP(t *testing.T, utc time.Time) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pc.Close() })

	go func() {
		buf := make([]byte, 48)
		for {
			_, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			resp := make([]byte, 48)
			resp[0] = 0x1C // LI 0, version 3, mode 4
			secs := uint32(utc.Unix() + ntpEpochOffset)
			binary.BigEndian.PutUint32(resp[40:44], secs)
			pc.WriteTo(resp, addr)
		}
	}()
	return pc.LocalAddr().String()
}

func TestSyncAppliesGermanOffset(t *testing.T) {
	// A summer instant: local time must come out two hours ahead of UTC.
	utc := time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC)
	addr := fakeNTP(t, utc)

	s := New(addr, zerolog.Nop())
	if s.Synced() {
		t.Fatal("Synced before first sync")
	}
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !s.Synced() {
		t.Error("Synced still false after sync")
	}

	want := utc.Add(2 * time.Hour)
	got := s.Now()
	if got.Sub(want) < 0 || got.Sub(want) > 2*time.Second {
		t.Errorf("Now() = %v, want about %v", got, want)
	}
}

func TestSyncWinterOffset(t *testing.T) {
	utc := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	addr := fakeNTP(t, utc)

	s := New(addr, zerolog.Nop())
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	want := utc.Add(time.Hour)
	got := s.Now()
	if got.Sub(want) < 0 || got.Sub(want) > 2*time.Second {
		t.Errorf("Now() = %v, want about %v", got, want)
	}
}

func TestSyncRejectsZeroTimestamp(t *testing.T) {
	addr := fakeNTP(t, time.Unix(-ntpEpochOffset, 0))
	s := New(addr, zerolog.Nop())
	if err := s.Sync(context.Background()); err == nil {
		t.Fatal("Sync accepted a zero transmit timestamp")
	}
}

func TestSyncUnreachableServer(t *testing.T) {
	s := New("127.0.0.1:1", zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := s.Sync(ctx); err == nil {
		t.Fatal("Sync succeeded against unreachable server")
	}
}
