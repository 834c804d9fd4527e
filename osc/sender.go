// sender.go
package osc

import (
	"net"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Sender fires OSC datagrams at a fixed host:port. The transport is
// connectionless and unacknowledged: no retry, no delivery confirmation.
// The target address may be swapped at runtime (config reload).
type Sender struct {
	conn *net.UDPConn
	addr atomic.Pointer[net.UDPAddr]
	log  zerolog.Logger
}

// NewSender resolves target ("host:port") and opens an unbound UDP socket.
func NewSender(target string, log zerolog.Logger) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	s := &Sender{conn: conn, log: log}
	s.addr.Store(addr)
	return s, nil
}

// SetTarget swaps the destination address. Safe to call concurrently with Send.
func (s *Sender) SetTarget(target string) error {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return err
	}
	s.addr.Store(addr)
	return nil
}

// Send encodes and transmits one (address, value) message. Encode errors are
// returned to the caller; transmit errors are logged and swallowed because
// the transport is fire-and-forget.
func (s *Sender) Send(address string, arg any) error {
	pkt, err := Encode(address, arg)
	if err != nil {
		return err
	}
	if _, err := s.conn.WriteToUDP(pkt, s.addr.Load()); err != nil {
		s.log.Warn().Err(err).Str("address", address).Msg("osc send failed")
		return nil
	}
	s.log.Debug().Str("address", address).Interface("value", arg).Msg("osc sent")
	return nil
}

// Close releases the socket.
func (s *Sender) Close() error { return s.conn.Close() }
