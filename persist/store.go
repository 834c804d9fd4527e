// store.go
//
// Package persist owns the two on-disk artefacts of the appliance: the
// message ledger (a JSON array, capped, rewritten in full) and the rotating
// diagnostic log. In-memory state is always authoritative; read/write
// failures are reported and the next cycle tries again opportunistically.
package persist

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"

	"avnotify/types"
)

// Store persists the message ledger as a JSON array of at most
// types.MaxMessages entries. Every save is a full-file rewrite; there is no
// partial update.
type Store struct {
	path string
	log  zerolog.Logger
}

func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Load reads the ledger file, creating an empty one if it does not exist.
// A corrupt or unreadable file yields an empty ledger, not an error: the
// appliance must come up regardless.
func (s *Store) Load() []types.Message {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if werr := os.WriteFile(s.path, []byte("[]"), 0o644); werr != nil {
			s.log.Error().Err(werr).Str("path", s.path).Msg("cannot create message file")
		}
		return nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("cannot read message file")
		return nil
	}
	var msgs []types.Message
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &msgs); err != nil {
			s.log.Error().Err(err).Str("path", s.path).Msg("message file corrupt, starting empty")
			return nil
		}
	}
	if len(msgs) > types.MaxMessages {
		msgs = msgs[len(msgs)-types.MaxMessages:]
	}
	return msgs
}

// Save rewrites the ledger file with at most the newest types.MaxMessages
// entries, in arrival order.
func (s *Store) Save(msgs []types.Message) error {
	if len(msgs) > types.MaxMessages {
		msgs = msgs[len(msgs)-types.MaxMessages:]
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("cannot write message file")
		return err
	}
	return nil
}
