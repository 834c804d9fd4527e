// services/notify/service.go
//
// Package notify is the notification state machine. It is the sole owner of
// the message ledger, the display/remote cursors and the generation counter:
// every mutation happens on the service loop goroutine, so the state needs no
// locking for correctness — the small mutex only serializes snapshot reads
// (persistence flusher, web API) against in-place mutation.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"avnotify/persist"
	"avnotify/queue"
	"avnotify/types"
)

// Default Resolume parameter paths, overridable via config.
const (
	DefaultPathText    = "/composition/layers/6/clips/1/video/effects/textblock/effect/text/params/lines"
	DefaultPathOpacity = "/composition/layers/6/video/opacity"
	DefaultPathConnect = "/composition/layers/6/clips/1/connect"
	DefaultPathGroup   = "/composition/groups/4/video/opacity/behaviour/playdirection"
)

const (
	// DefaultAutoClear is how long an accepted message stays on the remote
	// display before it is cleared automatically.
	DefaultAutoClear = 45 * time.Second
	// DefaultWriteDelay is the persistence debounce: mutations within this
	// window after the first dirty signal coalesce into one write.
	DefaultWriteDelay = 500 * time.Millisecond
)

// RemoteSender is the remote-protocol surface the state machine drives.
// *osc.Sender satisfies it.
type RemoteSender interface {
	Send(address string, arg any) error
}

// RemotePaths are the remote parameter addresses.
type RemotePaths struct {
	Text    string
	Opacity string
	Connect string
	Group   string
}

func DefaultRemotePaths() RemotePaths {
	return RemotePaths{
		Text:    DefaultPathText,
		Opacity: DefaultPathOpacity,
		Connect: DefaultPathConnect,
		Group:   DefaultPathGroup,
	}
}

// Config tunes the state machine. Zero values select the defaults above.
type Config struct {
	Paths      RemotePaths
	AutoClear  time.Duration
	WriteDelay time.Duration
	Now        func() time.Time
}

// clearReq is a deferred auto-clear re-entering the service loop. The
// generation captured at schedule time is compared against the live counter;
// a mismatch means a newer Accept superseded this timer and it must no-op.
type clearReq struct {
	index      int
	generation int64
}

type Service struct {
	events  *queue.Queue[types.Event]
	display *queue.Queue[types.DisplayCommand]
	leds    *queue.Queue[types.LedCommand]
	remote  RemoteSender
	store   *persist.Store
	log     zerolog.Logger
	cfg     Config

	mu         sync.Mutex // guards messages and cursors for snapshot readers
	messages   []types.Message
	displayIdx int
	remoteIdx  int

	generation int64
	clearCh    chan clearReq
	dirty      chan struct{}
}

func New(
	events *queue.Queue[types.Event],
	display *queue.Queue[types.DisplayCommand],
	leds *queue.Queue[types.LedCommand],
	remote RemoteSender,
	store *persist.Store,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.Paths == (RemotePaths{}) {
		cfg.Paths = DefaultRemotePaths()
	}
	if cfg.AutoClear <= 0 {
		cfg.AutoClear = DefaultAutoClear
	}
	if cfg.WriteDelay <= 0 {
		cfg.WriteDelay = DefaultWriteDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Service{
		events:     events,
		display:    display,
		leds:       leds,
		remote:     remote,
		store:      store,
		log:        log,
		cfg:        cfg,
		displayIdx: -1,
		remoteIdx:  -1,
		clearCh:    make(chan clearReq, types.MaxMessages),
		dirty:      make(chan struct{}, 1),
	}
	if store != nil {
		s.messages = store.Load()
	}
	return s
}

// Messages returns a copy of the ledger, newest last.
func (s *Service) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Start launches the event loop, the event pump and the persistence flusher.
func (s *Service) Start(ctx context.Context) {
	evCh := make(chan types.Event)
	go func() { // pump: queue -> channel, so the loop can select
		for {
			ev, err := s.events.Get(ctx)
			if err != nil {
				return
			}
			select {
			case evCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	go s.loop(ctx, evCh)
	go s.flushLoop(ctx)
}

func (s *Service) loop(ctx context.Context, evCh <-chan types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-evCh:
			s.handleEvent(ctx, ev)
		case req := <-s.clearCh:
			s.handleClear(req)
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, ev types.Event) {
	switch ev.Type {
	case types.EventButtonPressed:
		switch types.ButtonLabel(ev.Value) {
		case types.ButtonAccept:
			s.handleAccept(ctx)
		case types.ButtonReject:
			s.handleReject(ctx)
		default:
			s.log.Warn().Str("value", ev.Value).Msg("button press with unknown label")
		}
	case types.EventButtonReleased:
		// Releases are tracked but carry no action.
	case types.EventPickup:
		s.handleNotice(ctx, types.KindPickup, ev.Value, "Kind abholen: "+ev.Value)
	case types.EventEmergency:
		s.handleNotice(ctx, types.KindEmergency, emergencyValue, "Ersthelfer zum Kids Check-In")
	case types.EventParking:
		s.handleNotice(ctx, types.KindParking, ev.Value, "Bitte umparken: "+ev.Value)
	}
}

const emergencyValue = "Ersthelfer / medizinisches Fachpersonal bitte zum Kids Check-In"

// handleNotice appends a Wait message, points the display cursor at it and
// lights the panel and LED.
func (s *Service) handleNotice(ctx context.Context, kind types.MessageKind, value, displayText string) {
	s.mu.Lock()
	s.messages = append(s.messages, types.Message{
		Kind:      kind,
		Value:     value,
		State:     types.StateWait,
		Timestamp: s.cfg.Now().Format(types.TimestampLayout),
	})
	// Evict past the cap, shifting the display cursor down and flooring at -1.
	if evicted := len(s.messages) - types.MaxMessages; evicted > 0 {
		s.messages = s.messages[evicted:]
		if s.displayIdx != -1 {
			s.displayIdx = max(-1, s.displayIdx-evicted)
		}
	}
	s.displayIdx = len(s.messages) - 1
	// The remote cursor tracks its message across the shift caused by the
	// append pushing indices, even though the message itself does not move.
	if s.remoteIdx != -1 {
		s.remoteIdx = max(-1, s.remoteIdx-1)
	}
	s.mu.Unlock()

	s.markDirty()
	s.log.Info().Str("kind", string(kind)).Str("value", value).Msg("notice raised")

	s.put(ctx, types.DisplayCommand{Type: types.DisplayNewText, Value: displayText})
	s.putLed(ctx, types.LedCommand{State: types.LedOn})
}

func (s *Service) handleAccept(ctx context.Context) {
	if s.remoteIdx != -1 {
		s.updateState(s.remoteIdx, types.StateShow)
	}
	if s.displayIdx == -1 {
		return
	}
	s.updateState(s.displayIdx, types.StateAccepted)

	s.mu.Lock()
	entry := s.messages[s.displayIdx]
	s.mu.Unlock()

	if text := remoteText(entry); text != "" {
		s.send(s.cfg.Paths.Text, text)
		s.send(s.cfg.Paths.Opacity, 1.0)
		s.send(s.cfg.Paths.Connect, 1)
		s.send(s.cfg.Paths.Group, 2)
		s.setRemoteIdx(s.displayIdx)
	}

	// Schedule the deferred auto-clear. Supersession is implicit: a newer
	// Accept bumps the generation and this timer's eventual request becomes
	// a no-op inside the loop. The timer itself is never cancelled.
	s.generation++
	req := clearReq{index: s.displayIdx, generation: s.generation}
	time.AfterFunc(s.cfg.AutoClear, func() {
		select {
		case s.clearCh <- req:
		case <-ctx.Done():
		}
	})

	s.setDisplayIdx(-1)
	s.put(ctx, types.DisplayCommand{Type: types.DisplayDeleteText})
	s.putLed(ctx, types.LedCommand{State: types.LedOff})
}

func (s *Service) handleClear(req clearReq) {
	if req.generation != s.generation {
		return // superseded by a newer Accept
	}
	s.send(s.cfg.Paths.Opacity, 0.0)
	s.send(s.cfg.Paths.Connect, 0)
	s.send(s.cfg.Paths.Group, 0)
	s.updateState(req.index, types.StateShow)
	s.setRemoteIdx(-1)
	s.log.Info().Int("index", req.index).Msg("remote display auto-cleared")
}

func (s *Service) handleReject(ctx context.Context) {
	s.send(s.cfg.Paths.Text, "")
	s.send(s.cfg.Paths.Opacity, 0.0)
	s.send(s.cfg.Paths.Connect, 0)

	if s.remoteIdx != -1 && s.displayIdx == -1 {
		s.updateState(s.remoteIdx, types.StateShow)
	}
	if s.displayIdx != -1 {
		s.updateState(s.displayIdx, types.StateRejected)
		s.setDisplayIdx(-1)
		s.put(ctx, types.DisplayCommand{Type: types.DisplayDeleteText})
		s.putLed(ctx, types.LedCommand{State: types.LedOff})
	}
}

// updateState is the sole ledger mutator. An out-of-range index is logged and
// skipped; it never propagates into the event loop.
func (s *Service) updateState(index int, state types.MessageState) {
	s.mu.Lock()
	if index < 0 || index >= len(s.messages) {
		s.mu.Unlock()
		s.log.Warn().Int("index", index).Msg("invalid message index")
		return
	}
	s.messages[index].State = state
	s.mu.Unlock()
	s.markDirty()
}

// remoteText builds the kind-specific message mirrored to the remote display.
func remoteText(m types.Message) string {
	switch m.Kind {
	case types.KindPickup:
		return "Die Eltern von: " + m.Value + " bitte zum Kids Check-in kommen"
	case types.KindEmergency:
		return emergencyValue
	case types.KindParking:
		return "Das Fahrzeug " + m.Value + " bitte umparken"
	}
	return ""
}

func (s *Service) setDisplayIdx(i int) {
	s.mu.Lock()
	s.displayIdx = i
	s.mu.Unlock()
}

func (s *Service) setRemoteIdx(i int) {
	s.mu.Lock()
	s.remoteIdx = i
	s.mu.Unlock()
}

// markDirty signals the flusher. Non-blocking: one pending signal is enough.
func (s *Service) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// flushLoop coalesces mutation bursts into one write: after a dirty signal it
// sleeps the debounce window, then persists. The data-loss window on power
// failure is bounded by that window.
func (s *Service) flushLoop(ctx context.Context) {
	if s.store == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.dirty:
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.WriteDelay):
		}
		if err := s.store.Save(s.Messages()); err != nil {
			s.log.Error().Err(err).Msg("ledger write failed")
		}
	}
}

func (s *Service) send(address string, arg any) {
	if s.remote == nil {
		return
	}
	if err := s.remote.Send(address, arg); err != nil {
		// Encoding failure of one message; drop it, never crash the sender.
		s.log.Error().Err(err).Str("address", address).Msg("remote send rejected")
	}
}

func (s *Service) put(ctx context.Context, cmd types.DisplayCommand) {
	_ = s.display.Put(ctx, cmd)
}

func (s *Service) putLed(ctx context.Context, cmd types.LedCommand) {
	_ = s.leds.Put(ctx, cmd)
}
