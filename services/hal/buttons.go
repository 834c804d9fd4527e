// services/hal/buttons.go
package hal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"avnotify/errcode"
	"avnotify/queue"
	"avnotify/types"
	"avnotify/x/timex"
)

const (
	// DefaultPollInterval is how often the poll task checks the mailbox.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultDebounce is the per-pin acceptance window: an edge counts only
	// if it is strictly more than this much later than the last accepted
	// edge on the same pin.
	DefaultDebounce = 200 * time.Millisecond
)

// ButtonsConfig maps board pins to semantics.
type ButtonsConfig struct {
	AcceptPin int
	RejectPin int
	Poll      time.Duration
	Debounce  time.Duration
}

// Buttons bridges raw button interrupts to debounced, labeled logical events
// on the main event queue. Interrupt handlers write the single-slot mailbox;
// a periodic poll task drains it, applies the per-pin debounce window, and
// publishes.
type Buttons struct {
	cfg    ButtonsConfig
	mb     Mailbox
	events *queue.Queue[types.Event]
	log    zerolog.Logger

	debounceMs atomic.Int64
	lastAccept map[int]int64 // pin -> ms of last accepted edge
}

func NewButtons(pins PinFactory, cfg ButtonsConfig, events *queue.Queue[types.Event], log zerolog.Logger) (*Buttons, error) {
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultPollInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	b := &Buttons{
		cfg:        cfg,
		events:     events,
		log:        log,
		lastAccept: map[int]int64{},
	}
	b.debounceMs.Store(int64(cfg.Debounce / time.Millisecond))

	for _, n := range []int{cfg.AcceptPin, cfg.RejectPin} {
		pin, ok := pins.ByNumber(n)
		if !ok {
			return nil, &errcode.E{C: errcode.InvalidArgument, Op: "hal.NewButtons", Msg: "unknown pin"}
		}
		if err := pin.ConfigureInput(true); err != nil {
			return nil, err
		}
		num := n
		if err := pin.SetIRQ(EdgeBoth, func(level bool) {
			b.mb.Store(num, level, timex.NowMs())
		}); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// SetDebounce adjusts the acceptance window at runtime (config reload).
func (b *Buttons) SetDebounce(d time.Duration) {
	if d > 0 {
		b.debounceMs.Store(int64(d / time.Millisecond))
	}
}

// Start launches the poll task.
func (b *Buttons) Start(ctx context.Context) {
	go b.pollLoop(ctx)
}

func (b *Buttons) pollLoop(ctx context.Context) {
	tick := time.NewTicker(b.cfg.Poll)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if edge, ok := b.mb.Take(); ok {
				b.handleEdge(ctx, edge)
			}
		}
	}
}

// handleEdge applies the debounce window and publishes the logical event.
func (b *Buttons) handleEdge(ctx context.Context, e RawEdge) {
	if last, seen := b.lastAccept[e.Pin]; seen && e.TS-last <= b.debounceMs.Load() {
		return
	}
	b.lastAccept[e.Pin] = e.TS

	var label types.ButtonLabel
	switch e.Pin {
	case b.cfg.AcceptPin:
		label = types.ButtonAccept
	case b.cfg.RejectPin:
		label = types.ButtonReject
	default:
		label = types.ButtonUnknown
	}

	evType := types.EventButtonPressed
	if e.Level {
		evType = types.EventButtonReleased
	}

	if err := b.events.Put(ctx, types.Event{Type: evType, Value: string(label)}); err != nil {
		return
	}
	b.log.Debug().Int("pin", e.Pin).Str("label", string(label)).Str("type", string(evType)).Msg("button event")
}
