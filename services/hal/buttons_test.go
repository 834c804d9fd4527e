// services/hal/buttons_test.go
package hal

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"avnotify/queue"
	"avnotify/types"
)

const (
	testAcceptPin = 15
	testRejectPin = 14
)

func newTestButtons(t *testing.T) (*Buttons, *FakePinFactory, *queue.Queue[types.Event]) {
	t.Helper()
	pins := NewFakePinFactory()
	events := queue.MustNew[types.Event](10)
	b, err := NewButtons(pins, ButtonsConfig{
		AcceptPin: testAcceptPin,
		RejectPin: testRejectPin,
	}, events, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return b, pins, events
}

func TestDebounceSuppressesCloseEdges(t *testing.T) {
	b, _, events := newTestButtons(t)
	ctx := context.Background()

	b.handleEdge(ctx, RawEdge{Pin: testAcceptPin, Level: false, TS: 1000})
	b.handleEdge(ctx, RawEdge{Pin: testAcceptPin, Level: false, TS: 1150}) // within window
	b.handleEdge(ctx, RawEdge{Pin: testAcceptPin, Level: false, TS: 1200}) // exactly 200 ms after: still suppressed

	if got := events.Qsize(); got != 1 {
		t.Fatalf("expected 1 accepted event, got %d", got)
	}
}

func TestDebounceAcceptsSpacedEdges(t *testing.T) {
	b, _, events := newTestButtons(t)
	ctx := context.Background()

	b.handleEdge(ctx, RawEdge{Pin: testAcceptPin, Level: false, TS: 1000})
	b.handleEdge(ctx, RawEdge{Pin: testAcceptPin, Level: false, TS: 1201}) // > 200 ms later

	if got := events.Qsize(); got != 2 {
		t.Fatalf("expected 2 accepted events, got %d", got)
	}
}

func TestDebounceIsPerPin(t *testing.T) {
	b, _, events := newTestButtons(t)
	ctx := context.Background()

	b.handleEdge(ctx, RawEdge{Pin: testAcceptPin, Level: false, TS: 1000})
	b.handleEdge(ctx, RawEdge{Pin: testRejectPin, Level: false, TS: 1050}) // different pin, own window

	if got := events.Qsize(); got != 2 {
		t.Fatalf("expected 2 events across distinct pins, got %d", got)
	}
}

func TestEdgeTranslation(t *testing.T) {
	b, _, events := newTestButtons(t)
	ctx := context.Background()

	b.handleEdge(ctx, RawEdge{Pin: testAcceptPin, Level: false, TS: 1000})
	b.handleEdge(ctx, RawEdge{Pin: testRejectPin, Level: true, TS: 2000})
	b.handleEdge(ctx, RawEdge{Pin: 99, Level: false, TS: 3000})

	want := []types.Event{
		{Type: types.EventButtonPressed, Value: string(types.ButtonAccept)},
		{Type: types.EventButtonReleased, Value: string(types.ButtonReject)},
		{Type: types.EventButtonPressed, Value: string(types.ButtonUnknown)},
	}
	for i, w := range want {
		got, err := events.Get(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != w {
			t.Errorf("event %d: got %+v, want %+v", i, got, w)
		}
	}
}

// End-to-end through the fake pin ISR and the poll loop.
func TestButtonsPollPath(t *testing.T) {
	pins := NewFakePinFactory()
	events := queue.MustNew[types.Event](10)
	b, err := NewButtons(pins, ButtonsConfig{
		AcceptPin: testAcceptPin,
		RejectPin: testRejectPin,
		Poll:      5 * time.Millisecond,
	}, events, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	pins.Pin(testAcceptPin).RaiseEdge(false)

	getCtx, getCancel := context.WithTimeout(ctx, time.Second)
	defer getCancel()
	ev, err := events.Get(getCtx)
	if err != nil {
		t.Fatalf("no event published: %v", err)
	}
	if ev.Type != types.EventButtonPressed || ev.Value != string(types.ButtonAccept) {
		t.Errorf("got %+v", ev)
	}
}

func TestSetDebounce(t *testing.T) {
	b, _, events := newTestButtons(t)
	ctx := context.Background()

	b.SetDebounce(50 * time.Millisecond)
	b.handleEdge(ctx, RawEdge{Pin: testAcceptPin, Level: false, TS: 1000})
	b.handleEdge(ctx, RawEdge{Pin: testAcceptPin, Level: false, TS: 1060})

	if got := events.Qsize(); got != 2 {
		t.Fatalf("expected 2 events with narrowed window, got %d", got)
	}
}
