// services/hal/led_test.go
package hal

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"avnotify/queue"
	"avnotify/types"
)

func TestLEDFollowsCommands(t *testing.T) {
	pins := NewFakePinFactory()
	cmds := queue.MustNew[types.LedCommand](4)
	led, err := NewLED(pins, 2, cmds, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	led.Start(ctx)

	pin := pins.Pin(2)
	if pin.Get() {
		t.Fatal("LED should start off")
	}

	_ = cmds.Put(ctx, types.LedCommand{State: types.LedOn})
	waitFor(t, func() bool { return pin.Get() }, "LED on")

	_ = cmds.Put(ctx, types.LedCommand{State: types.LedOff})
	waitFor(t, func() bool { return !pin.Get() }, "LED off")
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}
