// services/hal/led.go
package hal

import (
	"context"

	"github.com/rs/zerolog"

	"avnotify/errcode"
	"avnotify/queue"
	"avnotify/types"
)

// LED drains the LED command queue into a single alert pin.
type LED struct {
	pin  GPIOPin
	cmds *queue.Queue[types.LedCommand]
	log  zerolog.Logger
}

func NewLED(pins PinFactory, pinN int, cmds *queue.Queue[types.LedCommand], log zerolog.Logger) (*LED, error) {
	pin, ok := pins.ByNumber(pinN)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidArgument, Op: "hal.NewLED", Msg: "unknown pin"}
	}
	if err := pin.ConfigureOutput(false); err != nil {
		return nil, err
	}
	return &LED{pin: pin, cmds: cmds, log: log}, nil
}

// Start launches the drain task.
func (l *LED) Start(ctx context.Context) {
	go func() {
		for {
			cmd, err := l.cmds.Get(ctx)
			if err != nil {
				return
			}
			switch cmd.State {
			case types.LedOn:
				l.pin.Set(true)
			case types.LedOff:
				l.pin.Set(false)
			}
		}
	}()
}
