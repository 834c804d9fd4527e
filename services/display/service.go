// services/display/service.go
//
// Package display turns display-queue commands into pixels. A bridging task
// drains the command queue and writes the lock-guarded {text, power} cell;
// the renderer goroutine (started lazily on the first command) owns layout,
// scrolling and the physical panel.
package display

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"tinygo.org/x/tinyfont"

	"avnotify/queue"
	"avnotify/types"
)

type Service struct {
	cmds *queue.Queue[types.DisplayCommand]
	cell Cell
	r    *Renderer
	log  zerolog.Logger

	startOnce sync.Once
	current   string
}

func New(dev Device, font tinyfont.Fonter, cmds *queue.Queue[types.DisplayCommand], log zerolog.Logger) *Service {
	s := &Service{cmds: cmds, log: log}
	s.r = NewRenderer(dev, font, &s.cell, log)
	return s
}

// Start launches the queue-drain task. The render goroutine starts on the
// first command, not before.
func (s *Service) Start(ctx context.Context) {
	go func() {
		for {
			cmd, err := s.cmds.Get(ctx)
			if err != nil {
				return
			}
			s.handle(ctx, cmd)
		}
	}()
}

func (s *Service) handle(ctx context.Context, cmd types.DisplayCommand) {
	switch cmd.Type {
	case types.DisplayNewText:
		if cmd.Value == s.current {
			return
		}
		s.current = cmd.Value
		s.update(ctx, cmd.Value, true)
	case types.DisplayDeleteText:
		s.current = ""
		s.update(ctx, "", false)
	}
}

func (s *Service) update(ctx context.Context, text string, power bool) {
	s.cell.Set(text, power)
	s.startOnce.Do(func() {
		go s.r.Run(ctx)
	})
}
