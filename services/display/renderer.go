// services/display/renderer.go
package display

import (
	"context"
	"image/color"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/tinyfont"

	"avnotify/x/mathx"
)

const (
	// ScrollStep is how many pixels the text advances per frame.
	ScrollStep = 3
	// ScrollFrame is the minimum interval between scroll frames.
	ScrollFrame = time.Millisecond
	// staticIdle is the redraw-check interval while showing static text.
	staticIdle = 200 * time.Millisecond
	// powerOffIdle is the poll interval while the panel is dark.
	powerOffIdle = 500 * time.Millisecond
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Device is the physical display contract. drivers.Displayer plus buffer
// clearing and panel power control; *sh1106.Device satisfies it.
type Device interface {
	Size() (x, y int16)
	SetPixel(x, y int16, c color.RGBA)
	Display() error
	ClearBuffer()
	Sleep(off bool) error
}

var transliterate = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue",
	"Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
	"ß", "ss",
)

// Sanitize transliterates German umlauts to ASCII and drops every character
// that is not alphanumeric, space, period or hyphen.
func Sanitize(text string) string {
	text = transliterate.Replace(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, ch := range text {
		switch {
		case ch >= '0' && ch <= '9',
			ch >= 'A' && ch <= 'Z',
			ch >= 'a' && ch <= 'z',
			ch == ' ', ch == '.', ch == '-':
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// layout describes how one piece of text is placed on the panel. For text
// that fits, xStart == xEnd and the position is a centered static one; for
// wider text the scroll runs from the right edge (xStart) down past the full
// negative width (xEnd).
type layout struct {
	width  int
	yBase  int16
	xStart int
	xEnd   int
}

func (l layout) static() bool { return l.xStart == l.xEnd }

// Renderer owns the scroll state and the physical panel. It runs on its own
// goroutine, decoupled from the queue-processing domain; the cell is the only
// shared state.
type Renderer struct {
	dev  Device
	font tinyfont.Fonter
	cell *Cell
	log  zerolog.Logger
}

func NewRenderer(dev Device, font tinyfont.Fonter, cell *Cell, log zerolog.Logger) *Renderer {
	return &Renderer{dev: dev, font: font, cell: cell, log: log}
}

func (r *Renderer) measure(text string) layout {
	w, h := r.dev.Size()
	fontH := int16(r.font.GetYAdvance())
	// A font taller than the panel still gets a baseline on it.
	yTop := mathx.Clamp((h-fontH)/2, 0, h)
	_, outbox := tinyfont.LineWidth(r.font, text)
	tw := int(outbox)

	l := layout{width: tw, yBase: yTop + fontH}
	if tw <= int(w) {
		l.xStart = (int(w) - tw) / 2
		l.xEnd = l.xStart
	} else {
		l.xStart = int(w)
		l.xEnd = -tw
	}
	return l
}

// advance steps the scroll offset, wrapping past the end.
func (l layout) advance(x int) int {
	x -= ScrollStep
	if x <= l.xEnd {
		return l.xStart
	}
	return x
}

// Run is the render loop. Each wake it reads the cell, handles power, lays
// out changed text, and draws either a single centered frame or the next
// scroll frame. It returns when ctx is cancelled.
func (r *Renderer) Run(ctx context.Context) {
	var (
		cached string
		lay    layout
		x      int
		dark   = true
	)
	for {
		text, power := r.cell.Get()

		if !power {
			if !dark {
				if err := r.dev.Sleep(true); err != nil {
					r.log.Warn().Err(err).Msg("display power off failed")
				}
				dark = true
			}
			cached = ""
			if !sleepCtx(ctx, powerOffIdle) {
				return
			}
			continue
		}

		if dark {
			if err := r.dev.Sleep(false); err != nil {
				r.log.Warn().Err(err).Msg("display power on failed")
			}
			dark = false
		}

		if s := Sanitize(text); s != cached {
			cached = s
			lay = r.measure(cached)
			x = lay.xStart
			if lay.static() {
				r.render(cached, lay.yBase, x)
				continue
			}
		}

		if lay.static() {
			if !sleepCtx(ctx, staticIdle) {
				return
			}
			continue
		}

		r.render(cached, lay.yBase, x)
		x = lay.advance(x)
		if !sleepCtx(ctx, ScrollFrame) {
			return
		}
	}
}

// render draws one frame. The device flush runs under the cell mutex so a
// concurrent writer cannot interleave with the transfer.
func (r *Renderer) render(text string, yBase int16, x int) {
	r.dev.ClearBuffer()
	tinyfont.WriteLine(r.dev, r.font, int16(x), yBase, text, white)
	r.cell.Sync(func() {
		if err := r.dev.Display(); err != nil {
			r.log.Warn().Err(err).Msg("display flush failed")
		}
	})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
