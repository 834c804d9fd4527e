// services/display/display_test.go
package display

import (
	"context"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/tinyfont"

	"avnotify/queue"
	"avnotify/types"
)

// fakeDevice records panel interactions.
type fakeDevice struct {
	mu       sync.Mutex
	flushes  int
	sleeping bool
	pixels   int
}

func (d *fakeDevice) Size() (int16, int16) { return 128, 64 }
func (d *fakeDevice) SetPixel(x, y int16, c color.RGBA) {
	d.mu.Lock()
	d.pixels++
	d.mu.Unlock()
}
func (d *fakeDevice) Display() error {
	d.mu.Lock()
	d.flushes++
	d.mu.Unlock()
	return nil
}
func (d *fakeDevice) ClearBuffer() {}
func (d *fakeDevice) Sleep(off bool) error {
	d.mu.Lock()
	d.sleeping = off
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) snapshot() (flushes int, sleeping bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushes, d.sleeping
}

func TestSanitize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Müller", "Mueller"},
		{"GRÖSSE", "GROeSSE"},
		{"weiß", "weiss"},
		{"Kind abholen: Ana", "Kind abholen Ana"},
		{"a.b-c d", "a.b-c d"},
		{"emoji 🙂 gone", "emoji  gone"},
		{"Ärzte, bitte!", "Aerzte bitte"},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func testRenderer(dev Device) *Renderer {
	var cell Cell
	return NewRenderer(dev, &tinyfont.TomThumb, &cell, zerolog.Nop())
}

func TestLayoutStaticCentered(t *testing.T) {
	r := testRenderer(&fakeDevice{})
	l := r.measure("hi")
	if !l.static() {
		t.Fatalf("short text should be static, got %+v", l)
	}
	if l.xStart != (128-l.width)/2 {
		t.Errorf("expected centered start, got %+v", l)
	}
}

func TestLayoutScrollBounds(t *testing.T) {
	r := testRenderer(&fakeDevice{})
	long := "this line is far far far far too wide for a 128 pixel panel"
	l := r.measure(long)
	if l.static() {
		t.Fatalf("wide text should scroll, got %+v", l)
	}
	if l.xStart != 128 {
		t.Errorf("scroll should start at the right edge, got %d", l.xStart)
	}
	if l.xEnd != -l.width {
		t.Errorf("scroll should end at negative full width, got %d (width %d)", l.xEnd, l.width)
	}
}

func TestScrollAdvanceWraps(t *testing.T) {
	l := layout{xStart: 128, xEnd: -300}
	x := l.xStart
	for i := 0; i < 2; i++ {
		x = l.advance(x)
	}
	if x != 128-2*ScrollStep {
		t.Errorf("expected steady advance, got %d", x)
	}
	// Step past the end: wraps back to the start offset.
	if got := l.advance(l.xEnd + 1); got != l.xStart {
		t.Errorf("expected wrap to %d, got %d", l.xStart, got)
	}
}

func TestServicePowerLifecycle(t *testing.T) {
	dev := &fakeDevice{}
	cmds := queue.MustNew[types.DisplayCommand](4)
	s := New(dev, &tinyfont.TomThumb, cmds, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	_ = cmds.Put(ctx, types.DisplayCommand{Type: types.DisplayNewText, Value: "Bereit"})
	waitFor(t, func() bool {
		f, sleeping := dev.snapshot()
		return f > 0 && !sleeping
	}, "first frame")

	_ = cmds.Put(ctx, types.DisplayCommand{Type: types.DisplayDeleteText})
	waitFor(t, func() bool {
		_, sleeping := dev.snapshot()
		return sleeping
	}, "panel off")
}

func TestServiceDropsUnchangedText(t *testing.T) {
	dev := &fakeDevice{}
	cmds := queue.MustNew[types.DisplayCommand](4)
	s := New(dev, &tinyfont.TomThumb, cmds, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.handle(ctx, types.DisplayCommand{Type: types.DisplayNewText, Value: "same"})
	text, power := s.cell.Get()
	if text != "same" || !power {
		t.Fatalf("cell not updated: %q %v", text, power)
	}
	s.cell.Set("sentinel", true)
	s.handle(ctx, types.DisplayCommand{Type: types.DisplayNewText, Value: "same"})
	if text, _ := s.cell.Get(); text != "sentinel" {
		t.Error("repeated identical text should not rewrite the cell")
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}
