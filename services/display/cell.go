// services/display/cell.go
package display

import "sync"

// Cell is the single synchronized boundary between the queue-processing
// domain and the render goroutine: a one-slot shared value holding the text
// to show and whether the panel should be powered.
//
// Contract: the bridge task writes (last write wins), the renderer reads. No
// other state crosses between the two domains. The final device flush also
// runs under this mutex (Sync) so a concurrent write cannot interleave with
// a frame being pushed out.
type Cell struct {
	mu    sync.Mutex
	text  string
	power bool
}

// Set stores the desired text and power state.
func (c *Cell) Set(text string, power bool) {
	c.mu.Lock()
	c.text = text
	c.power = power
	c.mu.Unlock()
}

// Get returns the current text and power state.
func (c *Cell) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, c.power
}

// Sync runs fn under the cell mutex.
func (c *Cell) Sync(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}
