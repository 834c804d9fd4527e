// services/hal/platform_host.go
//go:build !rp2040 && !rp2350

package hal

import (
	"sync"

	"tinygo.org/x/drivers"
)

// FakePin implements GPIOPin and IRQPin for host builds and tests.
type FakePin struct {
	mu      sync.Mutex
	n       int
	level   bool
	edge    Edge
	handler func(level bool)
}

func (p *FakePin) Number() int { return p.n }

func (p *FakePin) ConfigureInput(pullDown bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = false
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = initial
	return nil
}

func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

func (p *FakePin) SetIRQ(edge Edge, handler func(level bool)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edge = edge
	p.handler = handler
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = nil
	return nil
}

// RaiseEdge simulates an interrupt: the level flips and the registered
// handler runs synchronously, as an ISR would.
func (p *FakePin) RaiseEdge(level bool) {
	p.mu.Lock()
	p.level = level
	h := p.handler
	e := p.edge
	p.mu.Unlock()
	if h == nil {
		return
	}
	if e == EdgeBoth || (level && e == EdgeRising) || (!level && e == EdgeFalling) {
		h(level)
	}
}

// FakePinFactory hands out FakePins on demand and remembers them so tests can
// drive edges.
type FakePinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewFakePinFactory() *FakePinFactory {
	return &FakePinFactory{pins: map[int]*FakePin{}}
}

func (f *FakePinFactory) ByNumber(n int) (IRQPin, bool) {
	p := f.Pin(n)
	return p, true
}

// Pin returns the FakePin for n, creating it if needed.
func (f *FakePinFactory) Pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{n: n}
		f.pins[n] = p
	}
	return p
}

// HostI2C implements drivers.I2C for host builds. Writes are recorded for
// inspection; reads return zeros.
type HostI2C struct {
	mu     sync.Mutex
	LastTx struct {
		Addr  uint16
		Count int
		W     []byte
	}
}

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastTx.Addr = addr
	h.LastTx.Count++
	h.LastTx.W = append(h.LastTx.W[:0], w...)
	for i := range r {
		r[i] = 0
	}
	return nil
}

type hostI2CFactory struct {
	buses map[string]drivers.I2C
}

func (f *hostI2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// DefaultPinFactory returns fake pins on host builds. Tests inject their own.
func DefaultPinFactory() PinFactory { return NewFakePinFactory() }

// DefaultI2CFactory creates inert host I2C buses "i2c0" and "i2c1".
func DefaultI2CFactory() I2CFactory {
	return &hostI2CFactory{
		buses: map[string]drivers.I2C{
			"i2c0": &HostI2C{},
			"i2c1": &HostI2C{},
		},
	}
}
