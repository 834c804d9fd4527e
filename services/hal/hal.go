// services/hal/hal.go
//
// Package hal is the hardware seam of the appliance. GPIO pins and the I2C
// bus sit behind small interfaces with build-tagged platform factories: host
// builds get inert fakes that tests drive directly, MCU builds wrap machine.
package hal

import (
	"tinygo.org/x/drivers"
)

// Edge selects which signal transitions raise an interrupt.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// GPIOPin is a single digital pin.
type GPIOPin interface {
	Number() int
	ConfigureInput(pullDown bool) error
	ConfigureOutput(initial bool) error
	Get() bool
	Set(level bool)
}

// IRQPin is a GPIO pin that can deliver edge interrupts. The handler runs in
// interrupt context: it must be O(1), must not suspend and must not allocate.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func(level bool)) error
	ClearIRQ() error
}

// PinFactory resolves pins by board number.
type PinFactory interface {
	ByNumber(n int) (IRQPin, bool)
}

// I2CFactory resolves I2C buses by id ("i2c0", "i2c1").
type I2CFactory interface {
	ByID(id string) (drivers.I2C, bool)
}
