// services/hal/platform_rp2xxx.go
//go:build rp2040 || rp2350

package hal

import (
	"machine"

	"tinygo.org/x/drivers"
)

type machinePin struct {
	p machine.Pin
}

func (m machinePin) Number() int { return int(m.p) }

func (m machinePin) ConfigureInput(pullDown bool) error {
	mode := machine.PinInput
	if pullDown {
		mode = machine.PinInputPulldown
	}
	m.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (m machinePin) ConfigureOutput(initial bool) error {
	m.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	m.p.Set(initial)
	return nil
}

func (m machinePin) Get() bool      { return m.p.Get() }
func (m machinePin) Set(level bool) { m.p.Set(level) }

func (m machinePin) SetIRQ(edge Edge, handler func(level bool)) error {
	var change machine.PinChange
	switch edge {
	case EdgeRising:
		change = machine.PinRising
	case EdgeFalling:
		change = machine.PinFalling
	case EdgeBoth:
		change = machine.PinRising | machine.PinFalling
	default:
		return nil
	}
	return m.p.SetInterrupt(change, func(p machine.Pin) { handler(p.Get()) })
}

func (m machinePin) ClearIRQ() error { return m.p.SetInterrupt(0, nil) }

type machinePinFactory struct{}

func (machinePinFactory) ByNumber(n int) (IRQPin, bool) {
	return machinePin{p: machine.Pin(n)}, true
}

type machineI2CFactory struct{}

func (machineI2CFactory) ByID(id string) (drivers.I2C, bool) {
	var bus *machine.I2C
	switch id {
	case "i2c0":
		bus = machine.I2C0
	case "i2c1":
		bus = machine.I2C1
	default:
		return nil, false
	}
	if err := bus.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz}); err != nil {
		return nil, false
	}
	return bus, true
}

func DefaultPinFactory() PinFactory { return machinePinFactory{} }
func DefaultI2CFactory() I2CFactory { return machineI2CFactory{} }
