// Package sh1106 provides an I2C driver for SH1106-based monochrome OLED
// displays (the 1.3" 128x64 modules). The SH1106 is command-compatible with
// the SSD1306 but has a 132-column RAM and no horizontal addressing mode, so
// the frame buffer is pushed page by page with a 2-column offset.
//
// The driver implements drivers.Displayer, so tinyfont can draw on it.
package sh1106

import (
	"image/color"

	"tinygo.org/x/drivers"

	"avnotify/errcode"
)

// Default I2C address.
const Address = 0x3C

// Control bytes preceding command/data transfers.
const (
	ctrlCommand = 0x00
	ctrlData    = 0x40
)

// Commands.
const (
	cmdDisplayOff    = 0xAE
	cmdDisplayOn     = 0xAF
	cmdSetClockDiv   = 0xD5
	cmdSetMultiplex  = 0xA8
	cmdSetOffset     = 0xD3
	cmdSetStartLine  = 0x40
	cmdDCDC          = 0xAD
	cmdSegRemapOff   = 0xA0
	cmdSegRemapOn    = 0xA1
	cmdComScanInc    = 0xC0
	cmdComScanDec    = 0xC8
	cmdSetComPins    = 0xDA
	cmdSetContrast   = 0x81
	cmdSetPrecharge  = 0xD9
	cmdSetVComDetect = 0xDB
	cmdDisplayAllOnR = 0xA4
	cmdNormalDisplay = 0xA6
	cmdSetPage       = 0xB0
	cmdSetLowColumn  = 0x00
	cmdSetHighColumn = 0x10

	// SH1106 RAM is 132 columns wide; a 128-wide panel is centred.
	columnOffset = 2
)

// Config for the display.
type Config struct {
	// Address defaults to 0x3C if zero.
	Address uint16
	// Width/Height default to 128x64.
	Width  int16
	Height int16
	// Rotate180 flips both scan directions, for modules mounted upside down.
	Rotate180 bool
}

// Device wraps an I2C connection to an SH1106 display.
type Device struct {
	bus     drivers.I2C
	Address uint16

	width  int16
	height int16
	rotate bool
	buffer []byte
	page   []byte // per-page transfer scratch, data control byte + one page
}

// New creates a new SH1106 connection. The I2C bus must already be configured.
// This function only creates the Device object; it does not touch the device.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Configure applies cfg and runs the panel init sequence. An unreachable
// panel surfaces as a DisplayInit error; callers treat that as fatal at
// startup, there is no degraded-display mode.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
	d.width, d.height = cfg.Width, cfg.Height
	if d.width == 0 {
		d.width = 128
	}
	if d.height == 0 {
		d.height = 64
	}
	d.rotate = cfg.Rotate180
	d.buffer = make([]byte, int(d.width)*int(d.height)/8)
	d.page = make([]byte, 1+int(d.width))
	d.page[0] = ctrlData

	segRemap := byte(cmdSegRemapOff)
	comScan := byte(cmdComScanInc)
	if d.rotate {
		segRemap = cmdSegRemapOn
		comScan = cmdComScanDec
	}
	init := []byte{
		cmdDisplayOff,
		cmdSetClockDiv, 0x80,
		cmdSetMultiplex, byte(d.height - 1),
		cmdSetOffset, 0x00,
		cmdSetStartLine | 0x00,
		cmdDCDC, 0x8B, // internal charge pump on
		segRemap,
		comScan,
		cmdSetComPins, 0x12,
		cmdSetContrast, 0x80,
		cmdSetPrecharge, 0x22,
		cmdSetVComDetect, 0x35,
		cmdDisplayAllOnR,
		cmdNormalDisplay,
		cmdDisplayOn,
	}
	if err := d.commands(init...); err != nil {
		return &errcode.E{C: errcode.DisplayInit, Op: "sh1106.Configure", Err: err}
	}
	d.ClearBuffer()
	return d.Display()
}

// Size returns the panel dimensions.
func (d *Device) Size() (x, y int16) { return d.width, d.height }

// SetPixel writes one pixel into the frame buffer. Any non-zero channel is
// "on"; the panel is monochrome. Out-of-range coordinates are ignored.
func (d *Device) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || x >= d.width || y < 0 || y >= d.height {
		return
	}
	idx := int(x) + int(y/8)*int(d.width)
	bit := byte(1) << uint8(y%8)
	if c.R != 0 || c.G != 0 || c.B != 0 {
		d.buffer[idx] |= bit
	} else {
		d.buffer[idx] &^= bit
	}
}

// ClearBuffer zeroes the frame buffer without touching the panel.
func (d *Device) ClearBuffer() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
}

// ClearDisplay zeroes the buffer and pushes it out.
func (d *Device) ClearDisplay() error {
	d.ClearBuffer()
	return d.Display()
}

// Display pushes the frame buffer to the panel, one page at a time.
func (d *Device) Display() error {
	pages := int(d.height) / 8
	for p := 0; p < pages; p++ {
		col := columnOffset
		if err := d.commands(
			cmdSetPage|byte(p),
			cmdSetLowColumn|byte(col&0x0F),
			cmdSetHighColumn|byte(col>>4),
		); err != nil {
			return err
		}
		copy(d.page[1:], d.buffer[p*int(d.width):(p+1)*int(d.width)])
		if err := d.bus.Tx(d.Address, d.page, nil); err != nil {
			return err
		}
	}
	return nil
}

// Sleep turns the panel off (true) or on (false) without losing RAM contents.
func (d *Device) Sleep(off bool) error {
	if off {
		return d.commands(cmdDisplayOff)
	}
	return d.commands(cmdDisplayOn)
}

func (d *Device) commands(cmds ...byte) error {
	buf := make([]byte, 0, 2*len(cmds))
	for _, c := range cmds {
		buf = append(buf, ctrlCommand, c)
	}
	return d.bus.Tx(d.Address, buf, nil)
}
