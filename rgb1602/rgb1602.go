// Package rgb1602 drives a 16x2 character LCD module with an RGB backlight
// over I2C. The module pairs an AiP31068 text controller (HD44780 command
// set) with a PCA9633 LED controller for the backlight.
//
// Example usage:
//
//	lcd := rgb1602.New(machine.I2C0, rgb1602.Address, rgb1602.RGBAddress)
//	if err := lcd.Configure(rgb1602.Config{}); err != nil {
//	    return err
//	}
//	lcd.SetRGB(255, 255, 255)
//	lcd.WriteString("Hello, world!")
//
// Every command is a single 2-byte write (control byte, command) and every
// character is a single 2-byte write (data control byte, character). The
// driver never reads from the bus.
package rgb1602

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"periph.io/x/conn/v3/display"
	"tinygo.org/x/drivers"
)

// Default 7-bit addresses of the two controllers on the module.
const (
	Address    = 0x3E
	RGBAddress = 0x60
)

// Control bytes prefixed to every text controller write.
const (
	controlCommand = 0x80
	controlData    = 0x40
)

// HD44780 instruction set.
const (
	cmdClearDisplay   = 0x01
	cmdReturnHome     = 0x02
	cmdEntryModeSet   = 0x04
	cmdDisplayControl = 0x08
	cmdCursorShift    = 0x10
	cmdFunctionSet    = 0x20
	cmdSetCGRAMAddr   = 0x40
	cmdSetDDRAMAddr   = 0x80

	// entry mode
	entryShiftIncrement = 0x01
	entryLeft           = 0x02

	// display control
	blinkOn   = 0x01
	cursorOn  = 0x02
	displayOn = 0x04

	// cursor/display shift
	moveRight   = 0x04
	displayMove = 0x08

	// function set
	mode4Bit = 0x00
	dots5x8  = 0x00
	lines1   = 0x00
	lines2   = 0x08
)

const packageName = "rgb1602"

var (
	// ErrInvalidPosition is returned by MoveTo for coordinates outside the display.
	ErrInvalidPosition = errors.New("rgb1602: invalid position")
	// ErrInvalidConfig is returned by Configure for unsupported geometries.
	ErrInvalidConfig = errors.New("rgb1602: invalid config")

	rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}
)

// Config describes the display geometry. Zero values select a 2x16 display.
type Config struct {
	Rows int
	Cols int
}

// Device is a handle on the LCD module. It owns its bus and is not safe
// for concurrent use.
type Device struct {
	bus     drivers.I2C
	addr    uint16
	rgbAddr uint16

	rows int
	cols int

	// Mirrors of the last values sent to the controllers.
	function byte
	control  byte
	mode     byte
	rgb      [3]uint8
	blinkBL  bool

	w     [2]byte
	sleep func(time.Duration)
}

// New binds a device to the text controller at addr and the backlight
// controller at rgbAddr. Zero addresses select Address and RGBAddress.
// It does not touch the bus; call Configure before use.
func New(bus drivers.I2C, addr, rgbAddr uint16) *Device {
	if addr == 0 {
		addr = Address
	}
	if rgbAddr == 0 {
		rgbAddr = RGBAddress
	}
	return &Device{
		bus:     bus,
		addr:    addr,
		rgbAddr: rgbAddr,
		rows:    2,
		cols:    16,
		sleep:   time.Sleep,
	}
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// Configure runs the power-on initialisation of both controllers: display
// on with cursor and blink off, cleared, left-to-right entry, and the
// backlight outputs enabled under individual PWM control.
func (d *Device) Configure(cfg Config) error {
	if cfg.Rows == 0 {
		cfg.Rows = 2
	}
	if cfg.Cols == 0 {
		cfg.Cols = 16
	}
	if cfg.Rows < 0 || cfg.Rows > len(rowOffsets) || cfg.Cols < 0 || cfg.Cols > 40 {
		return ErrInvalidConfig
	}
	d.rows, d.cols = cfg.Rows, cfg.Cols

	d.function = mode4Bit | dots5x8 | lines1
	if d.rows > 1 {
		d.function |= lines2
	}

	// The controller needs >40ms after Vcc rises before it accepts commands.
	d.sleep(50 * time.Millisecond)

	// Initialisation by instruction: function set three times.
	for i := 0; i < 3; i++ {
		if err := d.command(cmdFunctionSet | d.function); err != nil {
			return err
		}
		if i < 2 {
			d.sleep(5 * time.Millisecond)
		}
	}

	if err := d.sendControl(displayOn); err != nil {
		return err
	}
	if err := d.Clear(); err != nil {
		return err
	}
	if err := d.command(cmdEntryModeSet | entryLeft); err != nil {
		return err
	}
	d.mode = entryLeft
	return d.configureBacklight()
}

// command sends a single instruction to the text controller.
func (d *Device) command(cmd byte) error {
	d.w[0] = controlCommand
	d.w[1] = cmd
	return wrap(d.bus.Tx(d.addr, d.w[:], nil))
}

// data sends a single character to the text controller.
func (d *Device) data(b byte) error {
	d.w[0] = controlData
	d.w[1] = b
	return wrap(d.bus.Tx(d.addr, d.w[:], nil))
}

// Clear blanks the display and moves the cursor to the origin.
func (d *Device) Clear() error {
	if err := d.command(cmdClearDisplay); err != nil {
		return err
	}
	d.sleep(2 * time.Millisecond)
	return nil
}

// Home moves the cursor to the origin and undoes any display shift.
func (d *Device) Home() error {
	if err := d.command(cmdReturnHome); err != nil {
		return err
	}
	d.sleep(2 * time.Millisecond)
	return nil
}

// SetDisplay turns the text layer on or off without losing its contents.
func (d *Device) SetDisplay(on bool) error {
	return d.setControl(displayOn, on)
}

// SetCursor shows or hides the underline cursor.
func (d *Device) SetCursor(on bool) error {
	return d.setControl(cursorOn, on)
}

// SetBlink shows or hides the blinking block cursor.
func (d *Device) SetBlink(on bool) error {
	return d.setControl(blinkOn, on)
}

func (d *Device) setControl(flag byte, on bool) error {
	ctl := d.control
	if on {
		ctl |= flag
	} else {
		ctl &^= flag
	}
	return d.sendControl(ctl)
}

// sendControl writes a display control byte and keeps it only once the
// controller has acknowledged it.
func (d *Device) sendControl(ctl byte) error {
	if err := d.command(cmdDisplayControl | ctl); err != nil {
		return err
	}
	d.control = ctl
	return nil
}

// DisplayOn reports whether the last acknowledged display control turned the text layer on.
func (d *Device) DisplayOn() bool { return d.control&displayOn != 0 }

// CursorOn reports whether the underline cursor is shown.
func (d *Device) CursorOn() bool { return d.control&cursorOn != 0 }

// BlinkOn reports whether the blinking block cursor is shown.
func (d *Device) BlinkOn() bool { return d.control&blinkOn != 0 }

// AutoScroll makes the display shift on each write instead of the cursor.
func (d *Device) AutoScroll(enabled bool) error {
	mode := d.mode
	if enabled {
		mode |= entryShiftIncrement
	} else {
		mode &^= entryShiftIncrement
	}
	if err := d.command(cmdEntryModeSet | mode); err != nil {
		return err
	}
	d.mode = mode
	return nil
}

// AutoScrolling reports whether the last acknowledged entry mode shifts the display.
func (d *Device) AutoScrolling() bool { return d.mode&entryShiftIncrement != 0 }

// MoveTo places the cursor at row, col. Both are zero based.
func (d *Device) MoveTo(row, col int) error {
	if row < 0 || row >= d.rows || col < 0 || col >= d.cols {
		return ErrInvalidPosition
	}
	return d.command(cmdSetDDRAMAddr | (rowOffsets[row] + byte(col)))
}

// Move shifts the cursor one position forward or backward.
func (d *Device) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Forward:
		return d.command(cmdCursorShift | moveRight)
	case display.Backward:
		return d.command(cmdCursorShift)
	case display.Up, display.Down:
		return wrap(display.ErrNotImplemented)
	default:
		return wrap(display.ErrInvalidCommand)
	}
}

// ScrollLeft and ScrollRight shift the whole display by one position.
func (d *Device) ScrollLeft() error  { return d.command(cmdCursorShift | displayMove) }
func (d *Device) ScrollRight() error { return d.command(cmdCursorShift | displayMove | moveRight) }

// CreateChar stores a 5x8 glyph in one of the eight CGRAM slots. The glyph
// is then printed by writing the byte value slot.
func (d *Device) CreateChar(slot uint8, pattern [8]byte) error {
	if slot > 7 {
		return wrap(display.ErrInvalidCommand)
	}
	if err := d.command(cmdSetCGRAMAddr | slot<<3); err != nil {
		return err
	}
	for _, row := range pattern {
		if err := d.data(row); err != nil {
			return err
		}
	}
	return nil
}

// Write sends p to the display at the cursor, one transaction per byte.
// It returns the number of bytes the controller acknowledged.
func (d *Device) Write(p []byte) (n int, err error) {
	for _, b := range p {
		if err = d.data(b); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// WriteString is like Write for strings.
func (d *Device) WriteString(s string) (n int, err error) {
	for i := 0; i < len(s); i++ {
		if err = d.data(s[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Cursor sets the cursor style. CursorOff clears both the underline and
// blink, CursorUnderline enables the underline, CursorBlock and
// CursorBlink enable the blinking block.
func (d *Device) Cursor(modes ...display.CursorMode) error {
	ctl := d.control
	for _, m := range modes {
		switch m {
		case display.CursorOff:
			ctl &^= cursorOn | blinkOn
		case display.CursorUnderline:
			ctl |= cursorOn
		case display.CursorBlock, display.CursorBlink:
			ctl |= blinkOn
		default:
			return wrap(display.ErrInvalidCommand)
		}
	}
	return d.sendControl(ctl)
}

// Display is SetDisplay under the periph TextDisplay name.
func (d *Device) Display(on bool) error { return d.SetDisplay(on) }

func (d *Device) Rows() int   { return d.rows }
func (d *Device) Cols() int   { return d.cols }
func (d *Device) MinRow() int { return 0 }
func (d *Device) MinCol() int { return 0 }

func (d *Device) String() string {
	return fmt.Sprintf("%s.Device{%#x, %#x, %dx%d}", packageName, d.addr, d.rgbAddr, d.cols, d.rows)
}

var _ display.TextDisplay = &Device{}
var _ display.DisplayBacklight = &Device{}
var _ display.DisplayRGBBacklight = &Device{}
