package rgb1602

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/display/displaytest"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/tester"
)

func noSleep(time.Duration) {}

func newTestDevice(bus drivers.I2C) *Device {
	d := New(bus, 0, 0)
	d.sleep = noSleep
	return d
}

func lcdCmd(cmd byte) i2ctest.IO {
	return i2ctest.IO{Addr: Address, W: []byte{controlCommand, cmd}}
}

func lcdData(b byte) i2ctest.IO {
	return i2ctest.IO{Addr: Address, W: []byte{controlData, b}}
}

func rgbReg(reg, val byte) i2ctest.IO {
	return i2ctest.IO{Addr: RGBAddress, W: []byte{reg, val}}
}

var configureOps = []i2ctest.IO{
	lcdCmd(0x28),
	lcdCmd(0x28),
	lcdCmd(0x28),
	lcdCmd(0x0C),
	lcdCmd(0x01),
	lcdCmd(0x06),
	rgbReg(0x00, 0x00),
	rgbReg(0x08, 0xFF),
	rgbReg(0x01, 0x20),
}

func TestConfigure(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Playback{Ops: configureOps}
	d := newTestDevice(bus)

	c.Assert(d.Configure(Config{}), qt.IsNil)
	c.Assert(bus.Close(), qt.IsNil)
	c.Assert(d.DisplayOn(), qt.IsTrue)
	c.Assert(d.CursorOn(), qt.IsFalse)
	c.Assert(d.BlinkOn(), qt.IsFalse)
	c.Assert(d.Rows(), qt.Equals, 2)
	c.Assert(d.Cols(), qt.Equals, 16)
}

func TestConfigureSingleLine(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Record{}
	d := newTestDevice(bus)

	c.Assert(d.Configure(Config{Rows: 1, Cols: 8}), qt.IsNil)
	c.Assert(bus.Ops[0], qt.DeepEquals, lcdCmd(0x20))
	c.Assert(d.MoveTo(1, 0), qt.Equals, ErrInvalidPosition)
}

func TestConfigureInvalid(t *testing.T) {
	c := qt.New(t)
	for _, cfg := range []Config{{Rows: 5}, {Rows: -1}, {Cols: 41}, {Cols: -3}} {
		d := newTestDevice(&i2ctest.Record{})
		c.Check(d.Configure(cfg), qt.Equals, ErrInvalidConfig, qt.Commentf("%+v", cfg))
	}
}

func TestGreeting(t *testing.T) {
	c := qt.New(t)
	const text = "Hello, world!"

	ops := append([]i2ctest.IO{}, configureOps...)
	ops = append(ops,
		rgbReg(0x04, 255),
		rgbReg(0x03, 255),
		rgbReg(0x02, 255),
		lcdCmd(0x0E),
	)
	for i := 0; i < len(text); i++ {
		ops = append(ops, lcdData(text[i]))
	}
	ops = append(ops, lcdCmd(0x0F))

	bus := &i2ctest.Playback{Ops: ops}
	d := newTestDevice(bus)
	c.Assert(d.Configure(Config{}), qt.IsNil)
	c.Assert(d.SetRGB(255, 255, 255), qt.IsNil)
	c.Assert(d.SetCursor(true), qt.IsNil)
	n, err := d.WriteString(text)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, len(text))
	c.Assert(d.SetBlink(true), qt.IsNil)
	c.Assert(bus.Close(), qt.IsNil)

	r, g, b := d.Color()
	c.Assert([]uint8{r, g, b}, qt.DeepEquals, []uint8{255, 255, 255})
	c.Assert(d.CursorOn(), qt.IsTrue)
	c.Assert(d.BlinkOn(), qt.IsTrue)
}

func TestSetRGBRegisters(t *testing.T) {
	c := qt.New(t)
	bus := tester.NewI2CBus(c)
	led := bus.NewDevice(RGBAddress)
	d := New(bus, Address, RGBAddress)

	c.Assert(d.SetRGB(0x12, 0x34, 0x56), qt.IsNil)
	c.Assert(led.Registers[regRed], qt.Equals, uint8(0x12))
	c.Assert(led.Registers[regGreen], qt.Equals, uint8(0x34))
	c.Assert(led.Registers[regBlue], qt.Equals, uint8(0x56))

	c.Assert(d.RGBBacklight(-4, 300, 7), qt.IsNil)
	c.Assert(led.Registers[regRed], qt.Equals, uint8(0))
	c.Assert(led.Registers[regGreen], qt.Equals, uint8(0xFF))
	c.Assert(led.Registers[regBlue], qt.Equals, uint8(7))

	c.Assert(d.Backlight(0x40), qt.IsNil)
	r, g, b := d.Color()
	c.Assert([]uint8{r, g, b}, qt.DeepEquals, []uint8{0x40, 0x40, 0x40})
}

func TestBlinkBacklight(t *testing.T) {
	c := qt.New(t)
	bus := tester.NewI2CBus(c)
	led := bus.NewDevice(RGBAddress)
	d := New(bus, 0, 0)

	c.Assert(d.BlinkBacklight(true), qt.IsNil)
	c.Assert(led.Registers[regGrpFreq], qt.Equals, uint8(0x17))
	c.Assert(led.Registers[regGrpPWM], qt.Equals, uint8(0x7F))
	c.Assert(d.BacklightBlinking(), qt.IsTrue)

	c.Assert(d.BlinkBacklight(false), qt.IsNil)
	c.Assert(led.Registers[regGrpFreq], qt.Equals, uint8(0x00))
	c.Assert(led.Registers[regGrpPWM], qt.Equals, uint8(0xFF))
	c.Assert(d.BacklightBlinking(), qt.IsFalse)
}

func TestMoveTo(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Record{}
	d := newTestDevice(bus)

	c.Assert(d.MoveTo(0, 0), qt.IsNil)
	c.Assert(d.MoveTo(1, 3), qt.IsNil)
	c.Assert(d.MoveTo(0, 15), qt.IsNil)
	c.Assert(bus.Ops, qt.DeepEquals, []i2ctest.IO{lcdCmd(0x80), lcdCmd(0xC3), lcdCmd(0x8F)})

	for _, pos := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 16}} {
		c.Check(d.MoveTo(pos[0], pos[1]), qt.Equals, ErrInvalidPosition, qt.Commentf("%v", pos))
	}
	c.Assert(bus.Ops, qt.HasLen, 3)
}

func TestCursorModes(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		name  string
		modes []display.CursorMode
		want  byte
	}{
		{"underline", []display.CursorMode{display.CursorUnderline}, 0x0E},
		{"block", []display.CursorMode{display.CursorBlock}, 0x0D},
		{"underline and blink", []display.CursorMode{display.CursorUnderline, display.CursorBlink}, 0x0F},
		{"off after underline", []display.CursorMode{display.CursorUnderline, display.CursorOff}, 0x0C},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			bus := &i2ctest.Record{}
			d := newTestDevice(bus)
			c.Assert(d.Configure(Config{}), qt.IsNil)
			bus.Ops = nil

			c.Assert(d.Cursor(tt.modes...), qt.IsNil)
			c.Assert(bus.Ops, qt.DeepEquals, []i2ctest.IO{lcdCmd(tt.want)})
		})
	}

	d := newTestDevice(&i2ctest.Record{})
	err := d.Cursor(display.CursorBlink + 1)
	c.Assert(errors.Is(err, display.ErrInvalidCommand), qt.IsTrue)
}

func TestMoveAndScroll(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Record{}
	d := newTestDevice(bus)

	c.Assert(d.Move(display.Forward), qt.IsNil)
	c.Assert(d.Move(display.Backward), qt.IsNil)
	c.Assert(d.ScrollLeft(), qt.IsNil)
	c.Assert(d.ScrollRight(), qt.IsNil)
	c.Assert(bus.Ops, qt.DeepEquals, []i2ctest.IO{lcdCmd(0x14), lcdCmd(0x10), lcdCmd(0x18), lcdCmd(0x1C)})

	c.Assert(errors.Is(d.Move(display.Up), display.ErrNotImplemented), qt.IsTrue)
	c.Assert(errors.Is(d.Move(display.Down+1), display.ErrInvalidCommand), qt.IsTrue)
}

func TestAutoScroll(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Record{}
	d := newTestDevice(bus)
	c.Assert(d.Configure(Config{}), qt.IsNil)
	bus.Ops = nil

	c.Assert(d.AutoScroll(true), qt.IsNil)
	c.Assert(d.AutoScroll(false), qt.IsNil)
	c.Assert(bus.Ops, qt.DeepEquals, []i2ctest.IO{lcdCmd(0x07), lcdCmd(0x06)})
}

func TestCreateChar(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Record{}
	d := newTestDevice(bus)
	heart := [8]byte{0x00, 0x0A, 0x1F, 0x1F, 0x0E, 0x04, 0x00, 0x00}

	c.Assert(d.CreateChar(1, heart), qt.IsNil)
	want := []i2ctest.IO{lcdCmd(0x48)}
	for _, row := range heart {
		want = append(want, lcdData(row))
	}
	c.Assert(bus.Ops, qt.DeepEquals, want)

	err := d.CreateChar(8, heart)
	c.Assert(errors.Is(err, display.ErrInvalidCommand), qt.IsTrue)
}

func TestBusErrors(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Playback{DontPanic: true}
	d := newTestDevice(bus)

	err := d.SetRGB(1, 2, 3)
	c.Assert(err, qt.ErrorMatches, `rgb1602: i2ctest: unexpected Tx\(\).*`)
	r, g, b := d.Color()
	c.Assert([]uint8{r, g, b}, qt.DeepEquals, []uint8{0, 0, 0})

	c.Assert(d.Configure(Config{}), qt.ErrorMatches, `rgb1602: .*`)
	c.Assert(d.SetCursor(true), qt.ErrorMatches, `rgb1602: .*`)
}

func TestFailedWritesKeepState(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Playback{Ops: configureOps}
	d := newTestDevice(bus)
	c.Assert(d.Configure(Config{}), qt.IsNil)
	c.Assert(bus.Close(), qt.IsNil)

	bus.Ops = nil
	bus.DontPanic = true
	c.Assert(d.SetCursor(true), qt.ErrorMatches, `rgb1602: i2ctest: unexpected Tx\(\).*`)
	c.Assert(d.SetBlink(true), qt.Not(qt.IsNil))
	c.Assert(d.SetDisplay(false), qt.Not(qt.IsNil))
	c.Assert(d.Cursor(display.CursorUnderline, display.CursorBlink), qt.Not(qt.IsNil))
	c.Assert(d.AutoScroll(true), qt.Not(qt.IsNil))

	c.Assert(d.DisplayOn(), qt.IsTrue)
	c.Assert(d.CursorOn(), qt.IsFalse)
	c.Assert(d.BlinkOn(), qt.IsFalse)
	c.Assert(d.AutoScrolling(), qt.IsFalse)

	// The next successful write carries only the settings that were acknowledged.
	rec := &i2ctest.Record{}
	d.bus = rec
	c.Assert(d.SetBlink(true), qt.IsNil)
	c.Assert(rec.Ops, qt.DeepEquals, []i2ctest.IO{lcdCmd(0x0D)})
	c.Assert(d.BlinkOn(), qt.IsTrue)
	c.Assert(d.CursorOn(), qt.IsFalse)
}

func TestWriteStopsAtFirstFailure(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{lcdData('o'), lcdData('k')},
		DontPanic: true,
	}
	d := newTestDevice(bus)

	n, err := d.Write([]byte("oki"))
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(n, qt.Equals, 2)
}

func TestTextDisplay(t *testing.T) {
	c := qt.New(t)
	bus := &i2ctest.Record{}
	d := newTestDevice(bus)
	c.Assert(d.Configure(Config{}), qt.IsNil)

	errs := displaytest.TestTextDisplay(d, false)
	c.Assert(errs, qt.HasLen, 0)
}

func TestString(t *testing.T) {
	c := qt.New(t)
	d := New(&i2ctest.Record{}, 0, 0)
	c.Assert(d.String(), qt.Equals, "rgb1602.Device{0x3e, 0x60, 16x2}")
}
