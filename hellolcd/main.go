// Command hellolcd scans the I2C bus, prints what answered, and shows a
// greeting on an LCD1602 RGB module: white backlight, cursor and blink on.
// It then idles until reset.
//
// Flash with TinyGo, e.g.
//
//	tinygo flash -target=esp32c3 ./hellolcd
//	tinygo flash -target=pico ./hellolcd
//
// or build with plain Go for a Linux board with /dev/i2c-*.
package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/harveysanders/rgblcd/i2cscan"
	"github.com/harveysanders/rgblcd/rgb1602"
	"tinygo.org/x/drivers"
)

const (
	greeting     = "Hello, world!"
	idleInterval = 100 * time.Millisecond
)

// white backlight
var backlight = [3]uint8{255, 255, 255}

// Greeting is what run found on the bus and put on the display.
type Greeting struct {
	Addresses []uint8
	Text      string
	RGB       [3]uint8
	Cursor    bool
	Blink     bool
}

func main() {
	start := time.Now()
	logger := slog.New(slog.NewTextHandler(console(), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	bus, err := openBus()
	if err != nil {
		fatal(logger, "configure I2C", err)
	}

	g, err := run(bus, stdout(), logger)
	if err != nil {
		fatal(logger, "display greeting", err)
	}

	announce(logger, g, time.Since(start))

	for {
		time.Sleep(idleInterval)
	}
}

// run scans bus, prints the responding addresses to out and brings up the
// display. The bus belongs to the display once the scan is done. Any
// display error aborts the sequence as is; nothing is reset.
func run(bus drivers.I2C, out io.Writer, logger *slog.Logger) (Greeting, error) {
	var g Greeting

	g.Addresses = i2cscan.Scan(bus)
	logger.Info("i2c scan complete", slog.Int("found", len(g.Addresses)))
	if err := i2cscan.Print(out, g.Addresses); err != nil {
		return g, errors.New("print scan result: " + err.Error())
	}

	lcd := rgb1602.New(bus, rgb1602.Address, rgb1602.RGBAddress)
	if err := lcd.Configure(rgb1602.Config{Rows: 2, Cols: 16}); err != nil {
		return g, errors.New("initialize display: " + err.Error())
	}
	if err := lcd.SetRGB(backlight[0], backlight[1], backlight[2]); err != nil {
		return g, errors.New("set backlight: " + err.Error())
	}
	g.RGB = backlight
	if err := lcd.SetCursor(true); err != nil {
		return g, errors.New("set cursor: " + err.Error())
	}
	g.Cursor = true
	if _, err := lcd.WriteString(greeting); err != nil {
		return g, errors.New("write text: " + err.Error())
	}
	g.Text = greeting
	if err := lcd.SetBlink(true); err != nil {
		return g, errors.New("set blink: " + err.Error())
	}
	g.Blink = true

	logger.Info("display ready", slog.String("text", g.Text))
	return g, nil
}

// fatal logs err and exits with a non-zero status.
func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("reason", err))
	os.Exit(1)
}
