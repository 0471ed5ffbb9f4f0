package rgb1602

import (
	"periph.io/x/conn/v3/display"
)

// PCA9633 registers.
const (
	regMode1   = 0x00
	regMode2   = 0x01
	regBlue    = 0x02 // PWM0
	regGreen   = 0x03 // PWM1
	regRed     = 0x04 // PWM2
	regGrpPWM  = 0x06
	regGrpFreq = 0x07
	regLEDOut  = 0x08

	// MODE2: group control is blinking rather than dimming.
	mode2DMBlnk = 0x20
	// LEDOUT: all four outputs under individual and group PWM control.
	ledOutPWMAll = 0xFF
)

// configureBacklight wakes the LED controller and hands every output to PWM.
func (d *Device) configureBacklight() error {
	if err := d.setReg(regMode1, 0x00); err != nil {
		return err
	}
	if err := d.setReg(regLEDOut, ledOutPWMAll); err != nil {
		return err
	}
	return d.setReg(regMode2, mode2DMBlnk)
}

func (d *Device) setReg(reg, val byte) error {
	d.w[0] = reg
	d.w[1] = val
	return wrap(d.bus.Tx(d.rgbAddr, d.w[:], nil))
}

// SetRGB sets the backlight colour. The module wires the LEDs blue, green,
// red on PWM0..2, so the channels are written in register order red first.
func (d *Device) SetRGB(r, g, b uint8) error {
	if err := d.setReg(regRed, r); err != nil {
		return err
	}
	d.rgb[0] = r
	if err := d.setReg(regGreen, g); err != nil {
		return err
	}
	d.rgb[1] = g
	if err := d.setReg(regBlue, b); err != nil {
		return err
	}
	d.rgb[2] = b
	return nil
}

// Color returns the last backlight colour written.
func (d *Device) Color() (r, g, b uint8) {
	return d.rgb[0], d.rgb[1], d.rgb[2]
}

// BlinkBacklight makes the whole backlight blink at roughly 1Hz with a
// 50% duty cycle, or restores it to steady.
func (d *Device) BlinkBacklight(on bool) error {
	freq, duty := byte(0x00), byte(0xFF)
	if on {
		// period = (GRPFREQ + 1) / 24 s
		freq, duty = 0x17, 0x7F
	}
	if err := d.setReg(regGrpFreq, freq); err != nil {
		return err
	}
	if err := d.setReg(regGrpPWM, duty); err != nil {
		return err
	}
	d.blinkBL = on
	return nil
}

// BacklightBlinking reports whether BlinkBacklight(true) was the last call.
func (d *Device) BacklightBlinking() bool { return d.blinkBL }

// RGBBacklight implements display.DisplayRGBBacklight. Intensities are
// clamped to 0..255.
func (d *Device) RGBBacklight(red, green, blue display.Intensity) error {
	return d.SetRGB(clamp(red), clamp(green), clamp(blue))
}

// Backlight implements display.DisplayBacklight as a grey level.
func (d *Device) Backlight(intensity display.Intensity) error {
	return d.RGBBacklight(intensity, intensity, intensity)
}

func clamp(i display.Intensity) uint8 {
	switch {
	case i < 0:
		return 0
	case i > 0xFF:
		return 0xFF
	}
	return uint8(i)
}
