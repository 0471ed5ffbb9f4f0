//go:build tinygo && (rp2040 || rp2350)

package main

import "machine"

// I2C0 on the Pico header.
var (
	sclPin = machine.GP5
	sdaPin = machine.GP4
)
