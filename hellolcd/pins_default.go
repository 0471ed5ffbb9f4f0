//go:build tinygo && !esp32c3 && !rp2040 && !rp2350

package main

import "machine"

var (
	sclPin = machine.SCL_PIN
	sdaPin = machine.SDA_PIN
)
