//go:build tinygo && esp32c3

package main

import "machine"

var (
	sclPin = machine.GPIO10
	sdaPin = machine.GPIO1
)
