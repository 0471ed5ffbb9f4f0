//go:build !tinygo

package main

import (
	"errors"
	"io"
	"os"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

const busFrequency = 400 * physic.KiloHertz

// openBus loads the periph host drivers and opens the first I2C bus.
// periph's i2c.Bus has the same Tx shape as drivers.I2C.
func openBus() (drivers.I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.New("periph host init: " + err.Error())
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, errors.New("open i2c bus: " + err.Error())
	}
	if err := bus.SetSpeed(busFrequency); err != nil {
		bus.Close()
		return nil, errors.New("set i2c speed: " + err.Error())
	}
	return bus, nil
}

func console() io.Writer { return os.Stderr }

func stdout() io.Writer { return os.Stdout }
