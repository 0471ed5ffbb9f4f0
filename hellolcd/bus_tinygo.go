//go:build tinygo

package main

import (
	"errors"
	"io"
	"machine"

	"tinygo.org/x/drivers"
)

const busFrequency = 400 * machine.KHz

// openBus configures I2C0 on the board's SCL/SDA pins.
func openBus() (drivers.I2C, error) {
	i2c := machine.I2C0
	err := i2c.Configure(machine.I2CConfig{
		Frequency: busFrequency,
		SCL:       sclPin,
		SDA:       sdaPin,
	})
	if err != nil {
		return nil, errors.New("configure i2c0: " + err.Error())
	}
	return i2c, nil
}

func console() io.Writer { return machine.Serial }

func stdout() io.Writer { return machine.Serial }
