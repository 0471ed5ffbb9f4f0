// Package i2cscan finds devices on an I2C bus by brute-force probing.
package i2cscan

import (
	"io"
	"strconv"

	"tinygo.org/x/drivers"
)

// HD44780 function set: 4-bit interface, 2 lines, 5x8 dots.
const (
	cmdFunctionSet = 0x20
	flag4BitMode   = 0x00
	flag2Line      = 0x08
	flag5x8Dots    = 0x00
)

// ProbeCommand is written to every candidate address. It is a control byte
// followed by a character LCD function set, so any device that acknowledges
// it may also act on it.
var ProbeCommand = [2]byte{0x80, cmdFunctionSet | flag4BitMode | flag2Line | flag5x8Dots}

// Scan writes ProbeCommand to every address 0x00 through 0xFF and returns
// the addresses whose write succeeded, in ascending order. A failed write
// means the address is absent; errors are not reported.
//
// The range is the full 8-bit space rather than the 0x08..0x77 block valid
// for 7-bit addressing.
func Scan(bus drivers.I2C) []uint8 {
	var found []uint8
	for addr := 0; addr <= 0xFF; addr++ {
		probe := ProbeCommand
		if err := bus.Tx(uint16(addr), probe[:], nil); err == nil {
			found = append(found, uint8(addr))
		}
	}
	return found
}

// AppendHex appends addrs to dst as a bracketed, comma separated list of
// hexadecimal values, e.g. "[0x3e, 0x60]".
func AppendHex(dst []byte, addrs []uint8) []byte {
	dst = append(dst, '[')
	for i, a := range addrs {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = append(dst, "0x"...)
		dst = strconv.AppendUint(dst, uint64(a), 16)
	}
	return append(dst, ']')
}

// Print writes the scan result to w as a single line, e.g.
// "Found i2c devices: [0x3e, 0x60]". The original firmware pretty-printed
// the list with one address per line; this keeps it on one line.
func Print(w io.Writer, addrs []uint8) error {
	// Preallocated so the heap isn't churned by fmt on small targets.
	buf := make([]byte, 0, 32+6*len(addrs))
	buf = append(buf, "Found i2c devices: "...)
	buf = AppendHex(buf, addrs)
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}
