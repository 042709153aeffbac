// This file is part of Twowire.
//
// Twowire is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Twowire is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Twowire.  If not, see <https://www.gnu.org/licenses/>.

// Package serial implements a synchronous-serial peripheral with an
// active-low select line. it shares the bus and trace primitives with the
// two-wire engines but is otherwise an independent protocol.
//
// timing is what is commonly called mode 0. the peripheral samples its data
// input on the rising edge of the clock and changes its data output on the
// falling edge, most significant bit first.
//
// the first byte after select is asserted is a command byte. bit 7 selects
// the direction of the transfer, one for read, zero for write. the remaining
// seven bits index the register file. subsequent bytes stream to or from
// consecutive registers, wrapping at the top of the file.
package serial

import (
	"strings"

	"github.com/greneruiz/twowire/hardware/bus"
	"github.com/greneruiz/twowire/hardware/trace"
)

// RegisterFileSize is the number of addressable registers.
const RegisterFileSize = 0x80

// Slave is a register-file peripheral on a three-wire synchronous-serial
// connection plus an active-low select line.
type Slave struct {
	sck *bus.Line
	sdi *bus.Line
	sel *bus.Line

	sdoDrv *bus.Driver

	// edge detection for clock and select
	SCK trace.Trace
	SEL trace.Trace

	// transfer state. selected mirrors the select line so that the
	// deselect cleanup runs exactly once
	selected bool
	cmdDone  bool
	reading  bool
	index    uint8

	// input and output shift registers
	shiftIn  uint8
	bitsIn   int
	shiftOut uint8
	bitsOut  int

	regs []uint8
}

// NewSlave is the preferred method of initialisation for the Slave type.
// the slave attaches a driver to the output line; the clock, input and
// select lines are only ever observed.
func NewSlave(sck *bus.Line, sdi *bus.Line, sdo *bus.Line, sel *bus.Line) *Slave {
	sl := &Slave{
		sck:    sck,
		sdi:    sdi,
		sel:    sel,
		sdoDrv: sdo.Attach(),
		SCK:    trace.NewTrace("SCK"),
		SEL:    trace.NewTrace("SEL"),
		regs:   make([]uint8, RegisterFileSize),
	}
	return sl
}

// Reset the slave to the deselected state. register contents survive.
func (sl *Slave) Reset() {
	sl.SCK = trace.NewTrace("SCK")
	sl.SEL = trace.NewTrace("SEL")
	sl.sdoDrv.Release()
	sl.selected = false
	sl.cmdDone = false
	sl.reading = false
	sl.bitsIn = 0
	sl.bitsOut = 0
}

// Peek a register without disturbing the transfer state.
func (sl *Slave) Peek(index uint8) uint8 {
	return sl.regs[index&(RegisterFileSize-1)]
}

// Poke a register without disturbing the transfer state.
func (sl *Slave) Poke(index uint8, v uint8) {
	sl.regs[index&(RegisterFileSize-1)] = v
}

func (sl *Slave) String() string {
	s := strings.Builder{}
	if !sl.selected {
		s.WriteString("serial: deselected")
		return s.String()
	}
	if !sl.cmdDone {
		s.WriteString("serial: awaiting command")
	} else if sl.reading {
		s.WriteString("serial: reading")
	} else {
		s.WriteString("serial: writing")
	}
	return s.String()
}

// Step the slave forward one tick. the select line gates everything: while
// it is high the output driver is released and the shift state is held
// clear.
func (sl *Slave) Step() {
	sl.SCK.Tick(sl.sck.Level())
	sl.SEL.Tick(sl.sel.Level())

	if sl.SEL.Hi() {
		if sl.selected {
			sl.sdoDrv.Release()
			sl.selected = false
		}
		return
	}

	if !sl.selected {
		// select has just been asserted
		sl.selected = true
		sl.cmdDone = false
		sl.reading = false
		sl.bitsIn = 0
		sl.bitsOut = 0
	}

	if sl.SCK.Rising() {
		sl.sample()
	} else if sl.SCK.Falling() {
		sl.drive()
	}
}

// sample the input line on the rising clock edge.
func (sl *Slave) sample() {
	sl.shiftIn <<= 1
	if sl.sdi.Level() {
		sl.shiftIn |= 0x01
	}
	sl.bitsIn++
	if sl.bitsIn < 8 {
		return
	}
	sl.bitsIn = 0

	if !sl.cmdDone {
		sl.cmdDone = true
		sl.reading = sl.shiftIn&0x80 == 0x80
		sl.index = sl.shiftIn & (RegisterFileSize - 1)
		if sl.reading {
			sl.loadOut()
		}
		return
	}

	if !sl.reading {
		sl.regs[sl.index] = sl.shiftIn
		sl.index = (sl.index + 1) & (RegisterFileSize - 1)
	}
}

// drive the output line on the falling clock edge. only meaningful during
// the data bytes of a read transfer.
func (sl *Slave) drive() {
	if !sl.cmdDone || !sl.reading {
		return
	}
	if sl.bitsOut == 8 {
		sl.loadOut()
	}
	sl.sdoDrv.Set(sl.shiftOut&0x80 != 0x80)
	sl.shiftOut <<= 1
	sl.bitsOut++
}

func (sl *Slave) loadOut() {
	sl.shiftOut = sl.regs[sl.index]
	sl.index = (sl.index + 1) & (RegisterFileSize - 1)
	sl.bitsOut = 0
}
