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

// Package responder implements the slave role of the two-wire bus: an
// addressed peer with a small EEPROM-like memory behind it. It shares the
// wire protocol with the master engine but none of its code; the responder
// is an independent state machine behind the bus-line interface.
//
// Write frames address the memory: the first data byte sets the memory
// pointer and any further bytes are stored with the pointer
// auto-incrementing. Read frames stream bytes from the pointer for as long
// as the master acknowledges them.
//
// A responder can be configured to stretch the clock: it holds the clock
// line low for a fixed number of ticks at each byte acknowledge, pausing the
// master.
package responder

import (
	"fmt"
	"strings"

	"github.com/greneruiz/twowire/hardware/bus"
	"github.com/greneruiz/twowire/hardware/trace"
	"github.com/greneruiz/twowire/logger"
)

// State records how incoming bus signals will be interpreted.
type State int

// List of valid State values.
const (
	Stopped State = iota
	Addressing
	Writing
	Reading
)

// Responder is an addressed slave-role engine on the two-wire bus.
type Responder struct {
	address uint8

	scl *bus.Line
	sda *bus.Line

	sdaDrv *bus.Driver
	sclDrv *bus.Driver

	// dual-rank histories of both lines. conditions are derived from the
	// pair: a start condition, for example, is SDA falling while SCL is
	// high.
	SCL trace.Trace
	SDA trace.Trace

	State State

	// direction of the current frame, latched from bit 0 of the address
	// byte
	reading bool

	// an acknowledge must be driven at the next falling clock edge; once
	// driven it is released at the falling edge after that
	ack       bool
	ackDriven bool

	// incoming bits assemble in bits; outgoing bits drain from it
	bits   uint8
	bitsCt int

	// a write frame's first data byte sets the memory pointer
	gotPointer bool

	// the last bit of an outgoing byte has been driven; at the next
	// falling edge the line is surrendered for the master's acknowledge
	lastBit bool

	// the master's acknowledge of an outgoing byte decides whether the
	// read burst continues
	awaitAck bool

	// number of ticks to hold the clock line at each byte acknowledge.
	// zero disables stretching.
	stretch          int
	stretchRemaining int

	Mem *Memory
}

// NewResponder is the preferred method of initialisation for the Responder
// type. stretch is the number of ticks the responder holds the clock line
// low at each byte acknowledge; zero disables stretching.
func NewResponder(address uint8, scl *bus.Line, sda *bus.Line, stretch int) *Responder {
	r := &Responder{
		address: address & 0x7f,
		scl:     scl,
		sda:     sda,
		sdaDrv:  sda.Attach(),
		sclDrv:  scl.Attach(),
		stretch: stretch,
		Mem:     newMemory(),
	}
	r.Reset()
	logger.Logf("responder", "attached at address %#02x", r.address)
	return r
}

// Reset implements the hardware.Peer interface. Memory contents survive a
// reset; the protocol state does not.
func (r *Responder) Reset() {
	r.SCL = trace.NewTrace("scl")
	r.SDA = trace.NewTrace("sda")
	r.State = Stopped
	r.reading = false
	r.ack = false
	r.ackDriven = false
	r.bits = 0
	r.bitsCt = 0
	r.gotPointer = false
	r.lastBit = false
	r.awaitAck = false
	r.stretchRemaining = 0
	r.sdaDrv.Release()
	r.sclDrv.Release()
}

// Address returns the 7-bit address the responder answers to.
func (r *Responder) Address() uint8 {
	return r.address
}

func (r *Responder) String() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("responder %#02x: ", r.address))
	switch r.State {
	case Stopped:
		s.WriteString("stopped")
	case Addressing:
		s.WriteString("addressing")
	case Writing:
		s.WriteString("writing")
	case Reading:
		s.WriteString("reading")
	}
	if r.stretchRemaining > 0 {
		s.WriteString(" [stretching]")
	}
	return s.String()
}

// recvBit pushes a sampled bit into the shift register. returns true when a
// full byte has assembled.
func (r *Responder) recvBit(v bool) bool {
	if r.bitsCt >= 8 {
		r.bits = 0
		r.bitsCt = 0
	}
	if v {
		r.bits |= 0x01 << (7 - r.bitsCt)
	}
	r.bitsCt++
	return r.bitsCt == 8
}

// sendBit returns the next outgoing bit. end is true when the byte is
// exhausted; the next call loads the next byte from memory.
func (r *Responder) sendBit() (bit bool, end bool) {
	if r.bitsCt >= 8 {
		r.bitsCt = 0
	}
	if r.bitsCt == 0 {
		r.bits = r.Mem.get()
	}
	bit = (r.bits>>(7-r.bitsCt))&0x01 == 0x01
	r.bitsCt++
	return bit, r.bitsCt >= 8
}

// Step implements the hardware.Peer interface. Called once per system tick.
func (r *Responder) Step() {
	r.SCL.Tick(r.scl.Level())
	r.SDA.Tick(r.sda.Level())

	// count down an in-progress clock stretch
	if r.stretchRemaining > 0 {
		r.stretchRemaining--
		if r.stretchRemaining == 0 {
			r.sclDrv.Release()
		}
		return
	}

	// start and stop markers are data-line edges while the clock is high
	if r.SCL.Hi() && r.SDA.Falling() {
		logger.Log("responder", "start condition")
		r.State = Addressing
		r.bits = 0
		r.bitsCt = 0
		r.ack = false
		r.ackDriven = false
		r.lastBit = false
		r.awaitAck = false
		r.gotPointer = false
		r.sdaDrv.Release()
		return
	}
	if r.SCL.Hi() && r.SDA.Rising() {
		if r.State != Stopped {
			logger.Log("responder", "stop condition")
		}
		r.State = Stopped
		r.sdaDrv.Release()
		return
	}

	switch {
	case r.SCL.Rising():
		r.sample()
	case r.SCL.Falling():
		r.drive()
	}
}

// sample the data line on the rising clock edge.
func (r *Responder) sample() {
	if r.State == Reading {
		if r.awaitAck {
			// the master drives the acknowledge bit of a read byte: low
			// to continue the burst
			if r.SDA.Hi() {
				logger.Log("responder", "read burst terminated")
				r.State = Stopped
			}
			r.awaitAck = false
		}
		return
	}

	if r.ack || r.ackDriven {
		// our own acknowledge bit is on the line
		return
	}

	switch r.State {
	case Addressing:
		if r.recvBit(r.SDA.Hi()) {
			if r.bits>>1 == r.address {
				r.reading = r.bits&0x01 == 0x01
				r.ack = true
				if r.reading {
					logger.Logf("responder", "read frame from %#02x", r.Mem.Pointer)
					r.State = Reading
					r.bitsCt = 0
				} else {
					logger.Log("responder", "write frame")
					r.State = Writing
				}
			} else {
				// not for us; wait for the next start condition
				r.State = Stopped
			}
		}

	case Writing:
		if r.recvBit(r.SDA.Hi()) {
			if r.gotPointer {
				logger.Logf("responder", "written %#02x to %#02x", r.bits, r.Mem.Pointer)
				r.Mem.put(r.bits)
			} else {
				r.Mem.Pointer = r.bits
				r.gotPointer = true
				logger.Logf("responder", "pointer set to %#02x", r.bits)
			}
			r.ack = true
		}
	}
}

// update the data line drive on the falling clock edge.
func (r *Responder) drive() {
	// an acknowledge driven at the previous falling edge is released now
	if r.ackDriven {
		r.sdaDrv.Release()
		r.ackDriven = false
	}

	if r.ack {
		r.sdaDrv.DriveLow()
		r.ack = false
		r.ackDriven = true
		if r.stretch > 0 {
			r.sclDrv.DriveLow()
			r.stretchRemaining = r.stretch
		}
		return
	}

	if r.State == Reading && !r.awaitAck {
		if r.lastBit {
			// acknowledge window of an outgoing byte: the master owns
			// the line for a whole clock period
			r.lastBit = false
			r.awaitAck = true
			r.sdaDrv.Release()
			return
		}

		bit, end := r.sendBit()
		r.sdaDrv.Set(!bit)
		if end {
			r.lastBit = true
		}
	}
}
