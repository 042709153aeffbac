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

// Package master implements the bus-master transaction engine. The engine
// sequences start condition, 7-bit address plus direction, per-bit data
// shifting, acknowledge sampling, multi-byte frame continuation and stop
// condition. All timing comes from the quadrant clock generator: the engine
// advances only on edges of the data strobe, so a stretched clock freezes
// the engine for free.
package master

import (
	"fmt"

	"github.com/greneruiz/twowire/hardware/bus"
	"github.com/greneruiz/twowire/hardware/clock"
	"github.com/greneruiz/twowire/hardware/trace"
)

// Phase is the state of the transaction engine.
type Phase int

// Valid Phase values.
const (
	Idle Phase = iota
	Start
	AddressCmd
	CheckAddrAck
	WriteByte
	ReadByte
	Ack
	ReadAck
	Stop
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Start:
		return "start"
	case AddressCmd:
		return "address"
	case CheckAddrAck:
		return "address-ack"
	case WriteByte:
		return "write"
	case ReadByte:
		return "read"
	case Ack:
		return "write-ack"
	case ReadAck:
		return "read-ack"
	case Stop:
		return "stop"
	}
	panic("unknown transaction phase")
}

// Frame is a request for one addressed byte transfer. The fields are levels:
// the engine samples them once per byte-boundary decision point, so for
// multi-byte frames the caller keeps the request updated between bytes and
// holds Continue high for as long as more bytes should follow.
type Frame struct {
	// 7-bit peer address
	Address uint8

	// direction of the transfer. when Read is false the Data field is the
	// byte to transmit.
	Read bool
	Data uint8

	// hold the bus after this byte for another transfer
	Continue bool
}

// addrByte returns the on-wire address byte: address shifted up one with the
// direction in bit 0.
func (f Frame) addrByte() uint8 {
	b := f.Address << 1
	if f.Read {
		b |= 0x01
	}
	return b
}

// Engine is the bus-master transaction state machine.
type Engine struct {
	clk *clock.Generator
	sda *bus.Line
	drv *bus.Driver

	// dual-rank history of the data strobe. the engine acts on the edges.
	strobe trace.Trace

	// the current frame request and whether one has been presented since
	// the last stop condition
	req        Frame
	reqPending bool

	phase    Phase
	bitIndex int

	// address<<1|direction, latched when the frame begins
	addrByte uint8

	shiftOut uint8
	shiftIn  uint8

	// the acknowledge bit the engine drove at the end of a read byte. low
	// means the burst continues.
	ackContinue bool

	// Busy is held while a frame is in progress.
	Busy bool

	// AckError is sticky within a frame: once the peer misses an
	// acknowledge window the flag stays up until the next start condition.
	// The engine never aborts or retries on its own; recovery policy
	// belongs to the caller.
	AckError bool

	// ReadData is valid while ReadValid is up.
	ReadData uint8

	// strobe-period output pulses
	ReadValid bool
	ByteDone  bool
	ByteAck   bool
}

// NewEngine is the preferred method of initialisation for the Engine type.
func NewEngine(clk *clock.Generator, sda *bus.Line) *Engine {
	e := &Engine{
		clk: clk,
		sda: sda,
		drv: sda.Attach(),
	}
	e.Reset()
	return e
}

// Reset returns the engine to the idle phase, abandoning any in-progress
// frame. No error is signalled: this is a hard reset, not a cancellation
// protocol.
func (e *Engine) Reset() {
	e.strobe = trace.NewTrace("strobe")
	e.req = Frame{}
	e.reqPending = false
	e.phase = Idle
	e.bitIndex = 0
	e.addrByte = 0
	e.shiftOut = 0
	e.shiftIn = 0
	e.ackContinue = false
	e.Busy = false
	e.AckError = false
	e.ReadData = 0
	e.ReadValid = false
	e.ByteDone = false
	e.ByteAck = false
	e.drv.Release()

	// the strobe history begins high but the generator idles low; reset it
	// low so the first real strobe assertion registers as a rising edge
	e.strobe.Tick(false)
	e.strobe.Tick(false)
}

// Request presents a frame request to the engine. A request made while the
// engine is idle begins a new frame at the next strobe edge. During a frame
// the request fields act as levels: update them between bytes to chain
// transfers (Continue held high) or to force a repeated start (different
// address or direction).
//
// Requests are not retained across a stop condition: a frame presented
// while the engine is entering Stop is discarded.
func (e *Engine) Request(f Frame) {
	e.req = f
	e.reqPending = true
}

// Phase returns the current phase of the engine.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Step advances the engine by one system tick. The clock generator must
// have been stepped first so that the engine sees this tick's strobe value.
func (e *Engine) Step() {
	e.strobe.Tick(e.clk.DataStrobe())

	switch {
	case e.strobe.Rising():
		e.rising()
	case e.strobe.Falling():
		e.falling()
	}

	// the start and stop conditions are the only places the data line
	// changes while the clock is high. driving the line from the strobe
	// history delayed by one tick puts the edge in quadrant 3.
	switch e.phase {
	case Start:
		e.drv.Set(!e.strobe.Prev())
	case Stop:
		e.drv.Set(e.strobe.Prev())
	}
}

// bit n of v as a drive condition: the line is driven low for a zero bit and
// released for a one bit.
func low(v uint8, n int) bool {
	return (v>>n)&0x01 == 0x00
}

// rising edges of the data strobe happen entering quadrant 1, while the
// clock is low: the engine decides what to drive (or release) next.
func (e *Engine) rising() {
	switch e.phase {
	case Idle:
		e.Busy = false
		if e.reqPending {
			e.addrByte = e.req.addrByte()
			e.bitIndex = 7
			e.Busy = true
			e.AckError = false
			e.phase = Start
		}

	case Start:
		e.drv.Set(low(e.addrByte, e.bitIndex))
		e.phase = AddressCmd

	case AddressCmd:
		if e.bitIndex == 0 {
			// acknowledge window: let the peer pull the line
			e.drv.Release()
			e.bitIndex = 7
			e.phase = CheckAddrAck
		} else {
			e.bitIndex--
			e.drv.Set(low(e.addrByte, e.bitIndex))
		}

	case CheckAddrAck:
		e.beginByte()

	case WriteByte:
		if e.bitIndex == 0 {
			e.drv.Release()
			e.bitIndex = 7
			e.ByteDone = true
			e.phase = Ack
		} else {
			e.bitIndex--
			e.drv.Set(low(e.shiftOut, e.bitIndex))
		}

	case ReadByte:
		if e.bitIndex == 0 {
			e.ReadData = e.shiftIn
			e.ReadValid = true

			// acknowledge bit: driven low to continue the burst if
			// another byte for the same peer is pending, released to
			// terminate it
			e.ackContinue = e.reqPending && e.req.Continue && e.req.addrByte() == e.addrByte
			e.drv.Set(e.ackContinue)
			e.bitIndex = 7
			e.phase = ReadAck
		} else {
			e.bitIndex--
		}

	case Ack:
		e.ByteDone = false
		e.ReadValid = false
		e.nextByte()

	case ReadAck:
		e.ByteDone = false
		e.ReadValid = false
		e.nextByte()

	case Stop:
		e.drv.Release()
		e.Busy = false
		e.reqPending = false
		e.ByteAck = false
		e.phase = Idle
	}
}

// beginByte starts the transfer of a data byte according to the direction
// latched in the address byte. called at the rising edge that leaves the
// acknowledge window of the address or of a previous byte.
func (e *Engine) beginByte() {
	e.bitIndex = 7
	if e.addrByte&0x01 == 0x01 {
		// reading: the line belongs to the peer for the whole byte
		e.drv.Release()
		e.phase = ReadByte
	} else {
		e.shiftOut = e.req.Data
		e.drv.Set(low(e.shiftOut, e.bitIndex))
		e.phase = WriteByte
	}
}

// nextByte is the byte-boundary decision point, reached at the rising edge
// that leaves an acknowledge phase.
func (e *Engine) nextByte() {
	switch {
	case e.reqPending && e.req.Continue && e.req.addrByte() == e.addrByte:
		// chain another byte without releasing the bus
		e.beginByte()

	case e.reqPending && e.req.addrByte() != e.addrByte:
		// the pending request targets a different address or direction:
		// full repeated-start sequence
		e.addrByte = e.req.addrByte()
		e.bitIndex = 7
		e.AckError = false
		e.phase = Start

	default:
		// no continuation requested: prepare the stop condition
		e.drv.DriveLow()
		e.phase = Stop
	}
}

// falling edges of the data strobe happen leaving quadrant 2, a full
// quadrant after the line was last changed: the only point where incoming
// data bits and acknowledge bits are captured.
func (e *Engine) falling() {
	level := e.sda.Level()

	switch e.phase {
	case CheckAddrAck, Ack:
		if level {
			e.AckError = true
		} else {
			e.ByteAck = true
		}

	case WriteByte:
		e.ByteAck = false

	case ReadByte:
		e.ByteAck = false
		if level {
			e.shiftIn |= 0x01 << e.bitIndex
		} else {
			e.shiftIn &^= 0x01 << e.bitIndex
		}

	case ReadAck:
		// consistency check of the engine's own driven acknowledge bit.
		// the line was driven low for a continuing burst so a high level
		// here means the drive was lost.
		if e.ackContinue && level {
			e.AckError = true
		}
	}
}

func (e *Engine) String() string {
	s := fmt.Sprintf("master: %s", e.phase)
	if e.Busy {
		s = fmt.Sprintf("%s [busy]", s)
	}
	if e.AckError {
		s = fmt.Sprintf("%s [ack error]", s)
	}
	return s
}
