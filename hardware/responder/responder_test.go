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

package responder_test

import (
	"testing"

	"github.com/greneruiz/twowire/hardware/bus"
	"github.com/greneruiz/twowire/hardware/clock"
	"github.com/greneruiz/twowire/hardware/master"
	"github.com/greneruiz/twowire/hardware/responder"
	"github.com/greneruiz/twowire/test"
)

type harness struct {
	scl *bus.Line
	sda *bus.Line
	gen *clock.Generator
	eng *master.Engine
	rsp *responder.Responder

	byteDone  int
	byteAck   int
	readValid int

	prevByteDone  bool
	prevByteAck   bool
	prevReadValid bool

	// levels seen on the data line in the sampling quadrant of the
	// engine's read-acknowledge phase, one per read byte
	readAckLevels []bool
	inReadAck     bool
}

func newHarness(address uint8, stretch int) *harness {
	h := &harness{
		scl: bus.NewLine("scl"),
		sda: bus.NewLine("sda"),
	}
	h.gen = clock.NewGenerator(h.scl, 4, 1)
	h.eng = master.NewEngine(h.gen, h.sda)
	h.rsp = responder.NewResponder(address, h.scl, h.sda, stretch)
	h.gen.SetMode(clock.Fast)
	return h
}

func (h *harness) step() {
	h.gen.Step()
	h.eng.Step()
	h.rsp.Step()

	if h.eng.ByteDone && !h.prevByteDone {
		h.byteDone++
	}
	if h.eng.ByteAck && !h.prevByteAck {
		h.byteAck++
	}
	if h.eng.ReadValid && !h.prevReadValid {
		h.readValid++
	}
	h.prevByteDone = h.eng.ByteDone
	h.prevByteAck = h.eng.ByteAck
	h.prevReadValid = h.eng.ReadValid

	// record the acknowledge bit the engine drives at the end of each
	// read byte
	if h.eng.Phase() == master.ReadAck && h.gen.Quadrant() == clock.QuadDataHold {
		if !h.inReadAck {
			h.readAckLevels = append(h.readAckLevels, h.sda.Level())
			h.inReadAck = true
		}
	} else if h.eng.Phase() != master.ReadAck {
		h.inReadAck = false
	}
}

// run until the engine goes busy and idle again.
func (h *harness) runFrame(t *testing.T, limit int) {
	t.Helper()
	started := false
	for i := 0; i < limit; i++ {
		h.step()
		if h.eng.Busy {
			started = true
		} else if started {
			return
		}
	}
	t.Fatal("frame did not complete within tick limit")
}

// writeBytes performs a frame that sets the memory pointer and stores the
// data bytes, following the request-level protocol: the Continue level drops
// once the last byte is in flight.
func (h *harness) writeBytes(t *testing.T, address uint8, pointer uint8, data []uint8) {
	t.Helper()

	pending := append([]uint8{pointer}, data...)
	h.eng.Request(master.Frame{Address: address, Data: pending[0], Continue: len(pending) > 1})
	sent := 0

	started := false
	for i := 0; i < 10000; i++ {
		seen := h.byteDone
		h.step()
		if h.byteDone > seen {
			sent++
			if sent < len(pending) {
				h.eng.Request(master.Frame{Address: address, Data: pending[sent], Continue: sent < len(pending)-1})
			}
		}
		if h.eng.Busy {
			started = true
		} else if started {
			test.DemandEquality(t, sent, len(pending))
			return
		}
	}
	t.Fatal("write frame did not complete within tick limit")
}

// readBytes performs a read frame of n bytes.
func (h *harness) readBytes(t *testing.T, address uint8, n int) []uint8 {
	t.Helper()

	data := make([]uint8, 0, n)
	h.eng.Request(master.Frame{Address: address, Read: true, Continue: n > 1})

	started := false
	for i := 0; i < 10000; i++ {
		prev := h.prevReadValid
		h.step()
		if h.eng.ReadValid && !prev {
			data = append(data, h.eng.ReadData)
		}
		if !h.eng.ReadValid && prev && len(data) < n {
			// the byte boundary has passed; the request now covers the
			// byte being read
			h.eng.Request(master.Frame{Address: address, Read: true, Continue: len(data)+1 < n})
		}
		if h.eng.Busy {
			started = true
		} else if started {
			return data
		}
	}
	t.Fatal("read frame did not complete within tick limit")
	return nil
}

func TestWriteFrame(t *testing.T) {
	h := newHarness(0x50, 0)

	h.writeBytes(t, 0x50, 0x10, []uint8{0xa5, 0x5a})

	test.ExpectEquality(t, h.eng.AckError, false)
	test.ExpectEquality(t, h.rsp.Mem.Peek(0x10), uint8(0xa5))
	test.ExpectEquality(t, h.rsp.Mem.Peek(0x11), uint8(0x5a))

	// one acknowledge for the address byte and one per data byte
	test.ExpectEquality(t, h.byteAck, 4)
	test.ExpectEquality(t, h.byteDone, 3)
}

func TestReadFrame(t *testing.T) {
	h := newHarness(0x50, 0)
	h.rsp.Mem.Poke(0x20, 0xde)
	h.rsp.Mem.Poke(0x21, 0xad)

	// position the pointer then read two bytes
	h.writeBytes(t, 0x50, 0x20, nil)
	data := h.readBytes(t, 0x50, 2)

	test.DemandEquality(t, len(data), 2)
	test.ExpectEquality(t, data[0], uint8(0xde))
	test.ExpectEquality(t, data[1], uint8(0xad))
	test.ExpectEquality(t, h.eng.AckError, false)

	// the engine acknowledged the first byte (driven low) and terminated
	// the burst on the second (released)
	test.DemandEquality(t, len(h.readAckLevels), 2)
	test.ExpectEquality(t, h.readAckLevels[0], false)
	test.ExpectEquality(t, h.readAckLevels[1], true)
}

func TestAddressMismatch(t *testing.T) {
	h := newHarness(0x50, 0)

	h.eng.Request(master.Frame{Address: 0x29, Data: 0x00})
	h.runFrame(t, 10000)

	// nothing answered: sticky acknowledge failure, no acknowledge pulses
	test.ExpectEquality(t, h.eng.AckError, true)
	test.ExpectEquality(t, h.byteAck, 0)
}

func TestClockStretching(t *testing.T) {
	// hold the clock for 40 ticks at each acknowledge: long enough for the
	// generator to register the stretch in quadrant 2
	h := newHarness(0x50, 40)

	stretched := false
	h.eng.Request(master.Frame{Address: 0x50, Data: 0x30, Continue: true})
	sent := 0
	pending := []uint8{0x30, 0x77}

	started := false
	for i := 0; i < 50000; i++ {
		seen := h.byteDone
		h.step()
		if h.gen.Stretched() {
			stretched = true
		}
		if h.byteDone > seen {
			sent++
			if sent < len(pending) {
				h.eng.Request(master.Frame{Address: 0x50, Data: pending[sent], Continue: sent < len(pending)-1})
			}
		}
		if h.eng.Busy {
			started = true
		} else if started {
			break
		}
	}

	// the transfer completes correctly despite the stretching
	test.DemandEquality(t, h.eng.Busy, false)
	test.ExpectEquality(t, stretched, true)
	test.ExpectEquality(t, h.eng.AckError, false)
	test.ExpectEquality(t, h.rsp.Mem.Peek(0x30), uint8(0x77))
}

func TestMemoryPointerWrap(t *testing.T) {
	h := newHarness(0x50, 0)

	h.writeBytes(t, 0x50, 0xff, []uint8{0x01, 0x02})

	test.ExpectEquality(t, h.rsp.Mem.Peek(0xff), uint8(0x01))
	test.ExpectEquality(t, h.rsp.Mem.Peek(0x00), uint8(0x02))
}
