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

package master_test

import (
	"testing"

	"github.com/greneruiz/twowire/hardware/bus"
	"github.com/greneruiz/twowire/hardware/clock"
	"github.com/greneruiz/twowire/hardware/master"
	"github.com/greneruiz/twowire/test"
)

// harness steps the clock generator and engine together and records phase
// runs and output pulses.
type harness struct {
	scl *bus.Line
	sda *bus.Line
	gen *clock.Generator
	eng *master.Engine

	// consecutive ticks spent in each phase, in the order the phases were
	// entered
	runs []run

	byteDone  int
	byteAck   int
	readValid int

	prevByteDone  bool
	prevByteAck   bool
	prevReadValid bool
}

type run struct {
	phase master.Phase
	ticks int
}

func newHarness(slowDivisor, fastDivisor int) *harness {
	h := &harness{
		scl: bus.NewLine("scl"),
		sda: bus.NewLine("sda"),
	}
	h.gen = clock.NewGenerator(h.scl, slowDivisor, fastDivisor)
	h.eng = master.NewEngine(h.gen, h.sda)
	return h
}

func (h *harness) step() {
	h.gen.Step()
	h.eng.Step()

	p := h.eng.Phase()
	if len(h.runs) == 0 || h.runs[len(h.runs)-1].phase != p {
		h.runs = append(h.runs, run{phase: p})
	}
	h.runs[len(h.runs)-1].ticks++

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
}

// run the harness until the engine has left and returned to the idle phase,
// or the tick limit expires.
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

func (h *harness) phaseSequence() []master.Phase {
	s := make([]master.Phase, 0, len(h.runs))
	for _, r := range h.runs {
		s = append(s, r.phase)
	}
	return s
}

func expectSequence(t *testing.T, got []master.Phase, expected []master.Phase) {
	t.Helper()
	test.DemandEquality(t, len(got), len(expected))
	for i := range got {
		test.ExpectEquality(t, got[i], expected[i])
	}
}

func TestSingleByteWrite(t *testing.T) {
	h := newHarness(4, 1)
	h.gen.SetMode(clock.Fast)

	// one bus-clock period in ticks
	period := 4 * (1 + 1)

	h.eng.Request(master.Frame{Address: 0x50, Data: 0xa5})
	h.runFrame(t, 100*period)

	expectSequence(t, h.phaseSequence(), []master.Phase{
		master.Idle,
		master.Start,
		master.AddressCmd,
		master.CheckAddrAck,
		master.WriteByte,
		master.Ack,
		master.Stop,
		master.Idle,
	})

	// the address and data bytes each occupy eight strobe periods
	for _, r := range h.runs {
		switch r.phase {
		case master.AddressCmd:
			test.ExpectEquality(t, r.ticks, 8*period)
		case master.WriteByte:
			test.ExpectEquality(t, r.ticks, 8*period)
		case master.CheckAddrAck:
			test.ExpectEquality(t, r.ticks, period)
		}
	}

	test.ExpectEquality(t, h.byteDone, 1)

	// nothing on the bus acknowledged the frame
	test.ExpectEquality(t, h.byteAck, 0)
	test.ExpectEquality(t, h.eng.AckError, true)
	test.ExpectEquality(t, h.eng.Busy, false)
}

func TestTwoByteWriteContinuation(t *testing.T) {
	h := newHarness(4, 1)
	h.gen.SetMode(clock.Fast)

	// Continue is a level: it stays high while the byte now in the request
	// should be chained, and drops once the last byte is in flight
	h.eng.Request(master.Frame{Address: 0x50, Data: 0xa5, Continue: true})

	started := false
	for i := 0; i < 2000; i++ {
		seen := h.byteDone
		h.step()
		if h.byteDone > seen {
			switch h.byteDone {
			case 1:
				h.eng.Request(master.Frame{Address: 0x50, Data: 0x5a, Continue: true})
			case 2:
				h.eng.Request(master.Frame{Address: 0x50, Data: 0x5a})
			}
		}
		if h.eng.Busy {
			started = true
		} else if started {
			break
		}
	}
	test.DemandEquality(t, h.eng.Busy, false)

	// no repeated start between the two bytes
	expectSequence(t, h.phaseSequence(), []master.Phase{
		master.Idle,
		master.Start,
		master.AddressCmd,
		master.CheckAddrAck,
		master.WriteByte,
		master.Ack,
		master.WriteByte,
		master.Ack,
		master.Stop,
		master.Idle,
	})

	test.ExpectEquality(t, h.byteDone, 2)
}

func TestRepeatedStartOnTargetChange(t *testing.T) {
	h := newHarness(4, 1)
	h.gen.SetMode(clock.Fast)

	// write one byte then read from the same address: the direction change
	// forces a full repeated-start sequence
	h.eng.Request(master.Frame{Address: 0x50, Data: 0xa5, Continue: true})

	presented := false
	readValidFalls := 0
	prevReadValid := false
	started := false
	for i := 0; i < 4000; i++ {
		h.step()
		if h.eng.ByteDone && !presented {
			h.eng.Request(master.Frame{Address: 0x50, Read: true})
			presented = true
		}
		if !h.eng.ReadValid && prevReadValid {
			readValidFalls++
		}
		prevReadValid = h.eng.ReadValid
		if h.eng.Busy {
			started = true
		} else if started {
			break
		}
	}
	test.DemandEquality(t, h.eng.Busy, false)

	expectSequence(t, h.phaseSequence(), []master.Phase{
		master.Idle,
		master.Start,
		master.AddressCmd,
		master.CheckAddrAck,
		master.WriteByte,
		master.Ack,
		master.Start,
		master.AddressCmd,
		master.CheckAddrAck,
		master.ReadByte,
		master.ReadAck,
		master.Stop,
		master.Idle,
	})

	// with nothing driving the data line the read byte resolves to 0xff
	test.ExpectEquality(t, h.eng.ReadData, uint8(0xff))
	test.ExpectEquality(t, h.readValid, 1)
}

func TestStretchFreezesEngine(t *testing.T) {
	h := newHarness(4, 1)
	h.gen.SetMode(clock.Fast)
	peer := h.scl.Attach()

	h.eng.Request(master.Frame{Address: 0x50, Data: 0xa5})

	// run into the middle of the address byte
	for i := 0; i < 40; i++ {
		h.step()
	}
	test.DemandEquality(t, h.eng.Phase(), master.AddressCmd)

	// wait for quadrant 2 and hold the clock line
	for h.gen.Quadrant() != clock.QuadDataHold {
		h.step()
	}
	peer.DriveLow()
	h.step()
	test.DemandEquality(t, h.gen.Stretched(), true)

	// the engine makes no progress while the peer holds the line
	frozen := h.eng.Phase()
	for i := 0; i < 200; i++ {
		h.step()
		test.ExpectEquality(t, h.eng.Phase(), frozen)
	}

	// release and the frame completes
	peer.Release()
	h.runFrame(t, 2000)
	test.ExpectEquality(t, h.eng.Busy, false)
	test.ExpectEquality(t, h.byteDone, 1)
}

func TestResetAbandonsFrame(t *testing.T) {
	h := newHarness(4, 1)
	h.gen.SetMode(clock.Fast)

	h.eng.Request(master.Frame{Address: 0x50, Data: 0xa5})
	for i := 0; i < 40; i++ {
		h.step()
	}
	test.DemandEquality(t, h.eng.Busy, true)

	// a hard reset abandons the frame with no error signal
	h.eng.Reset()
	test.ExpectEquality(t, h.eng.Busy, false)
	test.ExpectEquality(t, h.eng.Phase(), master.Idle)
	test.ExpectEquality(t, h.eng.AckError, false)
	test.ExpectEquality(t, h.sda.Level(), true)

	// the engine stays idle without a new request
	for i := 0; i < 100; i++ {
		h.step()
		test.ExpectEquality(t, h.eng.Phase(), master.Idle)
	}
}
