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

// Package transactor presents the emulated bus as a periph.io i2c.Bus.
// a transaction is broken into the frame requests the master engine
// understands and the system is ticked until the engine returns to idle.
//
// the engine accepts one frame at a time. the transactor keeps the next
// frame presented whenever the engine reaches a byte boundary, following
// the same continuation rules a hardware client of the engine would: the
// continue level is held high until the last byte of a burst is in flight.
package transactor

import (
	"github.com/greneruiz/twowire/curated"
	"github.com/greneruiz/twowire/hardware"
	"github.com/greneruiz/twowire/hardware/clock"
	"github.com/greneruiz/twowire/hardware/master"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// sentinal errors returned by the Tx and SetSpeed functions. the NoDevice
// error means the address byte itself was not acknowledged.
const (
	NoDevice     = "transactor: no acknowledge from device %#02x"
	DataNack     = "transactor: device %#02x refused data"
	AddressRange = "transactor: address %#04x outside the 7-bit range"
	SpeedRange   = "transactor: unsupported bus speed %s"
	BusBusy      = "transactor: transaction already in flight"
	ZeroLength   = "transactor: nothing to transfer"
	Timeout      = "transactor: transaction incomplete after %d ticks"
)

// Transactor implements i2c.Bus on top of an emulated System.
type Transactor struct {
	sys *hardware.System
}

var _ i2c.Bus = (*Transactor)(nil)

// NewTransactor is the preferred method of initialisation for the
// Transactor type.
func NewTransactor(sys *hardware.System) *Transactor {
	return &Transactor{sys: sys}
}

func (tr *Transactor) String() string {
	return "twowire"
}

// SetSpeed selects the bus rate. speeds up to 100kHz use the slow divisor,
// speeds up to 400kHz the fast divisor. anything faster is an error.
func (tr *Transactor) SetSpeed(f physic.Frequency) error {
	switch {
	case f <= 0:
		return curated.Errorf(SpeedRange, f.String())
	case f <= 100*physic.KiloHertz:
		tr.sys.Clock.SetMode(clock.Standard)
	case f <= 400*physic.KiloHertz:
		tr.sys.Clock.SetMode(clock.Fast)
	default:
		return curated.Errorf(SpeedRange, f.String())
	}
	return nil
}

// Tx writes w to the addressed device then reads len(r) bytes from it with
// a repeated start between the two halves. either slice may be empty.
func (tr *Transactor) Tx(addr uint16, w []byte, r []byte) error {
	if addr > 0x7f {
		return curated.Errorf(AddressRange, addr)
	}
	if len(w) == 0 && len(r) == 0 {
		return curated.Errorf(ZeroLength)
	}

	eng := tr.sys.Engine
	if eng.Busy {
		return curated.Errorf(BusBusy)
	}

	address := uint8(addr)
	readFrame := func(remaining int) master.Frame {
		return master.Frame{Address: address, Read: true, Continue: remaining > 1}
	}

	if len(w) > 0 {
		eng.Request(master.Frame{Address: address, Data: w[0], Continue: len(w) > 1})
	} else {
		eng.Request(readFrame(len(r)))
	}

	// a frame is nine clock periods at most, plus start and stop. the
	// extra headroom covers the address bytes and moderate stretching
	limit := (len(w) + len(r) + 4) * 16 * tr.sys.Clock.Period()

	read := make([]byte, 0, len(r))
	sent := 0
	acks := 0
	ackErr := false

	var prevDone, prevValid, prevAck, started bool

	for i := 0; i < limit; i++ {
		err := tr.sys.Step()
		if err != nil {
			return err
		}

		if eng.ByteDone && !prevDone {
			sent++
			switch {
			case sent < len(w):
				eng.Request(master.Frame{Address: address, Data: w[sent], Continue: true})
			case len(r) > 0:
				eng.Request(readFrame(len(r)))
			default:
				// the last byte is in flight. drop the continue level
				// so the boundary decision prepares the stop condition
				eng.Request(master.Frame{Address: address, Data: w[len(w)-1]})
			}
		}

		if eng.ReadValid && !prevValid {
			read = append(read, eng.ReadData)
		}
		if !eng.ReadValid && prevValid && len(read) < len(r) {
			eng.Request(readFrame(len(r) - len(read)))
		}

		if eng.ByteAck && !prevAck {
			acks++
		}
		ackErr = ackErr || eng.AckError

		prevDone = eng.ByteDone
		prevValid = eng.ReadValid
		prevAck = eng.ByteAck

		if eng.Busy {
			started = true
		} else if started {
			break
		}
	}

	if eng.Busy {
		return curated.Errorf(Timeout, limit)
	}

	if ackErr {
		if acks == 0 {
			return curated.Errorf(NoDevice, address)
		}
		return curated.Errorf(DataNack, address)
	}

	copy(r, read)

	return nil
}
