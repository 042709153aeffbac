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

package transactor_test

import (
	"testing"

	"github.com/greneruiz/twowire/curated"
	"github.com/greneruiz/twowire/hardware"
	"github.com/greneruiz/twowire/hardware/responder"
	"github.com/greneruiz/twowire/test"
	"github.com/greneruiz/twowire/transactor"

	"periph.io/x/conn/v3/physic"
)

func newBus(stretch int) (*transactor.Transactor, *responder.Responder) {
	sys := hardware.NewSystem(hardware.DefSlowDivisor, hardware.DefFastDivisor)
	rsp := responder.NewResponder(0x50, sys.SCL, sys.SDA, stretch)
	sys.AttachPeer(rsp)
	sys.Reset()
	return transactor.NewTransactor(sys), rsp
}

func TestTxWrite(t *testing.T) {
	bus, rsp := newBus(0)

	err := bus.Tx(0x50, []byte{0x10, 0xaa, 0x55}, nil)
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, rsp.Mem.Peek(0x10), uint8(0xaa))
	test.ExpectEquality(t, rsp.Mem.Peek(0x11), uint8(0x55))
}

func TestTxWriteRead(t *testing.T) {
	bus, rsp := newBus(0)
	rsp.Mem.Poke(0x20, 0xde)
	rsp.Mem.Poke(0x21, 0xad)

	r := make([]byte, 2)
	err := bus.Tx(0x50, []byte{0x20}, r)
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, r[0], uint8(0xde))
	test.ExpectEquality(t, r[1], uint8(0xad))
}

func TestTxReadOnly(t *testing.T) {
	bus, rsp := newBus(0)

	// position the pointer then read without a write half
	err := bus.Tx(0x50, []byte{0x30}, nil)
	test.DemandSuccess(t, err)
	rsp.Mem.Poke(0x30, 0x99)

	r := make([]byte, 1)
	err = bus.Tx(0x50, nil, r)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, r[0], uint8(0x99))
}

func TestTxNoDevice(t *testing.T) {
	bus, _ := newBus(0)

	err := bus.Tx(0x29, []byte{0x00}, nil)
	test.DemandFailure(t, err)
	test.ExpectEquality(t, curated.Is(err, transactor.NoDevice), true)
}

func TestTxArguments(t *testing.T) {
	bus, _ := newBus(0)

	err := bus.Tx(0x80, []byte{0x00}, nil)
	test.ExpectEquality(t, curated.Is(err, transactor.AddressRange), true)

	err = bus.Tx(0x50, nil, nil)
	test.ExpectEquality(t, curated.Is(err, transactor.ZeroLength), true)
}

func TestTxStretchedDevice(t *testing.T) {
	bus, rsp := newBus(60)

	err := bus.Tx(0x50, []byte{0x40, 0x77}, nil)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, rsp.Mem.Peek(0x40), uint8(0x77))
}

func TestSetSpeed(t *testing.T) {
	bus, rsp := newBus(0)

	err := bus.SetSpeed(400 * physic.KiloHertz)
	test.DemandSuccess(t, err)
	err = bus.Tx(0x50, []byte{0x60, 0x12}, nil)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, rsp.Mem.Peek(0x60), uint8(0x12))

	err = bus.SetSpeed(physic.MegaHertz)
	test.DemandFailure(t, err)
	test.ExpectEquality(t, curated.Is(err, transactor.SpeedRange), true)
}
