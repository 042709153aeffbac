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

package hardware

import (
	"fmt"

	"github.com/greneruiz/twowire/curated"
	"github.com/greneruiz/twowire/hardware/bus"
	"github.com/greneruiz/twowire/hardware/clock"
	"github.com/greneruiz/twowire/hardware/master"
	"github.com/greneruiz/twowire/logger"
)

// Peer is any device attached to the bus lines that advances in lockstep
// with the rest of the system.
type Peer interface {
	Step()
	Reset()
	String() string
}

// Recorder implementations receive the resolved line levels at the end of
// every tick.
type Recorder interface {
	Record(tick uint64, scl bool, sda bool) error
}

// default divisors give the two standard bus rates when the system is
// ticked at 8MHz
const (
	DefSlowDivisor = 19
	DefFastDivisor = 4
)

// number of system ticks per second implied by the default divisors. used
// when converting a requested bus frequency to a divisor.
const TickFrequency = 8000000

// System is the root of the emulation.
type System struct {
	SCL *bus.Line
	SDA *bus.Line

	Clock  *clock.Generator
	Engine *master.Engine

	Peers []Peer

	recorder Recorder
	tick     uint64
}

// NewSystem is the preferred method of initialisation for the System type.
func NewSystem(slowDivisor int, fastDivisor int) *System {
	sys := &System{
		SCL: bus.NewLine("SCL"),
		SDA: bus.NewLine("SDA"),
	}
	sys.Clock = clock.NewGenerator(sys.SCL, slowDivisor, fastDivisor)
	sys.Engine = master.NewEngine(sys.Clock, sys.SDA)
	sys.Reset()
	return sys
}

// AttachPeer adds a device to the system. peers step after the master
// engine on every tick.
func (sys *System) AttachPeer(p Peer) {
	sys.Peers = append(sys.Peers, p)
	logger.Logf("system", "peer attached: %s", p.String())
}

// AttachRecorder registers the recipient of the per-tick line levels. a
// nil recorder detaches.
func (sys *System) AttachRecorder(rec Recorder) {
	sys.recorder = rec
}

// Reset the system. attached peers are reset along with the clock and the
// engine.
func (sys *System) Reset() {
	sys.Clock.Reset()
	sys.Engine.Reset()
	for _, p := range sys.Peers {
		p.Reset()
	}
	sys.tick = 0
	logger.Log("system", "reset")
}

// Step the system forward one tick. the clock generator advances first,
// then the master engine, then each peer in attachment order. the recorder,
// if any, sees the line levels after every component has settled.
func (sys *System) Step() error {
	sys.Clock.Step()
	sys.Engine.Step()
	for _, p := range sys.Peers {
		p.Step()
	}
	sys.tick++

	if sys.recorder != nil {
		err := sys.recorder.Record(sys.tick, sys.SCL.Level(), sys.SDA.Level())
		if err != nil {
			return curated.Errorf("system: %v", err)
		}
	}

	return nil
}

// Run the system for at most the specified number of ticks. the check
// function is called after every tick and ends the run early when it
// returns false. a nil check function runs the full count. returns the
// number of ticks executed.
func (sys *System) Run(ticks int, check func() bool) (int, error) {
	for i := 0; i < ticks; i++ {
		err := sys.Step()
		if err != nil {
			return i, err
		}
		if check != nil && !check() {
			return i + 1, nil
		}
	}
	return ticks, nil
}

// Tick returns the number of ticks since the last reset.
func (sys *System) Tick() uint64 {
	return sys.tick
}

func (sys *System) String() string {
	return fmt.Sprintf("tick %d: %s: %s", sys.tick, sys.Clock.String(), sys.Engine.Phase().String())
}
