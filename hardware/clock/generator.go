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

// Package clock implements the quadrant clock generator for the two-wire
// bus. The generator divides the system tick by a configurable divisor to
// produce the bus clock and the 90-degree-shifted data strobe, and it
// detects the peer holding the clock line low (clock stretching).
package clock

import (
	"fmt"

	"github.com/greneruiz/twowire/hardware/bus"
)

// Mode selects which of the two configured divisors the generator uses.
type Mode int

// Valid Mode values.
const (
	Standard Mode = iota
	Fast
)

func (m Mode) String() string {
	switch m {
	case Standard:
		return "standard"
	case Fast:
		return "fast"
	}
	panic("unknown clock mode")
}

// Generator derives the bus clock and the data strobe from the system tick.
// A full bus-clock period is four quadrants of (divisor+1) ticks each.
//
// The generator owns the drive of the clock line: the line is driven low
// whenever the clock is not asserted and released otherwise. A peer can hold
// the released line low to stretch the clock; the generator then freezes in
// quadrant 2 until the peer lets go. The wait is unbounded. That is the bus
// protocol's flow-control primitive, not an error condition.
type Generator struct {
	scl *bus.Line
	drv *bus.Driver

	// tick counts per quadrant for the two speed modes. fixed at
	// construction.
	slowDivisor int
	fastDivisor int

	divisor  int
	counter  int
	quadrant Quadrant

	// the peer was seen holding the clock line low in quadrant 2
	stretched bool
}

// NewGenerator is the preferred method of initialisation for the Generator
// type. The two divisors are fixed for the lifetime of the generator.
func NewGenerator(scl *bus.Line, slowDivisor int, fastDivisor int) *Generator {
	g := &Generator{
		scl:         scl,
		drv:         scl.Attach(),
		slowDivisor: slowDivisor,
		fastDivisor: fastDivisor,
	}
	g.Reset()
	return g
}

// Reset returns the generator to its initial state: quadrant 0 with the
// fast-mode divisor loaded. The startup bias toward the faster timing is
// deliberate and documented behaviour.
func (g *Generator) Reset() {
	g.counter = 0
	g.quadrant = QuadClockLow
	g.divisor = g.fastDivisor
	g.stretched = false
	g.drv.DriveLow()
}

// SetMode reloads the divisor for the selected speed mode. The reload takes
// effect immediately: counter and quadrant are reset and any stretch hold is
// cleared, abandoning the in-flight quadrant position. Calling SetMode twice
// with the same mode has no additional effect beyond the reset.
func (g *Generator) SetMode(mode Mode) {
	if mode == Fast {
		g.divisor = g.fastDivisor
	} else {
		g.divisor = g.slowDivisor
	}
	g.counter = 0
	g.quadrant = QuadClockLow
	g.stretched = false
}

// Step advances the generator by one system tick.
func (g *Generator) Step() {
	if g.counter == g.divisor {
		g.counter = 0
		if !g.stretched {
			g.quadrant = g.quadrant.Next()
		}
	} else {
		g.counter++
	}

	// the clock line is driven low in the low half of the period and
	// released in the high half
	g.drv.Set(!g.quadrant.ClockAsserted())

	// quadrant 2 is where the line has just been released; if it still
	// reads low the peer is holding it and the generator must not advance
	if g.quadrant == QuadDataHold {
		g.stretched = !g.scl.Level()
	} else {
		g.stretched = false
	}
}

// ClockAsserted returns the bus clock enable for the current quadrant.
func (g *Generator) ClockAsserted() bool {
	return g.quadrant.ClockAsserted()
}

// DataStrobe returns the 90-degree-shifted sampling/drive strobe for the
// current quadrant.
func (g *Generator) DataStrobe() bool {
	return g.quadrant.DataStrobe()
}

// Period returns the length of a full clock cycle in ticks for the current
// mode, stretching aside.
func (g *Generator) Period() int {
	return 4 * (g.divisor + 1)
}

// Stretched returns true while the peer is holding the clock line low.
func (g *Generator) Stretched() bool {
	return g.stretched
}

// Quadrant returns the current quadrant.
func (g *Generator) Quadrant() Quadrant {
	return g.quadrant
}

func (g *Generator) String() string {
	s := fmt.Sprintf("%s ctr=%d div=%d", g.quadrant, g.counter, g.divisor)
	if g.stretched {
		s = fmt.Sprintf("%s [stretched]", s)
	}
	return s
}
