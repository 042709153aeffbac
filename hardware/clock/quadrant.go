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

package clock

// Quadrant is one of the four equal timing phases that make a full bus-clock
// period. The two output strobes are pure functions of the quadrant:
//
//	            __________
//	SCL  ______|          |___   asserted in quadrants 2,3
//	        __________
//	DATA __|          |_______   asserted in quadrants 1,2
//
// The data strobe leads the clock's low-to-high transition by exactly one
// quadrant (90 degrees). Quadrant 1 is where the clock is low and the strobe
// high: the transaction engine changes the data line there. The strobe's
// falling edge, leaving quadrant 2, is where the data line is sampled: the
// peer has had the full high phase of the clock to present its data.
type Quadrant int

// Valid Quadrant values.
const (
	QuadClockLow Quadrant = iota
	QuadDataSetup
	QuadDataHold
	QuadClockHigh
)

// NumQuadrants is the number of phases in a full bus-clock period.
const NumQuadrants = 4

// Next returns the quadrant that follows, wrapping after QuadClockHigh.
func (q Quadrant) Next() Quadrant {
	return (q + 1) % NumQuadrants
}

// ClockAsserted returns true when the bus clock is in the high half of its
// period. The clock line itself is driven low whenever this is false.
func (q Quadrant) ClockAsserted() bool {
	return q == QuadDataHold || q == QuadClockHigh
}

// DataStrobe returns true during the 90-degree-shifted strobe window.
func (q Quadrant) DataStrobe() bool {
	return q == QuadDataSetup || q == QuadDataHold
}

// String creates a two line ASCII representation of the current quadrant.
func (q Quadrant) String() string {
	switch q {
	case QuadClockLow:
		return "_*--.__.--._"
	case QuadDataSetup:
		return "_.--*__.--._"
	case QuadDataHold:
		return "_.--.__*--._"
	case QuadClockHigh:
		return "_.--.__.--*_"
	}
	return "invalid quadrant"
}
