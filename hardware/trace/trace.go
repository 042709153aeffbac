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

// Package trace implements the dual-rank edge detector used by the protocol
// engines. The original hardware registers every monitored signal twice to
// avoid glitches from combinational feedback; the one-tick detection latency
// that results from this is part of the engines' timing contract and is
// reproduced here deliberately.
package trace

// Trace records the state of an electrical line and the state at the
// previous tick. Moving from one state to the other is done with Tick(bool),
// where true indicates a high voltage level.
//
// Deriving conditions from two traces is convenient. For example, given two
// traces A and B, a condition for event E might be:
//
//	if A.Hi() && B.Rising() {
//		E()
//	}
type Trace struct {
	Label string

	// new values are added to the end of the array
	Activity []bool

	from bool
	to   bool
}

// number of samples kept for display purposes.
const activityLength = 64

// NewTrace is the preferred method of initialisation for the Trace type.
// Lines idle high so the history begins high.
func NewTrace(label string) Trace {
	tr := Trace{
		Label:    label,
		Activity: make([]bool, activityLength),
	}
	for i := range tr.Activity {
		tr.Activity[i] = true
	}
	tr.from = true
	tr.to = true
	return tr
}

// Tick records the current level of the monitored line.
func (tr *Trace) Tick(v bool) {
	tr.from = tr.to
	tr.to = v
	tr.Activity = append(tr.Activity[1:], v)
}

// Reset returns the trace to its initial, idle-high state.
func (tr *Trace) Reset() {
	tr.from = true
	tr.to = true
	for i := range tr.Activity {
		tr.Activity[i] = true
	}
}

// Changed returns true if the most recent Tick() recorded a different level
// to the one before it.
func (tr Trace) Changed() bool {
	return tr.from != tr.to
}

// Falling returns true if the line has moved from a high state to a low
// state.
func (tr Trace) Falling() bool {
	return tr.from && !tr.to
}

// Rising returns true if the line has moved from a low state to a high
// state.
func (tr Trace) Rising() bool {
	return !tr.from && tr.to
}

// Hi returns true if the most recently recorded level is high.
func (tr Trace) Hi() bool {
	return tr.to
}

// Lo returns true if the most recently recorded level is low.
func (tr Trace) Lo() bool {
	return !tr.to
}

// Prev returns the level recorded by the Tick() before the most recent one.
// The one-tick delay is used to place start/stop conditions on the data line
// one tick behind the data strobe.
func (tr Trace) Prev() bool {
	return tr.from
}

func (tr Trace) String() string {
	b := make([]byte, len(tr.Activity))
	for i, v := range tr.Activity {
		if v {
			b[i] = '-'
		} else {
			b[i] = '_'
		}
	}
	return string(b)
}
