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

package trace_test

import (
	"testing"

	"github.com/greneruiz/twowire/hardware/trace"
	"github.com/greneruiz/twowire/test"
)

func TestEdges(t *testing.T) {
	tr := trace.NewTrace("sda")

	// traces begin idle-high with no pending edge
	test.ExpectEquality(t, tr.Hi(), true)
	test.ExpectEquality(t, tr.Changed(), false)

	tr.Tick(false)
	test.ExpectEquality(t, tr.Falling(), true)
	test.ExpectEquality(t, tr.Rising(), false)
	test.ExpectEquality(t, tr.Lo(), true)
	test.ExpectEquality(t, tr.Prev(), true)

	// an edge is reported for exactly one tick
	tr.Tick(false)
	test.ExpectEquality(t, tr.Falling(), false)
	test.ExpectEquality(t, tr.Changed(), false)

	tr.Tick(true)
	test.ExpectEquality(t, tr.Rising(), true)
	test.ExpectEquality(t, tr.Prev(), false)
}

func TestDetectionLatency(t *testing.T) {
	tr := trace.NewTrace("scl")
	tr.Tick(false)
	tr.Tick(false)

	// the edge is visible on the tick that records the new level, not
	// before
	test.ExpectEquality(t, tr.Rising(), false)
	tr.Tick(true)
	test.ExpectEquality(t, tr.Rising(), true)
}

func TestReset(t *testing.T) {
	tr := trace.NewTrace("scl")
	tr.Tick(false)
	tr.Reset()
	test.ExpectEquality(t, tr.Hi(), true)
	test.ExpectEquality(t, tr.Changed(), false)
}
