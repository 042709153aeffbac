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

package test

import "testing"

// DemandEquality is used to test equality between one value and another. If
// the test fails it is a testing fatality.
//
// This is particularly useful if the values being tested are used in further
// tests and so must be correct.
func DemandEquality[T comparable](t *testing.T, value T, expectedValue T) {
	t.Helper()
	if value != expectedValue {
		t.Fatalf("equality test of type %T failed: '%v' does not equal '%v'", value, value, expectedValue)
	}
}

// DemandSuccess is used to test for a value that indicates success for the
// type. See ExpectSuccess() for supported types. Failure ends the test.
func DemandSuccess(t *testing.T, v any) {
	t.Helper()

	ok, supported := expect(t, v)
	if !supported {
		t.Fatalf("unsupported type (%T) for DemandSuccess()", v)
		return
	}
	if !ok {
		t.Fatalf("success demanded for type %T", v)
	}
}

// DemandFailure is used to test for a value that indicates failure for the
// type. See ExpectFailure() for supported types. Success ends the test.
func DemandFailure(t *testing.T, v any) {
	t.Helper()

	ok, supported := expect(t, v)
	if !supported {
		t.Fatalf("unsupported type (%T) for DemandFailure()", v)
		return
	}
	if ok {
		t.Fatalf("failure demanded for type %T", v)
	}
}
