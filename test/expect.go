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

// ExpectEquality is used to test equality between one value and another.
func ExpectEquality[T comparable](t *testing.T, value T, expectedValue T) bool {
	t.Helper()
	if value != expectedValue {
		t.Errorf("equality test of type %T failed: '%v' does not equal '%v'", value, value, expectedValue)
		return false
	}
	return true
}

// ExpectInequality is the inverse of ExpectEquality.
func ExpectInequality[T comparable](t *testing.T, value T, expectedValue T) bool {
	t.Helper()
	if value == expectedValue {
		t.Errorf("inequality test of type %T failed: '%v' does equal '%v'", value, value, expectedValue)
		return false
	}
	return true
}

// expect tests argument v for a success condition suitable for its type.
// supported types are bool (success = true) and error (success = nil).
func expect(t *testing.T, v any) (bool, bool) {
	t.Helper()
	switch v := v.(type) {
	case bool:
		return v, true
	case error:
		return v == nil, true
	case nil:
		return true, true
	}
	return false, false
}

// ExpectSuccess tests argument v for a success condition suitable for its
// type. Supported types are bool (success is true) and error (success is a
// nil error). A nil argument is considered a success.
func ExpectSuccess(t *testing.T, v any) bool {
	t.Helper()

	ok, supported := expect(t, v)
	if !supported {
		t.Fatalf("unsupported type (%T) for ExpectSuccess()", v)
		return false
	}
	if !ok {
		t.Errorf("expected success (%T)", v)
	}
	return ok
}

// ExpectFailure tests argument v for a failure condition suitable for its
// type. Supported types are bool (failure is false) and error (failure is a
// non-nil error).
func ExpectFailure(t *testing.T, v any) bool {
	t.Helper()

	ok, supported := expect(t, v)
	if !supported {
		t.Fatalf("unsupported type (%T) for ExpectFailure()", v)
		return false
	}
	if ok {
		t.Errorf("expected failure (%T)", v)
	}
	return !ok
}
