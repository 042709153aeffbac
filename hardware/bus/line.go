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

// Package bus models the open-drain wires of the bus. A Line has any number
// of attached drivers; a driver either pulls the line low or releases it.
// The resolved level of the line is high unless at least one driver is
// pulling low (wired-AND through the external pull-up resistor).
//
// Note that a driver can never assert a high level. Modelling a line as a
// plain boolean with last-writer-wins semantics would hide bus contention
// and break clock stretching, which depends on two drivers sharing the
// clock line.
package bus

import "strings"

// Line is a single open-drain wire.
type Line struct {
	label   string
	drivers []*Driver
}

// NewLine is the preferred method of initialisation for the Line type.
func NewLine(label string) *Line {
	return &Line{label: label}
}

// Label returns the name the line was created with.
func (l *Line) Label() string {
	return l.label
}

// Attach creates a new driver on the line. The driver starts released.
func (l *Line) Attach() *Driver {
	d := &Driver{line: l}
	l.drivers = append(l.drivers, d)
	return d
}

// Level returns the resolved logic level of the line: high (true) unless any
// attached driver is pulling the line low.
func (l *Line) Level() bool {
	for _, d := range l.drivers {
		if d.low {
			return false
		}
	}
	return true
}

// Release all drivers on the line.
func (l *Line) Release() {
	for _, d := range l.drivers {
		d.low = false
	}
}

func (l *Line) String() string {
	s := strings.Builder{}
	s.WriteString(l.label)
	if l.Level() {
		s.WriteString(": high")
	} else {
		s.WriteString(": low")
	}
	return s.String()
}

// Driver is one attachment point on a Line. The zero state is released.
type Driver struct {
	line *Line
	low  bool
}

// DriveLow pulls the line low.
func (d *Driver) DriveLow() {
	d.low = true
}

// Release stops driving the line, letting the pull-up (or another driver)
// resolve the level.
func (d *Driver) Release() {
	d.low = false
}

// Set drives the line low when the argument is true and releases it
// otherwise. It is a convenience for expressions that compute the drive
// condition.
func (d *Driver) Set(low bool) {
	d.low = low
}

// Driving returns true if this driver is pulling the line low.
func (d *Driver) Driving() bool {
	return d.low
}
