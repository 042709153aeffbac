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

// Package hardware composes the bus lines, clock generator, master engine
// and any attached peripherals into a single steppable system.
//
// the System type is the root of the emulation. everything advances in
// lockstep through the Step() function, one tick at a time. components
// never call each other directly, they communicate only through the levels
// of the shared lines.
package hardware
