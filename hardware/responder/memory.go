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

package responder

// MemorySize is the number of bytes behind a responder.
const MemorySize = 0x100

// Memory is the byte store behind the responder: a small EEPROM-like array
// with an auto-incrementing pointer. The pointer wraps at the end of the
// array.
type Memory struct {
	// the next address an i2c read/write operation will access
	Pointer uint8

	// amend Data only through put() and Poke()
	Data []uint8
}

func newMemory() *Memory {
	m := &Memory{
		Data: make([]uint8, MemorySize),
	}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.Pointer = 0
	for i := range m.Data {
		m.Data[i] = 0xff
	}
}

// get returns the byte at the pointer and advances the pointer.
func (m *Memory) get() uint8 {
	v := m.Data[m.Pointer]
	m.Pointer++
	return v
}

// put stores a byte at the pointer and advances the pointer.
func (m *Memory) put(v uint8) {
	m.Data[m.Pointer] = v
	m.Pointer++
}

// Peek returns the byte at the specified address without disturbing the
// pointer.
func (m *Memory) Peek(address uint8) uint8 {
	return m.Data[address]
}

// Poke stores a byte at the specified address without disturbing the
// pointer.
func (m *Memory) Poke(address uint8, v uint8) {
	m.Data[address] = v
}
