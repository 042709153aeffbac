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

// Package curated provides the error type used throughout the project.
// Errors are created with a pattern string rather than a preformatted
// message, which allows callers to test for a specific error with Is() and
// Has() without string comparison of the formatted output.
//
// Packages that want their errors to be testable define the pattern as an
// exported constant. For example:
//
//	const NoDevice = "transactor: no device at address %#02x"
//
//	return curated.Errorf(NoDevice, addr)
//
// and the caller:
//
//	if curated.Is(err, transactor.NoDevice) {
//		...
//	}
//
// Formatted messages de-duplicate adjacent identical parts so that wrapped
// errors don't repeat themselves.
package curated
