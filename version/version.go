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

// Package version records the version of the project.
package version

import (
	"fmt"
	"runtime/debug"
)

// ApplicationName is the name to use when referring to the application.
const ApplicationName = "Twowire"

// number is empty unless set at build time through the linker.
var number string

// Version contains the current version string of the project.
//
// If the version string is "unreleased" then the project was built without a
// version number and the vcs revision, if available, is appended.
var Version string

func init() {
	if number != "" {
		Version = number
		return
	}

	Version = "unreleased"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	var revision string
	var modified bool
	for _, v := range info.Settings {
		switch v.Key {
		case "vcs.revision":
			revision = v.Value
		case "vcs.modified":
			modified = v.Value == "true"
		}
	}

	if revision != "" {
		if modified {
			revision = fmt.Sprintf("%s+dirty", revision)
		}
		Version = fmt.Sprintf("%s (%s)", Version, revision)
	}
}
