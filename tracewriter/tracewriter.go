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

// Package tracewriter records the per-tick levels of the two bus lines to
// disk as a WAV file, clock on the left channel and data on the right. any
// audio editor then doubles as a logic analyser. note that the trace is
// buffered in memory in its entirety and written on program end, it is
// therefore probably only suitable for testing purposes.
package tracewriter

import (
	"os"

	"github.com/greneruiz/twowire/curated"
	"github.com/greneruiz/twowire/hardware"
	"github.com/greneruiz/twowire/logger"
	"github.com/youpy/go-wav"
)

const (
	levelLow  = 0x00
	levelHigh = 0xff
)

// TraceWriter implements the hardware.Recorder interface.
type TraceWriter struct {
	filename string
	buffer   []wav.Sample
}

var _ hardware.Recorder = (*TraceWriter)(nil)

// New is the preferred method of initialisation for the TraceWriter type.
func New(filename string) (*TraceWriter, error) {
	tw := &TraceWriter{
		filename: filename,
		buffer:   make([]wav.Sample, 0),
	}

	return tw, nil
}

// Record implements the hardware.Recorder interface.
func (tw *TraceWriter) Record(tick uint64, scl bool, sda bool) error {
	w := wav.Sample{}
	w.Values[0] = levelLow
	w.Values[1] = levelLow
	if scl {
		w.Values[0] = levelHigh
	}
	if sda {
		w.Values[1] = levelHigh
	}

	tw.buffer = append(tw.buffer, w)

	return nil
}

// End writes the buffered trace to disk.
func (tw *TraceWriter) End() (rerr error) {
	f, err := os.Create(tw.filename)
	if err != nil {
		return curated.Errorf("tracewriter: %v", err)
	}
	defer func() {
		err := f.Close()
		if err != nil {
			rerr = curated.Errorf("tracewriter: %v", err)
		}
	}()

	enc := wav.NewWriter(f, uint32(len(tw.buffer)), 2, uint32(hardware.TickFrequency), 8)
	if enc == nil {
		return curated.Errorf("tracewriter: %v", "bad parameters for wav encoding")
	}

	logger.Logf("tracewriter", "writing %d ticks to %s", len(tw.buffer), tw.filename)
	enc.WriteSamples(tw.buffer)

	return nil
}
