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

// Package stimulus replays a two-channel recording onto the bus lines, one
// sample pair per tick. the left channel drives the clock line and the
// right channel the data line. a sample below the midpoint of the encoding
// pulls the line low, anything else releases it, so the replay behaves
// like any other open-drain device on the bus.
//
// recordings made with the tracewriter package can be played back
// unchanged.
package stimulus

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/greneruiz/twowire/curated"
	"github.com/greneruiz/twowire/hardware/bus"
	"github.com/greneruiz/twowire/logger"
)

// sentinal errors returned when loading a recording.
const (
	UnsupportedFormat = "stimulus: unsupported file format: %s"
	BadRecording      = "stimulus: %v"
)

// one tick of drive. true means the line is pulled low.
type samplePair struct {
	sclLow bool
	sdaLow bool
}

// Player replays a recording onto the bus. it implements the
// hardware.Peer interface.
type Player struct {
	label string

	sclDrv *bus.Driver
	sdaDrv *bus.Driver

	samples []samplePair
	pos     int
}

// NewPlayer loads a recording from disk. the file type is decided by the
// extension, .wav and .mp3 are supported.
func NewPlayer(filename string, scl *bus.Line, sda *bus.Line) (*Player, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, curated.Errorf(BadRecording, err)
	}
	defer f.Close()

	pl := &Player{
		label:  filepath.Base(filename),
		sclDrv: scl.Attach(),
		sdaDrv: sda.Attach(),
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		err = pl.decodeWAV(f)
	case ".mp3":
		err = pl.decodeMP3(f)
	default:
		return nil, curated.Errorf(UnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	logger.Logf("stimulus", "%s: %d ticks", pl.label, len(pl.samples))

	return pl, nil
}

// NewPlayerFromLevels builds a player directly from line levels. true
// means the line is high (released).
func NewPlayerFromLevels(label string, scl []bool, sda []bool, sclLine *bus.Line, sdaLine *bus.Line) *Player {
	pl := &Player{
		label:  label,
		sclDrv: sclLine.Attach(),
		sdaDrv: sdaLine.Attach(),
	}
	for i := range scl {
		pl.samples = append(pl.samples, samplePair{sclLow: !scl[i], sdaLow: !sda[i]})
	}
	return pl
}

func (pl *Player) decodeWAV(f *os.File) error {
	dec := wav.NewDecoder(f)
	if dec == nil {
		return curated.Errorf(BadRecording, "error decoding wav")
	}
	if !dec.IsValidFile() {
		return curated.Errorf(BadRecording, "not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return curated.Errorf(BadRecording, err)
	}

	// eight bit samples are unsigned, anything wider is signed
	threshold := 0
	if dec.BitDepth == 8 {
		threshold = 0x80
	}

	chans := int(dec.NumChans)
	for i := 0; i+chans-1 < len(buf.Data); i += chans {
		p := samplePair{}
		if chans == 1 {
			// mono recordings drive the data line only
			p.sdaLow = buf.Data[i] < threshold
		} else {
			p.sclLow = buf.Data[i] < threshold
			p.sdaLow = buf.Data[i+1] < threshold
		}
		pl.samples = append(pl.samples, p)
	}

	return nil
}

func (pl *Player) decodeMP3(f *os.File) error {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return curated.Errorf(BadRecording, err)
	}

	// the decoded stream is always 16bit little endian with two channels,
	// four bytes per sample pair
	err = nil
	chunk := make([]byte, 4096)
	for err != io.EOF {
		var chunkLen int
		chunkLen, err = dec.Read(chunk)
		if err != nil && err != io.EOF {
			return curated.Errorf(BadRecording, err)
		}

		for i := 0; i+3 < chunkLen; i += 4 {
			l := int16(chunk[i]) | int16(chunk[i+1])<<8
			r := int16(chunk[i+2]) | int16(chunk[i+3])<<8
			pl.samples = append(pl.samples, samplePair{sclLow: l < 0, sdaLow: r < 0})
		}
	}

	return nil
}

// Step implements the hardware.Peer interface. once the recording is
// exhausted both lines are released for good.
func (pl *Player) Step() {
	if pl.pos >= len(pl.samples) {
		pl.sclDrv.Release()
		pl.sdaDrv.Release()
		return
	}

	p := pl.samples[pl.pos]
	pl.pos++

	pl.sclDrv.Set(p.sclLow)
	pl.sdaDrv.Set(p.sdaLow)
}

// Reset implements the hardware.Peer interface. the replay restarts from
// the top.
func (pl *Player) Reset() {
	pl.pos = 0
	pl.sclDrv.Release()
	pl.sdaDrv.Release()
}

// Ended returns true once every sample has been replayed.
func (pl *Player) Ended() bool {
	return pl.pos >= len(pl.samples)
}

func (pl *Player) String() string {
	return fmt.Sprintf("stimulus: %s: %d/%d", pl.label, pl.pos, len(pl.samples))
}
