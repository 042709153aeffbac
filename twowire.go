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

package main

import (
	"fmt"
	"os"
	"strings"

	"periph.io/x/conn/v3/physic"

	"github.com/greneruiz/twowire/debugger"
	"github.com/greneruiz/twowire/hardware"
	"github.com/greneruiz/twowire/hardware/responder"
	"github.com/greneruiz/twowire/logger"
	"github.com/greneruiz/twowire/modalflag"
	"github.com/greneruiz/twowire/statsview"
	"github.com/greneruiz/twowire/stimulus"
	"github.com/greneruiz/twowire/tracewriter"
	"github.com/greneruiz/twowire/transactor"
	"github.com/greneruiz/twowire/version"
)

func main() {
	md := &modalflag.Modes{Output: os.Stdout}
	md.NewArgs(os.Args[1:])
	md.NewMode()
	md.AddSubModes("RUN", "DEBUG", "VERSION")

	p, err := md.Parse()
	switch p {
	case modalflag.ParseHelp:
		os.Exit(0)

	case modalflag.ParseError:
		fmt.Printf("* error: %v\n", err)
		os.Exit(10)
	}

	switch md.Mode() {
	case "RUN":
		err = run(md)

	case "DEBUG":
		err = debug(md)

	case "VERSION":
		fmt.Printf("%s (%s)\n", version.ApplicationName, version.Version)
	}

	if err != nil {
		fmt.Printf("* error in %s mode: %s\n", md.String(), err)
		os.Exit(20)
	}
}

// the flags shared by the RUN and DEBUG modes.
type sysFlags struct {
	slow      *int
	fast      *int
	speed     *string
	address   *uint
	stretch   *int
	traceFile *string
	stimFile  *string
	log       *bool
}

func addSysFlags(md *modalflag.Modes) *sysFlags {
	return &sysFlags{
		slow:      md.AddInt("slow", hardware.DefSlowDivisor, "quadrant divisor for the 100kHz rate"),
		fast:      md.AddInt("fast", hardware.DefFastDivisor, "quadrant divisor for the 400kHz rate"),
		speed:     md.AddString("speed", "slow", "bus rate: slow or fast"),
		address:   md.AddUint("addr", 0x50, "responder device address"),
		stretch:   md.AddInt("stretch", 0, "responder clock stretch, in ticks per acknowledge"),
		traceFile: md.AddString("trace", "", "record line levels to a wav file"),
		stimFile:  md.AddString("stim", "", "replay a wav/mp3 recording onto the bus"),
		log:       md.AddBool("log", false, "echo debugging log to stdout"),
	}
}

// build the system the flags describe. the returned tracewriter is nil
// unless a trace file was requested.
func (sf *sysFlags) build() (*hardware.System, *responder.Responder, *stimulus.Player, *tracewriter.TraceWriter, error) {
	if *sf.log {
		logger.SetEcho(os.Stdout)
	} else {
		logger.SetEcho(nil)
	}

	sys := hardware.NewSystem(*sf.slow, *sf.fast)

	rsp := responder.NewResponder(uint8(*sf.address), sys.SCL, sys.SDA, *sf.stretch)
	sys.AttachPeer(rsp)

	var pl *stimulus.Player
	if *sf.stimFile != "" {
		var err error
		pl, err = stimulus.NewPlayer(*sf.stimFile, sys.SCL, sys.SDA)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		sys.AttachPeer(pl)
	}

	var tw *tracewriter.TraceWriter
	if *sf.traceFile != "" {
		var err error
		tw, err = tracewriter.New(*sf.traceFile)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		sys.AttachRecorder(tw)
	}

	sys.Reset()

	bus := transactor.NewTransactor(sys)
	switch strings.ToLower(*sf.speed) {
	case "slow":
		_ = bus.SetSpeed(100 * physic.KiloHertz)
	case "fast":
		_ = bus.SetSpeed(400 * physic.KiloHertz)
	default:
		return nil, nil, nil, nil, fmt.Errorf("speed must be slow or fast")
	}

	return sys, rsp, pl, tw, nil
}

func run(md *modalflag.Modes) error {
	md.NewMode()
	md.AdditionalHelp(
		"The remaining arguments describe a single transaction: an address, a direction\n" +
			"(W or R) and either the data bytes to write or the number of bytes to read. all\n" +
			"numbers are hexadecimal. with no transaction the system simply free-runs.")

	sf := addSysFlags(md)
	ticks := md.AddInt("ticks", 0, "ticks to run after any transaction")
	stats := md.AddBool("stats", false, "launch statistics server")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if *stats {
		statsview.Launch(os.Stdout)
	}

	sys, _, pl, tw, err := sf.build()
	if err != nil {
		return err
	}

	if len(md.RemainingArgs()) > 0 {
		err = transact(sys, md.RemainingArgs())
		if err != nil {
			return err
		}
	}

	n := *ticks
	if n == 0 && pl != nil {
		// no tick count given: play any stimulus to the end
		_, err = sys.Run(1000000000, func() bool {
			return !pl.Ended()
		})
	} else if n > 0 {
		_, err = sys.Run(n, nil)
	}
	if err != nil {
		return err
	}

	fmt.Println(sys.String())

	if tw != nil {
		return tw.End()
	}

	return nil
}

// transact parses a transaction from the command line and fires it through
// the transactor.
func transact(sys *hardware.System, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("a transaction requires an address, a direction and data")
	}

	var addr uint8
	_, err := fmt.Sscanf(strings.TrimPrefix(strings.ToLower(args[0]), "0x"), "%x", &addr)
	if err != nil {
		return err
	}

	bus := transactor.NewTransactor(sys)

	switch strings.ToUpper(args[1]) {
	case "W":
		w := make([]byte, 0, len(args)-2)
		for _, a := range args[2:] {
			var v uint8
			_, err := fmt.Sscanf(strings.TrimPrefix(strings.ToLower(a), "0x"), "%x", &v)
			if err != nil {
				return err
			}
			w = append(w, v)
		}
		err = bus.Tx(uint16(addr), w, nil)
		if err != nil {
			return err
		}
		fmt.Printf("wrote % 02x to %#02x\n", w, addr)

	case "R":
		var n uint8
		_, err := fmt.Sscanf(strings.TrimPrefix(strings.ToLower(args[2]), "0x"), "%x", &n)
		if err != nil {
			return err
		}
		r := make([]byte, n)
		err = bus.Tx(uint16(addr), nil, r)
		if err != nil {
			return err
		}
		fmt.Printf("read % 02x from %#02x\n", r, addr)

	default:
		return fmt.Errorf("transaction direction must be R or W")
	}

	return nil
}

func debug(md *modalflag.Modes) error {
	md.NewMode()

	sf := addSysFlags(md)

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	sys, rsp, _, tw, err := sf.build()
	if err != nil {
		return err
	}

	dbg := debugger.New(sys, rsp)
	err = dbg.Start()
	if err != nil {
		return err
	}

	if tw != nil {
		return tw.End()
	}

	return nil
}
