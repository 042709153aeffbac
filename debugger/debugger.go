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

// Package debugger is a line-command monitor for the emulated bus. the
// system can be stepped a tick at a time, whole transactions can be fired
// through the transactor and the state of every component inspected.
package debugger

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bradleyjkemp/memviz"

	"github.com/greneruiz/twowire/curated"
	"github.com/greneruiz/twowire/debugger/easyterm"
	"github.com/greneruiz/twowire/hardware"
	"github.com/greneruiz/twowire/hardware/clock"
	"github.com/greneruiz/twowire/hardware/responder"
	"github.com/greneruiz/twowire/logger"
	"github.com/greneruiz/twowire/transactor"
)

// sentinal errors returned by the monitor.
const (
	UserInterrupt = "debugger: user interrupt"
	CommandError  = "debugger: %v"
)

const prompt = "[twowire] "

// the number of ticks a bare RUN command executes.
const defRunTicks = 10000

// Debugger is the monitor's controlling type. it owns the terminal for the
// duration of the session.
type Debugger struct {
	sys *hardware.System
	rsp *responder.Responder
	bus *transactor.Transactor

	term easyterm.Terminal

	quit bool
}

// New is the preferred method of initialisation for the Debugger type. the
// responder reference may be nil, in which case the PEEK and POKE commands
// are unavailable.
func New(sys *hardware.System, rsp *responder.Responder) *Debugger {
	return &Debugger{
		sys: sys,
		rsp: rsp,
		bus: transactor.NewTransactor(sys),
	}
}

// Start the monitor loop. returns when the user quits or input is
// exhausted.
func (dbg *Debugger) Start() error {
	err := dbg.term.Initialise(os.Stdin, os.Stdout)
	if err != nil {
		return curated.Errorf(CommandError, err)
	}
	defer dbg.term.CleanUp()
	dbg.term.CBreakMode()

	logger.Log("debugger", "monitor started")

	for !dbg.quit {
		dbg.term.Print(prompt)

		line, err := dbg.readLine()
		if err != nil {
			if curated.Is(err, UserInterrupt) || err == io.EOF {
				dbg.term.Print("\n")
				return nil
			}
			return err
		}

		err = dbg.parseCommand(line)
		if err != nil {
			dbg.term.Print("%v\n", err)
		}
	}

	return nil
}

// readLine gathers a command line a byte at a time. the terminal is in
// cbreak mode so line editing is ours to do.
func (dbg *Debugger) readLine() (string, error) {
	s := strings.Builder{}

	for {
		b, err := dbg.term.ReadRune()
		if err != nil {
			return "", err
		}

		switch b {
		case 0x03: // ctrl-c
			return "", curated.Errorf(UserInterrupt)

		case 0x04: // ctrl-d
			return "", io.EOF

		case '\n', '\r':
			dbg.term.Print("\n")
			return s.String(), nil

		case 0x08, 0x7f: // backspace and delete
			t := s.String()
			if len(t) > 0 {
				s.Reset()
				s.WriteString(t[:len(t)-1])
				dbg.term.Print("\b \b")
			}

		default:
			if b >= 0x20 && b < 0x7f {
				s.WriteByte(b)
				dbg.term.Print("%c", b)
			}
		}
	}
}

func (dbg *Debugger) parseCommand(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	switch strings.ToUpper(args[0]) {
	case "HELP":
		dbg.term.Print("STEP [n]           advance the system n ticks (default 1)\n")
		dbg.term.Print("RUN [n]            advance the system n ticks (default %d)\n", defRunTicks)
		dbg.term.Print("FRAME addr W data  write data bytes to addr\n")
		dbg.term.Print("FRAME addr R n     read n bytes from addr\n")
		dbg.term.Print("SPEED slow|fast    select the bus rate\n")
		dbg.term.Print("STATE              current state of every component\n")
		dbg.term.Print("PEEK index         inspect responder memory\n")
		dbg.term.Print("POKE index value   change responder memory\n")
		dbg.term.Print("LOG                recent log entries\n")
		dbg.term.Print("VIZ file           dot graph of the system state\n")
		dbg.term.Print("RESET              reset the system\n")
		dbg.term.Print("QUIT               leave the monitor\n")
		dbg.term.Print("addresses, indices and data are hexadecimal\n")

	case "STEP":
		return dbg.runCommand(args, 1)

	case "RUN":
		return dbg.runCommand(args, defRunTicks)

	case "FRAME":
		return dbg.frameCommand(args[1:])

	case "SPEED":
		if len(args) != 2 {
			return curated.Errorf(CommandError, "SPEED requires slow or fast")
		}
		switch strings.ToUpper(args[1]) {
		case "SLOW":
			dbg.sys.Clock.SetMode(clock.Standard)
		case "FAST":
			dbg.sys.Clock.SetMode(clock.Fast)
		default:
			return curated.Errorf(CommandError, "SPEED requires slow or fast")
		}

	case "STATE":
		dbg.term.Print("%s\n", dbg.sys.String())
		dbg.term.Print("SCL=%v SDA=%v\n", dbg.sys.SCL.Level(), dbg.sys.SDA.Level())
		dbg.term.Print("busy=%v ackError=%v\n", dbg.sys.Engine.Busy, dbg.sys.Engine.AckError)
		for _, p := range dbg.sys.Peers {
			dbg.term.Print("%s\n", p.String())
		}

	case "PEEK":
		if dbg.rsp == nil {
			return curated.Errorf(CommandError, "no responder attached")
		}
		if len(args) != 2 {
			return curated.Errorf(CommandError, "PEEK requires an index")
		}
		idx, err := parseHex8(args[1])
		if err != nil {
			return err
		}
		dbg.term.Print("%#02x = %#02x\n", idx, dbg.rsp.Mem.Peek(idx))

	case "POKE":
		if dbg.rsp == nil {
			return curated.Errorf(CommandError, "no responder attached")
		}
		if len(args) != 3 {
			return curated.Errorf(CommandError, "POKE requires an index and a value")
		}
		idx, err := parseHex8(args[1])
		if err != nil {
			return err
		}
		v, err := parseHex8(args[2])
		if err != nil {
			return err
		}
		dbg.rsp.Mem.Poke(idx, v)

	case "LOG":
		logger.Tail(os.Stdout, 20)

	case "VIZ":
		if len(args) != 2 {
			return curated.Errorf(CommandError, "VIZ requires a filename")
		}
		f, err := os.Create(args[1])
		if err != nil {
			return curated.Errorf(CommandError, err)
		}
		defer f.Close()
		memviz.Map(f, dbg.sys)
		dbg.term.Print("state graph written to %s\n", args[1])

	case "RESET":
		dbg.sys.Reset()

	case "QUIT", "EXIT":
		dbg.quit = true

	default:
		return curated.Errorf(CommandError, "unrecognised command: "+args[0])
	}

	return nil
}

// runCommand handles both STEP and RUN, which differ only in their default
// tick count.
func (dbg *Debugger) runCommand(args []string, def int) error {
	n := def
	if len(args) > 1 {
		var err error
		n, err = strconv.Atoi(args[1])
		if err != nil {
			return curated.Errorf(CommandError, err)
		}
	}
	_, err := dbg.sys.Run(n, nil)
	if err != nil {
		return err
	}
	dbg.term.Print("%s\n", dbg.sys.String())
	return nil
}

// frameCommand fires a whole transaction through the transactor.
func (dbg *Debugger) frameCommand(args []string) error {
	if len(args) < 3 {
		return curated.Errorf(CommandError, "FRAME requires an address, a direction and data")
	}

	addr, err := parseHex8(args[0])
	if err != nil {
		return err
	}

	switch strings.ToUpper(args[1]) {
	case "W":
		w := make([]byte, 0, len(args)-2)
		for _, a := range args[2:] {
			v, err := parseHex8(a)
			if err != nil {
				return err
			}
			w = append(w, v)
		}
		err = dbg.bus.Tx(uint16(addr), w, nil)
		if err != nil {
			return err
		}
		dbg.term.Print("wrote % 02x to %#02x\n", w, addr)

	case "R":
		n, err := parseHex8(args[2])
		if err != nil {
			return err
		}
		r := make([]byte, n)
		err = dbg.bus.Tx(uint16(addr), nil, r)
		if err != nil {
			return err
		}
		dbg.term.Print("read % 02x from %#02x\n", r, addr)

	default:
		return curated.Errorf(CommandError, "FRAME direction must be R or W")
	}

	return nil
}

func parseHex8(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 8)
	if err != nil {
		return 0, curated.Errorf(CommandError, err)
	}
	return uint8(v), nil
}
