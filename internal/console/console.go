/*
 * flip-jump - Interactive stepper console.
 *
 * Copyright 2026, Flip-Jump Interpreter Contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package console is an external-collaborator debugging tool: an
// interactive stepper that talks to a running engine only through the
// Inspector interface (current ip, operation count, word peek), never
// by reaching into memory or the I/O bridge directly.
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

// Inspector is the engine's console-facing surface. *engine.Engine[W]
// satisfies it for every instantiation of W.
type Inspector interface {
	IP() uint64
	Step() (halted bool, err error)
	Peek(wordAddr uint64) (value uint64, ok bool)
	OpCount() uint64
}

var commands = []string{"step", "run", "peek", "quit", "help"}

// Run starts the interactive prompt loop, returning once the user
// quits, aborts with Ctrl-D, or the engine halts.
func Run(insp Inspector) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		var out []string
		for _, c := range commands {
			if strings.HasPrefix(c, partial) {
				out = append(out, c)
			}
		}
		return out
	})

	for {
		command, err := line.Prompt("fj> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error("error reading line: " + err.Error())
			return
		}
		line.AppendHistory(command)

		quit, err := process(command, insp)
		if err != nil {
			fmt.Println("Error: " + err.Error())
		}
		if quit {
			return
		}
	}
}

func process(command string, insp Inspector) (quit bool, err error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit", "exit":
		return true, nil

	case "help":
		fmt.Println("commands: step, run [N], peek <word-addr>, quit")
		return false, nil

	case "step":
		halted, err := insp.Step()
		if err != nil {
			return false, err
		}
		fmt.Printf("ip=%#x ops=%d halted=%v\n", insp.IP(), insp.OpCount(), halted)
		return halted, nil

	case "run":
		n := 1
		if len(fields) > 1 {
			v, perr := strconv.Atoi(fields[1])
			if perr != nil {
				return false, fmt.Errorf("run: bad count %q", fields[1])
			}
			n = v
		}
		for i := 0; i < n; i++ {
			halted, serr := insp.Step()
			if serr != nil {
				return false, serr
			}
			if halted {
				fmt.Printf("halted after %d ops\n", insp.OpCount())
				return true, nil
			}
		}
		fmt.Printf("ip=%#x ops=%d\n", insp.IP(), insp.OpCount())
		return false, nil

	case "peek":
		if len(fields) != 2 {
			return false, errors.New("peek requires a word-address argument")
		}
		wa, perr := strconv.ParseUint(fields[1], 0, 64)
		if perr != nil {
			return false, fmt.Errorf("peek: bad word-address %q", fields[1])
		}
		v, ok := insp.Peek(wa)
		if !ok {
			fmt.Printf("word %#x: unmaterialized\n", wa)
			return false, nil
		}
		fmt.Printf("word %#x: %#x\n", wa, v)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}
