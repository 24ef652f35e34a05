/*
 * flip-jump - Main process.
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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"flip-jump/internal/console"
	"flip-jump/internal/engine"
	"flip-jump/internal/fjword"
	"flip-jump/internal/iobridge"
	"flip-jump/internal/loader"
	"flip-jump/internal/logger"
	"flip-jump/internal/memory"
	"flip-jump/internal/stats"
)

var Logger *slog.Logger

func main() {
	optSilent := getopt.BoolLong("silent", 's', "Suppress the statistics report")
	optFlags := getopt.StringLong("flags", 'f', "0", "Runtime flag word (reserved, ignored)")
	optDebug := getopt.StringLong("debug", 'd', "", "Debug-symbol file (not interpreted by the core)")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optInteractive := getopt.BoolLong("interactive", 'i', "Start an interactive stepper instead of running to completion")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}
	_ = *optFlags // reserved for future use, accepted and ignored per §6

	var logFile *os.File
	if *optLogFile != "" {
		var err error
		logFile, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "can't create log file:", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	Logger = slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}, false))
	slog.SetDefault(Logger)

	if *optDebug != "" {
		if _, err := os.Stat(*optDebug); err != nil {
			Logger.Warn("debug-symbol file not found", "path", *optDebug)
		}
	}

	args := getopt.Args()
	if len(args) != 1 {
		getopt.Usage()
		os.Exit(1)
	}
	imagePath := args[0]

	imageFile, err := os.Open(imagePath)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	defer imageFile.Close()

	if err := run(imageFile, os.Stdin, os.Stdout, *optSilent, *optInteractive); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
}

// run peeks the image header for its word width, then dispatches to
// the generic instantiation matching it.
func run(image *os.File, in *os.File, out *os.File, silent, interactive bool) error {
	width, rest, err := loader.PeekWidth(image)
	if err != nil {
		return err
	}
	switch width {
	case fjword.Width8:
		return runWidth[uint8](rest, uint8(width), in, out, silent, interactive)
	case fjword.Width16:
		return runWidth[uint16](rest, uint16(width), in, out, silent, interactive)
	case fjword.Width32:
		return runWidth[uint32](rest, uint32(width), in, out, silent, interactive)
	case fjword.Width64:
		return runWidth[uint64](rest, uint64(width), in, out, silent, interactive)
	default:
		return fmt.Errorf("unsupported word width %v", width)
	}
}

func runWidth[W memory.Uint](rest io.Reader, w W, in, out *os.File, silent, interactive bool) error {
	mem := memory.New[W](w, false)
	cfg, err := loader.Load[W](rest, mem)
	if err != nil {
		return err
	}

	st := stats.New()
	bridge := iobridge.New[W](cfg.Width, w, out, in, st, slog.Default())
	eng := engine.NewWithStats[W](mem, bridge, w, engine.Config{
		Alignment:       cfg.Alignment,
		NoNullJump:      true,
		AllowSelfModify: true,
		JumpBeforeFlip:  true,
		CountStats:      true,
	}, st)

	if interactive {
		console.Run(eng)
		return nil
	}

	runErr := eng.Run()
	if flushErr := bridge.Flush(); flushErr != nil && runErr == nil {
		runErr = flushErr
	}
	if runErr != nil {
		return runErr
	}
	if !silent {
		fmt.Println(eng.Stats().String())
	}
	return nil
}
