/* Copyright (c) 2017 Jeffrey Massung
 *
 * This software is provided 'as-is', without any express or implied
 * warranty.  In no event will the authors be held liable for any damages
 * arising from the use of this software.
 *
 * Permission is granted to anyone to use this software for any purpose,
 * including commercial applications, and to alter it and redistribute it
 * freely, subject to the following restrictions:
 *
 * 1. The origin of this software must not be misrepresented; you must not
 *    claim that you wrote the original software. If you use this software
 *    in a product, an acknowledgment in the product documentation would be
 *    appreciated but is not required.
 *
 * 2. Altered source versions must be plainly marked as such, and must not be
 *    misrepresented as being the original software.
 *
 * 3. This notice may not be removed or altered from any source distribution.
 */

package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/chiplet-go/octoasm/internal/assemble"
	"github.com/chiplet-go/octoasm/internal/cartridge"
	"github.com/chiplet-go/octoasm/internal/config"
	"github.com/chiplet-go/octoasm/internal/dialect"
	"github.com/chiplet-go/octoasm/internal/disasm"
	"github.com/chiplet-go/octoasm/internal/diag"
	"github.com/chiplet-go/octoasm/internal/octolog"
	"github.com/chiplet-go/octoasm/internal/preprocess"
	"github.com/chiplet-go/octoasm/internal/roundtrip"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "assemble":
		err = cmdAssemble(os.Args[2:])
	case "disasm":
		err = cmdDisasm(os.Args[2:])
	case "analyze":
		err = cmdAnalyze(os.Args[2:])
	case "cartridge":
		err = cmdCartridge(os.Args[2:])
	case "roundtrip":
		err = cmdRoundtrip(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: octoasm <assemble|disasm|analyze|cartridge|roundtrip> [flags]")
}

// compile preprocesses and assembles one source file, collecting both
// stages' diagnostics into a single log before returning the result.
func compile(file string, startAddress int) (*assemble.Result, *octolog.Log, error) {
	src, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, nil, err
	}

	log := octolog.New()
	diags := diag.New(file)

	flattened, fatal := runPreprocessor(diags, file, src)
	if fatal != nil {
		log.CaptureDiagnostics([]diag.Result{*fatal})
		return nil, log, fmt.Errorf("preprocessing failed: %s", fatal.Error())
	}

	result, fatal := assemble.Assemble(file, flattened, assemble.Options{StartAddress: startAddress})
	if fatal != nil {
		log.CaptureDiagnostics([]diag.Result{*fatal})
		return nil, log, fmt.Errorf("assembly failed: %s", fatal.Error())
	}

	log.CaptureDiagnostics(result.Diagnostics)
	return result, log, nil
}

// runPreprocessor wraps Preprocessor.Run the same way Assemble wraps
// compileStatement: a panic raised through diags.Fatalf is the only error
// signal, recovered here at the boundary rather than threaded as a
// returned error.
func runPreprocessor(diags *diag.Sink, file string, src []byte) (flattened string, fatal *diag.Result) {
	defer func() {
		if r := recover(); r != nil {
			captured := diags.Capture(r)
			fatal = &captured
		}
	}()
	p := preprocess.New(diags, []string{filepath.Dir(file)}, nil)
	p.GenerateLineInfos = true
	return p.Run(file, src), nil
}

func cmdAssemble(args []string) error {
	fs := flag.NewFlagSet("assemble", flag.ExitOnError)
	out := fs.String("o", "", "output ROM file (defaults to the input file with its extension replaced by .ch8)")
	start := fs.Int("start", 0, "start address (0 means the dialect default, 0x200)")
	dialectName := fs.String("dialect", "", "default start address is taken from this named dialect unless -start is set")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("assemble: expected exactly one source file")
	}
	file := fs.Arg(0)

	startAddress := *start
	if startAddress == 0 && *dialectName != "" {
		startAddress = dialect.StartAddressFor(*dialectName)
	}

	result, log, err := compile(file, startAddress)
	log.WriteTo(os.Stderr)
	if err != nil {
		return err
	}

	dest := *out
	if dest == "" {
		dest = strings.TrimSuffix(file, filepath.Ext(file)) + ".ch8"
	}
	if err := ioutil.WriteFile(dest, result.ROM, 0666); err != nil {
		return err
	}
	fmt.Printf("%s: %d bytes written to %s\n", file, len(result.ROM), dest)
	return nil
}

func cmdDisasm(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	start := fs.Int("start", assemble.DefaultStartAddress, "the VM address rom[0] corresponds to")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("disasm: expected exactly one ROM file")
	}
	rom, err := ioutil.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	for _, ins := range disasm.Disassemble(rom, *start) {
		fmt.Printf("%04X  %s\n", ins.Addr, ins.Text)
	}
	return nil
}

func cmdAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	start := fs.Int("start", assemble.DefaultStartAddress, "the VM address rom[0] corresponds to")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("analyze: expected exactly one ROM file")
	}
	rom, err := ioutil.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("size: %d bytes (load range 0x%04X-0x%04X)\n", len(rom), *start, *start+len(rom))
	fmt.Println("candidate dialects:")
	for _, g := range disasm.GuessDialect(rom) {
		fmt.Printf("  %-12s score %d\n", g.Dialect, g.Score)
	}
	return nil
}

func cmdCartridge(args []string) error {
	fs := flag.NewFlagSet("cartridge", flag.ExitOnError)
	mode := fs.String("mode", "", "encode or decode")
	in := fs.String("in", "", "input file (source text for encode, GIF for decode)")
	out := fs.String("out", "", "output file")
	width := fs.Int("width", 64, "cartridge image width in pixels (encode only)")
	height := fs.Int("height", 64, "cartridge image height in pixels (encode only)")
	background := fs.Uint("bg", cartridge.DefaultBackground, "base RGB color, e.g. 0x332200 (encode only)")
	fs.Parse(args)

	switch *mode {
	case "encode":
		program, err := ioutil.ReadFile(*in)
		if err != nil {
			return err
		}
		gif, err := cartridge.Write(string(program), config.Defaults(), *width, *height, uint32(*background))
		if err != nil {
			return err
		}
		return ioutil.WriteFile(*out, gif, 0666)
	case "decode":
		data, err := ioutil.ReadFile(*in)
		if err != nil {
			return err
		}
		program, opts, err := cartridge.Read(data)
		if err != nil {
			return err
		}
		if *out != "" {
			if err := ioutil.WriteFile(*out, []byte(program), 0666); err != nil {
				return err
			}
		} else {
			fmt.Print(program)
		}
		encoded, err := config.Encode(opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "options:", string(encoded))
		return nil
	default:
		return fmt.Errorf("cartridge: -mode must be 'encode' or 'decode'")
	}
}

func cmdRoundtrip(args []string) error {
	fs := flag.NewFlagSet("roundtrip", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("roundtrip: expected one or more source files")
	}

	sources := make(map[string]string, fs.NArg())
	for _, file := range fs.Args() {
		src, err := ioutil.ReadFile(file)
		if err != nil {
			return err
		}
		sources[file] = string(src)
	}

	failures := 0
	for _, r := range roundtrip.Batch(sources) {
		if r.Ok {
			fmt.Printf("OK   %s: %s\n", r.File, r.Message)
			continue
		}
		failures++
		fmt.Printf("FAIL %s: %s\n", r.File, r.Message)
		if r.DiffText != "" {
			fmt.Println(r.DiffText)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d files failed to round-trip", failures, len(sources))
	}
	return nil
}
