// Command wolfasm assembles a WolfVM source file into an executable
// (spec.md §6's Assembler CLI).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lookbusy1344/wolfvm/assembler"
	"github.com/lookbusy1344/wolfvm/diag"
	"github.com/lookbusy1344/wolfvm/parser"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		outPath     = flag.String("o", "", "Output executable path (default: input with .wvm extension)")
		noInclude   = flag.Bool("no-include", false, "Disable .include expansion")
		verbose     = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("wolfasm %s (%s)\n", Version, Commit)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(1)
	}

	srcPath := flag.Arg(0)
	sink := diag.NewSink()

	opts := parser.DefaultParseFileOptions()
	opts.EnablePreprocessor = !*noInclude

	unit, err := parser.ParseFile(srcPath, opts, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wolfasm: %v\n", err)
		os.Exit(1)
	}
	if sink.HasErrors() {
		fmt.Fprint(os.Stderr, sink.String())
		os.Exit(1)
	}

	exe, ok := assembler.Assemble(unit.Program, unit.Consts, sink)
	if sink.HasErrors() || !ok {
		fmt.Fprint(os.Stderr, sink.String())
		os.Exit(1)
	}

	out := *outPath
	if out == "" {
		out = defaultOutputPath(srcPath)
	}

	f, err := os.Create(out) // #nosec G304 -- user-specified assembler output path
	if err != nil {
		fmt.Fprintf(os.Stderr, "wolfasm: creating %s: %v\n", out, err)
		os.Exit(1)
	}
	defer f.Close()

	if err := exe.Write(f); err != nil {
		fmt.Fprintf(os.Stderr, "wolfasm: writing %s: %v\n", out, err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("wolfasm: %s -> %s (%d code words, %d static records)\n",
			srcPath, out, len(exe.CodeSection), len(exe.StaticSection))
	}
}

func defaultOutputPath(srcPath string) string {
	for i := len(srcPath) - 1; i >= 0 && srcPath[i] != '/'; i-- {
		if srcPath[i] == '.' {
			return srcPath[:i] + ".wvm"
		}
	}
	return srcPath + ".wvm"
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `wolfasm %s

Usage: wolfasm [options] <source-file>

Options:
  -o FILE        Output executable path (default: input with .wvm extension)
  -no-include    Disable .include expansion
  -verbose       Verbose output
  -version       Show version information

Examples:
  wolfasm program.wasm
  wolfasm -o build/program.wvm program.wasm
`, Version)
}
