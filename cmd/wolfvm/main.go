// Command wolfvm loads a WolfVM executable and runs it, optionally under
// the TUI/CLI debugger or as an HTTP/websocket API server for the desktop
// GUI front-end.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/lookbusy1344/wolfvm/api"
	"github.com/lookbusy1344/wolfvm/config"
	"github.com/lookbusy1344/wolfvm/debugger"
	"github.com/lookbusy1344/wolfvm/exefmt"
	"github.com/lookbusy1344/wolfvm/loader"
	"github.com/lookbusy1344/wolfvm/vm"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in CLI debugger mode")
		tuiMode     = flag.Bool("tui", false, "Start in TUI debugger mode")
		apiServer   = flag.Bool("api-server", false, "Start HTTP/websocket API server mode")
		apiPort     = flag.Int("port", 8080, "API server port (used with -api-server)")
		maxCycles   = flag.Uint64("max-cycles", vm.DefaultMaxCycles, "Maximum instructions before halt (0 = unbounded)")
		memSize     = flag.Uint64("memory-size", 1<<20, "Linear address space size in bytes")
		entryFlag   = flag.Uint64("entry", 0, "Entry point byte offset into the code section (default: 0)")
		verbose     = flag.Bool("verbose", false, "Verbose output")
		configPath  = flag.String("config", "", "Path to a TOML config file (default: platform config dir)")

		enableTrace    = flag.Bool("trace", false, "Enable execution trace")
		traceFile      = flag.String("trace-file", "", "Execution trace output file (default: trace.log in log dir)")
		traceFilter    = flag.String("trace-filter", "", "Filter trace by register (comma-separated, e.g. $0,$1,$sp)")
		enableMemTrace = flag.Bool("mem-trace", false, "Enable memory access trace")
		memTraceFile   = flag.String("mem-trace-file", "", "Memory trace output file (default: memtrace.log)")
		enableStats    = flag.Bool("stats", false, "Enable instruction histogram statistics")
		statsFile      = flag.String("stats-file", "", "Statistics output file (default: stats.json)")
		statsFormat    = flag.String("stats-format", "json", "Statistics format: json, csv, html")
	)
	flag.Usage = printHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("wolfvm %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg := loadConfig(*configPath)

	if *apiServer {
		runAPIServer(*apiPort)
		return
	}

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	exePath := flag.Arg(0)
	exe := readExecutable(exePath)

	machine := vm.NewMachine(*memSize, os.Stdin, os.Stdout)
	machine.CyclesExecuted = 0

	if err := loader.LoadExecutable(machine, exe); err != nil {
		fmt.Fprintf(os.Stderr, "wolfvm: loading %s: %v\n", exePath, err)
		os.Exit(1)
	}
	if *entryFlag != 0 {
		machine.PC = *entryFlag
	}

	if *verbose {
		fmt.Printf("Loaded %s: %d code words, %d static records, entry 0x%x\n",
			exePath, len(exe.CodeSection), len(exe.StaticSection), machine.PC)
	}

	traceCloser := setupTrace(machine, cfg, *enableTrace, *traceFile, *traceFilter)
	memTraceCloser := setupMemTrace(machine, cfg, *enableMemTrace, *memTraceFile)
	if *enableStats {
		machine.Statistics = vm.NewStatistics()
		machine.Statistics.Start()
	}
	defer traceCloser()
	defer memTraceCloser()

	if *debugMode || *tuiMode {
		dbg := debugger.NewDebugger(machine)
		runErr := error(nil)
		if *tuiMode {
			runErr = debugger.RunTUI(dbg)
		} else {
			fmt.Println("wolfvm debugger - type 'help' for commands")
			runErr = debugger.RunCLI(dbg)
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "debugger error: %v\n", runErr)
			os.Exit(1)
		}
		return
	}

	if err := machine.Run(*maxCycles); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error at PC=0x%x: %v\n", machine.PC, err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Execution complete: %d cycles\n", machine.CyclesExecuted)
	}

	flushStats(machine, *statsFile, *statsFormat, *verbose)
}

func readExecutable(path string) *exefmt.Executable {
	f, err := os.Open(path) // #nosec G304 -- user-specified executable path
	if err != nil {
		fmt.Fprintf(os.Stderr, "wolfvm: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	exe, err := exefmt.Read(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wolfvm: reading %s: %v\n", path, err)
		os.Exit(1)
	}
	return exe
}

func loadConfig(path string) *config.Config {
	if path != "" {
		cfg, err := config.LoadFrom(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wolfvm: loading config %s: %v\n", path, err)
			os.Exit(1)
		}
		return cfg
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "wolfvm: loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupTrace(machine *vm.Machine, cfg *config.Config, enabled bool, traceFile, traceFilter string) func() {
	if !enabled {
		return func() {}
	}
	path := traceFile
	if path == "" {
		path = filepath.Join(config.GetLogPath(), "trace.log")
	}
	f, err := os.Create(path) // #nosec G304 -- user-specified trace output path
	if err != nil {
		fmt.Fprintf(os.Stderr, "wolfvm: creating trace file: %v\n", err)
		os.Exit(1)
	}
	machine.ExecutionTrace = vm.NewExecutionTrace(f)
	machine.ExecutionTrace.IncludeFlags = cfg.Trace.IncludeFlags
	machine.ExecutionTrace.IncludeTiming = cfg.Trace.IncludeTiming
	if traceFilter != "" {
		machine.ExecutionTrace.SetFilterRegisters(strings.Split(traceFilter, ","))
	}
	machine.ExecutionTrace.Start()
	return func() {
		if err := machine.ExecutionTrace.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "wolfvm: flushing trace: %v\n", err)
		}
		f.Close()
	}
}

func setupMemTrace(machine *vm.Machine, _ *config.Config, enabled bool, memTraceFile string) func() {
	if !enabled {
		return func() {}
	}
	path := memTraceFile
	if path == "" {
		path = filepath.Join(config.GetLogPath(), "memtrace.log")
	}
	f, err := os.Create(path) // #nosec G304 -- user-specified memory trace output path
	if err != nil {
		fmt.Fprintf(os.Stderr, "wolfvm: creating memory trace file: %v\n", err)
		os.Exit(1)
	}
	machine.MemoryTrace = vm.NewMemoryTrace(f)
	machine.MemoryTrace.Start()
	return func() {
		if err := machine.MemoryTrace.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "wolfvm: flushing memory trace: %v\n", err)
		}
		f.Close()
	}
}

func flushStats(machine *vm.Machine, statsFile, statsFormat string, verbose bool) {
	if machine.Statistics == nil {
		return
	}
	path := statsFile
	if path == "" {
		ext := statsFormat
		if ext != "csv" && ext != "html" {
			ext = "json"
		}
		path = filepath.Join(config.GetLogPath(), "stats."+ext)
	}
	f, err := os.Create(path) // #nosec G304 -- user-specified statistics output path
	if err != nil {
		fmt.Fprintf(os.Stderr, "wolfvm: creating statistics file: %v\n", err)
		return
	}
	defer f.Close()

	switch statsFormat {
	case "csv":
		err = machine.Statistics.ExportCSV(f)
	case "html":
		err = machine.Statistics.ExportHTML(f)
	default:
		err = machine.Statistics.ExportJSON(f)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "wolfvm: exporting statistics: %v\n", err)
		return
	}
	if verbose {
		fmt.Printf("Statistics written: %s\n", path)
		fmt.Println(machine.Statistics.String())
	}
}

func runAPIServer(port int) {
	server := api.NewServerWithVersion(port, Version, Commit, Date)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	performShutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nShutting down API server...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("API server stopped")
			os.Exit(0)
		})
	}

	monitor := api.NewProcessMonitor(performShutdown)
	monitor.Start()

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	performShutdown()
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `wolfvm %s

Usage: wolfvm [options] <executable-file>
       wolfvm -api-server [-port N]

Options:
  -help              Show this help message
  -version           Show version information
  -api-server        Start HTTP/websocket API server mode (no file required)
  -port N            API server port (default: 8080, used with -api-server)
  -debug             Start in CLI debugger mode
  -tui               Start in TUI debugger mode
  -max-cycles N      Maximum instructions before halt (default: %d, 0 = unbounded)
  -memory-size N     Linear address space size in bytes (default: 1048576)
  -entry N           Entry point byte offset into the code section (default: 0)
  -config FILE       Path to a TOML config file
  -verbose           Verbose output

Tracing & Statistics:
  -trace             Enable execution trace
  -trace-file FILE   Execution trace output file (default: trace.log in log dir)
  -trace-filter REGS Filter trace by register (e.g. $0,$1,$sp)
  -mem-trace         Enable memory access trace
  -mem-trace-file F  Memory trace output file (default: memtrace.log)
  -stats             Enable instruction histogram statistics
  -stats-file FILE   Statistics output file (default: stats.json)
  -stats-format FMT  Statistics format: json, csv, html (default: json)

Examples:
  wolfvm program.wvm
  wolfvm -debug program.wvm
  wolfvm -tui program.wvm
  wolfvm -api-server -port 3000
  wolfvm -trace -stats program.wvm
`, Version, vm.DefaultMaxCycles)
}
