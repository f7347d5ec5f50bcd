// kong compiles Kong source code into bytecode and runs it in a virtual machine.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/embedscript/kong/engine"
	"github.com/embedscript/kong/gc"
	"github.com/embedscript/kong/repl"
)

const version = "0.1.0"

// includeDirList collects repeated -I/--include-dir flags into a slice.
type includeDirList []string

func (l *includeDirList) String() string { return strings.Join(*l, ",") }

func (l *includeDirList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// printUsage displays custom usage information
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `Kong Compiler v%s

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    Kong compiles Kong source code into bytecode and runs it in a virtual machine.
    Without any flags, it starts an interactive REPL (Read-Eval-Print-Loop).

OPTIONS:
    -f, --file <path>          Execute a Kong script file
    -e, --eval <code>          Evaluate a Kong expression and print the result
    -I, --include-dir <dir>    Add a directory searched for 'include' targets
                                not found relative to the including file
                                (repeatable)
    -g, --gc-pool-size <n>     Per-type GC pool capacity (default %d)
    -d, --debug                Enable debug mode with more verbose output
    -v, --version               Show version information
    -h, --help                  Show this help message

EXAMPLES:
    # Start interactive REPL
    %s

    # Execute a script file
    %s -f script.kong
    %s --file script.kong

    # Evaluate an expression
    %s -e "let x = 5; x * 2"
    %s --eval "puts(\"Hello, World!\")"

    # Execute with an extra include search path
    %s -f script.kong -I ./lib

`, version, os.Args[0], gc.PoolSize, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	// Set custom usage function
	flag.Usage = printUsage

	// Define command-line flags
	fileFlag := flag.String("file", "", "Execute a Kong script file")
	evalFlag := flag.String("eval", "", "Evaluate a Kong expression and print the result")
	debugFlag := flag.Bool("debug", false, "Enable debug mode with more verbose output")
	versionFlag := flag.Bool("version", false, "Show version information")
	gcPoolSizeFlag := flag.Int("gc-pool-size", gc.PoolSize, "Per-type GC pool capacity")
	var includeDirs includeDirList
	flag.Var(&includeDirs, "include-dir", "Add a directory searched for 'include' targets (repeatable)")

	// Define short flag aliases
	flag.StringVar(fileFlag, "f", "", "Execute a Kong script file")
	flag.StringVar(evalFlag, "e", "", "Evaluate a Kong expression and print the result")
	flag.BoolVar(debugFlag, "d", false, "Enable debug mode with more verbose output")
	flag.BoolVar(versionFlag, "v", false, "Show version information")
	flag.IntVar(gcPoolSizeFlag, "g", gc.PoolSize, "Per-type GC pool capacity")
	flag.Var(&includeDirs, "I", "Add a directory searched for 'include' targets (repeatable)")

	// Parse command-line flags
	flag.Parse()

	// Show version information if requested
	if *versionFlag {
		fmt.Printf("Kong Compiler v%s\n", version)
		return
	}

	opts := []engine.Option{engine.WithGCPoolSize(*gcPoolSizeFlag)}
	if len(includeDirs) > 0 {
		opts = append(opts, engine.WithIncludeDirs(includeDirs...))
	}

	// Execute a file if specified
	if *fileFlag != "" {
		executeFile(*fileFlag, *debugFlag, opts)
		return
	}

	// Evaluate an expression if specified
	if *evalFlag != "" {
		evaluateExpression(*evalFlag, opts)
		return
	}

	// Get current user
	username := "unknown"
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	fmt.Println("Hello", username+",", "welcome to the kong compiler!")
	fmt.Println("Feel free to type in Kong code. (Ctrl+D or Ctrl+C to exit)")

	// Start the REPL
	repl.Start(username, repl.Options{Debug: *debugFlag})
}

// executeFile reads and executes a Kong script file
func executeFile(filename string, debug bool, opts []engine.Option) {
	cleaned := filepath.Clean(filename)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		fmt.Printf("Error getting absolute path: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("Executing file: %s\n", absolute)

	ctx := engine.New(opts...)

	bc, err := ctx.CompileFile(absolute)
	if err != nil {
		fmt.Printf("Compilation error: %s\n", err)
		os.Exit(1)
	}

	result, err := ctx.Run(bc)
	if err != nil {
		fmt.Printf("VM error: %s\n", err)
		os.Exit(1)
	}

	// Print the result if in debug mode
	if debug && result != nil {
		fmt.Println(result.Inspect())
	}
}

// evaluateExpression evaluates a single Kong expression
func evaluateExpression(expr string, opts []engine.Option) {
	ctx := engine.New(opts...)

	bc, err := ctx.CompileSource(expr)
	if err != nil {
		fmt.Printf("Compilation error: %s\n", err)
		os.Exit(1)
	}

	result, err := ctx.Run(bc)
	if err != nil {
		fmt.Printf("VM error: %s\n", err)
		os.Exit(1)
	}

	if result != nil {
		fmt.Println(result.Inspect())
	}
}
