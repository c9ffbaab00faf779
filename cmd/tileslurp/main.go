package main

import (
	"fmt"
	"os"
	"strings"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitStorageError     = 5
	ExitValidationFailed = 7
	ExitInterrupted      = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// fetch is the default command, so a bare invocation populates the cache.
	if len(args) == 0 || strings.HasPrefix(args[0], "-") && !isHelp(args[0]) {
		return runFetch(args)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "fetch":
		return runFetch(cmdArgs)
	case "validate":
		return runValidate(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help"
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: tileslurp [command] [options]

Commands:
  fetch     Download every tile for zoom 0..max-zoom that is not cached yet (default)
  validate  Report how many tiles are present and missing in the cache

Run 'tileslurp <command> -h' for command-specific help.`)
}
