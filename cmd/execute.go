// Package cmd contains the aichat entry points.
//
// All application logic lives here, leaving main.go as a minimal shim.
// Commands:
//
//	aichat serve    start the chat API server (default)
//	aichat mcp      start the weather MCP server
//	aichat version  print version information
package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Execute routes to the requested command. Called from main().
func Execute() error {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		return runServe()
	case "mcp":
		return runMCP()
	case "version", "--version", "-v":
		printVersion()
		return nil
	case "help", "--help", "-h":
		printHelp(os.Stdout)
		return nil
	default:
		printHelp(os.Stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
