package cmd

import (
	"fmt"
	"io"
)

func printVersion() {
	fmt.Printf("aichat v%s\n", Version)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `aichat - conversational AI backend

Usage:
  aichat [command]

Commands:
  serve     Start the chat API server (default)
  mcp       Start the weather MCP server
  version   Print version information
  help      Print this help

Environment:
  GEMINI_API_KEY    Gemini API key (required for serve)
  WEATHER_API_KEY   weatherapi.com key (required for mcp)
  DATABASE_URL      PostgreSQL URL, overrides postgres_* settings
`)
}
