package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestExecuteUnknownCommand(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()
	os.Args = []string{"aichat", "bogus"}

	err := Execute()
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("error = %v, want command name", err)
	}
}

func TestExecuteHelp(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()
	os.Args = []string{"aichat", "help"}

	if err := Execute(); err != nil {
		t.Errorf("Execute(help) = %v", err)
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	printHelp(&buf)

	out := buf.String()
	for _, want := range []string{"serve", "mcp", "version", "GEMINI_API_KEY", "WEATHER_API_KEY"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}
