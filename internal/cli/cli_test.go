package cli

import (
	"bytes"
	"strings"
	"testing"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

func TestRootCommandSubcommands(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()

	want := []string{"scan", "serve", "cache", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("RootCommand() missing subcommand %q", name)
		}
	}
}

func TestScanCommandRequiresTarget(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scan"})

	err := root.Execute()
	if err == nil {
		t.Fatal("scan without a target should fail")
	}
	if !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("error code = %q, want %q", apperrors.GetCode(err), apperrors.ErrCodeInvalidInput)
	}
}

func TestScanCommandRejectsURLWithPath(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scan", "https://github.com/acme/app", "--path", "/tmp/app"})

	err := root.Execute()
	if err == nil {
		t.Fatal("scan with URL and --path should fail")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("error = %q, want mention of mutual exclusion", err)
	}
}

func TestSetLogLevel(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	c.SetLogLevel(LogDebug)
	if c.Logger.GetLevel() != LogDebug {
		t.Errorf("level = %v, want %v", c.Logger.GetLevel(), LogDebug)
	}
}
