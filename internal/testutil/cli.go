// Package testutil provides shared test utilities for CLI testing across
// packages. This enables co-located CLI tests while maintaining consistent
// test infrastructure.
package testutil

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eisen/cmd/eisen/cmd"
	"eisen/internal/server"
)

// CLITest runs eisen commands in isolation against an in-process backend.
type CLITest struct {
	t          *testing.T
	srv        *httptest.Server
	backend    *server.Server
	configPath string
}

// NewCLITest creates a CLI test helper with a fresh demo backend and an
// isolated config file.
func NewCLITest(t *testing.T) *CLITest {
	t.Helper()

	backend := server.New(server.Options{})
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	cfgYAML := "api:\n  base_url: " + srv.URL + "\n"
	if err := os.WriteFile(configPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	return &CLITest{
		t:          t,
		srv:        srv,
		backend:    backend,
		configPath: configPath,
	}
}

// Backend returns the demo server backing this test, for seeding and
// inspection.
func (c *CLITest) Backend() *server.Server {
	return c.backend
}

// BaseURL returns the backend URL, for tests that wire their own gateway.
func (c *CLITest) BaseURL() string {
	return c.srv.URL
}

// Disconnect shuts the backing server down, leaving the CLI configured
// against an unreachable backend.
func (c *CLITest) Disconnect() {
	c.srv.Close()
}

// Execute runs a CLI command and returns stdout, stderr and exit code.
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var outBuf, errBuf bytes.Buffer
	opts := &cmd.Options{ConfigPath: c.configPath}
	exitCode = cmd.Execute(args, &outBuf, &errBuf, opts)
	return outBuf.String(), errBuf.String(), exitCode
}

// ExecuteWithInput runs a CLI command with the given stdin content.
func (c *CLITest) ExecuteWithInput(stdin string, args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var outBuf, errBuf bytes.Buffer
	root := cmd.NewRoot(&outBuf, &errBuf, &cmd.Options{ConfigPath: c.configPath})
	root.SetArgs(args)
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetIn(strings.NewReader(stdin))

	exitCode = 0
	if err := root.Execute(); err != nil {
		fmt.Fprintln(&errBuf, "Error:", err)
		exitCode = 1
	}
	return outBuf.String(), errBuf.String(), exitCode
}

// MustExecuteWithInput runs a CLI command with stdin and fails the test on
// non-zero exit.
func (c *CLITest) MustExecuteWithInput(stdin string, args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.ExecuteWithInput(stdin, args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// MustExecute runs a CLI command and fails the test on non-zero exit.
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test if exit code is zero.
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string) {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr
}

// AssertContains fails the test if output doesn't contain expected string.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains fails the test if output contains unexpected string.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// AssertExitCode fails the test if exit code doesn't match expected.
func AssertExitCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}
