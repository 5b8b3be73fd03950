package log_test

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DE-labtory/cipherbatch/log"
	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

func TestSetLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", ""} {
		if err := log.SetLevel(lvl); err != nil {
			t.Fatalf("unexpected err for level %q: %s", lvl, err)
		}
	}
	if err := log.SetLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

// printed only file
func TestEnableFileLogger(t *testing.T) {
	absPath := filepath.Join(t.TempDir(), "logs", "cipherbatch.log")
	defer log.DisableFileLogger()

	if err := log.SetLevel("info"); err != nil {
		t.Fatal(err)
	}
	if err := log.EnableFileLogger(absPath, true); err != nil {
		t.Fatal(err)
	}
	log.Debug("level", "debug") // not printed
	log.Info("level", "info", "filepath", absPath)

	b, err := ioutil.ReadFile(absPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(b)
	if !strings.Contains(content, "level=info") {
		t.Fatalf("expected info line in log file, but got %q", content)
	}
	if strings.Contains(content, "level=debug") {
		t.Fatalf("debug line must be filtered, but got %q", content)
	}
}

func TestCaller(t *testing.T) {
	absPath := filepath.Join(t.TempDir(), "cipherbatch.log")
	defer log.DisableFileLogger()

	if err := log.SetLevel("info"); err != nil {
		t.Fatal(err)
	}
	if err := log.EnableFileLogger(absPath, true); err != nil {
		t.Fatal(err)
	}
	log.Info("msg", "from helper")
	level.Info(log.Logger()).Log("msg", "from logger")
	kitlog.With(log.Logger(), "component", "test").Log("msg", "from component")

	b, err := ioutil.ReadFile(absPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, but got %d: %q", len(lines), lines)
	}
	for _, line := range lines {
		if !strings.Contains(line, "caller=log_wrapper_test.go:") {
			t.Fatalf("expected caller to be this test file, but got %q", line)
		}
	}
}
