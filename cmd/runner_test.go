package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/decklog/internal/server"
	"github.com/desertthunder/decklog/internal/services"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/desertthunder/decklog/internal/tasks"
	tu "github.com/desertthunder/decklog/internal/testing"
)

func newTestRunner(output *bytes.Buffer) *Runner {
	return NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{}), Output: output})
}

// writeConfig writes a config whose paths all live under dir.
func writeConfig(t *testing.T, dir, sessionPath string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`
[session]
path = %q
interval = "10ms"

[tracker]
now_playing_ticks = 1
scrobble_policy = "ticks"
scrobble_ticks = 2

[tasks]
isolate = false

[database]
path = %q

[overlay]
path = %q
format = "{{.Artist}} - {{.Title}}"
`, sessionPath, filepath.Join(dir, "decklog.db"), filepath.Join(dir, "overlay.txt"))

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	return newApp(r).Run(context.Background(), append([]string{"decklog"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("{}")

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				Input:      input,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "watch", "dump", "history", "simulate", tasks.TaskCommand} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})

	t.Run("isTerminal", func(t *testing.T) {
		if isTerminal(&bytes.Buffer{}) {
			t.Error("a buffer is not a terminal")
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing default file uses defaults", func(t *testing.T) {
		origDir := tu.MustGetwd(t)
		defer tu.MustChdir(t, origDir)
		tu.MustChdir(t, t.TempDir())

		output := &bytes.Buffer{}
		r := newTestRunner(output)
		if err := run(t, r, "history"); err != nil {
			t.Fatalf("expected defaults to work, got %v", err)
		}
		if r.config == nil || r.config.Database.Path != shared.DefaultConfig().Database.Path {
			t.Errorf("expected default config, got %+v", r.config)
		}
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		r := newTestRunner(&bytes.Buffer{})
		err := run(t, r, "--config", filepath.Join(t.TempDir(), "nope.toml"), "history")
		if err == nil {
			t.Fatal("expected error for missing config")
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		dir := t.TempDir()
		cfg := writeConfig(t, dir, filepath.Join(dir, "session.dat"))
		r := newTestRunner(&bytes.Buffer{})
		if err := run(t, r, "--config", cfg, "--log-level", "loud", "history"); err == nil {
			t.Fatal("expected invalid log level error")
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("setup creates config and database", func(t *testing.T) {
		origDir := tu.MustGetwd(t)
		defer tu.MustChdir(t, origDir)
		dir := t.TempDir()
		tu.MustChdir(t, dir)

		output := &bytes.Buffer{}
		if err := run(t, newTestRunner(output), "setup"); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		tu.AssertFileExists(t, filepath.Join(dir, "decklog.db"))
		if !strings.Contains(output.String(), "decklog is set up") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("simulate then dump", func(t *testing.T) {
		dir := t.TempDir()
		sessionPath := filepath.Join(dir, "logs", "session.dat")
		cfg := writeConfig(t, dir, sessionPath)

		if err := run(t, newTestRunner(&bytes.Buffer{}), "--config", cfg, "simulate", "--out", sessionPath, "--count", "2"); err != nil {
			t.Fatalf("simulate failed: %v", err)
		}
		if err := run(t, newTestRunner(&bytes.Buffer{}), "--config", cfg, "simulate", "--out", sessionPath, "--count", "1"); err != nil {
			t.Fatalf("second simulate failed: %v", err)
		}

		output := &bytes.Buffer{}
		if err := run(t, newTestRunner(output), "--config", cfg, "dump", "--format", "csv"); err != nil {
			t.Fatalf("dump failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 entries, got:\n%s", output.String())
		}
		if !strings.Contains(lines[3], "Simulated Track 3") {
			t.Errorf("expected rows to continue across runs, got %q", lines[3])
		}
	})

	t.Run("dump writes file", func(t *testing.T) {
		dir := t.TempDir()
		sessionPath := filepath.Join(dir, "session.dat")
		cfg := writeConfig(t, dir, sessionPath)
		if err := run(t, newTestRunner(&bytes.Buffer{}), "--config", cfg, "simulate", "--out", sessionPath); err != nil {
			t.Fatalf("simulate failed: %v", err)
		}

		out := filepath.Join(dir, "set.md")
		if err := run(t, newTestRunner(&bytes.Buffer{}), "--config", cfg, "dump", "-f", "md", "-o", out); err != nil {
			t.Fatalf("dump failed: %v", err)
		}
		if content := tu.MustReadFile(t, out); !strings.Contains(content, "# session") {
			t.Errorf("unexpected markdown:\n%s", content)
		}
	})

	t.Run("dump rejects unknown format", func(t *testing.T) {
		dir := t.TempDir()
		cfg := writeConfig(t, dir, filepath.Join(dir, "session.dat"))
		if err := run(t, newTestRunner(&bytes.Buffer{}), "--config", cfg, "dump", "--format", "xml"); err == nil {
			t.Fatal("expected format error")
		}
	})

	t.Run("simulate validates count", func(t *testing.T) {
		dir := t.TempDir()
		err := run(t, newTestRunner(&bytes.Buffer{}), "simulate", "--out", filepath.Join(dir, "s.dat"), "--count", "0")
		if err == nil {
			t.Fatal("expected count error")
		}
	})

	t.Run("task runs overlay from stdin", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "overlay.txt")
		payload, _ := json.Marshal(&services.OverlayTask{Path: target, Text: "Artist - Title"})

		r := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{}), Input: bytes.NewReader(payload)})
		if err := run(t, r, tasks.TaskCommand, services.OverlayKind); err != nil {
			t.Fatalf("task failed: %v", err)
		}
		if content := tu.MustReadFile(t, target); strings.TrimSpace(content) != "Artist - Title" {
			t.Errorf("unexpected overlay %q", content)
		}
	})

	t.Run("task rejects unknown kind", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{}), Input: strings.NewReader("{}")})
		if err := run(t, r, tasks.TaskCommand, "nope"); err == nil {
			t.Fatal("expected unknown kind error")
		}
	})
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	sessionPath := filepath.Join(dir, "session.dat")
	cfg := writeConfig(t, dir, sessionPath)

	if err := run(t, newTestRunner(&bytes.Buffer{}), "--config", cfg, "simulate", "--out", sessionPath, "--count", "2"); err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	r := newTestRunner(&bytes.Buffer{})
	if err := newApp(r).Run(ctx, []string{"decklog", "--config", cfg, "watch"}); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	overlay := tu.MustReadFile(t, filepath.Join(dir, "overlay.txt"))
	if !strings.Contains(overlay, "Simulated Track 2") {
		t.Errorf("expected overlay for the last entry, got %q", overlay)
	}

	output := &bytes.Buffer{}
	if err := run(t, newTestRunner(output), "--config", cfg, "history", "--json"); err != nil {
		t.Fatalf("history failed: %v", err)
	}

	var views []server.PlayView
	if err := json.Unmarshal(output.Bytes(), &views); err != nil {
		t.Fatalf("invalid history JSON: %v\n%s", err, output.String())
	}
	if len(views) != 1 {
		t.Fatalf("expected one play, got %d", len(views))
	}
	if views[0].Status != "scrobbled" || views[0].Entry.Title != "Simulated Track 2" {
		t.Errorf("unexpected play %+v", views[0])
	}
}
