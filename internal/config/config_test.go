// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"remotectl/internal/issue"
	"remotectl/pkg/types"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// isolated returns options that ignore the real user config directory and cwd.
func isolated(t *testing.T) LoadOptions {
	t.Helper()
	return LoadOptions{ConfigDirPath: t.TempDir(), WorkDir: t.TempDir()}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, path, err := Resolve(context.Background(), isolated(t))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}

	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("config = %+v, want %+v", cfg, want)
	}
	if cfg.Server.Port != types.DefaultListenPort || cfg.Loop.Step != 5*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	path := writeConfig(t, opts.ConfigDirPath, `
server: {
	port: 9000
	name: "trainer"
}
loop: step: "250ms"
log: level: "debug"
`)

	cfg, got, err := Resolve(context.Background(), opts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
	if cfg.Server.Port != 9000 || cfg.Server.Name != "trainer" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.Host != types.DefaultHostAddress {
		t.Errorf("server.host = %q, default not kept", cfg.Server.Host)
	}
	if cfg.Loop.Step != 250*time.Millisecond || cfg.Loop.Iterations != DefaultIterations {
		t.Errorf("loop = %+v", cfg.Loop)
	}
	if cfg.Log.Level != LogLevelDebug {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
}

func TestLoadSearchOrder(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	writeConfig(t, opts.WorkDir, `server: name: "local"`)

	cfg, path, err := Resolve(context.Background(), opts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Server.Name != "local" || path != filepath.Join(opts.WorkDir, "config.cue") {
		t.Errorf("local file not used: name=%q path=%q", cfg.Server.Name, path)
	}

	writeConfig(t, opts.ConfigDirPath, `server: name: "user"`)
	cfg, _, err = Resolve(context.Background(), opts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Server.Name != "user" {
		t.Errorf("name = %q, config dir must win over ./config.cue", cfg.Server.Name)
	}

	explicit := writeConfig(t, t.TempDir(), `server: name: "explicit"`)
	opts.ConfigFilePath = explicit
	cfg, err = NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Name != "explicit" {
		t.Errorf("name = %q, --config must win", cfg.Server.Name)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "syntax", content: `server: {`, wantMsg: "config.cue"},
		{name: "unknown field", content: `serve: port: 1`, wantMsg: "serve"},
		{name: "port out of range", content: `server: port: 70000`, wantMsg: "server.port"},
		{name: "bad level", content: `log: level: "loud"`, wantMsg: "log.level"},
		{name: "bad step", content: `loop: step: "soon"`, wantMsg: "loop.step"},
		{name: "bad name", content: `server: name: "has space"`, wantMsg: "server.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := isolated(t)
			writeConfig(t, opts.ConfigDirPath, tt.content)

			_, err := NewProvider().Load(context.Background(), opts)
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
			if is := issue.Of(err); is == nil || is.Id() != issue.ConfigLoadFailedId {
				t.Errorf("issue.Of() = %v, want ConfigLoadFailed", is)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	opts.ConfigFilePath = filepath.Join(t.TempDir(), "nope.cue")

	_, err := NewProvider().Load(context.Background(), opts)
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want ActionableError", err)
	}
	if ae.Resource != opts.ConfigFilePath {
		t.Errorf("Resource = %q", ae.Resource)
	}
}

func TestLoadCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, isolated(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("REMOTECTL_SERVER_PORT", "4567")
	t.Setenv("REMOTECTL_CONSOLE_ENABLED", "true")
	t.Setenv("REMOTECTL_LOOP_STEP", "2s")

	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, `server: port: 9000`)

	cfg, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 4567 {
		t.Errorf("server.port = %d, want env override 4567", cfg.Server.Port)
	}
	if !cfg.Console.Enabled {
		t.Error("console.enabled not overridden")
	}
	if cfg.Loop.Step != 2*time.Second {
		t.Errorf("loop.step = %s", cfg.Loop.Step)
	}
}

func TestEnvOverrideInvalid(t *testing.T) {
	t.Setenv("REMOTECTL_LOG_LEVEL", "chatty")

	_, err := NewProvider().Load(context.Background(), isolated(t))
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig wrapping ErrInvalidLogLevel", err)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WriteDefault(dir, false)
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	if _, err := WriteDefault(dir, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second WriteDefault() error = %v, want ErrConfigExists", err)
	}
	if _, err := WriteDefault(dir, true); err != nil {
		t.Errorf("forced WriteDefault() error = %v", err)
	}

	opts := isolated(t)
	opts.ConfigFilePath = path
	cfg, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load(generated) error = %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("generated config = %+v, want defaults", cfg)
	}
}

func TestGenerateCUEOptionalFields(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	out := GenerateCUE(cfg)
	if strings.Contains(out, "seed") || strings.Contains(out, "host_key_path") {
		t.Errorf("empty optional fields rendered:\n%s", out)
	}

	cfg.Seed.Path = "seed.toml"
	cfg.Console.HostKeyPath = "/etc/remotectl/key"
	out = GenerateCUE(cfg)
	for _, want := range []string{`seed: path: "seed.toml"`, `host_key_path: "/etc/remotectl/key"`} {
		if !strings.Contains(out, want) {
			t.Errorf("GenerateCUE() missing %q:\n%s", want, out)
		}
	}
}

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil || got != dir {
		t.Errorf("ConfigDir() = %q, %v; want %q", got, err, dir)
	}
}
