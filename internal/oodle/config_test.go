package oodle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)

	err := os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	cfg, err := LoadConfig(LoadConfigInput{WorkDirOverride: workDir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DataDir != ".oodles" {
		t.Errorf("DataDir = %q, want .oodles", cfg.DataDir)
	}

	if cfg.DataDirAbs != filepath.Join(workDir, ".oodles") {
		t.Errorf("DataDirAbs = %q", cfg.DataDirAbs)
	}

	if cfg.Listen != "127.0.0.1:6460" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
}

func TestLoadConfigProjectFile(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	writeConfig(t, workDir, ConfigFileName, `{
		// JSONC comments are allowed
		"data_dir": "notes",
		"listen": "127.0.0.1:7000",
	}`)

	cfg, err := LoadConfig(LoadConfigInput{WorkDirOverride: workDir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DataDir != "notes" {
		t.Errorf("DataDir = %q, want notes", cfg.DataDir)
	}

	if cfg.Listen != "127.0.0.1:7000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}

	if cfg.Sources.Project == "" {
		t.Error("expected project config source to be recorded")
	}
}

func TestLoadConfigGlobalThenProject(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	xdgDir := t.TempDir()

	err := os.MkdirAll(filepath.Join(xdgDir, "oodle"), 0o750)
	if err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	writeConfig(t, filepath.Join(xdgDir, "oodle"), "config.json", `{"data_dir": "global", "credentials": "users.txt"}`)
	writeConfig(t, workDir, ConfigFileName, `{"data_dir": "project"}`)

	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride: workDir,
		Env:             map[string]string{"XDG_CONFIG_HOME": xdgDir},
	})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Project wins over global; global-only fields still apply.
	if cfg.DataDir != "project" {
		t.Errorf("DataDir = %q, want project", cfg.DataDir)
	}

	if cfg.Credentials != filepath.Join(workDir, "users.txt") {
		t.Errorf("Credentials = %q", cfg.Credentials)
	}
}

func TestLoadConfigCLIOverrideWins(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	writeConfig(t, workDir, ConfigFileName, `{"data_dir": "project"}`)

	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride: workDir,
		DataDirOverride: "/srv/oodles",
		Env:             map[string]string{},
	})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DataDirAbs != "/srv/oodles" {
		t.Errorf("DataDirAbs = %q, want /srv/oodles", cfg.DataDirAbs)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	t.Run("explicit config missing", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfig(LoadConfigInput{
			WorkDirOverride: t.TempDir(),
			ConfigPath:      "nope.json",
			Env:             map[string]string{},
		})
		if !errors.Is(err, ErrConfigFileNotFound) {
			t.Errorf("err = %v, want ErrConfigFileNotFound", err)
		}
	})

	t.Run("explicitly empty data_dir", func(t *testing.T) {
		t.Parallel()

		workDir := t.TempDir()
		writeConfig(t, workDir, ConfigFileName, `{"data_dir": ""}`)

		_, err := LoadConfig(LoadConfigInput{WorkDirOverride: workDir, Env: map[string]string{}})
		if !errors.Is(err, ErrDataDirEmpty) {
			t.Errorf("err = %v, want ErrDataDirEmpty", err)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		t.Parallel()

		workDir := t.TempDir()
		writeConfig(t, workDir, ConfigFileName, `{"data_dir": `)

		_, err := LoadConfig(LoadConfigInput{WorkDirOverride: workDir, Env: map[string]string{}})
		if !errors.Is(err, ErrConfigInvalid) {
			t.Errorf("err = %v, want ErrConfigInvalid", err)
		}
	})
}
