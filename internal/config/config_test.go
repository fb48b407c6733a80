package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("missing default file gives defaults", func(t *testing.T) {
		cfg, err := Load(t.TempDir(), "")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Backup || cfg.DiffContext != nil || len(cfg.Filter.IgnoredPatterns) != 0 {
			t.Errorf("Load() = %+v, want zero config", cfg)
		}
	})

	t.Run("default file in root", func(t *testing.T) {
		root := t.TempDir()
		content := "backup: true\ndiffContext: 5\nfilter:\n  ignoredPatterns:\n    - dist/**\n  allowedExtensions:\n    - .tpl\n"
		os.WriteFile(filepath.Join(root, DefaultFile), []byte(content), 0o644)

		cfg, err := Load(root, "")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !cfg.Backup || cfg.DiffContext == nil || *cfg.DiffContext != 5 {
			t.Errorf("Load() = %+v", cfg)
		}
		if len(cfg.Filter.IgnoredPatterns) != 1 || cfg.Filter.IgnoredPatterns[0] != "dist/**" {
			t.Errorf("IgnoredPatterns = %v", cfg.Filter.IgnoredPatterns)
		}
		if len(cfg.Filter.AllowedExtensions) != 1 || cfg.Filter.AllowedExtensions[0] != ".tpl" {
			t.Errorf("AllowedExtensions = %v", cfg.Filter.AllowedExtensions)
		}
	})

	t.Run("empty file gives defaults", func(t *testing.T) {
		root := t.TempDir()
		os.WriteFile(filepath.Join(root, DefaultFile), nil, 0o644)

		if _, err := Load(root, ""); err != nil {
			t.Errorf("Load() error = %v", err)
		}
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		if _, err := Load(t.TempDir(), "/nonexistent/textpatch.yaml"); err == nil {
			t.Error("Load() error = nil, want error")
		}
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		os.WriteFile(path, []byte("bakcup: true\n"), 0o644)

		_, err := Load("", path)
		if err == nil || !strings.Contains(err.Error(), "invalid config") {
			t.Errorf("Load() error = %v, want invalid config", err)
		}
	})

	t.Run("zero diff context is kept", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		os.WriteFile(path, []byte("diffContext: 0\n"), 0o644)

		cfg, err := Load("", path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.DiffContext == nil || *cfg.DiffContext != 0 {
			t.Errorf("DiffContext = %v, want 0", cfg.DiffContext)
		}
	})

	t.Run("negative diff context", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		os.WriteFile(path, []byte("diffContext: -1\n"), 0o644)

		if _, err := Load("", path); err == nil {
			t.Error("Load() error = nil, want error")
		}
	})
}
