package main

// Notes:
// - loadEnvConfig: we test every MAILBUILD_* variable, and that malformed
//   numbers are ignored rather than reported.
// - warnUnknownEnvVars: we test typo detection and that known vars don't warn.
// - applyEnvConfig / mergeEnvFlags: we test priority (flags > env > config).
// - Tests use t.Setenv() which prevents t.Parallel() at parent level.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alnah/go-mailbuild/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Run("all variables", func(t *testing.T) {
		t.Setenv("MAILBUILD_CONFIG", "/etc/mailbuild.yaml")
		t.Setenv("MAILBUILD_ROOT", "/srv/emails")
		t.Setenv("MAILBUILD_TEMPLATE", "welcome")
		t.Setenv("MAILBUILD_PORT", "9100")
		t.Setenv("MAILBUILD_WORKERS", "3")

		cfg := loadEnvConfig()

		if cfg.ConfigPath != "/etc/mailbuild.yaml" {
			t.Errorf("ConfigPath = %q, want /etc/mailbuild.yaml", cfg.ConfigPath)
		}
		if cfg.Root != "/srv/emails" {
			t.Errorf("Root = %q, want /srv/emails", cfg.Root)
		}
		if cfg.Template != "welcome" {
			t.Errorf("Template = %q, want welcome", cfg.Template)
		}
		if cfg.Port != 9100 {
			t.Errorf("Port = %d, want 9100", cfg.Port)
		}
		if cfg.Workers != 3 {
			t.Errorf("Workers = %d, want 3", cfg.Workers)
		}
	})

	t.Run("invalid numbers are ignored", func(t *testing.T) {
		tests := []struct {
			name    string
			port    string
			workers string
		}{
			{"not numbers", "abc", "many"},
			{"negative", "-1", "-4"},
			{"port out of range", "70000", "0"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Setenv("MAILBUILD_PORT", tt.port)
				t.Setenv("MAILBUILD_WORKERS", tt.workers)

				cfg := loadEnvConfig()
				if cfg.Port != 0 {
					t.Errorf("Port = %d, want 0", cfg.Port)
				}
				if cfg.Workers != 0 {
					t.Errorf("Workers = %d, want 0", cfg.Workers)
				}
			})
		}
	})
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Setenv("MAILBUILD_TEMPALTE", "welcome")
	t.Setenv("MAILBUILD_PORT", "9100")

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf)

	if !strings.Contains(buf.String(), "MAILBUILD_TEMPALTE") {
		t.Errorf("expected warning for MAILBUILD_TEMPALTE, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "MAILBUILD_PORT") {
		t.Errorf("known variable MAILBUILD_PORT should not warn, got %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Env values into the loaded config
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	t.Run("port overrides config", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		applyEnvConfig(&envConfig{Port: 9100}, cfg)
		if cfg.Server.Port != 9100 {
			t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
		}
	})

	t.Run("unset port keeps config", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		applyEnvConfig(&envConfig{}, cfg)
		if cfg.Server.Port != config.DefaultPort {
			t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, config.DefaultPort)
		}
	})
}

// ---------------------------------------------------------------------------
// TestMergeEnvFlags - Flags win over env vars
// ---------------------------------------------------------------------------

func TestMergeEnvFlags(t *testing.T) {
	t.Parallel()

	env := &envConfig{ConfigPath: "env.yaml", Root: "/env", Template: "env", Workers: 2}

	t.Run("env fills unset flags", func(t *testing.T) {
		t.Parallel()

		flags := &cliFlags{}
		mergeEnvFlags(env, flags)
		if flags.config != "env.yaml" || flags.root != "/env" || flags.template != "env" || flags.workers != 2 {
			t.Errorf("flags = %+v, want env values", *flags)
		}
	})

	t.Run("flags win", func(t *testing.T) {
		t.Parallel()

		flags := &cliFlags{config: "flag.yaml", root: "/flag", template: "flag", workers: 5}
		mergeEnvFlags(env, flags)
		if flags.config != "flag.yaml" || flags.root != "/flag" || flags.template != "flag" || flags.workers != 5 {
			t.Errorf("flags = %+v, want flag values", *flags)
		}
	})
}
