package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-mailbuild/internal/config"
)

// envConfig holds configuration from environment variables.
// Provides CI-friendly overrides without editing mailbuild.yaml.
type envConfig struct {
	ConfigPath string // MAILBUILD_CONFIG: config file name or path
	Root       string // MAILBUILD_ROOT: project root
	Template   string // MAILBUILD_TEMPLATE: template to mail
	Port       int    // MAILBUILD_PORT: dev server port
	Workers    int    // MAILBUILD_WORKERS: concurrent steps per group
}

// knownEnvVars lists valid MAILBUILD_* environment variables.
var knownEnvVars = map[string]bool{
	"MAILBUILD_CONFIG":   true,
	"MAILBUILD_ROOT":     true,
	"MAILBUILD_TEMPLATE": true,
	"MAILBUILD_PORT":     true,
	"MAILBUILD_WORKERS":  true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("MAILBUILD_CONFIG"),
		Root:       os.Getenv("MAILBUILD_ROOT"),
		Template:   os.Getenv("MAILBUILD_TEMPLATE"),
	}
	if port := os.Getenv("MAILBUILD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 && p <= 65535 {
			cfg.Port = p
		}
	}
	if workers := os.Getenv("MAILBUILD_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}
	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized MAILBUILD_* variables.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "MAILBUILD_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment values that belong to the config file.
// MAILBUILD_PORT wins over server.port: CI jobs pick a free port per run.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
}

// mergeEnvFlags fills flags left unset from the environment.
// Priority: CLI flags > env vars > config file > defaults.
func mergeEnvFlags(env *envConfig, flags *cliFlags) {
	if flags.config == "" {
		flags.config = env.ConfigPath
	}
	if flags.root == "" {
		flags.root = env.Root
	}
	if flags.template == "" {
		flags.template = env.Template
	}
	if flags.workers == 0 {
		flags.workers = env.Workers
	}
}
