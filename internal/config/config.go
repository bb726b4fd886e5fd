package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alnah/go-mailbuild/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidConfig   = errors.New("invalid config")
)

// ProjectName is the base name of the project config file (mailbuild.yaml).
const ProjectName = "mailbuild"

// Field length limits.
const (
	MaxEmailLength   = 254  // RFC 5321
	MaxURLLength     = 2048 // Browser limit
	MaxSubjectLength = 998  // RFC 5322 line limit
	MaxPathLength    = 4096
)

// Config holds the whole project configuration. It is built once at startup.
type Config struct {
	Paths  map[string]string   `yaml:"paths"`
	Styles map[string][]string `yaml:"styles"`
	Sass   SassConfig          `yaml:"sass"`
	Views  ViewsConfig         `yaml:"views"`
	Images ImagesConfig        `yaml:"images"`
	Render RenderConfig        `yaml:"render"`
	Server ServerConfig        `yaml:"server"`
	Watch  WatchConfig         `yaml:"watch"`
	Mail   MailConfig          `yaml:"mail"`
}

// SassConfig defines how the external Sass compiler is invoked.
type SassConfig struct {
	Command string   `yaml:"command"` // default: sass
	Style   string   `yaml:"style"`   // "expanded" or "compressed"
	Args    []string `yaml:"args"`    // extra arguments
}

// ViewsConfig defines view compilation options.
type ViewsConfig struct {
	Layout    string `yaml:"layout"`    // default layout name (default: base)
	Highlight string `yaml:"highlight"` // chroma style for fenced code
}

// ImagesConfig defines image copy and optimization options.
type ImagesConfig struct {
	Patterns    []string `yaml:"patterns"`    // globs relative to <images>
	JPEGQuality int      `yaml:"jpegQuality"` // 1-100
	Workers     int      `yaml:"workers"`     // 0 = auto
}

// RenderConfig defines template rendering options.
type RenderConfig struct {
	DateFormat string `yaml:"dateFormat"` // format of .Build.Date, e.g. "long" or "YYYY-MM-DD"
}

// ServerConfig defines the development server.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Open       *bool  `yaml:"open"`       // open the browser on start (default: true)
	LiveReload *bool  `yaml:"livereload"` // default: true
}

// WatchConfig defines file watching options.
type WatchConfig struct {
	Debounce string `yaml:"debounce"` // Go duration, e.g. "200ms"
}

// MailConfig defines the test mail sent by the send pipeline.
type MailConfig struct {
	Transport    string      `yaml:"transport"` // path to the transport JSON
	From         string      `yaml:"from"`
	Subject      string      `yaml:"subject"`
	Recipients   []Recipient `yaml:"recipients"`
	ImageBaseURL string      `yaml:"imageBaseURL"` // rewrite relative <img src> against this URL
	GenerateText *bool       `yaml:"generateText"` // plain-text alternative (default: true)
}

// Recipient is one address the test mail is delivered to.
type Recipient struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// Address formats the recipient as an RFC 5322 address.
func (r Recipient) Address() string {
	return (&mail.Address{Name: r.Name, Address: r.Email}).String()
}

// OpenBrowser reports whether the dev server opens a browser on start.
func (s ServerConfig) OpenBrowser() bool {
	return s.Open == nil || *s.Open
}

// LiveReloadEnabled reports whether live reload is enabled.
func (s ServerConfig) LiveReloadEnabled() bool {
	return s.LiveReload == nil || *s.LiveReload
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DebounceDuration returns the parsed debounce interval.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil {
		return DefaultDebounce
	}
	return d
}

// TextAlternative reports whether a plain-text part is generated.
func (m MailConfig) TextAlternative() bool {
	return m.GenerateText == nil || *m.GenerateText
}

// Defaults.
const (
	DefaultPort        = 9000
	DefaultHost        = "localhost"
	DefaultDebounce    = 200 * time.Millisecond
	DefaultJPEGQuality = 85
	DefaultLayout      = "base"
	DefaultHighlight   = "github"
	DefaultTransport   = "config/transport.json"
)

// DefaultConfig returns the standard email project layout.
func DefaultConfig() *Config {
	return &Config{
		Paths: map[string]string{
			"dist":      "dist",
			"tmp":       "tmp",
			"images":    "img",
			"imgDest":   "<dist>/img",
			"templates": "templates",
			"sass":      "sass",
			"css":       "css",
			"data":      "data",
			"partials":  "partials",
			"views":     "views",
		},
		Styles: map[string][]string{
			"basic":         {"<css>/basic.css", "<css>/mq.css"},
			"hero":          {"<css>/hero.css", "<css>/mq.css"},
			"sidebar":       {"<css>/sidebar.css", "<css>/mq.css"},
			"sidebarHero":   {"<css>/sidebar-hero.css", "<css>/mq.css"},
			"actiemail":     {"<css>/actiemail.css"},
			"outlookfooter": {"<css>/outlookfooter.css"},
		},
		Sass:   SassConfig{Command: "sass", Style: "expanded"},
		Views:  ViewsConfig{Layout: DefaultLayout, Highlight: DefaultHighlight},
		Images: ImagesConfig{Patterns: []string{"**/*.{gif,png,jpg}"}, JPEGQuality: DefaultJPEGQuality},
		Render: RenderConfig{DateFormat: "YYYY-MM-DD"},
		Server: ServerConfig{Host: DefaultHost, Port: DefaultPort},
		Watch:  WatchConfig{Debounce: DefaultDebounce.String()},
		Mail: MailConfig{
			Transport: DefaultTransport,
			Subject:   "Email template test",
		},
	}
}

// applyDefaults fills every unset field of c from DefaultConfig.
// Paths and styles are merged by key; file values win.
func (c *Config) applyDefaults() {
	d := DefaultConfig()

	for k, v := range c.Paths {
		d.Paths[k] = v
	}
	c.Paths = d.Paths
	for k, v := range c.Styles {
		d.Styles[k] = v
	}
	c.Styles = d.Styles

	setDefault(&c.Sass.Command, d.Sass.Command)
	setDefault(&c.Sass.Style, d.Sass.Style)
	setDefault(&c.Views.Layout, d.Views.Layout)
	setDefault(&c.Views.Highlight, d.Views.Highlight)
	if len(c.Images.Patterns) == 0 {
		c.Images.Patterns = d.Images.Patterns
	}
	if c.Images.JPEGQuality == 0 {
		c.Images.JPEGQuality = d.Images.JPEGQuality
	}
	setDefault(&c.Render.DateFormat, d.Render.DateFormat)
	setDefault(&c.Server.Host, d.Server.Host)
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	setDefault(&c.Watch.Debounce, d.Watch.Debounce)
	setDefault(&c.Mail.Transport, d.Mail.Transport)
	setDefault(&c.Mail.Subject, d.Mail.Subject)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

var groupName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Validate checks the configuration for values no step could work with.
// Called automatically by LoadConfig.
func (c *Config) Validate() error {
	for _, name := range sortedKeys(c.Paths) {
		if strings.TrimSpace(c.Paths[name]) == "" {
			return fmt.Errorf("%w: paths.%s: empty path", ErrInvalidConfig, name)
		}
		if err := validateFieldLength("paths."+name, c.Paths[name], MaxPathLength); err != nil {
			return err
		}
	}

	for _, name := range sortedKeys(c.Styles) {
		if !groupName.MatchString(name) {
			return fmt.Errorf("%w: styles.%s: invalid group name", ErrInvalidConfig, name)
		}
		if len(c.Styles[name]) == 0 {
			return fmt.Errorf("%w: styles.%s: no stylesheets", ErrInvalidConfig, name)
		}
	}

	if c.Sass.Style != "" && c.Sass.Style != "expanded" && c.Sass.Style != "compressed" {
		return fmt.Errorf("%w: sass.style: invalid value %q (must be expanded or compressed)", ErrInvalidConfig, c.Sass.Style)
	}

	if c.Images.JPEGQuality < 0 || c.Images.JPEGQuality > 100 {
		return fmt.Errorf("%w: images.jpegQuality: must be between 1 and 100, got %d", ErrInvalidConfig, c.Images.JPEGQuality)
	}
	if c.Images.Workers < 0 {
		return fmt.Errorf("%w: images.workers: must be >= 0, got %d", ErrInvalidConfig, c.Images.Workers)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port: must be between 1 and 65535, got %d", ErrInvalidConfig, c.Server.Port)
	}

	if c.Watch.Debounce != "" {
		d, err := time.ParseDuration(c.Watch.Debounce)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: watch.debounce: invalid duration %q", ErrInvalidConfig, c.Watch.Debounce)
		}
	}

	if err := validateFieldLength("mail.subject", c.Mail.Subject, MaxSubjectLength); err != nil {
		return err
	}
	if err := validateFieldLength("mail.imageBaseURL", c.Mail.ImageBaseURL, MaxURLLength); err != nil {
		return err
	}
	if c.Mail.ImageBaseURL != "" && !strings.HasPrefix(c.Mail.ImageBaseURL, "http://") && !strings.HasPrefix(c.Mail.ImageBaseURL, "https://") {
		return fmt.Errorf("%w: mail.imageBaseURL: must be an http(s) URL", ErrInvalidConfig)
	}
	if c.Mail.From != "" {
		if _, err := mail.ParseAddress(c.Mail.From); err != nil {
			return fmt.Errorf("%w: mail.from: %v", ErrInvalidConfig, err)
		}
	}
	for i, r := range c.Mail.Recipients {
		field := fmt.Sprintf("mail.recipients[%d].email", i)
		if err := validateFieldLength(field, r.Email, MaxEmailLength); err != nil {
			return err
		}
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
		}
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in dirs (the
// current directory when none are given), then in ~/.config/mailbuild/.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string, dirs ...string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath, dirs)
		if err != nil {
			return nil, err
		}
	}
	return loadFile(configPath)
}

// Discover loads <root>/mailbuild.yaml or <root>/mailbuild.yml.
// When neither exists it returns DefaultConfig and an empty path.
func Discover(root string) (*Config, string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(root, ProjectName+ext)
		if fileExists(p) {
			cfg, err := loadFile(p)
			return cfg, p, err
		}
	}
	return DefaultConfig(), "", nil
}

func loadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// NotFoundError lists the locations searched for a config name.
type NotFoundError struct {
	Name  string
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s: tried %s", ErrConfigNotFound, e.Name, strings.Join(e.Tried, ", "))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrConfigNotFound }

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: dirs (default: current directory), ~/.config/mailbuild/
func resolveConfigPath(name string, dirs []string) (string, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	extensions := []string{".yaml", ".yml"}
	var tried []string

	for _, dir := range dirs {
		for _, ext := range extensions {
			p := filepath.Join(dir, name+ext)
			if fileExists(p) {
				return p, nil
			}
			tried = append(tried, p)
		}
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, ProjectName, name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			tried = append(tried, userPath)
		}
	}

	return "", &NotFoundError{Name: name, Tried: tried}
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
