// Package config parses swarm.toml project configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
)

// FileName is the configuration file looked up by Load.
const FileName = "swarm.toml"

// DefaultAccentColor is the default TUI accent color (indigo).
const DefaultAccentColor = "#7D56F4"

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Config is the top-level swarm.toml configuration.
type Config struct {
	Project       ProjectConfig       `toml:"project"`
	Provider      ProviderConfig      `toml:"provider"`
	Loop          LoopConfig          `toml:"loop"`
	Review        ReviewConfig        `toml:"review"`
	Beads         BeadsConfig         `toml:"beads"`
	TUI           TUIConfig           `toml:"tui"`
	Notifications NotificationsConfig `toml:"notifications"`

	// Dir is the directory swarm.toml was loaded from. Prompt files and the
	// log directory are resolved against it.
	Dir string `toml:"-"`
}

// ProjectConfig identifies the project.
type ProjectConfig struct {
	Name string `toml:"name"`
}

// ProviderConfig selects the agent CLI. Empty fields fall back to the
// provider's own defaults.
type ProviderConfig struct {
	Name            string   `toml:"name"`
	Command         string   `toml:"command"`
	Model           string   `toml:"model"`
	ReasoningEffort string   `toml:"reasoning_effort"`
	Yolo            *bool    `toml:"yolo"`
	ExtraArgs       []string `toml:"extra_args"`
}

// LoopConfig controls iterations and agent workers.
type LoopConfig struct {
	PromptFile          string `toml:"prompt_file"`
	MaxIterations       int    `toml:"max_iterations"`
	Agents              int    `toml:"agents"`
	MaxRetries          int    `toml:"max_retries"`
	RetryBackoffSeconds int    `toml:"retry_backoff_seconds"`
	PauseSeconds        int    `toml:"pause_seconds"`
	HangTimeoutSeconds  int    `toml:"hang_timeout_seconds"`
	LogDir              string `toml:"log_dir"`
	PreviewLines        int    `toml:"preview_lines"`
}

// ReviewConfig controls the per-agent review/fix sub-loop.
type ReviewConfig struct {
	Enabled        bool   `toml:"enabled"`
	PromptFile     string `toml:"prompt_file"`
	FixPromptFile  string `toml:"fix_prompt_file"`
	MaxFixAttempts int    `toml:"max_fix_attempts"`
	PassMarker     string `toml:"pass_marker"`
}

// BeadsConfig controls picking tasks from the beads issue tracker.
type BeadsConfig struct {
	Enabled bool   `toml:"enabled"`
	Command string `toml:"command"`
}

// TUIConfig controls the terminal UI appearance.
type TUIConfig struct {
	AccentColor  string `toml:"accent_color"`
	LogRetention int    `toml:"log_retention"` // number of session logs to keep; 0 = unlimited
}

// NotificationsConfig controls webhook/ntfy.sh notifications.
type NotificationsConfig struct {
	URL        string `toml:"url"`
	OnComplete bool   `toml:"on_complete"`
	OnError    bool   `toml:"on_error"`
	OnStop     bool   `toml:"on_stop"`
}

// ProviderSettings is the provider section merged over the adapter defaults.
type ProviderSettings struct {
	Adapter provider.Adapter
	Command string
	LogDir  string
	Options provider.Options
}

// Validate checks the configuration for issues that would cause confusing
// runtime failures. It returns all found issues joined together.
func (c *Config) Validate() error {
	var errs []error

	if _, err := provider.Lookup(c.Provider.Name); err != nil {
		errs = append(errs, fmt.Errorf("provider.name must be one of %s", strings.Join(provider.Names(), ", ")))
	}
	if c.Provider.ReasoningEffort != "" && !provider.ReasoningEffort(c.Provider.ReasoningEffort).Valid() {
		errs = append(errs, fmt.Errorf("provider.reasoning_effort must be low, medium, or high"))
	}

	if c.Loop.PromptFile == "" {
		errs = append(errs, fmt.Errorf("loop.prompt_file must not be empty"))
	}
	if c.Loop.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("loop.max_iterations must be >= 0 (0 = unlimited)"))
	}
	if c.Loop.Agents < 1 {
		errs = append(errs, fmt.Errorf("loop.agents must be >= 1"))
	}
	if c.Loop.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("loop.max_retries must be >= 0"))
	}
	if c.Loop.RetryBackoffSeconds < 0 {
		errs = append(errs, fmt.Errorf("loop.retry_backoff_seconds must be >= 0"))
	}
	if c.Loop.PauseSeconds < 0 {
		errs = append(errs, fmt.Errorf("loop.pause_seconds must be >= 0"))
	}
	if c.Loop.HangTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("loop.hang_timeout_seconds must be >= 0 (0 = no hang detection)"))
	}
	if c.Loop.PreviewLines < 0 {
		errs = append(errs, fmt.Errorf("loop.preview_lines must be >= 0"))
	}

	if c.Review.Enabled {
		if c.Review.PromptFile == "" {
			errs = append(errs, fmt.Errorf("review.prompt_file must be set when review.enabled is true"))
		}
		if c.Review.MaxFixAttempts > 0 && c.Review.FixPromptFile == "" {
			errs = append(errs, fmt.Errorf("review.fix_prompt_file must be set when review.max_fix_attempts > 0"))
		}
		if c.Review.PassMarker == "" {
			errs = append(errs, fmt.Errorf("review.pass_marker must not be empty"))
		}
	}
	if c.Review.MaxFixAttempts < 0 {
		errs = append(errs, fmt.Errorf("review.max_fix_attempts must be >= 0"))
	}

	if c.Beads.Enabled && c.Beads.Command == "" {
		errs = append(errs, fmt.Errorf("beads.command must be set when beads.enabled is true"))
	}

	if c.TUI.AccentColor != "" && !hexColorRe.MatchString(c.TUI.AccentColor) {
		errs = append(errs, fmt.Errorf("tui.accent_color must be a hex color (e.g. \"#7D56F4\")"))
	}
	if c.TUI.LogRetention < 0 {
		errs = append(errs, fmt.Errorf("tui.log_retention must be >= 0 (0 = unlimited)"))
	}

	if c.Notifications.URL != "" {
		u, parseErr := url.ParseRequestURI(c.Notifications.URL)
		if parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("notifications.url must be a valid http or https URL"))
		}
	}

	return errors.Join(errs...)
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{Name: "codex"},
		Loop: LoopConfig{
			PromptFile:          "PROMPT.md",
			MaxIterations:       0,
			Agents:              1,
			MaxRetries:          3,
			RetryBackoffSeconds: 30,
			PauseSeconds:        0,
			HangTimeoutSeconds:  600,
			PreviewLines:        20,
		},
		Review: ReviewConfig{
			Enabled:        false,
			PromptFile:     "REVIEW.md",
			FixPromptFile:  "FIX.md",
			MaxFixAttempts: 2,
			PassMarker:     "REVIEW_PASS",
		},
		Beads: BeadsConfig{
			Enabled: false,
			Command: "bd",
		},
		TUI: TUIConfig{
			AccentColor:  DefaultAccentColor,
			LogRetention: 20,
		},
		Notifications: NotificationsConfig{
			OnComplete: true,
			OnError:    true,
			OnStop:     true,
		},
	}
}

// ProviderSettings resolves the configured provider and merges the
// provider section over its defaults.
func (c *Config) ProviderSettings() (ProviderSettings, error) {
	adapter, err := provider.Lookup(c.Provider.Name)
	if err != nil {
		return ProviderSettings{}, fmt.Errorf("config: %w", err)
	}
	d := adapter.Defaults()
	s := ProviderSettings{
		Adapter: adapter,
		Command: firstNonEmpty(c.Provider.Command, d.Command),
		LogDir:  firstNonEmpty(c.Loop.LogDir, d.LogDir),
		Options: provider.Options{
			Model:           firstNonEmpty(c.Provider.Model, d.Model),
			ReasoningEffort: provider.ReasoningEffort(firstNonEmpty(c.Provider.ReasoningEffort, string(d.ReasoningEffort))),
			Yolo:            d.Yolo,
			ExtraArgs:       append([]string(nil), c.Provider.ExtraArgs...),
		},
	}
	if c.Provider.Yolo != nil {
		s.Options.Yolo = *c.Provider.Yolo
	}
	if c.Dir != "" && !filepath.IsAbs(s.LogDir) {
		s.LogDir = filepath.Join(c.Dir, s.LogDir)
	}
	return s, nil
}

// Path resolves a project-relative path against Dir.
func (c *Config) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) || c.Dir == "" {
		return rel
	}
	return filepath.Join(c.Dir, rel)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Load reads swarm.toml from the given path. If path is empty, it walks up
// from the current working directory looking for swarm.toml. Unknown keys
// are rejected as likely typos.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s (possible typos?)", path, strings.Join(keys, ", "))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(abs)
	if cfg.Project.Name == "" {
		cfg.Project.Name = DetectProjectName(cfg.Dir)
	}

	return &cfg, nil
}

func findConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("config: %s not found (searched up from %s)", FileName, dir)
		}
		dir = parent
	}
}

// InitFile writes a commented default swarm.toml to dir.
func InitFile(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config: %s already exists at %s", FileName, path)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}

const configTemplate = `# swarm.toml: multi-agent coding loop configuration
# Place this file in the root of your project.

[project]
name = ""

[provider]
name = "codex"          # codex | claude | opencode
command = ""            # empty = provider default binary
model = ""              # empty = provider default model
reasoning_effort = ""   # low | medium | high; empty = provider default
# yolo = true           # bypass approvals/sandbox; default depends on provider
extra_args = []

[loop]
prompt_file = "PROMPT.md"
max_iterations = 0       # 0 = unlimited
agents = 1               # agents run concurrently each iteration
max_retries = 3          # per agent, per iteration
retry_backoff_seconds = 30
pause_seconds = 0        # wait between iterations
hang_timeout_seconds = 600  # kill an agent silent this long; 0 = never
log_dir = ""             # empty = provider default (.swarm/logs)
preview_lines = 20

[review]
enabled = false
prompt_file = "REVIEW.md"
fix_prompt_file = "FIX.md"
max_fix_attempts = 2
pass_marker = "REVIEW_PASS"

[beads]
enabled = false          # pick one ready issue per agent with ` + "`bd ready --json`" + `
command = "bd"

[tui]
accent_color = "#7D56F4"  # hex color for header/accent elements
log_retention = 20        # number of session logs to keep; 0 = unlimited

[notifications]
url = ""           # ntfy.sh topic URL or any HTTP webhook (empty = disabled)
on_complete = true # notify on each iteration complete
on_error = true    # notify on loop error
on_stop = true     # notify when loop finishes or is stopped
`
