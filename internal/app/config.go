package app

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/go-homedir"
)

// EnvPrefix is prepended to every environment variable the config reads.
const EnvPrefix = "MDP_"

// Config controls runtime behavior for the TUI app and the web server.
type Config struct {
	Dev          bool   `env:"DEV"`
	DevHTTP      string `env:"DEV_HTTP"`
	LogPath      string `env:"LOG_PATH"`
	Debug        bool   `env:"DEBUG"`
	DebugLayout  bool   `env:"DEBUG_LAYOUT"`
	DemoScenario string `env:"DEMO"`
	StartMode    string `env:"START_MODE"`
	ASCIIOnly    bool   `env:"ASCII"`
	DataDir      string `env:"DATA_DIR"`

	Lessons LessonsConfig `envPrefix:"LESSONS_"`
	UI      UIConfig      `envPrefix:"UI_"`
	Enhance EnhanceConfig `envPrefix:"ENHANCE_"`
	Export  ExportConfig  `envPrefix:"EXPORT_"`
	Web     WebConfig     `envPrefix:"WEB_"`
}

type LessonsConfig struct {
	File           string `env:"FILE"`
	AdvanceDelayMS int    `env:"ADVANCE_DELAY_MS"`
}

type UIConfig struct {
	StyleVariant string `env:"STYLE"`
	MotionLevel  string `env:"MOTION"`
	Clipboard    string `env:"CLIPBOARD"`
	Glamour      string `env:"GLAMOUR_STYLE"`
}

type EnhanceConfig struct {
	PrimaryURL  string `env:"PRIMARY_URL"`
	PrimaryKey  string `env:"PRIMARY_KEY"`
	Model       string `env:"MODEL"`
	Prompt      string `env:"PROMPT"`
	FallbackURL string `env:"FALLBACK_URL"`
	FallbackKey string `env:"FALLBACK_KEY"`
	TimeoutMS   int    `env:"TIMEOUT_MS"`
}

type ExportConfig struct {
	Dir string `env:"DIR"`
}

type WebConfig struct {
	Addr            string   `env:"ADDR"`
	AllowOrigins    []string `env:"ALLOW_ORIGINS" envSeparator:","`
	SessionTTLMin   int      `env:"SESSION_TTL_MIN"`
	SweepEverySec   int      `env:"SWEEP_EVERY_SEC"`
	MaxSessions     int      `env:"MAX_SESSIONS"`
	TrustedProxies  []string `env:"TRUSTED_PROXIES" envSeparator:","`
	ReleaseMode     bool     `env:"RELEASE"`
	EnhanceDisabled bool     `env:"ENHANCE_DISABLED"`
}

func DefaultConfig() Config {
	return Config{
		DevHTTP: "127.0.0.1:17321",
		Lessons: LessonsConfig{
			AdvanceDelayMS: 400,
		},
		UI: UIConfig{
			StyleVariant: "modern_arcade",
			MotionLevel:  "full",
			Clipboard:    "osc52",
			Glamour:      "dark",
		},
		Enhance: EnhanceConfig{
			Model:     "gpt-4o-mini",
			TimeoutMS: 5000,
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Web: WebConfig{
			Addr:          "127.0.0.1:8080",
			SessionTTLMin: 60,
			SweepEverySec: 60,
			MaxSessions:   1000,
		},
	}
}

// LoadConfig starts from DefaultConfig and applies MDP_* environment
// variables on top. The result is not validated.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.UI.StyleVariant {
	case "", "modern_arcade", "cozy_clean", "retro_terminal":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "modern_arcade"
	}
	switch c.UI.MotionLevel {
	case "", "off", "reduced", "full":
	default:
		return fmt.Errorf("invalid ui motion level %q", c.UI.MotionLevel)
	}
	if c.UI.MotionLevel == "" {
		c.UI.MotionLevel = "full"
	}
	switch c.UI.Clipboard {
	case "", "osc52", "system":
	default:
		return fmt.Errorf("invalid ui clipboard %q", c.UI.Clipboard)
	}
	if c.UI.Clipboard == "" {
		c.UI.Clipboard = "osc52"
	}
	if strings.TrimSpace(c.UI.Glamour) == "" {
		c.UI.Glamour = "dark"
	}

	if c.Lessons.AdvanceDelayMS < 0 {
		return fmt.Errorf("invalid advance delay %dms", c.Lessons.AdvanceDelayMS)
	}
	if c.Lessons.AdvanceDelayMS == 0 {
		c.Lessons.AdvanceDelayMS = 400
	}
	if c.Enhance.TimeoutMS < 0 {
		return fmt.Errorf("invalid enhance timeout %dms", c.Enhance.TimeoutMS)
	}
	if c.Enhance.TimeoutMS == 0 {
		c.Enhance.TimeoutMS = 5000
	}

	if c.Web.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Web.Addr); err != nil {
			return fmt.Errorf("invalid web addr %q: %w", c.Web.Addr, err)
		}
	}
	if c.Web.SessionTTLMin <= 0 {
		c.Web.SessionTTLMin = 60
	}
	if c.Web.SweepEverySec <= 0 {
		c.Web.SweepEverySec = 60
	}
	if c.Web.MaxSessions <= 0 {
		c.Web.MaxSessions = 1000
	}

	for _, p := range []*string{&c.LogPath, &c.DataDir, &c.Export.Dir, &c.Lessons.File} {
		expanded, err := homedir.Expand(strings.TrimSpace(*p))
		if err != nil {
			return fmt.Errorf("expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "."
	}
	if c.DataDir == "" {
		dir, err := homedir.Expand("~/.cache/mdplayground")
		if err != nil {
			return fmt.Errorf("cannot resolve user home directory: %w", err)
		}
		c.DataDir = dir
	}
	return nil
}

func (c Config) AdvanceDelay() time.Duration {
	return time.Duration(c.Lessons.AdvanceDelayMS) * time.Millisecond
}

func (c Config) EnhanceTimeout() time.Duration {
	return time.Duration(c.Enhance.TimeoutMS) * time.Millisecond
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Web.SessionTTLMin) * time.Minute
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Web.SweepEverySec) * time.Second
}
