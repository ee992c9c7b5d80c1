package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where signalwatch stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// Read cache
	CacheEnabled bool          // SIGNALWATCH_CACHE_ENABLED (default: true)
	CacheTTL     time.Duration // SIGNALWATCH_CACHE_TTL (default: 60s)

	// AI Configuration
	AIEnabled     bool   // SIGNALWATCH_AI_ENABLED
	OpenAIAPIKey  string // SIGNALWATCH_OPENAI_API_KEY
	OpenAIBaseURL string // SIGNALWATCH_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIModel       string // SIGNALWATCH_AI_MODEL (default: gpt-3.5-turbo)

	// Requests allowed per client and window; 0 disables the tier.
	RateLimitGeneral  int // per 15 minutes
	RateLimitAIHourly int // per hour, POST /api/v1/events
	RateLimitAIDaily  int // per 24 hours, POST /api/v1/events
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.OpenAIAPIKey != ""
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("signalwatch_%s.db", p.Mode))
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for the postgres driver")
		}
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	if p.CacheTTL < 0 {
		return errors.Errorf("invalid cache ttl %s", p.CacheTTL)
	}
	if p.RateLimitGeneral < 0 || p.RateLimitAIHourly < 0 || p.RateLimitAIDaily < 0 {
		return errors.New("rate limits must not be negative")
	}

	return nil
}
