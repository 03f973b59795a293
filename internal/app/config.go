package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/distmake/internal/build"
	"github.com/vk/distmake/internal/checksum"
	"github.com/vk/distmake/internal/fetch"
	"github.com/vk/distmake/internal/fingerprint"
)

// Config holds everything an App needs to run one build.
type Config struct {
	ManifestPath string
	// BuildPath is the directory the build is assembled in.
	BuildPath string

	Concurrency        int
	NoCore             bool
	NoInfoFiles        bool
	IgnoreChecksums    bool
	NoPatchTxt         bool
	Translations       []string
	ContribDestination string
	BestEffort         bool
	WorkingCopy        bool
	NoGitInfoFile      bool
	NoRecursion        bool
	Fingerprint        string

	// CacheDir holds git reference mirrors unless NoCache is set.
	CacheDir string
	NoCache  bool
	// LockPath, when set, receives a manifest pinning every resolved revision.
	LockPath    string
	HTTPTimeout time.Duration

	LogFormat string
	LogLevel  string
}

// DefaultCacheDir returns the cache directory below the user's home, or a
// directory below the system temp dir when there is no home.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "distmake-cache")
	}
	return filepath.Join(home, ".distmake", "cache")
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	if cfg.BuildPath == "" {
		cfg.BuildPath = "."
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = build.DefaultConcurrency
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.DefaultAlgorithm
	}
	if _, err := checksum.New(cfg.Fingerprint); err != nil {
		return nil, fmt.Errorf("invalid fingerprint algorithm: %w", err)
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = fetch.DefaultTimeout
	}
	if cfg.CacheDir == "" && !cfg.NoCache {
		cfg.CacheDir = DefaultCacheDir()
	}
	return &cfg, nil
}

// BuildOptions translates the configuration into orchestrator options.
func (c *Config) BuildOptions() build.Options {
	opts := build.DefaultOptions(c.BuildPath)
	opts.Concurrency = c.Concurrency
	opts.NoCore = c.NoCore
	opts.WriteInfoFiles = !c.NoInfoFiles
	opts.IgnoreChecksums = c.IgnoreChecksums
	opts.WritePatchManifest = !c.NoPatchTxt
	opts.Languages = c.Translations
	opts.ContribDestination = c.ContribDestination
	opts.BestEffort = c.BestEffort
	opts.UseReferenceCache = !c.NoCache
	opts.WorkingCopy = c.WorkingCopy
	opts.NoGitInfoFiles = c.NoGitInfoFile
	opts.NoRecursion = c.NoRecursion
	opts.FingerprintAlgorithm = c.Fingerprint
	return opts
}
