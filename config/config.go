// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads client settings from a key = value file with
// S5_* environment overrides.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/bitfsorg/libs5-go/encrypt"
)

// EnvPrefix prefixes every environment override, e.g. S5_NODE_URL.
const EnvPrefix = "S5_"

// Transport and store names.
const (
	TransportLocal = "local"
	TransportHTTP  = "http"

	StoreMemory = "memory"
	StoreFile   = "file"
	StoreBolt   = "bolt"
	StoreMinio  = "minio"
)

// Config holds client and local node settings.
type Config struct {
	DataDir   string `env:"DATA_DIR"`
	Transport string `env:"TRANSPORT"`
	NodeURL   string `env:"NODE_URL"`
	NodeID    string `env:"NODE_ID"`
	Store     string `env:"STORE"`
	ChunkSize int    `env:"CHUNK_SIZE"`
	Workers   int    `env:"WORKERS"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFile   string `env:"LOG_FILE"`
	Minio     Minio  `envPrefix:"MINIO_"`
}

// Minio holds object storage parameters for the minio store.
type Minio struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET_NAME"`
	Prefix    string `env:"PREFIX"`
	UseSSL    bool   `env:"USE_SSL"`
}

// DefaultConfig returns a config for an in-process node on memory stores.
func DefaultConfig() Config {
	return Config{
		DataDir:   DefaultDataDir(),
		Transport: TransportLocal,
		Store:     StoreMemory,
		ChunkSize: encrypt.DefaultChunkSize,
		LogLevel:  "info",
	}
}

// DefaultDataDir returns ~/.s5, or .s5 when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".s5"
	}
	return filepath.Join(home, ".s5")
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// Load reads path (if it exists), then applies environment overrides.
func Load(path string) (Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, ErrConfigNotFound) {
		cfg = DefaultConfig()
	} else if err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any S5_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("%w: environment: %w", ErrInvalidValue, err)
	}
	return nil
}

// LoadConfig reads a key = value config file. Keys not present keep
// their defaults; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := DefaultConfig()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return Config{}, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return Config{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}
	return cfg, nil
}

// parseKeyValue splits "key = value" on the first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "datadir":
		c.DataDir = value
	case "transport":
		c.Transport = value
	case "nodeurl":
		c.NodeURL = value
	case "nodeid":
		c.NodeID = value
	case "store":
		c.Store = value
	case "chunksize":
		c.ChunkSize, err = strconv.Atoi(value)
	case "workers":
		c.Workers, err = strconv.Atoi(value)
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "minio.endpoint":
		c.Minio.Endpoint = value
	case "minio.accesskey":
		c.Minio.AccessKey = value
	case "minio.secretkey":
		c.Minio.SecretKey = value
	case "minio.bucket":
		c.Minio.Bucket = value
	case "minio.prefix":
		c.Minio.Prefix = value
	case "minio.usessl":
		c.Minio.UseSSL, err = strconv.ParseBool(value)
	}
	if err != nil {
		return fmt.Errorf("%w: %s = %q", ErrInvalidValue, key, value)
	}
	return nil
}

// SaveConfig writes cfg to path, creating parent directories. The file
// may hold object storage credentials, so it is written 0600.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# S5 Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "transport = %s\n", cfg.Transport)
	fmt.Fprintf(&b, "nodeurl = %s\n", cfg.NodeURL)
	fmt.Fprintf(&b, "nodeid = %s\n", cfg.NodeID)
	fmt.Fprintf(&b, "store = %s\n", cfg.Store)
	fmt.Fprintf(&b, "chunksize = %d\n", cfg.ChunkSize)
	fmt.Fprintf(&b, "workers = %d\n", cfg.Workers)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	b.WriteString("\n# Object storage (store = minio)\n")
	fmt.Fprintf(&b, "minio.endpoint = %s\n", cfg.Minio.Endpoint)
	fmt.Fprintf(&b, "minio.accesskey = %s\n", cfg.Minio.AccessKey)
	fmt.Fprintf(&b, "minio.secretkey = %s\n", cfg.Minio.SecretKey)
	fmt.Fprintf(&b, "minio.bucket = %s\n", cfg.Minio.Bucket)
	fmt.Fprintf(&b, "minio.prefix = %s\n", cfg.Minio.Prefix)
	fmt.Fprintf(&b, "minio.usessl = %t\n", cfg.Minio.UseSSL)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}
