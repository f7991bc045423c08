// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/libs5-go/encrypt"
)

// validLogLevels maps accepted log level strings to logrus levels.
var validLogLevels = map[string]logrus.Level{
	"debug": logrus.DebugLevel,
	"info":  logrus.InfoLevel,
	"warn":  logrus.WarnLevel,
	"error": logrus.ErrorLevel,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	switch cfg.Transport {
	case TransportLocal:
		switch cfg.Store {
		case StoreMemory, StoreFile, StoreBolt:
		case StoreMinio:
			if cfg.Minio.Endpoint == "" || cfg.Minio.Bucket == "" {
				return ErrMissingMinio
			}
		default:
			return ErrInvalidStore
		}
	case TransportHTTP:
		if err := validateURL(cfg.NodeURL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidNodeURL, err)
		}
	default:
		return ErrInvalidTransport
	}

	if cfg.ChunkSize != 0 && (cfg.ChunkSize < encrypt.MinChunkSize || cfg.ChunkSize > encrypt.MaxChunkSize) {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, cfg.ChunkSize)
	}
	if cfg.Workers < 0 {
		return ErrInvalidWorkers
	}

	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	return nil
}

// ParseLogLevel maps a config log level (case-insensitive) to logrus.
func ParseLogLevel(level string) (logrus.Level, error) {
	l, ok := validLogLevels[strings.ToLower(level)]
	if !ok {
		return 0, ErrInvalidLogLevel
	}
	return l, nil
}

// validateURL checks that u is an absolute http(s) URL.
func validateURL(u string) error {
	parsed, err := url.Parse(u)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
