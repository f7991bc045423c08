// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "github.com/bitfsorg/libs5-go/s5err"

var (
	// ErrInvalidTransport indicates the transport name is not recognized.
	ErrInvalidTransport = s5err.New(s5err.KindInvalidInput, "config: invalid transport (must be \"local\" or \"http\")")

	// ErrInvalidStore indicates the store backend name is not recognized.
	ErrInvalidStore = s5err.New(s5err.KindInvalidInput, "config: invalid store (must be \"memory\", \"file\", \"bolt\", or \"minio\")")

	// ErrInvalidNodeURL indicates the node URL is missing or malformed.
	ErrInvalidNodeURL = s5err.New(s5err.KindInvalidInput, "config: invalid node URL")

	// ErrInvalidChunkSize indicates a chunk size outside the supported range.
	ErrInvalidChunkSize = s5err.New(s5err.KindInvalidInput, "config: invalid chunk size")

	// ErrInvalidWorkers indicates a negative worker count.
	ErrInvalidWorkers = s5err.New(s5err.KindInvalidInput, "config: workers must not be negative")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = s5err.New(s5err.KindInvalidInput, "config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = s5err.New(s5err.KindInvalidInput, "config: data directory must not be empty")

	// ErrMissingMinio indicates the minio store was selected without endpoint or bucket.
	ErrMissingMinio = s5err.New(s5err.KindInvalidInput, "config: minio store requires endpoint and bucket")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = s5err.New(s5err.KindFileNotFound, "config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = s5err.New(s5err.KindInvalidInput, "config: invalid configuration line")

	// ErrInvalidValue indicates a value that cannot be parsed for its key.
	ErrInvalidValue = s5err.New(s5err.KindInvalidInput, "config: invalid value")
)
