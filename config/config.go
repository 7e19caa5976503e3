package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultChunkSize   = 10
	DefaultWorkerCount = 10
	DefaultTable       = "customers"
	DefaultLinesToSkip = 1

	// NoHeader makes LinesToSkip read every line as data. A zero
	// LinesToSkip means the default of one header line.
	NoHeader = -1

	OnFailureAbort = "abort"
	OnFailureSkip  = "skip"
)

// Config holds the import job configuration
type Config struct {
	SourceFile     string
	DestinationURL string
	Table          string
	ConfigFile     string
	MetricsFile    string
	Debug          bool
	Verbose        bool

	ChunkSize      int
	WorkerCount    int
	LinesToSkip    int
	Strict         bool
	MaxAttempts    int
	RetryBackoff   time.Duration
	OnWriteFailure string

	Normalize       bool
	ValidateRecords bool
	AnonymizeFields []string
	DateLayouts     []string

	// IsSet reports whether a key was given on the command line.
	// File values never override those.
	IsSet func(key string) bool
}

// LoadConfig reads "key: value" lines from filename into cfg
func LoadConfig(cfg *Config, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue // Skip empty lines and comments
		}

		// Split on first colon
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d (expected 'key: value'): %s", lineNo, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			return fmt.Errorf("empty key in config line %d: %s", lineNo, line)
		}
		if cfg.IsSet != nil && cfg.IsSet(key) {
			continue
		}
		if err := cfg.apply(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func (cfg *Config) apply(key, value string) error {
	var err error
	switch key {
	case "table":
		cfg.Table = value
	case "chunk-size":
		cfg.ChunkSize, err = strconv.Atoi(value)
	case "workers":
		cfg.WorkerCount, err = strconv.Atoi(value)
	case "skip-lines":
		cfg.LinesToSkip, err = strconv.Atoi(value)
		if err == nil && cfg.LinesToSkip == 0 {
			cfg.LinesToSkip = NoHeader
		}
	case "strict":
		cfg.Strict, err = strconv.ParseBool(value)
	case "attempts":
		cfg.MaxAttempts, err = strconv.Atoi(value)
	case "retry-backoff":
		cfg.RetryBackoff, err = time.ParseDuration(value)
	case "on-write-failure":
		cfg.OnWriteFailure = value
	case "normalize":
		cfg.Normalize, err = strconv.ParseBool(value)
	case "validate":
		cfg.ValidateRecords, err = strconv.ParseBool(value)
	case "anonymize":
		cfg.AnonymizeFields = splitList(value)
	case "date-layouts":
		cfg.DateLayouts = splitList(value)
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// splitList splits on commas and drops empty entries
func splitList(value string) []string {
	fields := strings.Split(value, ",")
	list := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field != "" {
			list = append(list, field)
		}
	}
	return list
}

// Validate fills in defaults and rejects unusable settings
func (cfg *Config) Validate() error {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.LinesToSkip == 0 {
		if cfg.IsSet != nil && cfg.IsSet("skip-lines") {
			cfg.LinesToSkip = NoHeader
		} else {
			cfg.LinesToSkip = DefaultLinesToSkip
		}
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.OnWriteFailure == "" {
		cfg.OnWriteFailure = OnFailureAbort
	}

	switch {
	case cfg.ChunkSize < 0:
		return fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	case cfg.WorkerCount < 0:
		return fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	case cfg.LinesToSkip < NoHeader:
		return fmt.Errorf("lines to skip can't be negative, got %d", cfg.LinesToSkip)
	case cfg.MaxAttempts < 0:
		return fmt.Errorf("attempts can't be negative, got %d", cfg.MaxAttempts)
	case cfg.RetryBackoff < 0:
		return fmt.Errorf("retry backoff can't be negative, got %s", cfg.RetryBackoff)
	case cfg.OnWriteFailure != OnFailureAbort && cfg.OnWriteFailure != OnFailureSkip:
		return fmt.Errorf("on-write-failure must be %q or %q, got %q", OnFailureAbort, OnFailureSkip, cfg.OnWriteFailure)
	}
	return nil
}
