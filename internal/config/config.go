// Package config layers default values, YAML files, and SCANNER_*
// environment variables into the resolved Settings the rest of the
// scanner runs with (spec §6).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File mirrors the on-disk YAML config shape. Pointer fields distinguish
// "not set" (nil) from an explicit zero value.
type File struct {
	ParallelEnabled    *bool   `yaml:"parallel_enabled,omitempty"`
	ParallelWorkers    *int    `yaml:"parallel_workers,omitempty"`
	ParallelThreshold  *int    `yaml:"parallel_threshold,omitempty"`
	CacheEnabled       *bool   `yaml:"cache_enabled,omitempty"`
	CacheMaxAge        *string `yaml:"cache_max_age,omitempty"`
	CacheDir           string  `yaml:"cache_dir,omitempty"`
	CacheMaxEntries    *int    `yaml:"cache_max_entries,omitempty"`
	CacheMaxSizeMB     *int    `yaml:"cache_max_size_mb,omitempty"`
	StorageBackend     string  `yaml:"storage_backend,omitempty"`
	SqlitePath         string  `yaml:"sqlite_path,omitempty"`
	MaxStoredScans     *int    `yaml:"max_stored_scans,omitempty"`
	MaxFileSize        *int64  `yaml:"max_file_size,omitempty"`
	StreamingEnabled   *bool   `yaml:"streaming_enabled,omitempty"`
	StreamingThresh    *int64  `yaml:"streaming_threshold,omitempty"`
	MaxTotalFindings   *int    `yaml:"max_total_findings,omitempty"`
	MaxFindingsPerFile *int    `yaml:"max_findings_per_file,omitempty"`
	RegexTimeoutMS     *int    `yaml:"regex_timeout_ms,omitempty"`
	McpMaxRetries      *int    `yaml:"mcp_max_retries,omitempty"`
	McpRetryDelayMS    *int    `yaml:"mcp_retry_delay_ms,omitempty"`
	McpTimeoutMS       *int    `yaml:"mcp_timeout_ms,omitempty"`
}

// Settings is the fully resolved configuration the pipeline, cache, and
// MCP client are constructed from.
type Settings struct {
	ParallelEnabled    bool
	ParallelWorkers    int
	ParallelThreshold  int
	CacheEnabled       bool
	CacheMaxAge        time.Duration
	CacheDir           string
	CacheMaxEntries    int
	CacheMaxSizeBytes  int64
	StorageBackend     string
	SqlitePath         string
	MaxStoredScans     int
	MaxFileSize        int64
	StreamingEnabled   bool
	StreamingThreshold int64
	MaxTotalFindings   int
	MaxFindingsPerFile int
	RegexTimeout       time.Duration
	McpMaxRetries      int
	McpRetryDelay      time.Duration
	McpTimeout         time.Duration
	Debug              bool
}

// Defaults returns the baseline settings every layer (file, env) overrides.
func Defaults() Settings {
	return Settings{
		ParallelEnabled:    true,
		ParallelWorkers:    0, // 0 means "derive from cpus" (see internal/pipeline)
		ParallelThreshold:  10,
		CacheEnabled:       true,
		CacheMaxAge:        24 * time.Hour,
		CacheDir:           "",
		CacheMaxEntries:    10000,
		CacheMaxSizeBytes:  50 * 1024 * 1024,
		StorageBackend:     "json",
		SqlitePath:         "",
		MaxStoredScans:     100,
		MaxFileSize:        5 * 1024 * 1024,
		StreamingEnabled:   false,
		StreamingThreshold: 10 * 1024 * 1024,
		MaxTotalFindings:   10000,
		MaxFindingsPerFile: 100,
		RegexTimeout:       1000 * time.Millisecond,
		McpMaxRetries:      3,
		McpRetryDelay:      500 * time.Millisecond,
		McpTimeout:         30 * time.Second,
		Debug:              false,
	}
}

// Load resolves Settings by layering, in order: defaults, the global
// config file (~/.scanguard/config.yaml), the repo-local config file
// (./.scanguard/config.yaml), then SCANNER_* / DEBUG environment
// variables. Each layer only overrides fields it actually sets.
func Load() (Settings, error) {
	settings := Defaults()

	home, _ := os.UserHomeDir()
	if home != "" {
		global, err := loadFile(filepath.Join(home, ".scanguard", "config.yaml"))
		if err != nil {
			return Settings{}, err
		}
		applyFile(&settings, global)
	}

	cwd, _ := os.Getwd()
	if cwd != "" {
		local, err := loadFile(filepath.Join(cwd, ".scanguard", "config.yaml"))
		if err != nil {
			return Settings{}, err
		}
		applyFile(&settings, local)
	}

	applyEnv(&settings, os.Environ())
	return settings, nil
}

func loadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("load config %s: %w", path, err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return File{}, nil
	}
	var f File
	if err := yaml.Unmarshal([]byte(trimmed), &f); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

func applyFile(s *Settings, f File) {
	if f.ParallelEnabled != nil {
		s.ParallelEnabled = *f.ParallelEnabled
	}
	if f.ParallelWorkers != nil {
		s.ParallelWorkers = *f.ParallelWorkers
	}
	if f.ParallelThreshold != nil {
		s.ParallelThreshold = *f.ParallelThreshold
	}
	if f.CacheEnabled != nil {
		s.CacheEnabled = *f.CacheEnabled
	}
	if f.CacheMaxAge != nil {
		if d, err := time.ParseDuration(*f.CacheMaxAge); err == nil {
			s.CacheMaxAge = d
		}
	}
	if f.CacheDir != "" {
		s.CacheDir = f.CacheDir
	}
	if f.CacheMaxEntries != nil {
		s.CacheMaxEntries = *f.CacheMaxEntries
	}
	if f.CacheMaxSizeMB != nil {
		s.CacheMaxSizeBytes = int64(*f.CacheMaxSizeMB) * 1024 * 1024
	}
	if f.StorageBackend != "" {
		s.StorageBackend = f.StorageBackend
	}
	if f.SqlitePath != "" {
		s.SqlitePath = f.SqlitePath
	}
	if f.MaxStoredScans != nil {
		s.MaxStoredScans = *f.MaxStoredScans
	}
	if f.MaxFileSize != nil {
		s.MaxFileSize = *f.MaxFileSize
	}
	if f.StreamingEnabled != nil {
		s.StreamingEnabled = *f.StreamingEnabled
	}
	if f.StreamingThresh != nil {
		s.StreamingThreshold = *f.StreamingThresh
	}
	if f.MaxTotalFindings != nil {
		s.MaxTotalFindings = *f.MaxTotalFindings
	}
	if f.MaxFindingsPerFile != nil {
		s.MaxFindingsPerFile = *f.MaxFindingsPerFile
	}
	if f.RegexTimeoutMS != nil {
		s.RegexTimeout = time.Duration(*f.RegexTimeoutMS) * time.Millisecond
	}
	if f.McpMaxRetries != nil {
		s.McpMaxRetries = *f.McpMaxRetries
	}
	if f.McpRetryDelayMS != nil {
		s.McpRetryDelay = time.Duration(*f.McpRetryDelayMS) * time.Millisecond
	}
	if f.McpTimeoutMS != nil {
		s.McpTimeout = time.Duration(*f.McpTimeoutMS) * time.Millisecond
	}
}

// envVar is a single SCANNER_* (or DEBUG) binding applied onto Settings.
type envVar struct {
	name  string
	apply func(s *Settings, raw string)
}

var envVars = []envVar{
	{"SCANNER_PARALLEL_ENABLED", func(s *Settings, v string) { setBool(&s.ParallelEnabled, v) }},
	{"SCANNER_PARALLEL_WORKERS", func(s *Settings, v string) { setInt(&s.ParallelWorkers, v) }},
	{"SCANNER_PARALLEL_THRESHOLD", func(s *Settings, v string) { setInt(&s.ParallelThreshold, v) }},
	{"SCANNER_CACHE_ENABLED", func(s *Settings, v string) { setBool(&s.CacheEnabled, v) }},
	{"SCANNER_CACHE_MAX_AGE", func(s *Settings, v string) { setDurationSeconds(&s.CacheMaxAge, v) }},
	{"SCANNER_CACHE_DIR", func(s *Settings, v string) { s.CacheDir = v }},
	{"SCANNER_CACHE_MAX_ENTRIES", func(s *Settings, v string) { setInt(&s.CacheMaxEntries, v) }},
	{"SCANNER_CACHE_MAX_SIZE_MB", func(s *Settings, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			s.CacheMaxSizeBytes = int64(n) * 1024 * 1024
		}
	}},
	{"SCANNER_STORAGE_BACKEND", func(s *Settings, v string) { s.StorageBackend = v }},
	{"SCANNER_SQLITE_PATH", func(s *Settings, v string) { s.SqlitePath = v }},
	{"SCANNER_MAX_STORED_SCANS", func(s *Settings, v string) { setInt(&s.MaxStoredScans, v) }},
	{"SCANNER_MAX_FILE_SIZE", func(s *Settings, v string) { setInt64(&s.MaxFileSize, v) }},
	{"SCANNER_STREAMING_ENABLED", func(s *Settings, v string) { setBool(&s.StreamingEnabled, v) }},
	{"SCANNER_STREAMING_THRESHOLD", func(s *Settings, v string) { setInt64(&s.StreamingThreshold, v) }},
	{"SCANNER_MAX_TOTAL_FINDINGS", func(s *Settings, v string) { setInt(&s.MaxTotalFindings, v) }},
	{"SCANNER_MAX_FINDINGS_PER_FILE", func(s *Settings, v string) { setInt(&s.MaxFindingsPerFile, v) }},
	{"SCANNER_REGEX_TIMEOUT_MS", func(s *Settings, v string) { setDurationMillis(&s.RegexTimeout, v) }},
	{"SCANNER_MCP_MAX_RETRIES", func(s *Settings, v string) { setInt(&s.McpMaxRetries, v) }},
	{"SCANNER_MCP_RETRY_DELAY_MS", func(s *Settings, v string) { setDurationMillis(&s.McpRetryDelay, v) }},
	{"SCANNER_MCP_TIMEOUT_MS", func(s *Settings, v string) { setDurationMillis(&s.McpTimeout, v) }},
	{"DEBUG", func(s *Settings, v string) { s.Debug = v != "" && v != "0" && strings.ToLower(v) != "false" }},
}

func applyEnv(s *Settings, environ []string) {
	lookup := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			lookup[kv[:i]] = kv[i+1:]
		}
	}
	for _, ev := range envVars {
		if v, ok := lookup[ev.name]; ok {
			ev.apply(s, v)
		}
	}
}

func setBool(dst *bool, raw string) {
	if b, err := strconv.ParseBool(raw); err == nil {
		*dst = b
	}
}

func setInt(dst *int, raw string) {
	if n, err := strconv.Atoi(raw); err == nil {
		*dst = n
	}
}

func setInt64(dst *int64, raw string) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*dst = n
	}
}

func setDurationMillis(dst *time.Duration, raw string) {
	if n, err := strconv.Atoi(raw); err == nil {
		*dst = time.Duration(n) * time.Millisecond
	}
}

func setDurationSeconds(dst *time.Duration, raw string) {
	if n, err := strconv.Atoi(raw); err == nil {
		*dst = time.Duration(n) * time.Second
	}
}
