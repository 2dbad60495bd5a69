// Package config loads front-end settings from the environment.
//
// An optional .env file is read first with godotenv; variables already set
// in the process environment win over the file.
//
//	CMM_ENV               "production" switches logs to JSON
//	CMM_LOG_LEVEL         debug | info | warn | error
//	CMM_INCLUDE_PATH      directories searched by #include, OS list separator
//	CMM_DEFINES           NAME or NAME=VALUE, comma separated
//	CMM_SYMTAB_BUCKETS    bucket count of every symbol table
//	CMM_SYMTAB_MAX_TYPES  per-scope type registry capacity
//	CMM_METRICS_FILE      where to write counters after a run
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	DefaultSymtabBuckets  = 1000
	DefaultSymtabMaxTypes = 1000
)

// Define is a macro predefined from the environment.
type Define struct {
	Name  string
	Value string
}

// Config holds the settings of one compiler run.
type Config struct {
	Env            string
	LogLevel       string
	IncludeDirs    []string
	Defines        []Define
	SymtabBuckets  int
	SymtabMaxTypes int
	MetricsFile    string
}

// Load reads the given .env files (".env" when none are given), then builds
// the configuration from the environment. Missing .env files are not an
// error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:            getenv("CMM_ENV", "development"),
		LogLevel:       getenv("CMM_LOG_LEVEL", "info"),
		MetricsFile:    os.Getenv("CMM_METRICS_FILE"),
		SymtabBuckets:  DefaultSymtabBuckets,
		SymtabMaxTypes: DefaultSymtabMaxTypes,
	}

	if v := os.Getenv("CMM_INCLUDE_PATH"); v != "" {
		for _, dir := range filepath.SplitList(v) {
			if dir != "" {
				cfg.IncludeDirs = append(cfg.IncludeDirs, dir)
			}
		}
	}

	defines, err := ParseDefines(os.Getenv("CMM_DEFINES"))
	if err != nil {
		return nil, fmt.Errorf("CMM_DEFINES: %w", err)
	}
	cfg.Defines = defines

	if cfg.SymtabBuckets, err = positiveInt("CMM_SYMTAB_BUCKETS", DefaultSymtabBuckets); err != nil {
		return nil, err
	}
	if cfg.SymtabMaxTypes, err = positiveInt("CMM_SYMTAB_MAX_TYPES", DefaultSymtabMaxTypes); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseDefines parses "A,B=2, C = x y" into definitions. A bare name is
// defined as 1, like cc -DNAME. Values cannot contain commas here; use
// ParseDefine for a single definition.
func ParseDefines(s string) ([]Define, error) {
	var defines []Define
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ParseDefine(part)
		if err != nil {
			return nil, err
		}
		defines = append(defines, d)
	}
	return defines, nil
}

// ParseDefine parses one NAME[=VALUE]. Everything after the first '=' is
// the value, commas included.
func ParseDefine(s string) (Define, error) {
	name, value, found := strings.Cut(strings.TrimSpace(s), "=")
	name = strings.TrimSpace(name)
	if !isIdentifier(name) {
		return Define{}, fmt.Errorf("invalid macro name %q", name)
	}
	if !found {
		value = "1"
	}
	return Define{Name: name, Value: strings.TrimSpace(value)}, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func positiveInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", key, n)
	}
	return n, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !letter && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	return true
}
