package main

import (
	"bytes"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	cfg, rest, err := LoadConfig("check", []string{"a.json", "b.json"}, io.Discard, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, defaultSchemaPath), cfg.SchemaPath)
	assert.Equal(t, defaultLogLevel, cfg.LogLevel)
	assert.Equal(t, defaultSlowQuery, cfg.SlowQuery)
	assert.Empty(t, cfg.Driver)
	assert.Equal(t, []string{"a.json", "b.json"}, rest)
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sharegraph.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
schema: /etc/share.yaml
driver: sqlite
dsn: file.db
workers: 2
log_level: debug
slow_query: 1s
id_tags:
  AbstractCreativeWork: 10
identity:
  Tag: [name]
`), 0o600))

	t.Run("File", func(t *testing.T) {
		cfg, _, err := LoadConfig("regulate", []string{"-config", file}, io.Discard, nil)
		require.NoError(t, err)
		assert.Equal(t, "/etc/share.yaml", cfg.SchemaPath)
		assert.Equal(t, "sqlite", cfg.Driver)
		assert.Equal(t, 2, cfg.Workers)
		assert.Equal(t, time.Second, cfg.SlowQuery)
		assert.Equal(t, map[string]uint8{"AbstractCreativeWork": 10}, cfg.IDTags)
		assert.Equal(t, map[string][]string{"Tag": {"name"}}, cfg.Identity)
	})

	t.Run("Env over file", func(t *testing.T) {
		t.Setenv("SHAREGRAPH_CONFIG", file)
		t.Setenv("SHAREGRAPH_WORKERS", "4")
		t.Setenv("SHAREGRAPH_SCHEMA", "/srv/share.yaml")
		cfg, _, err := LoadConfig("regulate", nil, io.Discard, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Workers)
		assert.Equal(t, "/srv/share.yaml", cfg.SchemaPath)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("Flags over env", func(t *testing.T) {
		t.Setenv("SHAREGRAPH_CONFIG", file)
		t.Setenv("SHAREGRAPH_WORKERS", "4")
		cfg, _, err := LoadConfig("regulate", []string{"-workers", "8", "-log-level", "warn"}, io.Discard, nil)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, "warn", cfg.LogLevel)
	})
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		errorSubstr string
	}{
		{name: "negative workers", args: []string{"-workers", "-1"}, errorSubstr: "workers cannot be negative"},
		{name: "bad workers env", envVars: map[string]string{"SHAREGRAPH_WORKERS": "many"}, errorSubstr: "invalid SHAREGRAPH_WORKERS"},
		{name: "bad slow query env", envVars: map[string]string{"SHAREGRAPH_SLOW_QUERY": "soon"}, errorSubstr: "invalid SHAREGRAPH_SLOW_QUERY"},
		{name: "unknown driver", args: []string{"-driver", "oracle", "-dsn", "x"}, errorSubstr: "unsupported driver: oracle"},
		{name: "driver without dsn", args: []string{"-driver", "sqlite"}, errorSubstr: "requires dsn"},
		{name: "dsn without driver", args: []string{"-dsn", "x"}, errorSubstr: "dsn requires driver"},
		{name: "log level", args: []string{"-log-level", "loud"}, errorSubstr: "unsupported log level"},
		{name: "unknown flag", args: []string{"-nope"}, errorSubstr: "flag provided but not defined"},
		{name: "missing config file", args: []string{"-config", "/does/not/exist.yaml"}, errorSubstr: "read config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			_, _, err := LoadConfig("regulate", tt.args, io.Discard, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorSubstr)
		})
	}
}

func TestLoadConfigCommandFlags(t *testing.T) {
	var pkg *string
	_, rest, err := LoadConfig("gen", []string{"-pkg", "names", "extra"}, io.Discard, func(fs *flag.FlagSet) {
		pkg = fs.String("pkg", "share", "")
	})
	require.NoError(t, err)
	assert.Equal(t, "names", *pkg)
	assert.Equal(t, []string{"extra"}, rest)

	var help bytes.Buffer
	_, _, err = LoadConfig("gen", []string{"-h"}, &help, nil)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, help.String(), "-schema")

	_, _, err = LoadConfig("gen", []string{"-workers", "many"}, io.Discard, nil)
	assert.ErrorIs(t, err, errUsage)
	_, _, err = LoadConfig("gen", []string{"-nope"}, io.Discard, nil)
	assert.ErrorIs(t, err, errUsage)
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	_, err = parseLevel("")
	assert.Error(t, err)
}
