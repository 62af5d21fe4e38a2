package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xl-support/helpdesk/internal/config"
)

func TestParseFlagsRejectsConflictingMigrationModes(t *testing.T) {
	_, err := parseFlags([]string{"--migrate-only", "--skip-migrations"})
	assert.Error(t, err)

	opts, err := parseFlags([]string{"--env-file", "local.env", "--skip-migrations"})
	require.NoError(t, err)
	assert.Equal(t, "local.env", opts.envFile)
	assert.True(t, opts.skipMigrations)
}

func TestRunMainReportsFailureThroughExitCode(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("POSTGRES_DSN", "")

	core, logs := observer.New(zap.InfoLevel)
	newLogger := func(config.LoggerConfig) (*zap.Logger, error) { return zap.New(core), nil }

	code := runMain([]string{"--migrate-only"}, newLogger)
	assert.Equal(t, 1, code)

	failures := logs.FilterMessage("helpdesk exited").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zap.ErrorLevel, failures[0].Level)
	assert.Contains(t, failures[0].ContextMap()["error"], "POSTGRES_DSN")
}

func TestRunMainRejectsBadFlags(t *testing.T) {
	called := false
	newLogger := func(config.LoggerConfig) (*zap.Logger, error) {
		called = true
		return zap.NewNop(), nil
	}
	assert.Equal(t, 2, runMain([]string{"--migrate-only", "--skip-migrations"}, newLogger))
	assert.Equal(t, 0, runMain([]string{"--help"}, newLogger))
	assert.False(t, called)
}
