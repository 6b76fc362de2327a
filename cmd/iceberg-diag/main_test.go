package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Upsolver/iceberg-diag/internal/config"
	"github.com/Upsolver/iceberg-diag/internal/logger"
)

func resetFlags(t *testing.T) {
	t.Helper()
	configFile = ""
	catalogType = ""
	catalogURI = ""
	catalogToken = ""
	catalogWarehouse = ""
	awsRegion = ""
	awsProfile = ""
	database = ""
	tableName = ""
	targetFileSize = ""
	tableConcurrency = 0
	remote = false
	remoteEndpoint = ""
	remoteToken = ""
	verbosityName = "normal"
	verbose = false
}

func TestBuildConfig_Defaults(t *testing.T) {
	resetFlags(t)

	cfg, err := buildConfig()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestBuildConfig_FlagOverrides(t *testing.T) {
	resetFlags(t)
	catalogType = "rest"
	catalogURI = "https://catalog.example.com"
	catalogToken = "secret"
	awsRegion = "eu-west-1"
	targetFileSize = "256MiB"
	tableConcurrency = 4
	remoteEndpoint = "https://collector.example.com/v1"

	cfg, err := buildConfig()
	require.NoError(t, err)

	assert.Equal(t, "rest", cfg.Catalog.Type)
	assert.Equal(t, "https://catalog.example.com", cfg.Catalog.REST.URI)
	assert.Equal(t, "secret", cfg.Catalog.REST.Token)
	assert.Equal(t, "eu-west-1", cfg.Catalog.AWS.Region)
	assert.Equal(t, config.ByteSize(256*1024*1024), cfg.Analysis.TargetFileSize)
	assert.Equal(t, 4, cfg.Analysis.TableConcurrency)
	assert.Equal(t, "https://collector.example.com/v1", cfg.Submit.Endpoint)
}

func TestBuildConfig_FlagsOverrideFile(t *testing.T) {
	resetFlags(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  type: glue
  aws:
    region: us-east-1
analysis:
  table_concurrency: 2
`), 0o644))

	configFile = path
	awsRegion = "us-west-2"

	cfg, err := buildConfig()
	require.NoError(t, err)

	assert.Equal(t, "glue", cfg.Catalog.Type)
	assert.Equal(t, "us-west-2", cfg.Catalog.AWS.Region)
	assert.Equal(t, 2, cfg.Analysis.TableConcurrency)
}

func TestSelectVerbosity(t *testing.T) {
	t.Run("defaults to normal", func(t *testing.T) {
		resetFlags(t)
		assert.Equal(t, logger.LevelNormal, selectVerbosity())
	})

	t.Run("verbosity flag is parsed", func(t *testing.T) {
		resetFlags(t)
		verbosityName = "basic"
		assert.Equal(t, logger.LevelBasic, selectVerbosity())

		verbosityName = "detailed"
		assert.Equal(t, logger.LevelDetailed, selectVerbosity())
	})

	t.Run("unknown verbosity falls back to normal", func(t *testing.T) {
		resetFlags(t)
		verbosityName = "chatty"
		assert.Equal(t, logger.LevelNormal, selectVerbosity())
	})

	t.Run("verbose overrides verbosity", func(t *testing.T) {
		resetFlags(t)
		verbosityName = "basic"
		verbose = true
		assert.Equal(t, logger.LevelDetailed, selectVerbosity())
	})
}

func TestZapLevelFor(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, zapLevelFor(logger.LevelBasic))
	assert.Equal(t, zapcore.InfoLevel, zapLevelFor(logger.LevelNormal))
	assert.Equal(t, zapcore.DebugLevel, zapLevelFor(logger.LevelDetailed))
}

func TestBuildConfig_InvalidTargetSize(t *testing.T) {
	resetFlags(t)
	targetFileSize = "enormous"

	_, err := buildConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target-file-size")
}
