package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tabula/internal/adapters/config"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return dir, path
}

func TestLoad_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)

	dir, path := writeConfig(t, `
version: "1"
cache:
  roots: ["cache", "/shared/cache"]
  createFirstRoot: false
  metaCacheSize: 32
figures:
  extensions: ["png", "pdf"]
  width: 8
analyses:
  spikes:
    table: cells.jsonl
    key: cell_id
    cmd: ["python", "spikes.py"]
    env:
      MODE: fast
    param:
      threshold: 5
    fields: ["rate", "count", "rate"]
    failure:
      rate: -1
    retryFailures: true
    parallelism: 4
    validAfter: "2024-03-01"
`)

	settings, err := config.NewLoader(mockLogger).Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "cache"), "/shared/cache"}, settings.Cache.Roots)
	assert.False(t, settings.Cache.CreateFirstRoot)
	assert.Equal(t, 32, settings.Cache.MetaCacheSize)

	assert.Equal(t, []string{filepath.Join(dir, config.DefaultFigureRoot)}, settings.Figures.Roots)
	assert.Equal(t, []string{"png", "pdf"}, settings.Figures.Extensions)
	assert.InDelta(t, 8.0, settings.Figures.Width, 0)
	assert.InDelta(t, config.DefaultFigureHeight, settings.Figures.Height, 0)

	require.Contains(t, settings.Analyses, "spikes")
	a := settings.Analyses["spikes"]
	assert.Equal(t, "spikes", a.Name)
	assert.Equal(t, filepath.Join(dir, "cells.jsonl"), a.Table)
	assert.Equal(t, "cell_id", a.Key)
	assert.Equal(t, []string{"python", "spikes.py"}, a.Command)
	assert.Equal(t, map[string]string{"MODE": "fast"}, a.Environment)
	assert.Equal(t, map[string]any{"threshold": 5}, a.Param)
	assert.Equal(t, []string{"count", "rate"}, a.Fields)
	assert.Equal(t, domain.Record{"rate": -1}, a.Failure)
	assert.True(t, a.RetryFailures)
	assert.Equal(t, 4, a.Parallelism)
	assert.True(t, a.ValidAfter.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestLoad_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)

	dir, path := writeConfig(t, `
analyses:
  a:
    table: t.jsonl
    cmd: ["true"]
`)

	settings, err := config.NewLoader(mockLogger).Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, config.DefaultCacheRoot)}, settings.Cache.Roots)
	assert.True(t, settings.Cache.CreateFirstRoot)
	assert.Equal(t, config.DefaultMetaCacheSize, settings.Cache.MetaCacheSize)
	assert.Equal(t, config.DefaultFigureExtensions, settings.Figures.Extensions)
	assert.True(t, settings.Analyses["a"].ValidAfter.IsZero())
}

func TestLoad_MissingReferencedTableWarns(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)

	dir, path := writeConfig(t, `
analyses:
  a:
    table: t.jsonl
    cmd: ["true"]
    referencedTables: ["present.jsonl", "gone.jsonl"]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "present.jsonl"), nil, 0o600))

	mockLogger.EXPECT().Warn("analysis a references missing table " + filepath.Join(dir, "gone.jsonl"))

	settings, err := config.NewLoader(mockLogger).Load(path)
	require.NoError(t, err)
	assert.Len(t, settings.Analyses["a"].ReferencedTables, 2)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		msg     string
	}{
		{
			name:    "malformed yaml",
			content: "analyses: [",
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name:    "no analyses",
			content: "version: \"1\"\n",
			wantErr: domain.ErrConfigInvalid,
			msg:     "analyses",
		},
		{
			name:    "unknown version",
			content: "version: \"2\"\nanalyses:\n  a:\n    table: t\n    cmd: [x]\n",
			wantErr: domain.ErrConfigInvalid,
			msg:     "version",
		},
		{
			name:    "missing command",
			content: "analyses:\n  a:\n    table: t\n",
			wantErr: domain.ErrConfigInvalid,
			msg:     "cmd",
		},
		{
			name:    "missing table",
			content: "analyses:\n  a:\n    cmd: [x]\n",
			wantErr: domain.ErrConfigInvalid,
			msg:     "table",
		},
		{
			name:    "negative parallelism",
			content: "analyses:\n  a:\n    table: t\n    cmd: [x]\n    parallelism: -2\n",
			wantErr: domain.ErrConfigInvalid,
			msg:     "parallelism",
		},
		{
			name:    "bad timestamp",
			content: "analyses:\n  a:\n    table: t\n    cmd: [x]\n    validAfter: yesterday\n",
			wantErr: domain.ErrConfigInvalid,
			msg:     "validAfter",
		},
		{
			name:    "zero meta cache",
			content: "cache:\n  metaCacheSize: 0\nanalyses:\n  a:\n    table: t\n    cmd: [x]\n",
			wantErr: domain.ErrConfigInvalid,
			msg:     "metaCacheSize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			_, path := writeConfig(t, tt.content)

			_, err := config.NewLoader(mocks.NewMockLogger(ctrl)).Load(path)
			require.Error(t, err)
			require.ErrorContains(t, err, tt.wantErr.Error())
			if tt.msg != "" {
				assert.ErrorContains(t, err, tt.msg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := config.NewLoader(mocks.NewMockLogger(ctrl)).Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, domain.ErrConfigReadFailed.Error())
}
