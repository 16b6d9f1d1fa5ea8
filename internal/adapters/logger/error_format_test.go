package logger_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"go.trai.ch/tabula/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func TestFormatChain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		goldenName string
	}{
		{
			name: "three level chain",
			err: zerr.Wrap(
				zerr.Wrap(
					errors.New("disk quota exceeded"),
					"failed to write cache file",
				),
				"failed to persist analysis results",
			),
			goldenName: "error_chain_three",
		},
		{
			name:       "two level chain",
			err:        zerr.Wrap(errors.New("no such file or directory"), "failed to read config file"),
			goldenName: "error_chain_two",
		},
		{
			name:       "multiline error",
			err:        errors.New("yaml: unmarshal errors:\n  line 3: cannot unmarshal"),
			goldenName: "error_multiline",
		},
		{
			name: "stdlib chain",
			err: fmt.Errorf("failed to open table: %w",
				fmt.Errorf("open cells.jsonl: %w", errors.New("permission denied"))),
			goldenName: "error_chain_stdlib",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := goldie.New(t)
			g.Assert(t, tt.goldenName, []byte(logger.FormatChain(tt.err)))
		})
	}
}
