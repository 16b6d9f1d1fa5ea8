package shell_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tabula/internal/adapters/shell"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/tabula/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newCommand(t *testing.T, script string, env map[string]string) *shell.Command {
	t.Helper()
	c, err := shell.NewCommand(domain.AnalysisSettings{
		Name:        "spikes",
		Table:       t.TempDir() + "/cells.jsonl",
		Command:     []string{"sh", "-c", script},
		Environment: env,
	})
	require.NoError(t, err)
	return c
}

func rowContext(out *bytes.Buffer, figures ports.FigureSink) *ports.RowContext {
	return &ports.RowContext{
		Analysis: "spikes",
		Index:    3,
		Row:      domain.Row{Key: "c3", Fields: domain.Record{"depth": 12.5}},
		Param:    map[string]any{"threshold": 5},
		Output:   out,
		Figures:  figures,
	}
}

func TestCommand_Compute_Record(t *testing.T) {
	c := newCommand(t, `cat >/dev/null; echo progress; echo '{"rate": 1.5, "label": "ok"}'`, nil)

	var out bytes.Buffer
	result, err := c.Compute(context.Background(), rowContext(&out, nil))
	require.NoError(t, err)

	assert.Equal(t, domain.Record{"rate": 1.5, "label": "ok"}, result)
	assert.Equal(t, "progress\n", out.String())
}

func TestCommand_Compute_RowEnvironment(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockFigureSink(ctrl)
	sink.EXPECT().Dir().Return("/figs/spikes")

	script := `printf '{"index":"%s","key":"%s","analysis":"%s","dir":"%s","param":%s,"mode":"%s"}\n' ` +
		`"$TABULA_ROW_INDEX" "$TABULA_ROW_KEY" "$TABULA_ANALYSIS" "$TABULA_FIGURE_DIR" "$TABULA_PARAM" "$MODE"`
	c := newCommand(t, script, map[string]string{"MODE": "fast"})

	var out bytes.Buffer
	result, err := c.Compute(context.Background(), rowContext(&out, sink))
	require.NoError(t, err)

	assert.Equal(t, domain.Record{
		"index":    "3",
		"key":      "c3",
		"analysis": "spikes",
		"dir":      "/figs/spikes",
		"param":    map[string]any{"threshold": 5.0},
		"mode":     "fast",
	}, result)
}

func TestCommand_Compute_RowOnStdin(t *testing.T) {
	c := newCommand(t, `read row; echo "{\"row\": $row}"`, nil)

	var out bytes.Buffer
	result, err := c.Compute(context.Background(), rowContext(&out, nil))
	require.NoError(t, err)
	assert.Equal(t, domain.Record{"row": map[string]any{"depth": 12.5}}, result)
}

func TestCommand_Compute_Figures(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockFigureSink(ctrl)
	sink.EXPECT().Dir().Return("/figs/spikes")
	sink.EXPECT().RegisterFigure("raster", "Spike raster").Return(domain.FigureInfo{Name: "raster"}, nil)

	c := newCommand(t, `echo '{"rate": 2, "_figures": [{"name": "raster", "caption": "Spike raster"}]}'`, nil)

	var out bytes.Buffer
	result, err := c.Compute(context.Background(), rowContext(&out, sink))
	require.NoError(t, err)
	assert.Equal(t, domain.Record{"rate": 2.0}, result)
}

func TestCommand_Compute_NonRecord(t *testing.T) {
	c := newCommand(t, `echo '[1, 2]'`, nil)

	var out bytes.Buffer
	result, err := c.Compute(context.Background(), rowContext(&out, nil))
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, result)
}

func TestCommand_Compute_Failures(t *testing.T) {
	t.Run("non-zero exit", func(t *testing.T) {
		c := newCommand(t, `echo partial; echo oops >&2; exit 3`, nil)

		var out bytes.Buffer
		_, err := c.Compute(context.Background(), rowContext(&out, nil))
		require.ErrorContains(t, err, domain.ErrCommandFailed.Error())
		assert.Contains(t, out.String(), "oops")
		assert.Contains(t, out.String(), "partial")
	})

	t.Run("not json", func(t *testing.T) {
		c := newCommand(t, `echo hello`, nil)

		var out bytes.Buffer
		_, err := c.Compute(context.Background(), rowContext(&out, nil))
		require.ErrorContains(t, err, domain.ErrResultNotJSON.Error())
		assert.Equal(t, "hello", out.String())
	})

	t.Run("empty output", func(t *testing.T) {
		c := newCommand(t, `true`, nil)

		var out bytes.Buffer
		_, err := c.Compute(context.Background(), rowContext(&out, nil))
		require.ErrorContains(t, err, domain.ErrResultNotJSON.Error())
	})

	t.Run("cancelled", func(t *testing.T) {
		c := newCommand(t, `exec sleep 5`, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		var out bytes.Buffer
		_, err := c.Compute(ctx, rowContext(&out, nil))
		require.ErrorContains(t, err, domain.ErrCommandFailed.Error())
	})
}

func TestNewCommand_Empty(t *testing.T) {
	_, err := shell.NewCommand(domain.AnalysisSettings{Name: "a"})
	require.ErrorContains(t, err, domain.ErrEmptyCommand.Error())
}
