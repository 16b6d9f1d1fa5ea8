// Package shell runs an analysis' per-row computation as an external command.
package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/zerr"
)

// Environment variables describing the row a command runs for.
const (
	EnvRowIndex  = "TABULA_ROW_INDEX"
	EnvRowKey    = "TABULA_ROW_KEY"
	EnvAnalysis  = "TABULA_ANALYSIS"
	EnvFigureDir = "TABULA_FIGURE_DIR"
	EnvParam     = "TABULA_PARAM"
)

// waitDelay bounds how long a cancelled command's output pipes may stay open.
const waitDelay = 5 * time.Second

// FiguresKey is the result key a command lists its figures under.
const FiguresKey = "_figures"

// Command implements ports.Computation by running one process per row.
// The row's fields arrive as a JSON object on stdin and the last line of
// stdout is read as the JSON result.
type Command struct {
	argv []string
	env  map[string]string
	dir  string
}

// NewCommand creates a Command from an analysis' settings. The process runs in
// the directory of the analysis' table.
func NewCommand(settings domain.AnalysisSettings) (*Command, error) {
	if len(settings.Command) == 0 {
		return nil, zerr.With(domain.ErrEmptyCommand, "analysis", settings.Name)
	}
	dir := ""
	if settings.Table != "" {
		dir = filepath.Dir(settings.Table)
	}
	return &Command{
		argv: slices.Clone(settings.Command),
		env:  maps.Clone(settings.Environment),
		dir:  dir,
	}, nil
}

type figureRequest struct {
	Name    string `json:"name"`
	Caption string `json:"caption"`
}

// Compute runs the command for one row.
func (c *Command) Compute(ctx context.Context, rc *ports.RowContext) (any, error) {
	out := rc.Output
	if out == nil {
		out = io.Discard
	}

	input, err := json.Marshal(rc.Row.Fields)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode row")
	}
	param, err := json.Marshal(rc.Param)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode param")
	}

	rowEnv := map[string]string{
		EnvRowIndex: strconv.Itoa(rc.Index),
		EnvRowKey:   rc.Row.Key,
		EnvAnalysis: rc.Analysis,
		EnvParam:    string(param),
	}
	if rc.Figures != nil {
		rowEnv[EnvFigureDir] = rc.Figures.Dir()
	}
	cmdEnv := resolveEnvironment(os.Environ(), rowEnv, c.env)

	name := c.argv[0]
	executable := name
	if !filepath.IsAbs(name) && !strings.ContainsRune(name, filepath.Separator) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, c.argv[1:]...) //nolint:gosec // user provided command
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Dir = c.dir
	cmd.WaitDelay = waitDelay
	cmd.Env = cmdEnv
	cmd.Stdin = bytes.NewReader(input)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		_, _ = out.Write(stdout.Bytes())
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCommandFailed.Error()), "exit_code", strconv.Itoa(exitCode))
	}

	result, err := parseResult(stdout.Bytes(), out)
	if err != nil {
		return nil, err
	}

	rec, ok := result.(map[string]any)
	if !ok {
		return result, nil
	}
	if err := registerFigures(rec, rc.Figures); err != nil {
		return nil, err
	}
	return domain.Record(rec), nil
}

// parseResult decodes the last non-empty line of out and copies the lines
// before it to w.
func parseResult(out []byte, w io.Writer) (any, error) {
	trimmed := bytes.TrimRight(out, " \t\r\n")
	prefix, last := []byte(nil), trimmed
	if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
		prefix, last = trimmed[:i+1], trimmed[i+1:]
	}
	if len(prefix) > 0 {
		_, _ = w.Write(prefix)
	}
	if len(bytes.TrimSpace(last)) == 0 {
		return nil, domain.ErrResultNotJSON
	}

	var result any
	if err := json.Unmarshal(last, &result); err != nil {
		_, _ = w.Write(last)
		return nil, zerr.Wrap(err, domain.ErrResultNotJSON.Error())
	}
	return result, nil
}

func registerFigures(rec map[string]any, sink ports.FigureSink) error {
	raw, ok := rec[FiguresKey]
	if !ok {
		return nil
	}
	delete(rec, FiguresKey)

	data, err := json.Marshal(raw)
	if err != nil {
		return zerr.Wrap(err, domain.ErrFigureRegisterFailed.Error())
	}
	var reqs []figureRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return zerr.Wrap(err, domain.ErrFigureRegisterFailed.Error())
	}
	if len(reqs) > 0 && sink == nil {
		return zerr.Wrap(zerr.New("no figure registry available"), domain.ErrFigureRegisterFailed.Error())
	}

	for i, req := range reqs {
		if _, err := sink.RegisterFigure(req.Name, req.Caption); err != nil {
			return zerr.With(err, "figure", fmt.Sprintf("%d:%s", i, req.Name))
		}
	}
	return nil
}

// resolveEnvironment merges environment variables, later sources overriding earlier ones:
// the system environment, the row variables, then the analysis' configured variables.
func resolveEnvironment(sysEnv []string, rowEnv, analysisEnv map[string]string) []string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}
	maps.Copy(envMap, rowEnv)
	maps.Copy(envMap, analysisEnv)

	result := make([]string, 0, len(envMap))
	for _, k := range slices.Sorted(maps.Keys(envMap)) {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH entry of env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
