package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/zerr"
)

// rowOutput collects the textual output of one row.
type rowOutput struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (o *rowOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.Write(p)
}

func (o *rowOutput) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}

// rowFigures registers figures on behalf of one row and keeps their descriptors.
type rowFigures struct {
	registrar ports.FigureRegistrar
	ref       domain.FigureRef

	mu    sync.Mutex
	infos []domain.FigureInfo
}

func (f *rowFigures) RegisterFigure(name, caption string) (domain.FigureInfo, error) {
	if f.registrar == nil {
		return domain.FigureInfo{}, zerr.With(domain.ErrFigureRegisterFailed, "figure", name)
	}
	info, err := f.registrar.RegisterFigure(f.ref, name, caption)
	if err != nil {
		return domain.FigureInfo{}, zerr.With(zerr.Wrap(err, domain.ErrFigureRegisterFailed.Error()), "figure", name)
	}
	f.mu.Lock()
	f.infos = append(f.infos, info)
	f.mu.Unlock()
	return info, nil
}

func (f *rowFigures) Dir() string {
	if f.registrar == nil {
		return ""
	}
	return f.registrar.Dir(f.ref.Analysis)
}

func (f *rowFigures) collected() []domain.FigureInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.infos)
}

// executor runs the computation for single rows.
type executor struct {
	def     Definition
	comp    ports.Computation
	figures ports.FigureRegistrar
	tracer  ports.Tracer
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprint(p.value)
}

// execute runs the computation for one row. It never fails: errors, panics and
// malformed results become a failed record carrying the failure values.
func (e *executor) execute(ctx context.Context, index int, row domain.Row) domain.RunRecord {
	ctx, span := e.tracer.Start(ctx, "row "+row.Key,
		ports.WithAttribute("row.index", index),
		ports.WithAttribute("row.key", row.Key),
	)
	defer span.End()

	out := &rowOutput{}
	figures := &rowFigures{
		registrar: e.figures,
		ref:       domain.FigureRef{Analysis: e.def.Name, RowIndex: index, RowKey: row.Key},
	}
	rc := &ports.RowContext{
		Analysis: e.def.Name,
		Index:    index,
		Row:      domain.Row{Key: row.Key, Fields: row.Fields.Clone()},
		Param:    e.def.Param,
		Output:   out,
		Figures:  figures,
	}

	rec := domain.RunRecord{RowKey: row.Key}
	value, err := e.invoke(ctx, rc)

	var pe *panicError
	switch {
	case errors.As(err, &pe):
		rec.Exception = &domain.Exception{Kind: domain.ExceptionPanic, Message: pe.Error()}
	case err != nil:
		rec.Exception = &domain.Exception{Kind: domain.ExceptionError, Message: err.Error()}
	default:
		fields, ok := asRecord(value)
		if !ok {
			rec.Exception = &domain.Exception{
				Kind:    domain.ExceptionNonRecord,
				Message: fmt.Sprintf("computation returned %T, expected a record", value),
			}
			break
		}
		rec.Success = true
		rec.Fields = e.conform(fields, out)
	}

	if !rec.Success {
		rec.Fields = e.failureFields()
		span.RecordError(rec.Exception)
	}
	span.SetAttribute("row.success", rec.Success)

	rec.Output = out.String()
	rec.FigureInfo = figures.collected()
	if rec.Output != "" {
		_, _ = span.Write([]byte(rec.Output))
	}
	return rec
}

func (e *executor) invoke(ctx context.Context, rc *ports.RowContext) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, &panicError{value: r}
		}
	}()
	return e.comp.Compute(ctx, rc)
}

// conform fits a result to the declared field set. Missing fields take their
// failure value and undeclared fields are dropped; both leave a warning in the output.
func (e *executor) conform(fields domain.Record, out *rowOutput) domain.Record {
	if len(e.def.Fields) == 0 {
		return fields.Clone()
	}

	declared := make(map[string]bool, len(e.def.Fields))
	rec := make(domain.Record, len(e.def.Fields))
	for _, name := range e.def.Fields {
		declared[name] = true
		if v, ok := fields[name]; ok {
			rec[name] = v
			continue
		}
		rec[name] = e.def.FailureValues[name]
		fmt.Fprintf(out, "warning: required field %q missing from result; using failure value\n", name)
	}
	for _, name := range fields.Keys() {
		if !declared[name] {
			fmt.Fprintf(out, "warning: undeclared field %q dropped from result\n", name)
		}
	}
	return rec
}

// failureFields is the record of a failed row.
func (e *executor) failureFields() domain.Record {
	if len(e.def.Fields) == 0 {
		return e.def.FailureValues.Clone()
	}
	rec := make(domain.Record, len(e.def.Fields))
	for _, name := range e.def.Fields {
		rec[name] = e.def.FailureValues[name]
	}
	return rec
}

func asRecord(v any) (domain.Record, bool) {
	switch r := v.(type) {
	case domain.Record:
		return r, r != nil
	case map[string]any:
		return domain.Record(r), r != nil
	default:
		return nil, false
	}
}
