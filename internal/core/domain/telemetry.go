package domain

import "strings"

// TraceMode selects how run stages and rows are traced.
type TraceMode string

const (
	// TraceNone disables tracing.
	TraceNone TraceMode = "none"
	// TraceOTel records OpenTelemetry spans and logs finished stages.
	TraceOTel TraceMode = "otel"
	// TraceProgrock records progrock vertexes and prints a summary when the run ends.
	TraceProgrock TraceMode = "progrock"
)

// NormalizeTraceMode converts a string to a TraceMode, defaulting to none if unknown.
func NormalizeTraceMode(s string) TraceMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TraceOTel):
		return TraceOTel
	case string(TraceProgrock):
		return TraceProgrock
	default:
		return TraceNone
	}
}
