package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyPath       = "path"
	KeySource     = "source"
	KeyOutput     = "output"
	KeyTemplate   = "template"
	KeyDirective  = "directive"
	KeyExpression = "expression"
	KeyAction     = "action"
	KeyKind       = "kind"
	KeyCount      = "count"
	KeyBytes      = "bytes"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr { return slog.String(KeySource, p) }
func Output(p string) slog.Attr { return slog.String(KeyOutput, p) }
func Template(p string) slog.Attr { return slog.String(KeyTemplate, p) }
func Directive(k string) slog.Attr { return slog.String(KeyDirective, k) }
func Expression(e string) slog.Attr { return slog.String(KeyExpression, e) }
func Action(a string) slog.Attr { return slog.String(KeyAction, a) }
func Kind(k string) slog.Attr { return slog.String(KeyKind, k) }
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }
func Bytes(n int64) slog.Attr { return slog.Int64(KeyBytes, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
