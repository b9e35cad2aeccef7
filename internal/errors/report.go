package errors

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/antec-lang/antec/internal/ast"
	"golang.org/x/text/message"
)

// Schema is the stable wire-format tag for serialised reports.
const Schema = "antec.diagnostic/v1"

// Note is a secondary annotation attached to a Report (spec.md §6: "optional
// notes[]"), e.g. "required trait declared here".
type Note struct {
	Message string   `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
}

// Report is the canonical structured diagnostic. Every component reports
// through one of these rather than a bare error string, so the query layer
// (C8) can store, sort and replay diagnostics deterministically.
type Report struct {
	Schema  string         `json:"schema"`
	Code    Code           `json:"code"`
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Span    ast.Span       `json:"span"`
	Notes   []Note         `json:"notes,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// ReportError wraps a Report so it survives errors.As() unwrapping.
type ReportError struct{ Rep *Report }

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return string(e.Rep.Code) + ": " + e.Rep.Message
}

// AsReport extracts a Report from an error chain.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// New builds a Report, deriving Kind from Code.
func New(code Code, span ast.Span, message string) *Report {
	return &Report{Schema: Schema, Code: code, Kind: KindOf(code), Message: message, Span: span}
}

// WithNote appends a note and returns the receiver for chaining.
func (r *Report) WithNote(msg string, span *ast.Span) *Report {
	r.Notes = append(r.Notes, Note{Message: msg, Span: span})
	return r
}

// WithData attaches structured data (e.g. candidate impl names).
func (r *Report) WithData(key string, value any) *Report {
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	r.Data[key] = value
	return r
}

// Err wraps the report as an error.
func (r *Report) Err() error { return &ReportError{Rep: r} }

// ToJSON renders the report deterministically (sorted map keys come for
// free from encoding/json on Go maps of string keys).
func (r *Report) ToJSON(indent bool) (string, error) {
	var data []byte
	var err error
	if indent {
		data, err = json.MarshalIndent(r, "", "  ")
	} else {
		data, err = json.Marshal(r)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CasesNote renders "N missing case(s)" using x/text/message for correct
// pluralisation instead of hand-rolled "case(s)" string surgery.
func CasesNote(n int) string {
	p := message.NewPrinter(message.MatchLanguage("en"))
	if n == 1 {
		return p.Sprintf("%d missing case", n)
	}
	return p.Sprintf("%d missing cases", n)
}

// Accumulator collects diagnostics across a pass so that, per spec.md §7,
// one error does not suppress unrelated ones. Components keep working with
// a poisoned type/binding after reporting here.
type Accumulator struct {
	reports []*Report
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator { return &Accumulator{} }

// Add records a report.
func (a *Accumulator) Add(r *Report) { a.reports = append(a.reports, r) }

// HasErrors reports whether anything was accumulated.
func (a *Accumulator) HasErrors() bool { return len(a.reports) > 0 }

// Reports returns the accumulated reports sorted by source location, per
// spec.md §5's determinism guarantee ("error reporting iterates diagnostics
// sorted by source location").
func (a *Accumulator) Reports() []*Report {
	out := make([]*Report, len(a.reports))
	copy(out, a.reports)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Span.Start, out[j].Span.Start
		if si.File != sj.File {
			return si.File < sj.File
		}
		if si.Line != sj.Line {
			return si.Line < sj.Line
		}
		return si.Column < sj.Column
	})
	return out
}

// Merge folds another accumulator's reports into this one (used when a
// query result carrying its own diagnostics is reused from the cache).
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	a.reports = append(a.reports, other.reports...)
}
