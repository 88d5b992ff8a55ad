// Package xlnerrors implements the error taxonomy of spec.md §7: a closed
// set of structured error values shared by every consensus component, so
// that a host process can classify a failure (reject/log, disconnect peer,
// retry with backoff, abort) without parsing strings.
package xlnerrors

import "fmt"

// Kind classifies an error for the propagation policy described in §7.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindReplay      Kind = "replay"
	KindRcpan       Kind = "rcpan"
	KindDivergence  Kind = "consensus_divergence"
	KindQuorum      Kind = "quorum_failure"
	KindStorage     Kind = "storage"
	KindRouting     Kind = "routing"
	KindSubcontract Kind = "subcontract"
	KindFatal       Kind = "fatal_corruption"
)

// Fatal reports whether errors of this kind must abort the process rather
// than simply be rejected (§7 propagation policy).
func (k Kind) Fatal() bool { return k == KindFatal }

// Retryable reports whether the boundary may retry with bounded backoff.
func (k Kind) Retryable() bool { return k == KindStorage }

// E is the common shape of every XLN core error: a kind, a stable message,
// and a machine-readable context map (token id, heights, hashes, ...) that
// API layers surface instead of an internal stack trace (§7 "User-visible
// behavior").
type E struct {
	Kind    Kind
	Message string
	Context map[string]any
}

func (e *E) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Kind, e.Message, e.Context)
}

// New constructs an *E with the given kind, message and context pairs
// (alternating key, value, key, value, ...).
func New(kind Kind, message string, kv ...any) *E {
	ctx := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			ctx[k] = kv[i+1]
		}
	}
	return &E{Kind: kind, Message: message, Context: ctx}
}

// Is supports errors.Is by comparing Kind; two *E values are "the same
// error" for classification purposes if they share a Kind.
func (e *E) Is(target error) bool {
	other, ok := target.(*E)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinels usable with errors.Is(err, xlnerrors.ErrValidation) etc.
var (
	ErrValidation  = &E{Kind: KindValidation}
	ErrReplay      = &E{Kind: KindReplay}
	ErrRcpan       = &E{Kind: KindRcpan}
	ErrDivergence  = &E{Kind: KindDivergence}
	ErrQuorum      = &E{Kind: KindQuorum}
	ErrStorage     = &E{Kind: KindStorage}
	ErrRouting     = &E{Kind: KindRouting}
	ErrSubcontract = &E{Kind: KindSubcontract}
	ErrFatal       = &E{Kind: KindFatal}
)
