package llm

import "context"

// Purpose labels attached to requests so the event log can attribute
// usage to a feature.
const (
	PurposeMarking     = "marking"
	PurposeQuestionGen = "question-gen"
)

type ctxKey int

const purposeCtxKey ctxKey = iota

// WithPurpose labels the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeCtxKey, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if p, ok := ctx.Value(purposeCtxKey).(string); ok {
		return p
	}
	return "unknown"
}
