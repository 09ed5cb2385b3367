package rbac

import "context"

type evaluatorContextKey struct{}

// ContextWithEvaluator stores the permission snapshot in context.
func ContextWithEvaluator(ctx context.Context, eval *Evaluator) context.Context {
	return context.WithValue(ctx, evaluatorContextKey{}, eval)
}

// EvaluatorFromContext extracts the permission snapshot from context.
// Returns nil when none is present; the nil evaluator denies every
// query.
func EvaluatorFromContext(ctx context.Context) *Evaluator {
	eval, _ := ctx.Value(evaluatorContextKey{}).(*Evaluator)
	return eval
}
