package services

import "context"

// FirstSuccess tries candidates in order and returns the first result that
// try accepts, together with the candidate that produced it. It stops early
// when ctx is done. Discovery and dispatch both guess endpoint paths this way.
func FirstSuccess[T any](ctx context.Context, candidates []string, try func(ctx context.Context, candidate string) (T, bool)) (T, string, bool) {
	var zero T
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return zero, "", false
		}
		if result, ok := try(ctx, candidate); ok {
			return result, candidate, true
		}
	}
	return zero, "", false
}
