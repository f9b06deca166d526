package services

import "context"

// scope is the run metadata carried through a context. It is copied on every
// change so parent contexts never observe child annotations.
type scope struct {
	runID     int64
	stage     string
	episode   string
	requestID string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func annotate(ctx context.Context, apply func(*scope)) context.Context {
	s := scopeOf(ctx)
	apply(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithRunID annotates context with the run history identifier.
func WithRunID(ctx context.Context, id int64) context.Context {
	return annotate(ctx, func(s *scope) { s.runID = id })
}

// RunIDFromContext extracts the run history identifier if present.
func RunIDFromContext(ctx context.Context) (int64, bool) {
	id := scopeOf(ctx).runID
	return id, id != 0
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return annotate(ctx, func(s *scope) { s.stage = stage })
}

func StageFromContext(ctx context.Context) (string, bool) {
	stage := scopeOf(ctx).stage
	return stage, stage != ""
}

// WithEpisode annotates context with the selected episode number.
func WithEpisode(ctx context.Context, number string) context.Context {
	if number == "" {
		return ctx
	}
	return annotate(ctx, func(s *scope) { s.episode = number })
}

func EpisodeFromContext(ctx context.Context) (string, bool) {
	episode := scopeOf(ctx).episode
	return episode, episode != ""
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return annotate(ctx, func(s *scope) { s.requestID = id })
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id := scopeOf(ctx).requestID
	return id, id != ""
}
