package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"natranscript/internal/history"
	"natranscript/internal/logging"
	"natranscript/internal/notifications"
	"natranscript/internal/services"
)

// runState tracks one run through its stages.
type runState struct {
	store    *history.Store
	notifier notifications.Service
	base     *slog.Logger
	logger   *slog.Logger
	record   *history.Run
	rc       RunContext
	key      string
	started  time.Time
}

func (r *runState) setContext(rc RunContext) {
	r.rc = rc
	if r.record != nil {
		rc.apply(r.record)
		r.rc.RunID = r.record.ID
	}
}

// stage runs exec and, on success, records the done status. Failures are
// logged, recorded, and reported before being returned unchanged.
func (r *runState) stage(ctx context.Context, name string, done history.Status, exec func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, r.base)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("next_status", string(done)),
	)
	began := time.Now()

	if err := exec(stageCtx); err != nil {
		return r.fail(stageCtx, name, err)
	}
	if err := r.transition(stageCtx, done, fmt.Sprintf("%s completed", name)); err != nil {
		return r.fail(stageCtx, name, err)
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("status", string(done)),
		logging.Duration("elapsed", time.Since(began)),
	)
	return nil
}

func (r *runState) transition(ctx context.Context, next history.Status, message string) error {
	if r.store == nil || r.record == nil {
		return nil
	}
	if err := r.store.Transition(ctx, r.record, next, message); err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "record status", "could not update run history", err)
	}
	return nil
}

func (r *runState) fail(ctx context.Context, stageName string, stageErr error) error {
	message := strings.TrimSpace(services.Details(stageErr))
	if message == "" {
		message = "stage failed"
	}
	status := services.FailureStatus(stageErr)
	logger := logging.WithContext(ctx, r.base)

	if status == history.StatusCancelled {
		logging.WarnWithContext(logger, "run cancelled", "stage_cancelled",
			logging.String("stage", stageName),
			logging.String(logging.FieldErrorHint, services.Hint(stageErr)),
		)
	} else {
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String("stage", stageName),
			logging.String("error_message", message),
			logging.String(logging.FieldErrorHint, services.Hint(stageErr)),
			logging.Error(stageErr),
		)
	}

	persistCtx := context.WithoutCancel(ctx)
	if r.store != nil && r.record != nil && !r.record.Status.IsTerminal() {
		if err := r.store.Fail(persistCtx, r.record, status, message); err != nil {
			logger.Error("failed to persist run failure", logging.Error(err))
		}
	}

	if r.notifier != nil && status != history.StatusCancelled {
		label := stageName
		if r.rc.Episode.Number != "" {
			label = fmt.Sprintf("%s (episode %s)", stageName, r.rc.Episode.Number)
		}
		if err := r.notifier.NotifyError(persistCtx, stageErr, label); err != nil {
			logger.Debug("error notification failed", logging.Error(err))
		}
	}
	return stageErr
}
