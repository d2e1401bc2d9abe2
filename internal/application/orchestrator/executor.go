package orchestrator

import (
	"context"
	"time"

	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
)

// Notifier sends one templated message to one recipient.
type Notifier interface {
	SendNotification(ctx context.Context, n Notification) error
}

// AuditWriter appends one entry to the case history.  Append-only.
type AuditWriter interface {
	WriteAuditEntry(ctx context.Context, e AuditEntry) error
}

// Broadcaster publishes a change to downstream systems.
type Broadcaster interface {
	Broadcast(ctx context.Context, b Broadcast) error
}

// ExecutorMetrics counts side-effect dispatch outcomes.
type ExecutorMetrics interface {
	IncSideEffect(kind string, outcome string)
}

type nopExecutorMetrics struct{}

func (nopExecutorMetrics) IncSideEffect(string, string) {}

// Executor dispatches the side effects of a committed transition.  Failures
// are isolated per item: one failing notification never stops the audit
// entry or the broadcast, and no failure propagates to the transition
// caller.
type Executor struct {
	notifier    Notifier
	audit       AuditWriter
	broadcaster Broadcaster
	logger      logging.Logger
	metrics     ExecutorMetrics
	timeout     time.Duration
}

// NewExecutor constructs an Executor.  Any collaborator may be nil, in which
// case its effects are dropped with a warning.  timeout bounds each
// individual dispatch call; zero means 10 seconds.
func NewExecutor(notifier Notifier, audit AuditWriter, broadcaster Broadcaster, logger logging.Logger, metrics ExecutorMetrics, timeout time.Duration) *Executor {
	if metrics == nil {
		metrics = nopExecutorMetrics{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Executor{
		notifier:    notifier,
		audit:       audit,
		broadcaster: broadcaster,
		logger:      logger.Named("sideeffects"),
		metrics:     metrics,
		timeout:     timeout,
	}
}

// Dispatch executes each side effect in order, returning the number that
// failed.  Callers use the count for reporting only; a non-zero count does
// not mean the transition failed.
func (e *Executor) Dispatch(ctx context.Context, effects []SideEffect) int {
	failed := 0
	for _, effect := range effects {
		if err := e.dispatchOne(ctx, effect); err != nil {
			failed++
			e.metrics.IncSideEffect(string(effect.Kind()), "failure")
			e.logger.Error("side effect dispatch failed",
				logging.String("kind", string(effect.Kind())),
				logging.Err(errors.Wrap(err, errors.ErrCodeSideEffect, "dispatch failed")))
			continue
		}
		e.metrics.IncSideEffect(string(effect.Kind()), "success")
	}
	return failed
}

func (e *Executor) dispatchOne(ctx context.Context, effect SideEffect) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	switch eff := effect.(type) {
	case Notification:
		if e.notifier == nil {
			e.logger.Warn("no notifier configured, dropping notification",
				logging.String("template", eff.TemplateName))
			return nil
		}
		return e.notifier.SendNotification(ctx, eff)
	case AuditEntry:
		if e.audit == nil {
			e.logger.Warn("no audit writer configured, dropping audit entry")
			return nil
		}
		return e.audit.WriteAuditEntry(ctx, eff)
	case Broadcast:
		if e.broadcaster == nil {
			e.logger.Warn("no broadcaster configured, dropping broadcast",
				logging.String("change_kind", eff.ChangeKind))
			return nil
		}
		return e.broadcaster.Broadcast(ctx, eff)
	default:
		return errors.Newf(errors.ErrCodeSideEffect, "unknown side effect kind %q", effect.Kind())
	}
}
