package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/caseworks/appeal-engine/internal/application/orchestrator"
	"github.com/caseworks/appeal-engine/internal/domain/appeal"
	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

// ConsumerConfig holds configuration for the transition consumer.
type ConsumerConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	GroupID        string        `mapstructure:"group_id"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
}

// transitionMessage is the wire form of a transition request.
type transitionMessage struct {
	CaseID           string               `json:"case_id"`
	Event            string               `json:"event"`
	ActorID          string               `json:"actor_id"`
	CaseStartedAt    *time.Time           `json:"case_started_at,omitempty"`
	NewProcedureType *string              `json:"new_procedure_type,omitempty"`
	DueDateOverrides map[string]time.Time `json:"due_date_overrides,omitempty"`
	EventDetails     *eventMessage        `json:"event_details,omitempty"`
}

// eventMessage is the wire form of hearing/inquiry scheduling details.
type eventMessage struct {
	Kind          string          `json:"kind"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	EstimatedDays int             `json:"estimated_days"`
	Address       *addressMessage `json:"address,omitempty"`
}

type addressMessage struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	Town     string `json:"town"`
	County   string `json:"county"`
	Postcode string `json:"postcode"`
}

// readerInterface abstracts kafka.Reader for testing.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TransitionConsumer reads transition requests off kafka and drives them
// through the orchestrator.  Invalid or rejected requests go to the dead
// letter topic; infrastructure failures are retried by not committing.
type TransitionConsumer struct {
	reader       readerInterface
	orchestrator *orchestrator.Orchestrator
	executor     *orchestrator.Executor
	producer     *Producer
	logger       logging.Logger
}

// NewTransitionConsumer constructs a TransitionConsumer.
func NewTransitionConsumer(cfg ConsumerConfig, orc *orchestrator.Orchestrator, exec *orchestrator.Executor, producer *Producer, logger logging.Logger) (*TransitionConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "appeal-engine-transitions"
	}
	if cfg.CommitInterval == 0 {
		cfg.CommitInterval = time.Second
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          TopicTransitionRequest,
		CommitInterval: cfg.CommitInterval,
	})

	return &TransitionConsumer{
		reader:       reader,
		orchestrator: orc,
		executor:     exec,
		producer:     producer,
		logger:       logger.Named("kafka.transitions"),
	}, nil
}

// newTransitionConsumerWithReader injects a reader, for tests.
func newTransitionConsumerWithReader(reader readerInterface, orc *orchestrator.Orchestrator, exec *orchestrator.Executor, producer *Producer, logger logging.Logger) *TransitionConsumer {
	return &TransitionConsumer{
		reader:       reader,
		orchestrator: orc,
		executor:     exec,
		producer:     producer,
		logger:       logger,
	}
}

// Run consumes until ctx is cancelled.
func (c *TransitionConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to fetch transition request")
		}

		if err := c.handle(ctx, msg); err != nil {
			// Infrastructure failure: leave the message uncommitted so the
			// group redelivers it.
			c.logger.Error("transition handling failed, will redeliver", logging.Err(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("failed to commit offset", logging.Err(err))
		}
	}
}

// handle processes one message.  Returns an error only for retryable
// infrastructure failures; validation and transition rejections are
// dead-lettered and considered handled.
func (c *TransitionConsumer) handle(ctx context.Context, msg kafka.Message) error {
	var tm transitionMessage
	if err := json.Unmarshal(msg.Value, &tm); err != nil {
		c.deadLetter(ctx, msg, "malformed transition request: "+err.Error())
		return nil
	}

	req := orchestrator.Request{
		CaseID:  common.ID(tm.CaseID),
		Event:   appeal.Event(tm.Event),
		ActorID: common.ActorID(tm.ActorID),
		Payload: orchestrator.Payload{
			CaseStartedAt: tm.CaseStartedAt,
		},
	}
	if tm.NewProcedureType != nil {
		proc := timetable.ProcedureType(*tm.NewProcedureType)
		req.Payload.NewProcedureType = &proc
	}
	if len(tm.DueDateOverrides) > 0 {
		req.Payload.DueDateOverrides = make(map[timetable.Field]time.Time, len(tm.DueDateOverrides))
		for f, d := range tm.DueDateOverrides {
			req.Payload.DueDateOverrides[timetable.Field(f)] = d
		}
	}
	if tm.EventDetails != nil {
		details := &orchestrator.EventDetails{
			Kind:          appeal.EventKind(tm.EventDetails.Kind),
			StartTime:     tm.EventDetails.StartTime,
			EndTime:       tm.EventDetails.EndTime,
			EstimatedDays: tm.EventDetails.EstimatedDays,
		}
		if a := tm.EventDetails.Address; a != nil {
			details.Address = &appeal.Address{
				Line1:    a.Line1,
				Line2:    a.Line2,
				Town:     a.Town,
				County:   a.County,
				Postcode: a.Postcode,
			}
		}
		req.Payload.Event = details
	}

	out, err := c.orchestrator.Apply(ctx, req)
	if err != nil {
		code := errors.GetCode(err)
		if errors.IsClientError(code) {
			// Deterministic rejection; retrying would never succeed.
			c.deadLetter(ctx, msg, err.Error())
			return nil
		}
		return err
	}

	c.executor.Dispatch(ctx, out.SideEffects)
	return nil
}

func (c *TransitionConsumer) deadLetter(ctx context.Context, msg kafka.Message, reason string) {
	err := c.producer.Publish(ctx, &common.ProducerMessage{
		Topic: TopicTransitionDLQ,
		Key:   msg.Key,
		Value: msg.Value,
		Headers: map[string]string{
			"dlq-reason": reason,
		},
	})
	if err != nil {
		c.logger.Error("failed to dead-letter transition request",
			logging.String("reason", reason),
			logging.Err(err))
		return
	}
	c.logger.Warn("transition request dead-lettered", logging.String("reason", reason))
}

// Close releases the reader.
func (c *TransitionConsumer) Close() error {
	return c.reader.Close()
}
