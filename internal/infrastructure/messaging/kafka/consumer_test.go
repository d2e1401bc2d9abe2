package kafka

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseworks/appeal-engine/internal/application/orchestrator"
	"github.com/caseworks/appeal-engine/internal/domain/appeal"
	"github.com/caseworks/appeal-engine/internal/domain/calendar"
	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

type fakeReader struct {
	queue     []segkafka.Message
	committed []segkafka.Message
}

func (r *fakeReader) FetchMessage(_ context.Context) (segkafka.Message, error) {
	if len(r.queue) == 0 {
		return segkafka.Message{}, io.EOF
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...segkafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

// stubRepo is an in-memory CaseRepository serving one case.
type stubRepo struct {
	c       *appeal.AppealCase
	saveErr error
	saved   *appeal.TransitionDelta
}

func (s *stubRepo) LoadCase(_ context.Context, id common.ID) (*appeal.AppealCase, error) {
	if s.c == nil || s.c.ID != id {
		return nil, errors.Newf(errors.ErrCodeCaseNotFound, "appeal case %s not found", id)
	}
	clone := *s.c
	return appeal.Rehydrate(clone, s.c.Status()), nil
}

func (s *stubRepo) SaveCaseTransition(_ context.Context, _ common.ID, _ int64, delta appeal.TransitionDelta) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = &delta
	return nil
}

func (s *stubRepo) CreateCase(_ context.Context, _ *appeal.AppealCase) error { return nil }

type stubObligations struct{}

func (stubObligations) HasPlanningObligation(_ context.Context, _ common.ID) (bool, error) {
	return false, nil
}

func newConsumerFixture(t *testing.T, repo *stubRepo) (*TransitionConsumer, *fakeReader, *fakeWriter) {
	t.Helper()
	cal := calendar.New(calendar.JurisdictionEnglandAndWales, nil)
	engine := timetable.NewEngine(cal, logging.NewNopLogger())
	orc := orchestrator.New(repo, engine, stubObligations{}, logging.NewNopLogger(), nil, nil)
	exec := orchestrator.NewExecutor(nil, nil, nil, logging.NewNopLogger(), nil, time.Second)

	writer := &fakeWriter{}
	producer := newProducerWithWriter(writer, logging.NewNopLogger())
	reader := &fakeReader{}
	consumer := newTransitionConsumerWithReader(reader, orc, exec, producer, logging.NewNopLogger())
	return consumer, reader, writer
}

func startedCase() *appeal.AppealCase {
	started := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	c := appeal.NewCase("APP/Q9999/W/25/0000002", timetable.AppealS78, timetable.ProcedureHearing, calendar.JurisdictionEnglandAndWales, started)
	c.CaseStartedAt = &started
	return appeal.Rehydrate(*c, appeal.StatusStatements)
}

func transitionBody(t *testing.T, caseID common.ID, event string) []byte {
	t.Helper()
	body, err := json.Marshal(transitionMessage{
		CaseID:  caseID.String(),
		Event:   event,
		ActorID: "officer-1",
	})
	require.NoError(t, err)
	return body
}

func TestRunAppliesTransitionAndCommits(t *testing.T) {
	c := startedCase()
	repo := &stubRepo{c: c}
	consumer, reader, _ := newConsumerFixture(t, repo)
	reader.queue = []segkafka.Message{{
		Topic: TopicTransitionRequest,
		Value: transitionBody(t, c.ID, string(appeal.EventWithdraw)),
	}}

	err := consumer.Run(context.Background())
	require.Error(t, err, "queue exhaustion surfaces as a fetch error")

	require.NotNil(t, repo.saved)
	assert.Equal(t, appeal.StatusWithdrawn, repo.saved.NewStatus)
	assert.Len(t, reader.committed, 1)
}

func TestRunSchedulesEventFromMessage(t *testing.T) {
	c := startedCase()
	repo := &stubRepo{c: c}
	consumer, reader, _ := newConsumerFixture(t, repo)

	start := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	body, err := json.Marshal(transitionMessage{
		CaseID:  c.ID.String(),
		Event:   string(appeal.EventSetUp),
		ActorID: "officer-1",
		EventDetails: &eventMessage{
			Kind:      string(appeal.EventKindHearing),
			StartTime: start,
			Address:   &addressMessage{Line1: "1 High Street", Postcode: "BS1 1AA"},
		},
	})
	require.NoError(t, err)
	reader.queue = []segkafka.Message{{Topic: TopicTransitionRequest, Value: body}}

	_ = consumer.Run(context.Background())

	require.NotNil(t, repo.saved)
	assert.Equal(t, appeal.StatusEvent, repo.saved.NewStatus)
	require.NotNil(t, repo.saved.UpsertEvent)
	assert.Equal(t, appeal.EventKindHearing, repo.saved.UpsertEvent.Kind)
	assert.True(t, repo.saved.UpsertEvent.StartTime.Equal(start))
	require.NotNil(t, repo.saved.UpsertEvent.Address)
	assert.Equal(t, "1 High Street", repo.saved.UpsertEvent.Address.Line1)
	assert.Len(t, reader.committed, 1)
}

func TestRunDeadLettersMalformedMessage(t *testing.T) {
	repo := &stubRepo{c: startedCase()}
	consumer, reader, writer := newConsumerFixture(t, repo)
	reader.queue = []segkafka.Message{{
		Topic: TopicTransitionRequest,
		Value: []byte("not json"),
	}}

	_ = consumer.Run(context.Background())

	require.Len(t, writer.messages, 1)
	assert.Equal(t, TopicTransitionDLQ, writer.messages[0].Topic)
	assert.Len(t, reader.committed, 1, "dead-lettered messages are committed, not redelivered")
	assert.Nil(t, repo.saved)
}

func TestRunDeadLettersRejectedTransition(t *testing.T) {
	c := startedCase()
	repo := &stubRepo{c: c}
	consumer, reader, writer := newConsumerFixture(t, repo)
	reader.queue = []segkafka.Message{{
		Topic: TopicTransitionRequest,
		Value: transitionBody(t, c.ID, string(appeal.EventDecisionIssued)),
	}}

	_ = consumer.Run(context.Background())

	require.Len(t, writer.messages, 1)
	assert.Equal(t, TopicTransitionDLQ, writer.messages[0].Topic)
	assert.Len(t, reader.committed, 1)
}

func TestRunLeavesInfrastructureFailuresUncommitted(t *testing.T) {
	c := startedCase()
	repo := &stubRepo{c: c, saveErr: errors.Persistence("store down")}
	consumer, reader, writer := newConsumerFixture(t, repo)
	reader.queue = []segkafka.Message{{
		Topic: TopicTransitionRequest,
		Value: transitionBody(t, c.ID, string(appeal.EventWithdraw)),
	}}

	_ = consumer.Run(context.Background())

	assert.Empty(t, writer.messages, "retryable failures are not dead-lettered")
	assert.Empty(t, reader.committed, "offset stays uncommitted for redelivery")
}
