package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
)

const feedBody = `{
  "england-and-wales": {
    "division": "england-and-wales",
    "events": [
      {"title": "New Year's Day", "date": "2025-01-01"},
      {"title": "Good Friday", "date": "2025-04-18"},
      {"title": "bad entry", "date": "not-a-date"}
    ]
  },
  "scotland": {
    "division": "scotland",
    "events": [
      {"title": "New Year's Day", "date": "2025-01-01"},
      {"title": "2nd January", "date": "2025-01-02"}
    ]
  }
}`

func TestFeedSourceHolidays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	src := NewFeedSource(srv.URL, srv.Client())

	got, err := src.Holidays(context.Background(), JurisdictionEnglandAndWales)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2025, time.January, 1),
		date(2025, time.April, 18),
	}, got, "malformed entries are skipped, not fatal")
}

func TestFeedSourceUnknownJurisdiction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	src := NewFeedSource(srv.URL, srv.Client())

	_, err := src.Holidays(context.Background(), Jurisdiction("narnia"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownJurisdiction))
}

func TestFeedSourceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewFeedSource(srv.URL, srv.Client())

	_, err := src.Holidays(context.Background(), JurisdictionEnglandAndWales)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHolidayFeedUnavailable))
}

func TestFileSourceHolidays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank-holidays.json")
	require.NoError(t, os.WriteFile(path, []byte(feedBody), 0o600))

	src := NewFileSource(path)

	got, err := src.Holidays(context.Background(), JurisdictionScotland)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStaticSourceHolidays(t *testing.T) {
	src := NewStaticSource(map[Jurisdiction][]time.Time{
		JurisdictionNorthernIreland: {date(2025, time.March, 17)},
	})

	got, err := src.Holidays(context.Background(), JurisdictionNorthernIreland)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = src.Holidays(context.Background(), JurisdictionScotland)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownJurisdiction))
}

// failingSource always errors, standing in for a feed outage.
type failingSource struct{}

func (failingSource) Holidays(_ context.Context, _ Jurisdiction) ([]time.Time, error) {
	return nil, errors.New(errors.ErrCodeHolidayFeedUnavailable, "feed down")
}

func TestRefreshOnceKeepsLastKnownSetOnFailure(t *testing.T) {
	cal := New(JurisdictionEnglandAndWales, englandAndWales2025())
	ref := NewRefresher(cal, failingSource{}, nil, time.Hour, logging.NewNopLogger())

	err := ref.RefreshOnce(context.Background())
	require.Error(t, err)

	assert.False(t, cal.IsBusinessDay(date(2025, time.January, 1)), "holiday set survives a failed refresh")
}

func TestRefreshOnceReplacesSetOnSuccess(t *testing.T) {
	cal := New(JurisdictionEnglandAndWales, nil)
	src := NewStaticSource(map[Jurisdiction][]time.Time{
		JurisdictionEnglandAndWales: {date(2025, time.January, 1)},
	})
	ref := NewRefresher(cal, src, nil, time.Hour, logging.NewNopLogger())

	require.NoError(t, ref.RefreshOnce(context.Background()))
	assert.False(t, cal.IsBusinessDay(date(2025, time.January, 1)))
}

// memoryStore is an in-memory HolidayStore.
type memoryStore struct {
	sets map[Jurisdiction][]time.Time
}

func (m *memoryStore) SaveHolidays(_ context.Context, j Jurisdiction, holidays []time.Time) error {
	m.sets[j] = holidays
	return nil
}

func (m *memoryStore) LoadHolidays(_ context.Context, j Jurisdiction) ([]time.Time, error) {
	return m.sets[j], nil
}

func TestPrimeLoadsStoredSet(t *testing.T) {
	store := &memoryStore{sets: map[Jurisdiction][]time.Time{
		JurisdictionEnglandAndWales: {date(2025, time.January, 1)},
	}}
	cal := New(JurisdictionEnglandAndWales, nil)
	ref := NewRefresher(cal, failingSource{}, store, time.Hour, logging.NewNopLogger())

	ref.Prime(context.Background())
	assert.False(t, cal.IsBusinessDay(date(2025, time.January, 1)))
}

func TestRefreshOnceWritesThroughToStore(t *testing.T) {
	store := &memoryStore{sets: map[Jurisdiction][]time.Time{}}
	cal := New(JurisdictionEnglandAndWales, nil)
	src := NewStaticSource(map[Jurisdiction][]time.Time{
		JurisdictionEnglandAndWales: {date(2025, time.January, 1)},
	})
	ref := NewRefresher(cal, src, store, time.Hour, logging.NewNopLogger())

	require.NoError(t, ref.RefreshOnce(context.Background()))
	assert.Len(t, store.sets[JurisdictionEnglandAndWales], 1)
}
