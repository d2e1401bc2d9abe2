package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/caseworks/appeal-engine/internal/domain/calendar"
	"github.com/caseworks/appeal-engine/pkg/errors"
)

const (
	holidayKeyPrefix = "casework:holidays:"

	// holidayTTL keeps a stale set usable across feed outages spanning
	// restarts, while still expiring sets for decommissioned jurisdictions.
	holidayTTL = 90 * 24 * time.Hour
)

// HolidayStore caches the last successfully fetched holiday set per
// jurisdiction so a restarted worker can answer business-day questions
// before its first feed fetch.
type HolidayStore struct {
	client *Client
}

// NewHolidayStore constructs a HolidayStore over the given client.
func NewHolidayStore(client *Client) *HolidayStore {
	return &HolidayStore{client: client}
}

var _ calendar.HolidayStore = (*HolidayStore)(nil)

func holidayKey(j calendar.Jurisdiction) string {
	return holidayKeyPrefix + string(j)
}

// SaveHolidays stores the holiday set as a JSON array of dates.
func (s *HolidayStore) SaveHolidays(ctx context.Context, jurisdiction calendar.Jurisdiction, holidays []time.Time) error {
	dates := make([]string, 0, len(holidays))
	for _, h := range holidays {
		dates = append(dates, calendar.DateOnly(h).Format("2006-01-02"))
	}
	payload, err := json.Marshal(dates)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode holiday set")
	}

	if err := s.client.Redis().Set(ctx, holidayKey(jurisdiction), payload, holidayTTL).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to store holiday set")
	}
	return nil
}

// LoadHolidays returns the cached set, or an empty slice when no set is
// cached for the jurisdiction.
func (s *HolidayStore) LoadHolidays(ctx context.Context, jurisdiction calendar.Jurisdiction) ([]time.Time, error) {
	payload, err := s.client.Redis().Get(ctx, holidayKey(jurisdiction)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to load holiday set")
	}

	var dates []string
	if err := json.Unmarshal(payload, &dates); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode holiday set")
	}

	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out, nil
}
