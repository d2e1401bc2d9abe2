package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caseworks/appeal-engine/pkg/errors"
)

// HolidaySource supplies the holiday set for a jurisdiction.  Implementations
// may fetch from an external feed, read a local file, or serve a fixed set.
// Fetch failures are never fatal to callers: the Refresher keeps the
// last-known-good set.
type HolidaySource interface {
	Holidays(ctx context.Context, jurisdiction Jurisdiction) ([]time.Time, error)
}

// StaticSource serves a fixed holiday set.  Intended for tests and for
// deployments that pin holidays in configuration.
type StaticSource struct {
	sets map[Jurisdiction][]time.Time
}

// NewStaticSource builds a StaticSource from per-jurisdiction date lists.
func NewStaticSource(sets map[Jurisdiction][]time.Time) *StaticSource {
	return &StaticSource{sets: sets}
}

func (s *StaticSource) Holidays(_ context.Context, jurisdiction Jurisdiction) ([]time.Time, error) {
	set, ok := s.sets[jurisdiction]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownJurisdiction, "no holiday set for jurisdiction %q", jurisdiction)
	}
	return set, nil
}

// feedDocument mirrors the bank-holidays JSON feed layout: a top-level object
// keyed by jurisdiction, each holding an event list.
type feedDocument map[string]struct {
	Events []struct {
		Date  string `json:"date"`
		Title string `json:"title"`
	} `json:"events"`
}

// FeedSource fetches holiday sets from an HTTP JSON feed (gov.uk
// bank-holidays format).
type FeedSource struct {
	url    string
	client *http.Client
}

// NewFeedSource constructs a FeedSource for the given feed URL.  A nil client
// falls back to a 10-second-timeout default.
func NewFeedSource(url string, client *http.Client) *FeedSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FeedSource{url: url, client: client}
}

func (s *FeedSource) Holidays(ctx context.Context, jurisdiction Jurisdiction) ([]time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeHolidayFeedUnavailable, "failed to build feed request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeHolidayFeedUnavailable, "holiday feed request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeHolidayFeedUnavailable, "holiday feed returned status %d", resp.StatusCode)
	}

	var doc feedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode holiday feed")
	}

	return parseFeedEvents(doc, jurisdiction)
}

// FileSource reads holiday sets from a local JSON file in the same layout as
// the HTTP feed.  Pair with a Watcher for hot reload on file change.
type FileSource struct {
	path string
}

// NewFileSource constructs a FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the watched file path.
func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Holidays(_ context.Context, jurisdiction Jurisdiction) ([]time.Time, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeHolidayFeedUnavailable, fmt.Sprintf("failed to read holiday file %s", s.path))
	}

	var doc feedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode holiday file")
	}

	return parseFeedEvents(doc, jurisdiction)
}

func parseFeedEvents(doc feedDocument, jurisdiction Jurisdiction) ([]time.Time, error) {
	entry, ok := doc[string(jurisdiction)]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownJurisdiction, "feed has no division %q", jurisdiction)
	}

	out := make([]time.Time, 0, len(entry.Events))
	for _, ev := range entry.Events {
		d, err := time.Parse(dayKey, ev.Date)
		if err != nil {
			// One malformed entry must not discard the whole set.
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
