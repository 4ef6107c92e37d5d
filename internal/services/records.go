package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	repo "github.com/pagelift/pagelift-backend/internal/data/repos/pages"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

// RecordSource resolves a section's data config against stored records at
// render time.
type RecordSource interface {
	Resolve(dbc dbctx.Context, cfg *snapshot.DataConfig) (map[string]string, error)
}

type recordSource struct {
	log        *logger.Logger
	recordRepo repo.PageRecordRepo
}

func NewRecordSource(baseLog *logger.Logger, recordRepo repo.PageRecordRepo) RecordSource {
	return &recordSource{
		log:        baseLog.With("service", "RecordSource"),
		recordRepo: recordRepo,
	}
}

// Resolve loads the collection, applies the equality filter, and projects
// the configured fields. The result shape depends on the match count: one
// match yields that record's field values directly, several matches yield a
// comma-joined list per field, and zero matches (or an unknown collection)
// yield an empty map. Consumers render whatever keys come back.
func (s *recordSource) Resolve(dbc dbctx.Context, cfg *snapshot.DataConfig) (map[string]string, error) {
	if cfg == nil || cfg.Collection == "" {
		return map[string]string{}, nil
	}
	rows, err := s.recordRepo.ListByCollection(dbc, cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("load collection %q: %w", cfg.Collection, err)
	}

	var matched []map[string]interface{}
	for _, row := range rows {
		var payload map[string]interface{}
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			s.log.Warn("skipping undecodable record",
				"record_id", row.ID, "collection", cfg.Collection, "error", err)
			continue
		}
		if matchesFilter(payload, cfg.Filter) {
			matched = append(matched, payload)
		}
	}
	if len(matched) == 0 {
		return map[string]string{}, nil
	}

	fields := cfg.Fields
	if len(fields) == 0 {
		fields = allScalarFields(matched)
	}
	out := make(map[string]string, len(fields))
	if len(matched) == 1 {
		for _, field := range fields {
			out[field] = scalarString(matched[0][field])
		}
		return out, nil
	}
	for _, field := range fields {
		parts := make([]string, 0, len(matched))
		for _, payload := range matched {
			if v := scalarString(payload[field]); v != "" {
				parts = append(parts, v)
			}
		}
		out[field] = strings.Join(parts, ", ")
	}
	return out, nil
}

// allScalarFields is the projection when the config names no fields: every
// scalar key seen across the matched payloads, sorted for determinism.
func allScalarFields(matched []map[string]interface{}) []string {
	seen := map[string]struct{}{}
	for _, payload := range matched {
		for key, v := range payload {
			if scalarString(v) != "" {
				seen[key] = struct{}{}
			}
		}
	}
	fields := make([]string, 0, len(seen))
	for key := range seen {
		fields = append(fields, key)
	}
	sort.Strings(fields)
	return fields
}

func matchesFilter(payload map[string]interface{}, filter map[string]string) bool {
	for key, want := range filter {
		if scalarString(payload[key]) != want {
			return false
		}
	}
	return true
}

// scalarString renders a decoded JSON value for display. Objects and arrays
// have no single display form and come back empty.
func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
