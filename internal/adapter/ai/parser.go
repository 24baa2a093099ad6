package ai

import (
	"encoding/json"
	"fmt"
	"strconv"

	"cyberbrief/internal/domain"
)

// Judgment is one parsed model verdict: a 1-based ordinal local to the
// batch and a numeric score.
type Judgment struct {
	Ordinal int
	Score   float64
}

// parseJudgments extracts the judgment array stored under key from raw
// model output. Structurally invalid payloads return ErrSchemaInvalid so
// the attempt loop can treat them as recoverable. Individual records
// with out-of-range ordinals or non-coercible scores are discarded
// silently; they never fail the batch.
func (s *Scorer) parseJudgments(raw, key string, batchSize int) ([]Judgment, error) {
	cleaned, ok := s.cleaner.CleanAndValidate(raw)
	if !ok {
		return nil, fmt.Errorf("op=ai.parse: %w", domain.ErrSchemaInvalid)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("op=ai.parse: %w", domain.ErrSchemaInvalid)
	}

	arr, found := payload[key]
	if !found {
		// A valid object without the expected key carries zero judgments.
		return nil, nil
	}

	var records []map[string]any
	if err := json.Unmarshal(arr, &records); err != nil {
		return nil, fmt.Errorf("op=ai.parse: %w", domain.ErrSchemaInvalid)
	}

	judgments := make([]Judgment, 0, len(records))
	for _, rec := range records {
		ordinal, ok := coerceInt(rec["id"])
		if !ok || ordinal < 1 || ordinal > batchSize {
			continue
		}
		score, ok := coerceFloat(rec["score"])
		if !ok {
			continue
		}
		judgments = append(judgments, Judgment{Ordinal: ordinal, Score: score})
	}
	return judgments, nil
}

// singleVerdict is the per-item scoring payload.
type singleVerdict struct {
	Score  float64
	Reason string
}

// parseSingle extracts a {"score", "reason"} object from raw output.
func (s *Scorer) parseSingle(raw string) (singleVerdict, error) {
	cleaned, ok := s.cleaner.CleanAndValidate(raw)
	if !ok {
		return singleVerdict{}, fmt.Errorf("op=ai.parse_single: %w", domain.ErrSchemaInvalid)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return singleVerdict{}, fmt.Errorf("op=ai.parse_single: %w", domain.ErrSchemaInvalid)
	}

	score, ok := coerceFloat(payload["score"])
	if !ok {
		return singleVerdict{}, fmt.Errorf("op=ai.parse_single: %w", domain.ErrSchemaInvalid)
	}
	reason, _ := payload["reason"].(string)
	return singleVerdict{Score: score, Reason: reason}, nil
}

func coerceFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceInt(v any) (int, bool) {
	f, ok := coerceFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}
