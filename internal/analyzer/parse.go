package analyzer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Extraction holds the structured fields pulled from a tender text.
type Extraction struct {
	Sector          string
	EstimatedBudget float64
	Location        string
	Deadline        *string
}

const (
	sectorUndetermined  = "Undetermined"
	locationUnspecified = "Unspecified"
)

// defaultExtraction is used when the model response cannot be parsed.
func defaultExtraction() Extraction {
	return Extraction{
		Sector:          sectorUndetermined,
		EstimatedBudget: 0,
		Location:        locationUnspecified,
	}
}

// parseExtraction reads the model's JSON answer. Models tend to wrap
// JSON in markdown fences or quote numbers, so everything is coerced.
func parseExtraction(raw string) (Extraction, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return defaultExtraction(), fmt.Errorf("parse extraction response: %w", err)
	}

	ext := Extraction{
		Sector:          clip(coerceString(data["sector"]), 255),
		EstimatedBudget: coerceFloat(data["estimated_budget"]),
		Location:        clip(coerceString(data["location"]), 255),
	}
	if ext.Sector == "" {
		ext.Sector = sectorUndetermined
	}
	if math.IsNaN(ext.EstimatedBudget) || ext.EstimatedBudget < 0 {
		ext.EstimatedBudget = 0
	}
	if ext.Location == "" {
		ext.Location = locationUnspecified
	}
	if d := coerceString(data["deadline"]); d != "" && !strings.EqualFold(d, "null") {
		ext.Deadline = &d
	}
	return ext, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
