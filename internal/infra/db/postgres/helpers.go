package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// dashToEmpty reverses stringOrDash when reading back.
func dashToEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

// toJSON encodes v for a JSON column; nil pointers become SQL NULL.
func toJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return string(b), nil
}

// fromJSON decodes a nullable JSON column into v.
func fromJSON(raw sql.NullString, v any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), v)
}

// slotColumn maps a time slot to its counter column. Only these fixed names
// are ever interpolated into SQL.
func slotColumn(slot users.TimeSlot) (string, error) {
	switch slot {
	case users.SlotMorning:
		return "scan_morning", nil
	case users.SlotAfternoon:
		return "scan_afternoon", nil
	case users.SlotEvening:
		return "scan_evening", nil
	case users.SlotNight:
		return "scan_night", nil
	}
	return "", fmt.Errorf("unknown time slot %q", slot)
}
