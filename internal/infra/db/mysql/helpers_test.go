package mysql

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
)

func TestDashRoundTrip(t *testing.T) {
	assert.Equal(t, "-", stringOrDash("  "))
	assert.Equal(t, "", dashToEmpty(stringOrDash("")))
	assert.Equal(t, "x", dashToEmpty(stringOrDash("x")))
}

func TestToJSONNilBecomesNull(t *testing.T) {
	var fb *domain.Feedback
	v, err := toJSON(fb)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = toJSON([]string{"a"})
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, v)
}

func TestFromJSONSkipsNull(t *testing.T) {
	var out []string
	require.NoError(t, fromJSON(sql.NullString{}, &out))
	assert.Nil(t, out)

	require.NoError(t, fromJSON(sql.NullString{String: `["x","y"]`, Valid: true}, &out))
	assert.Equal(t, []string{"x", "y"}, out)
}

func TestSlotColumnWhitelist(t *testing.T) {
	for _, slot := range []users.TimeSlot{users.SlotMorning, users.SlotAfternoon, users.SlotEvening, users.SlotNight} {
		col, err := slotColumn(slot)
		require.NoError(t, err)
		assert.Equal(t, "scan_"+string(slot), col)
	}
	_, err := slotColumn("midnight; DROP TABLE app_users")
	assert.Error(t, err)
}

func TestSchemaHasEveryTable(t *testing.T) {
	for _, table := range []string{"label_analyses", "conversations", "conversation_messages", "app_users"} {
		assert.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}

func TestWithFoundRows(t *testing.T) {
	dsn, err := WithFoundRows("app:p@ss@tcp(db:3306)/copilot?parseTime=true&charset=utf8mb4&loc=UTC")
	require.NoError(t, err)
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "/copilot")

	_, err = WithFoundRows("not a dsn")
	assert.Error(t, err)
}
