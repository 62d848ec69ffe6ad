package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdaySet(t *testing.T) {
	set := NewWeekdaySet(time.Monday, time.Friday, time.Monday, time.Weekday(9))

	assert.True(t, set.Has(time.Monday))
	assert.True(t, set.Has(time.Friday))
	assert.False(t, set.Has(time.Sunday))
	assert.False(t, set.Has(time.Weekday(-1)))
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, set.Days())
	assert.Equal(t, NewWeekdaySet(time.Friday), set.Intersect(NewWeekdaySet(time.Friday, time.Saturday)))
	assert.True(t, set.Intersect(NewWeekdaySet(time.Tuesday)).IsEmpty())
}

func TestRecurrenceJSON(t *testing.T) {
	t.Run("weekly round trip keeps the weekday set", func(t *testing.T) {
		data, err := json.Marshal(WeeklyOn(time.Tuesday, time.Monday))
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"weekly","days":[1,2]}`, string(data))

		var decoded Recurrence
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, decoded.IsWeekly())
		assert.Equal(t, NewWeekdaySet(time.Monday, time.Tuesday), decoded.Days())
	})

	t.Run("none encodes without days", func(t *testing.T) {
		data, err := json.Marshal(NoRecurrence())
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"none"}`, string(data))
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		var decoded Recurrence
		err := json.Unmarshal([]byte(`{"type":"monthly"}`), &decoded)
		assert.ErrorIs(t, err, ErrUnknownRecurrence)
	})

	t.Run("rejects weekdays outside the week", func(t *testing.T) {
		var decoded Recurrence
		err := json.Unmarshal([]byte(`{"type":"weekly","days":[1,7]}`), &decoded)
		assert.ErrorIs(t, err, ErrInvalidWeekday)
	})

	t.Run("schedule without recurrence decodes as none", func(t *testing.T) {
		var s Schedule
		require.NoError(t, json.Unmarshal([]byte(`{"id":"s-1","room_id":"r-1","start":"2024-01-01T10:00:00Z","end":"2024-01-01T11:00:00Z"}`), &s))
		assert.Equal(t, RecurrenceNone, s.Recurrence.Type())
	})
}
