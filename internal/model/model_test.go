package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	for _, i := range Intents() {
		got, ok := ParseIntent(string(i))
		assert.True(t, ok)
		assert.Equal(t, i, got)
	}

	got, ok := ParseIntent("appointment")
	assert.False(t, ok)
	assert.Equal(t, IntentGeneral, got)
}

func TestMedicineRecordField(t *testing.T) {
	rec := MedicineRecord{
		Name: "dolo 650",
		Fields: map[string]string{
			ColumnSideEffect: "  Nausea  ",
			ColumnHowToUse:   "nan",
			ColumnContains:   "",
		},
	}

	v, ok := rec.Field(ColumnSideEffect)
	assert.True(t, ok)
	assert.Equal(t, "Nausea", v)

	for _, col := range []string{ColumnHowToUse, ColumnContains, ColumnActionClass} {
		_, ok := rec.Field(col)
		assert.False(t, ok, col)
	}
}

func TestAlternativeHasPrice(t *testing.T) {
	assert.True(t, AlternativeCandidate{Price: 12.5}.HasPrice())
	assert.False(t, AlternativeCandidate{Price: math.Inf(1)}.HasPrice())
}

func TestPaginationNormalize(t *testing.T) {
	assert.Equal(t, Pagination{Limit: DefaultPageLimit}, Pagination{}.Normalize())
	assert.Equal(t, Pagination{Limit: MaxPageLimit, Offset: 0}, Pagination{Limit: 9000, Offset: -3}.Normalize())
	assert.Equal(t, Pagination{Limit: 5, Offset: 10}, Pagination{Limit: 5, Offset: 10}.Normalize())
}

func TestNewPredictionRecord(t *testing.T) {
	rec := NewPredictionRecord("u-1", []string{"headache", "high fever"}, "Malaria")

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "u-1", rec.UserID)
	assert.Equal(t, "headache, high fever", rec.Symptoms)
	assert.Equal(t, "Malaria", rec.Disease)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestNewOutboxEvent(t *testing.T) {
	evt, err := NewOutboxEvent(EventPredictionLogged, PredictionLoggedEvent{Disease: "Malaria"})
	require.NoError(t, err)

	assert.Equal(t, OutboxStatusPending, evt.Status)
	assert.Equal(t, EventPredictionLogged, evt.EventType)

	var payload PredictionLoggedEvent
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "Malaria", payload.Disease)
}
