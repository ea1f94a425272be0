package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-roster-api/internal/models"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

func strPtr(v string) *string { return &v }

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := weekcal.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func assertAppError(t *testing.T, err error, target *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	assert.Equal(t, target.Code, appErr.Code)
}

func TestValidateTimeRange(t *testing.T) {
	cases := []struct {
		name  string
		start string
		end   string
		ok    bool
	}{
		{"regular shift", "10:00", "18:00", true},
		{"earliest start and latest end", "09:45", "21:00", true},
		{"starts too early", "09:00", "17:00", false},
		{"ends too late", "10:00", "21:30", false},
		{"end before start", "12:00", "11:00", false},
		{"zero length", "12:00", "12:00", false},
		{"bad format", "9:45", "17:00", false},
		{"bad minutes", "10:60", "17:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTimeRange(tc.start, tc.end)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assertAppError(t, err, appErrors.ErrValidation)
		})
	}
}

func TestValidateStartTimeRejectsLatestEnd(t *testing.T) {
	assert.Error(t, ValidateStartTime("21:00"))
	assert.NoError(t, ValidateStartTime("20:59"))
}

func TestValidateEntry(t *testing.T) {
	assert.NoError(t, ValidateEntry(EntryInput{IsWorking: false}))
	assert.NoError(t, ValidateEntry(EntryInput{IsWorking: true}))
	assert.NoError(t, ValidateEntry(EntryInput{IsWorking: true, StartTime: strPtr("10:00"), EndTime: strPtr("18:00")}))

	assert.Error(t, ValidateEntry(EntryInput{IsWorking: false, StartTime: strPtr("10:00"), EndTime: strPtr("18:00")}))
	assert.Error(t, ValidateEntry(EntryInput{IsWorking: true, StartTime: strPtr("10:00")}))
	assert.Error(t, ValidateEntry(EntryInput{IsWorking: true, EndTime: strPtr("18:00")}))
}

func TestNormalizeUpsertInputChecksDateMatchesDay(t *testing.T) {
	in := UpsertEntryInput{StaffID: "s-1", DayOfWeek: "monday", Date: mustDate(t, "2025-01-06"), EntryInput: EntryInput{IsWorking: true}}
	out, err := normalizeUpsertInput(in)
	require.NoError(t, err)
	assert.Equal(t, "Monday", out.DayOfWeek)

	in.Date = mustDate(t, "2025-01-07")
	_, err = normalizeUpsertInput(in)
	assertAppError(t, err, appErrors.ErrValidation)

	in.DayOfWeek = "Funday"
	_, err = normalizeUpsertInput(in)
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestGroupByWeekSkipsUndatedRows(t *testing.T) {
	first := mustDate(t, "2025-01-06")
	second := mustDate(t, "2025-01-14")
	entries := []models.ScheduleEntry{
		{StaffID: "a", StaffName: "Ana", DayOfWeek: "Monday", ScheduleDate: &first},
		{StaffID: "a", StaffName: "Ana", DayOfWeek: "Tuesday", ScheduleDate: &second},
		{StaffID: "a", StaffName: "Ana", DayOfWeek: "Friday"},
	}

	weeks := groupByWeek(entries, 0)
	require.Len(t, weeks, 2)
	assert.Equal(t, mustDate(t, "2025-01-12"), weeks[0].WeekStart)
	assert.Equal(t, mustDate(t, "2025-01-05"), weeks[1].WeekStart)
	assert.Len(t, weeks[0].Entries, 1)

	limited := groupByWeek(entries, 1)
	require.Len(t, limited, 1)
	assert.Equal(t, mustDate(t, "2025-01-12"), limited[0].WeekStart)
}
