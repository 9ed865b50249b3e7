package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/garagebook/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	now := time.Date(2024, time.June, 10, 15, 30, 0, 0, time.UTC)
	today := timex.DateOf(now)

	tests := []struct {
		name string
		next timex.Date
		want ServiceStatus
	}{
		{name: "long overdue", next: today.AddDays(-90), want: StatusOverdue},
		{name: "yesterday", next: today.AddDays(-1), want: StatusOverdue},
		{name: "today", next: today, want: StatusUpcoming},
		{name: "in three days", next: today.AddDays(3), want: StatusUpcoming},
		{name: "last day of window", next: today.AddDays(6), want: StatusUpcoming},
		{name: "window edge", next: today.AddDays(7), want: StatusScheduled},
		{name: "in thirty days", next: today.AddDays(30), want: StatusScheduled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.next, now))
		})
	}
}

func TestClassify_TimeOfDayDoesNotMatter(t *testing.T) {
	next := timex.NewDate(2024, time.June, 10)

	early := time.Date(2024, time.June, 10, 0, 0, 1, 0, time.UTC)
	late := time.Date(2024, time.June, 10, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, StatusUpcoming, Classify(next, early))
	assert.Equal(t, StatusUpcoming, Classify(next, late))
	assert.Equal(t, StatusOverdue, Classify(next, late.Add(time.Second)))
}

func TestClassify_UsesLocationOfNow(t *testing.T) {
	next := timex.NewDate(2024, time.June, 10)
	// 2024-06-10 20:00 UTC is already 2024-06-11 in UTC+10.
	now := time.Date(2024, time.June, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, StatusUpcoming, Classify(next, now))
	assert.Equal(t, StatusOverdue, Classify(next, now.In(time.FixedZone("UTC+10", 10*3600))))
}

func TestSummary_Add(t *testing.T) {
	var s Summary
	for _, st := range []ServiceStatus{StatusOverdue, StatusUpcoming, StatusUpcoming, StatusScheduled} {
		s.Add(st)
	}
	assert.Equal(t, Summary{Total: 4, Overdue: 1, Upcoming: 2, Scheduled: 1}, s)
}

func TestVehicleView_JSON(t *testing.T) {
	v := Vehicle{
		ID:              3,
		AccountID:       99,
		OwnerName:       "Jane",
		Phone:           "555",
		VehicleNumber:   "AB123",
		Make:            "Honda",
		Model:           "City",
		LastServiceDate: timex.NewDate(2024, time.January, 1),
		NextServiceDate: timex.NewDate(2024, time.January, 2),
		CreatedAt:       time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(v.ViewAt(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": 3,
		"ownerName": "Jane",
		"phone": "555",
		"vehicleNumber": "AB123",
		"make": "Honda",
		"model": "City",
		"lastServiceDate": "2024-01-01",
		"nextServiceDate": "2024-01-02",
		"notes": "",
		"createdAt": "2024-01-01T09:00:00Z",
		"status": "overdue"
	}`, string(b))
}
