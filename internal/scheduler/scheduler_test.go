package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
)

type dispatchCall struct {
	action     model.ClockAction
	locationID int
}

type fakeDispatcher struct {
	calls []dispatchCall
	err   error
}

func (d *fakeDispatcher) DispatchClockJobs(ctx context.Context, action model.ClockAction, locationID int) (int, error) {
	d.calls = append(d.calls, dispatchCall{action: action, locationID: locationID})
	return 0, d.err
}

func TestSchedules_Parse(t *testing.T) {
	for _, entry := range schedules() {
		if _, err := cron.ParseStandard(entry.spec); err != nil {
			t.Errorf("spec %q does not parse: %v", entry.spec, err)
		}
	}
}

func TestSchedules_CoverBothRegionsAndActions(t *testing.T) {
	type key struct {
		action     model.ClockAction
		locationID int
	}
	seen := map[key]bool{}
	for _, entry := range schedules() {
		seen[key{action: entry.action, locationID: entry.locationID}] = true
	}

	want := []key{
		{model.ClockIn, model.LocationIndonesia},
		{model.ClockOut, model.LocationIndonesia},
		{model.ClockIn, model.LocationMalaysia},
		{model.ClockOut, model.LocationMalaysia},
	}
	for _, k := range want {
		if !seen[k] {
			t.Errorf("missing schedule for %s in region %d", k.action, k.locationID)
		}
	}
}

func TestSchedules_NextFiresOnWeekdayAtExpectedTime(t *testing.T) {
	spec, err := cron.ParseStandard("CRON_TZ=Asia/Jakarta 25 8 * * 1-5")
	if err != nil {
		t.Fatalf("parse spec: %v", err)
	}

	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 金曜の夜からの次回発火は月曜8:25になる
	friday := time.Date(2024, 3, 1, 20, 0, 0, 0, jakarta)
	next := spec.Next(friday).In(jakarta)
	if next.Weekday() != time.Monday {
		t.Errorf("next fire weekday = %s, want Monday", next.Weekday())
	}
	if next.Hour() != 8 || next.Minute() != 25 {
		t.Errorf("next fire time = %02d:%02d, want 08:25", next.Hour(), next.Minute())
	}
}

func TestNew_RegistersAllEntries(t *testing.T) {
	s, err := New(&fakeDispatcher{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := s.EntryCount(); got != len(schedules()) {
		t.Errorf("entries = %d, want %d", got, len(schedules()))
	}
}

func TestDispatch_CallsDispatcher(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	s, err := New(dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.dispatch(model.ClockIn, model.LocationIndonesia)

	if len(dispatcher.calls) != 1 {
		t.Fatalf("dispatcher calls = %d, want 1", len(dispatcher.calls))
	}
	call := dispatcher.calls[0]
	if call.action != model.ClockIn || call.locationID != model.LocationIndonesia {
		t.Errorf("dispatched %+v", call)
	}
}

func TestDispatch_ErrorDoesNotPanic(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("redis down")}
	s, err := New(dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.dispatch(model.ClockOut, model.LocationMalaysia)

	if len(dispatcher.calls) != 1 {
		t.Errorf("dispatcher calls = %d, want 1", len(dispatcher.calls))
	}
}
