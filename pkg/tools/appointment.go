package tools

import (
	"context"
	"fmt"
	"time"
)

// acceptedDateLayouts lists the date formats callers (and slot-extracted
// speech) may hand the scheduler in, tried in order.
var acceptedDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"02-01-2006",
	"02/01/2006",
	"Jan 2, 2006",
	"Jan 2, 2006 15:04",
	"2 January 2006",
}

func parseAppointmentTime(s string, now time.Time) (time.Time, error) {
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if !t.Before(now.Truncate(24 * time.Hour)) {
				return t, nil
			}
			return time.Time{}, fmt.Errorf("appointment time %q is in the past", s)
		}
	}
	return time.Time{}, fmt.Errorf("could not parse appointment time %q", s)
}

// Appointment is the booking handed to a CalendarSink.
type Appointment struct {
	SessionID string
	BranchID  string
	At        time.Time
	Purpose   string
}

// CalendarSink persists or forwards a branch-visit appointment.
type CalendarSink interface {
	Book(ctx context.Context, appt Appointment) (id string, err error)
}

// StubCalendarSink keeps appointments in memory.
type StubCalendarSink struct {
	Booked []Appointment
}

func (s *StubCalendarSink) Book(ctx context.Context, appt Appointment) (string, error) {
	s.Booked = append(s.Booked, appt)
	return fmt.Sprintf("appt-%d", len(s.Booked)), nil
}

// Clock lets tests control "now" without depending on the wall clock.
type Clock func() time.Time

// NewAppointmentSchedulerHandler builds the AppointmentScheduler tool: it
// parses a free-form date/time string, rejects any time before the start of
// the current UTC day, and books the visit through sink.
func NewAppointmentSchedulerHandler(sink CalendarSink, now Clock) Handler {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, args map[string]any) (Result, error) {
		sessionID, _ := args["session_id"].(string)
		branchID, _ := args["branch_id"].(string)
		when, _ := args["requested_time"].(string)
		purpose, _ := args["purpose"].(string)

		at, err := parseAppointmentTime(when, now())
		if err != nil {
			return Result{}, err
		}
		if branchID == "" {
			return Result{}, fmt.Errorf("branch_id is required")
		}

		id, err := sink.Book(ctx, Appointment{SessionID: sessionID, BranchID: branchID, At: at, Purpose: purpose})
		if err != nil {
			return Result{}, err
		}

		return Result{Content: []Content{{
			Type: ContentJSON,
			JSON: map[string]any{"appointment_id": id, "scheduled_for": at.Format(time.RFC3339)},
		}}}, nil
	}
}
