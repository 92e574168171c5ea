package tools

import (
	"context"
	"fmt"
	"regexp"
)

var indianMobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// Lead is the captured contact record handed to a LeadSink.
type Lead struct {
	SessionID string
	Name      string
	Phone     string
	Interest  string
}

// LeadSink persists or forwards a captured lead. A CRM-backed
// implementation lives outside this package; the stub here exists so the
// tool is exercisable without one.
type LeadSink interface {
	SaveLead(ctx context.Context, lead Lead) (id string, err error)
}

// StubLeadSink keeps leads in memory, useful for local runs and tests.
type StubLeadSink struct {
	Saved []Lead
}

func (s *StubLeadSink) SaveLead(ctx context.Context, lead Lead) (string, error) {
	s.Saved = append(s.Saved, lead)
	return fmt.Sprintf("lead-%d", len(s.Saved)), nil
}

// NewLeadCaptureHandler builds the LeadCapture tool: validates a 10-digit
// Indian mobile number and forwards the lead to sink.
func NewLeadCaptureHandler(sink LeadSink) Handler {
	return func(ctx context.Context, args map[string]any) (Result, error) {
		sessionID, _ := args["session_id"].(string)
		name, _ := args["name"].(string)
		phone, _ := args["phone"].(string)
		interest, _ := args["interest"].(string)

		if !indianMobilePattern.MatchString(phone) {
			return Result{}, fmt.Errorf("phone %q is not a valid 10-digit Indian mobile number", phone)
		}
		if name == "" {
			return Result{}, fmt.Errorf("name is required")
		}

		id, err := sink.SaveLead(ctx, Lead{SessionID: sessionID, Name: name, Phone: phone, Interest: interest})
		if err != nil {
			return Result{}, err
		}

		return Result{Content: []Content{{
			Type: ContentJSON,
			JSON: map[string]any{"lead_id": id, "status": "captured"},
		}}}, nil
	}
}
