package service

import (
	"context"
	"time"

	"github.com/openhrms/fieldlink/internal/adapters/frappe"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
)

// CheckinInput is one check-in or check-out submission.
type CheckinInput struct {
	Employee  string
	LogType   string // "IN" or "OUT"
	At        time.Time
	Latitude  float64
	Longitude float64
	DeviceID  string
	// PhotoFileID references an already-uploaded File record.
	PhotoFileID string
}

// CheckinServiceOptions groups dependencies for CheckinService.
type CheckinServiceOptions struct {
	Client *frappe.Client
	Token  TokenFunc
}

// CheckinService submits geotagged employee check-ins and reads back the
// day's log.
type CheckinService struct {
	client *frappe.Client
	token  TokenFunc
	now    func() time.Time
}

// NewCheckinService constructs a new CheckinService.
func NewCheckinService(opts CheckinServiceOptions) *CheckinService {
	return &CheckinService{
		client: opts.Client,
		token:  opts.Token,
		now:    time.Now,
	}
}

// Submit validates and creates one Employee Checkin record, returning its
// name. A zero At defaults to the current time.
func (s *CheckinService) Submit(ctx context.Context, in CheckinInput) (string, error) {
	if in.Employee == "" {
		return "", apperrors.Validation("employee is required")
	}
	if in.LogType != "IN" && in.LogType != "OUT" {
		return "", apperrors.Validationf("log type must be IN or OUT, got %q", in.LogType)
	}
	at := in.At
	if at.IsZero() {
		at = s.now()
	}

	return withToken(ctx, s.token, func(accessToken string) (string, error) {
		return s.client.SubmitCheckin(ctx, accessToken, frappe.Checkin{
			Employee:    in.Employee,
			LogType:     in.LogType,
			Time:        at.Format("2006-01-02 15:04:05"),
			Latitude:    in.Latitude,
			Longitude:   in.Longitude,
			DeviceID:    in.DeviceID,
			PhotoFileID: in.PhotoFileID,
		})
	})
}

// DayLog lists an employee's check-ins for one calendar day, oldest first.
func (s *CheckinService) DayLog(ctx context.Context, employee string, day time.Time) ([]frappe.CheckinEntry, error) {
	if employee == "" {
		return nil, apperrors.Validation("employee is required")
	}
	return withToken(ctx, s.token, func(accessToken string) ([]frappe.CheckinEntry, error) {
		return s.client.CheckinLog(ctx, accessToken, employee, day)
	})
}
