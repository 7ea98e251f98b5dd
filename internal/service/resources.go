package service

import (
	"context"
	"fmt"
	"time"

	"github.com/openhrms/fieldlink/internal/adapters/frappe"
)

// TokenFunc supplies a currently valid access token, refreshing if needed.
// SessionService.AccessToken satisfies it.
type TokenFunc func(ctx context.Context) (string, error)

// ResourceServiceOptions groups dependencies for ResourceService.
type ResourceServiceOptions struct {
	Client  *frappe.Client
	Token   TokenFunc
	Company string
}

// ResourceService exposes the cached master-data lookups the field app
// consumes: leave types, shift types, holiday lists, attendance calendars,
// and attendance-request reasons. Each lookup is backed by a Fetcher, so
// repeat reads are served from cache and concurrent loads collapse into one
// request.
type ResourceService struct {
	client  *frappe.Client
	token   TokenFunc
	company string

	leaveTypes *Fetcher[struct{}, []frappe.LeaveType]
	shiftTypes *Fetcher[struct{}, []frappe.ShiftType]
	holidays   *Fetcher[string, []frappe.Holiday]
	reasons    *Fetcher[string, []string]
	attendance *Fetcher[string, frappe.AttendanceCalendar]
}

// NewResourceService constructs a new ResourceService.
func NewResourceService(opts ResourceServiceOptions) *ResourceService {
	s := &ResourceService{
		client:  opts.Client,
		token:   opts.Token,
		company: opts.Company,
	}

	s.leaveTypes = NewFetcher(func(ctx context.Context, _ struct{}) ([]frappe.LeaveType, error) {
		return withToken(ctx, s.token, func(at string) ([]frappe.LeaveType, error) {
			return s.client.LeaveTypes(ctx, at)
		})
	})
	s.shiftTypes = NewFetcher(func(ctx context.Context, _ struct{}) ([]frappe.ShiftType, error) {
		return withToken(ctx, s.token, func(at string) ([]frappe.ShiftType, error) {
			return s.client.ShiftTypes(ctx, at)
		})
	})
	s.holidays = NewFetcher(func(ctx context.Context, list string) ([]frappe.Holiday, error) {
		return withToken(ctx, s.token, func(at string) ([]frappe.Holiday, error) {
			return s.client.Holidays(ctx, at, list)
		})
	})
	s.reasons = NewFetcher(func(ctx context.Context, company string) ([]string, error) {
		return withToken(ctx, s.token, func(at string) ([]string, error) {
			return s.client.ReasonOptions(ctx, at, company)
		})
	})
	s.attendance = NewFetcher(func(ctx context.Context, key string) (frappe.AttendanceCalendar, error) {
		employee, month, year, err := parseAttendanceKey(key)
		if err != nil {
			return nil, err
		}
		return withToken(ctx, s.token, func(at string) (frappe.AttendanceCalendar, error) {
			return s.client.MonthlyAttendance(ctx, at, employee, month, year)
		})
	})

	return s
}

// LeaveTypes returns the leave type list, cached after the first load.
func (s *ResourceService) LeaveTypes(ctx context.Context) ([]frappe.LeaveType, error) {
	return s.leaveTypes.Get(ctx, struct{}{})
}

// RefreshLeaveTypes reloads the leave type list from the backend.
func (s *ResourceService) RefreshLeaveTypes(ctx context.Context) ([]frappe.LeaveType, error) {
	return s.leaveTypes.Refresh(ctx, struct{}{})
}

// ShiftTypes returns the shift type list, cached after the first load.
func (s *ResourceService) ShiftTypes(ctx context.Context) ([]frappe.ShiftType, error) {
	return s.shiftTypes.Get(ctx, struct{}{})
}

// RefreshShiftTypes reloads the shift type list from the backend.
func (s *ResourceService) RefreshShiftTypes(ctx context.Context) ([]frappe.ShiftType, error) {
	return s.shiftTypes.Refresh(ctx, struct{}{})
}

// Holidays returns the holidays of the named holiday list.
func (s *ResourceService) Holidays(ctx context.Context, list string) ([]frappe.Holiday, error) {
	return s.holidays.Get(ctx, list)
}

// ReasonOptions returns the selectable attendance-request reasons for the
// configured company.
func (s *ResourceService) ReasonOptions(ctx context.Context) ([]string, error) {
	return s.reasons.Get(ctx, s.company)
}

// MonthlyAttendance returns an employee's attendance calendar for a month.
func (s *ResourceService) MonthlyAttendance(ctx context.Context, employee string, month time.Month, year int) (frappe.AttendanceCalendar, error) {
	return s.attendance.Get(ctx, attendanceKey(employee, month, year))
}

// RefreshMonthlyAttendance reloads one month's calendar from the backend.
func (s *ResourceService) RefreshMonthlyAttendance(ctx context.Context, employee string, month time.Month, year int) (frappe.AttendanceCalendar, error) {
	return s.attendance.Refresh(ctx, attendanceKey(employee, month, year))
}

// LeaveBalance returns the remaining balance for an employee and leave type
// on a date. Balances are point-in-time values and are never cached.
func (s *ResourceService) LeaveBalance(ctx context.Context, employee, leaveType string, date time.Time) (float64, error) {
	return withToken(ctx, s.token, func(at string) (float64, error) {
		return s.client.LeaveBalance(ctx, at, employee, leaveType, date)
	})
}

// ClearCache drops all cached resources. Called when the session ends.
func (s *ResourceService) ClearCache() {
	s.leaveTypes.Clear()
	s.shiftTypes.Clear()
	s.holidays.Clear()
	s.reasons.Clear()
	s.attendance.Clear()
}

func attendanceKey(employee string, month time.Month, year int) string {
	return fmt.Sprintf("%s|%04d-%02d", employee, year, month)
}

func parseAttendanceKey(key string) (string, time.Month, int, error) {
	var year, month int
	sep := -1
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '|' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return "", 0, 0, fmt.Errorf("malformed attendance key %q", key)
	}
	if _, err := fmt.Sscanf(key[sep+1:], "%04d-%02d", &year, &month); err != nil {
		return "", 0, 0, fmt.Errorf("malformed attendance key %q: %w", key, err)
	}
	return key[:sep], time.Month(month), year, nil
}

// withToken resolves an access token and runs fn with it.
func withToken[T any](ctx context.Context, token TokenFunc, fn func(accessToken string) (T, error)) (T, error) {
	accessToken, err := token(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(accessToken)
}
