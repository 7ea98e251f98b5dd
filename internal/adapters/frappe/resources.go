package frappe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Typed wrappers over the HRMS endpoints the field app consumes. Each wrapper
// names its doctype or whitelisted method and the envelope expression that
// unwraps the payload.

// UserRecord is the subset of the User doctype used for profile hydration.
type UserRecord struct {
	Name      string `json:"name"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
}

// LoggedUser returns the identifier of the user owning the access token.
func (c *Client) LoggedUser(ctx context.Context, accessToken string) (string, error) {
	var id string
	err := c.GetJSON(ctx, accessToken, MethodPath("frappe.auth.get_logged_user"), nil, "message", &id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// User fetches a single User record.
func (c *Client) User(ctx context.Context, accessToken, id string) (UserRecord, error) {
	var rec UserRecord
	err := c.GetJSON(ctx, accessToken, ResourcePath("User", id), nil, "data", &rec)
	return rec, err
}

// Village is one row of the village master list.
type Village struct {
	Name        string `json:"name"`
	VillageName string `json:"village_name"`
}

// VillagePage is one page of a village search.
type VillagePage struct {
	Villages []Village
	// HasMore is true when the page was full, i.e. another page may exist.
	HasMore bool
}

// SearchVillages returns one page of villages whose name matches the query.
// An empty query lists all villages in name order.
func (c *Client) SearchVillages(ctx context.Context, accessToken, query string, page, pageSize int) (VillagePage, error) {
	q := url.Values{}
	q.Set("fields", mustJSON([]string{"name", "village_name"}))
	q.Set("order_by", "village_name asc")
	q.Set("limit_start", strconv.Itoa(page*pageSize))
	q.Set("limit_page_length", strconv.Itoa(pageSize))
	if query != "" {
		q.Set("filters", mustJSON([][]string{{"village_name", "like", "%" + query + "%"}}))
	}

	var villages []Village
	if err := c.GetJSON(ctx, accessToken, ResourcePath("Village"), q, "data", &villages); err != nil {
		return VillagePage{}, err
	}
	return VillagePage{
		Villages: villages,
		HasMore:  len(villages) == pageSize,
	}, nil
}

// LeaveType is one row of the leave type list.
type LeaveType struct {
	Name             string `json:"name"`
	MaxLeavesAllowed int    `json:"max_leaves_allowed"`
}

// LeaveTypes lists the leave types an application can be raised against.
func (c *Client) LeaveTypes(ctx context.Context, accessToken string) ([]LeaveType, error) {
	q := url.Values{}
	q.Set("fields", mustJSON([]string{"name", "max_leaves_allowed"}))
	q.Set("limit_page_length", "0")

	var types []LeaveType
	err := c.GetJSON(ctx, accessToken, ResourcePath("Leave Type"), q, "data", &types)
	return types, err
}

// LeaveBalance returns the remaining balance for an employee and leave type
// on a given date.
func (c *Client) LeaveBalance(ctx context.Context, accessToken, employee, leaveType string, date time.Time) (float64, error) {
	q := url.Values{}
	q.Set("employee", employee)
	q.Set("leave_type", leaveType)
	q.Set("date", date.Format("2006-01-02"))

	var balance float64
	err := c.GetJSON(ctx, accessToken,
		MethodPath("hrms.hr.doctype.leave_application.leave_application.get_leave_balance_on"),
		q, "message", &balance)
	return balance, err
}

// Holiday is one entry of a holiday list.
type Holiday struct {
	HolidayDate string `json:"holiday_date"`
	Description string `json:"description"`
	WeeklyOff   int    `json:"weekly_off"`
}

// Holidays returns the holidays of a named holiday list. The holidays live in
// a child table of the Holiday List doctype.
func (c *Client) Holidays(ctx context.Context, accessToken, holidayList string) ([]Holiday, error) {
	var holidays []Holiday
	err := c.GetJSON(ctx, accessToken, ResourcePath("Holiday List", holidayList), nil, "data.holidays", &holidays)
	return holidays, err
}

// ShiftType is one row of the shift type list.
type ShiftType struct {
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ShiftTypes lists the shift types available for attendance requests.
func (c *Client) ShiftTypes(ctx context.Context, accessToken string) ([]ShiftType, error) {
	q := url.Values{}
	q.Set("fields", mustJSON([]string{"name", "start_time", "end_time"}))
	q.Set("limit_page_length", "0")

	var shifts []ShiftType
	err := c.GetJSON(ctx, accessToken, ResourcePath("Shift Type"), q, "data", &shifts)
	return shifts, err
}

// AttendanceCalendar maps day-of-month dates (YYYY-MM-DD) to attendance status.
type AttendanceCalendar map[string]string

// MonthlyAttendance returns an employee's attendance calendar for one month.
func (c *Client) MonthlyAttendance(ctx context.Context, accessToken, employee string, month time.Month, year int) (AttendanceCalendar, error) {
	q := url.Values{}
	q.Set("employee", employee)
	q.Set("month", fmt.Sprintf("%04d-%02d", year, month))

	var cal AttendanceCalendar
	err := c.GetJSON(ctx, accessToken, MethodPath("hrms.api.get_attendance_calendar"), q, "message", &cal)
	return cal, err
}

// ReasonOptions returns the selectable reasons for an attendance request.
func (c *Client) ReasonOptions(ctx context.Context, accessToken, company string) ([]string, error) {
	q := url.Values{}
	if company != "" {
		q.Set("company", company)
	}

	var reasons []string
	err := c.GetJSON(ctx, accessToken, MethodPath("hrms.api.attendance_request_reasons"), q, "message", &reasons)
	return reasons, err
}

// Checkin is the employee check-in/check-out payload. Latitude and longitude
// carry the geotag captured at submission time; PhotoFileID references an
// already-uploaded File record, if any.
type Checkin struct {
	Employee    string  `json:"employee"`
	LogType     string  `json:"log_type"` // "IN" or "OUT"
	Time        string  `json:"time"`     // "2006-01-02 15:04:05"
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DeviceID    string  `json:"device_id,omitempty"`
	PhotoFileID string  `json:"custom_photo,omitempty"`
}

// SubmitCheckin creates an Employee Checkin record and returns its name.
func (c *Client) SubmitCheckin(ctx context.Context, accessToken string, in Checkin) (string, error) {
	var created struct {
		Name string `json:"name"`
	}
	err := c.PostJSON(ctx, accessToken, ResourcePath("Employee Checkin"), in, "data", &created)
	if err != nil {
		return "", err
	}
	return created.Name, nil
}

// CheckinEntry is one row of an employee's check-in log.
type CheckinEntry struct {
	Name    string `json:"name"`
	LogType string `json:"log_type"`
	Time    string `json:"time"`
}

// CheckinLog lists an employee's check-ins for one calendar day, oldest first.
func (c *Client) CheckinLog(ctx context.Context, accessToken, employee string, day time.Time) ([]CheckinEntry, error) {
	start := day.Format("2006-01-02 00:00:00")
	end := day.AddDate(0, 0, 1).Format("2006-01-02 00:00:00")

	q := url.Values{}
	q.Set("fields", mustJSON([]string{"name", "log_type", "time"}))
	q.Set("filters", mustJSON([][]string{
		{"employee", "=", employee},
		{"time", ">=", start},
		{"time", "<", end},
	}))
	q.Set("order_by", "time asc")
	q.Set("limit_page_length", "0")

	var entries []CheckinEntry
	err := c.GetJSON(ctx, accessToken, ResourcePath("Employee Checkin"), q, "data", &entries)
	return entries, err
}

// mustJSON encodes list-style query parameters the way Frappe expects them.
// The inputs are in-memory slices, so encoding cannot fail.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
