package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhrms/fieldlink/internal/adapters/frappe"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
)

func newCheckinService(t *testing.T, handler http.Handler) *CheckinService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := frappe.NewClient(frappe.ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	return NewCheckinService(CheckinServiceOptions{
		Client: client,
		Token:  func(context.Context) (string, error) { return "test-token", nil },
	})
}

func TestCheckinService_Submit(t *testing.T) {
	var got frappe.Checkin
	handler := routeByPath(map[string]http.HandlerFunc{
		"/api/resource/Employee Checkin": func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeJSON(t, w, map[string]any{"data": map[string]string{"name": "EMP-CKIN-0001"}})
		},
	})
	svc := newCheckinService(t, handler)

	at := time.Date(2025, 6, 15, 9, 2, 30, 0, time.UTC)
	name, err := svc.Submit(context.Background(), CheckinInput{
		Employee:  "HR-EMP-001",
		LogType:   "IN",
		At:        at,
		Latitude:  12.9716,
		Longitude: 77.5946,
		DeviceID:  "field-tab-07",
	})
	require.NoError(t, err)

	assert.Equal(t, "EMP-CKIN-0001", name)
	assert.Equal(t, "HR-EMP-001", got.Employee)
	assert.Equal(t, "IN", got.LogType)
	assert.Equal(t, "2025-06-15 09:02:30", got.Time)
	assert.InDelta(t, 12.9716, got.Latitude, 0.0001)
}

func TestCheckinService_Submit_DefaultsTimeToNow(t *testing.T) {
	var got frappe.Checkin
	handler := routeByPath(map[string]http.HandlerFunc{
		"/api/resource/Employee Checkin": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeJSON(t, w, map[string]any{"data": map[string]string{"name": "EMP-CKIN-0002"}})
		},
	})
	svc := newCheckinService(t, handler)
	now := time.Date(2025, 6, 15, 17, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Submit(context.Background(), CheckinInput{Employee: "HR-EMP-001", LogType: "OUT"})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15 17:30:00", got.Time)
}

func TestCheckinService_Submit_Validation(t *testing.T) {
	svc := newCheckinService(t, http.NotFoundHandler())

	_, err := svc.Submit(context.Background(), CheckinInput{LogType: "IN"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Submit(context.Background(), CheckinInput{Employee: "HR-EMP-001", LogType: "LUNCH"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCheckinService_DayLog(t *testing.T) {
	handler := routeByPath(map[string]http.HandlerFunc{
		"/api/resource/Employee Checkin": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{"data": []map[string]string{
				{"name": "EMP-CKIN-0001", "log_type": "IN", "time": "2025-06-15 09:02:30"},
				{"name": "EMP-CKIN-0002", "log_type": "OUT", "time": "2025-06-15 17:30:00"},
			}})
		},
	})
	svc := newCheckinService(t, handler)

	entries, err := svc.DayLog(context.Background(), "HR-EMP-001", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "IN", entries[0].LogType)
	assert.Equal(t, "OUT", entries[1].LogType)
}
