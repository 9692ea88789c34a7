package classapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anjiri1684/class_portal/models"
	"github.com/anjiri1684/class_portal/services"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// Client talks to the class backend of record. Requests carry the caller's
// bearer token when the context has one, otherwise the service token.
type Client struct {
	BaseURL      string
	ServiceToken string
	HTTP         *http.Client
}

func New(baseURL, serviceToken string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		ServiceToken: serviceToken,
		HTTP:         &http.Client{Timeout: timeout},
	}
}

func (c *Client) ClassSchedule(ctx context.Context) (*models.ClassSchedule, error) {
	var body schedulePayload
	if err := c.do(ctx, http.MethodGet, "classes/class-schedule", nil, &body); err != nil {
		return nil, err
	}
	return &models.ClassSchedule{
		Today:    toSessions(body.Today),
		Upcoming: toSessions(body.Upcoming),
	}, nil
}

func (c *Client) UpdateClassSchedule(ctx context.Context, sessionID uuid.UUID, patch models.SchedulePatch) error {
	return c.do(ctx, http.MethodPatch, "classes/class-schedule/"+sessionID.String(), patch, nil)
}

func (c *Client) AvailableSlots(ctx context.Context, instructorID uuid.UUID, date string, excludeSessionID uuid.UUID) ([]models.AvailabilitySlot, error) {
	var body slotsPayload
	path := fmt.Sprintf("availability/single-date/%s/%s/%s", instructorID, date, excludeSessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	slots := make([]models.AvailabilitySlot, 0, len(body.TimeSlots))
	for _, s := range body.TimeSlots {
		slots = append(slots, models.AvailabilitySlot{StartTime: s.StartTime, EndTime: s.EndTime, IsActive: s.IsActive})
	}
	return slots, nil
}

func (c *Client) CancellationReasons(ctx context.Context) ([]models.Reason, error) {
	return c.reasons(ctx, "cancelation-reason")
}

func (c *Client) RescheduleReasons(ctx context.Context) ([]models.Reason, error) {
	return c.reasons(ctx, "reschedule-reason")
}

func (c *Client) MarkAttendance(ctx context.Context, sessionID uuid.UUID, mark models.AttendanceMark) error {
	return c.do(ctx, http.MethodPost, "classes/attendance/class/"+sessionID.String()+"/mark", mark, nil)
}

func (c *Client) ClassTypes(ctx context.Context) ([]models.ClassType, error) {
	var body []models.ClassType
	if err := c.do(ctx, http.MethodGet, "class-types", nil, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) reasons(ctx context.Context, path string) ([]models.Reason, error) {
	var body []models.Reason
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := sonic.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+"/"+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	if in != nil {
		req.Header.Set("content-type", "application/json")
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return services.Transient("Class service unreachable", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		log.Printf("Class API error: %s %s status %d body %s", method, path, resp.StatusCode, string(body))
		return statusError(resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return services.Transient("Unexpected response from class service", err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) string {
	if token := services.TokenFromContext(ctx); token != "" {
		return token
	}
	return c.ServiceToken
}

type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

// statusError maps a backend rejection onto the service error kinds. A 403
// here is the backend refusing a command, not the portal's own gate.
func statusError(status int, body []byte) error {
	var p errorPayload
	_ = sonic.Unmarshal(body, &p)
	msg := firstNonEmpty(p.Message, p.Error, p.Detail, http.StatusText(status))

	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity,
		status == http.StatusUnauthorized, status == http.StatusForbidden:
		return &services.Error{Kind: services.KindValidation, Title: "Request rejected", Description: msg, FromServer: true}
	case status == http.StatusNotFound:
		return &services.Error{Kind: services.KindNotFound, Title: "Not found", Description: msg, FromServer: true}
	case status == http.StatusConflict:
		return &services.Error{Kind: services.KindConflict, Title: "Request conflicts with current state", Description: msg, FromServer: true}
	default:
		e := services.Transient("Class service error", fmt.Errorf("status %d: %s", status, msg))
		e.FromServer = true
		return e
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
