package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adelarp/PraxisBack/internal/models"
	"github.com/adelarp/PraxisBack/internal/repository"
	"github.com/adelarp/PraxisBack/internal/scheduling"
	"github.com/adelarp/PraxisBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type stubSessionService struct {
	bookResult       *models.SessionDetail
	bookErr          error
	listResult       []models.SessionDetail
	listErr          error
	getResult        *models.SessionDetail
	getErr           error
	rescheduleResult *models.SessionDetail
	rescheduleErr    error
	statusResult     *models.SessionDetail
	statusErr        error
	bulkResult       []models.SessionDetail
	bulkErr          error
	cancelResult     *models.SessionDetail
	cancelErr        error

	lastBookInput  services.BookSessionInput
	lastListFilter repository.SessionListFilter
	lastSessionID  int64
	lastStart      time.Time
	lastStatus     string
	lastBulkIDs    []int64
	lastNotes      *string
}

func (s *stubSessionService) BookSession(_ context.Context, input services.BookSessionInput) (*models.SessionDetail, error) {
	s.lastBookInput = input
	return s.bookResult, s.bookErr
}

func (s *stubSessionService) ListSessions(_ context.Context, filter repository.SessionListFilter) ([]models.SessionDetail, error) {
	s.lastListFilter = filter
	return s.listResult, s.listErr
}

func (s *stubSessionService) GetSession(_ context.Context, sessionID int64) (*models.SessionDetail, error) {
	s.lastSessionID = sessionID
	return s.getResult, s.getErr
}

func (s *stubSessionService) Reschedule(_ context.Context, sessionID int64, newStart time.Time) (*models.SessionDetail, error) {
	s.lastSessionID = sessionID
	s.lastStart = newStart
	return s.rescheduleResult, s.rescheduleErr
}

func (s *stubSessionService) UpdateStatus(_ context.Context, sessionID int64, requestedStatus string) (*models.SessionDetail, error) {
	s.lastSessionID = sessionID
	s.lastStatus = requestedStatus
	return s.statusResult, s.statusErr
}

func (s *stubSessionService) BulkUpdateStatus(_ context.Context, sessionIDs []int64, requestedStatus string) ([]models.SessionDetail, error) {
	s.lastBulkIDs = sessionIDs
	s.lastStatus = requestedStatus
	return s.bulkResult, s.bulkErr
}

func (s *stubSessionService) Cancel(_ context.Context, sessionID int64) (*models.SessionDetail, error) {
	s.lastSessionID = sessionID
	return s.cancelResult, s.cancelErr
}

func (s *stubSessionService) UpdateNotes(_ context.Context, sessionID int64, notes *string) (*models.SessionDetail, error) {
	s.lastSessionID = sessionID
	s.lastNotes = notes
	return s.statusResult, s.statusErr
}

func (s *stubSessionService) DeleteSession(_ context.Context, sessionID int64) error {
	s.lastSessionID = sessionID
	return nil
}

func newSessionTestApp(service *stubSessionService) *fiber.App {
	handler := &SessionHandler{service: service}
	app := fiber.New()
	app.Post("/api/v1/sessions", handler.BookSession)
	app.Get("/api/v1/sessions", handler.ListSessions)
	app.Get("/api/v1/sessions/:id", handler.GetSession)
	app.Put("/api/v1/sessions/status", handler.BulkUpdateStatus)
	app.Put("/api/v1/sessions/:id/reschedule", handler.Reschedule)
	app.Put("/api/v1/sessions/:id/status", handler.UpdateStatus)
	app.Delete("/api/v1/sessions/:id", handler.CancelSession)
	return app
}

func TestBookSessionReturnsCreatedSession(t *testing.T) {
	service := &stubSessionService{
		bookResult: &models.SessionDetail{
			Session: models.Session{
				ID:              91,
				PatientID:       7,
				DurationMinutes: 50,
				PaymentStatus:   models.PaymentStatusPending,
			},
			PatientName: "Ana",
		},
	}
	app := newSessionTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{
		"patient_id": 7,
		"scheduled_at": "2026-09-07T10:00:00Z",
		"duration_minutes": 50,
		"notes": "first session after intake"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastBookInput.PatientID != 7 {
		t.Fatalf("expected patient id 7, got %d", service.lastBookInput.PatientID)
	}
	if service.lastBookInput.DurationMinutes != 50 {
		t.Fatalf("expected duration 50, got %d", service.lastBookInput.DurationMinutes)
	}
	want := time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC)
	if !service.lastBookInput.ScheduledAt.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, service.lastBookInput.ScheduledAt)
	}
}

func TestBookSessionRejectsMalformedTimestamp(t *testing.T) {
	app := newSessionTestApp(&stubSessionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{
		"patient_id": 7,
		"scheduled_at": "next tuesday"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestBookSessionConflictCarriesSuggestion(t *testing.T) {
	suggested := time.Date(2026, time.September, 7, 10, 51, 0, 0, time.UTC)
	service := &stubSessionService{
		bookErr: &scheduling.ConflictError{PatientName: "Bruno", SuggestedStart: suggested},
	}
	app := newSessionTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{
		"patient_id": 7,
		"scheduled_at": "2026-09-07T10:30:00Z"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	var body struct {
		ConflictingPatient string    `json:"conflicting_patient"`
		SuggestedStart     time.Time `json:"suggested_start"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ConflictingPatient != "Bruno" {
		t.Fatalf("expected conflicting patient Bruno, got %q", body.ConflictingPatient)
	}
	if !body.SuggestedStart.Equal(suggested) {
		t.Fatalf("expected suggested start %v, got %v", suggested, body.SuggestedStart)
	}
}

func TestListSessionsPassesFilters(t *testing.T) {
	service := &stubSessionService{listResult: []models.SessionDetail{}}
	app := newSessionTestApp(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?status=pending&timeframe=upcoming&patient_id=3", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastListFilter.Status != "pending" {
		t.Fatalf("expected status filter pending, got %q", service.lastListFilter.Status)
	}
	if service.lastListFilter.Timeframe != "upcoming" {
		t.Fatalf("expected timeframe upcoming, got %q", service.lastListFilter.Timeframe)
	}
	if service.lastListFilter.PatientID != 3 {
		t.Fatalf("expected patient filter 3, got %d", service.lastListFilter.PatientID)
	}
}

func TestListSessionsRejectsUnknownTimeframe(t *testing.T) {
	app := newSessionTestApp(&stubSessionService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?timeframe=someday", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	service := &stubSessionService{getErr: pgx.ErrNoRows}
	app := newSessionTestApp(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/55", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if service.lastSessionID != 55 {
		t.Fatalf("expected session id 55, got %d", service.lastSessionID)
	}
}

func TestCancelSessionMapsStateTransitionError(t *testing.T) {
	service := &stubSessionService{cancelErr: services.ErrInvalidStateTransition}
	app := newSessionTestApp(service)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/12", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestBulkUpdateStatusPassesIDs(t *testing.T) {
	service := &stubSessionService{bulkResult: []models.SessionDetail{}}
	app := newSessionTestApp(service)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/status", strings.NewReader(`{
		"session_ids": [4, 8, 15],
		"status": "paid"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(service.lastBulkIDs) != 3 || service.lastBulkIDs[2] != 15 {
		t.Fatalf("expected ids [4 8 15], got %v", service.lastBulkIDs)
	}
	if service.lastStatus != "paid" {
		t.Fatalf("expected status paid, got %q", service.lastStatus)
	}
}

func TestBulkUpdateStatusRequiresIDs(t *testing.T) {
	app := newSessionTestApp(&stubSessionService{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/status", strings.NewReader(`{"status": "paid"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRescheduleSessionPassesNewStart(t *testing.T) {
	service := &stubSessionService{
		rescheduleResult: &models.SessionDetail{Session: models.Session{ID: 12}},
	}
	app := newSessionTestApp(service)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/12/reschedule", strings.NewReader(`{
		"scheduled_at": "2026-09-08T15:00:00Z"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	want := time.Date(2026, time.September, 8, 15, 0, 0, 0, time.UTC)
	if !service.lastStart.Equal(want) {
		t.Fatalf("expected new start %v, got %v", want, service.lastStart)
	}
	if service.lastSessionID != 12 {
		t.Fatalf("expected session id 12, got %d", service.lastSessionID)
	}
}
