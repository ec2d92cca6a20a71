package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adelarp/PraxisBack/internal/models"
	"github.com/gofiber/fiber/v2"
)

type stubPatientDirectory struct {
	patients  map[int64]*models.Patient
	schedules map[int64][]models.SessionSchedule
}

func (s *stubPatientDirectory) Create(_ context.Context, patient *models.Patient) (*models.Patient, error) {
	patient.ID = 1
	return patient, nil
}

func (s *stubPatientDirectory) GetByID(_ context.Context, patientID int64) (*models.Patient, error) {
	return s.patients[patientID], nil
}

func (s *stubPatientDirectory) ListAll(_ context.Context) ([]models.Patient, error) {
	all := make([]models.Patient, 0, len(s.patients))
	for _, patient := range s.patients {
		all = append(all, *patient)
	}
	return all, nil
}

func (s *stubPatientDirectory) Update(_ context.Context, patient *models.Patient) (*models.Patient, error) {
	return patient, nil
}

func (s *stubPatientDirectory) ListSchedules(_ context.Context, patientID int64) ([]models.SessionSchedule, error) {
	return s.schedules[patientID], nil
}

type stubScheduleService struct {
	lastPatientID int64
	lastSchedules []models.SessionSchedule
	lastHorizon   int
}

func (s *stubScheduleService) GenerateForPatient(_ context.Context, patient *models.Patient, schedules []models.SessionSchedule, horizonWeeks int) ([]models.Session, error) {
	s.lastPatientID = patient.ID
	s.lastSchedules = schedules
	s.lastHorizon = horizonWeeks
	return make([]models.Session, len(schedules)), nil
}

func (s *stubScheduleService) ReplaceFutureSessions(_ context.Context, patientID int64, schedules []models.SessionSchedule, horizonWeeks int) ([]models.Session, error) {
	s.lastPatientID = patientID
	s.lastSchedules = schedules
	s.lastHorizon = horizonWeeks
	return make([]models.Session, len(schedules)), nil
}

func newPatientTestApp(patients *stubPatientDirectory, schedules *stubScheduleService) *fiber.App {
	handler := NewPatientHandler(patients, schedules)
	app := fiber.New()
	app.Post("/api/v1/patients", handler.CreatePatient)
	app.Get("/api/v1/patients", handler.ListPatients)
	app.Get("/api/v1/patients/:id", handler.GetPatient)
	app.Put("/api/v1/patients/:id", handler.UpdatePatient)
	app.Put("/api/v1/patients/:id/schedules", handler.ReplaceSchedules)
	app.Post("/api/v1/patients/:id/generate", handler.GenerateSessions)
	return app
}

func TestReplaceSchedulesParsesClockTimes(t *testing.T) {
	schedules := &stubScheduleService{}
	app := newPatientTestApp(&stubPatientDirectory{}, schedules)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/patients/5/schedules", strings.NewReader(`{
		"schedules": [
			{"weekday": 1, "time": "10:00", "category": "individual"},
			{"weekday": 4, "time": "16:30", "duration_minutes": 80}
		],
		"horizon_weeks": 8
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
	if schedules.lastPatientID != 5 {
		t.Fatalf("expected patient 5, got %d", schedules.lastPatientID)
	}
	if schedules.lastHorizon != 8 {
		t.Fatalf("expected horizon 8, got %d", schedules.lastHorizon)
	}
	if len(schedules.lastSchedules) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(schedules.lastSchedules))
	}
	second := schedules.lastSchedules[1]
	if second.Weekday != 4 || second.Hour != 16 || second.Minute != 30 {
		t.Fatalf("expected Thursday 16:30, got weekday=%d %02d:%02d", second.Weekday, second.Hour, second.Minute)
	}
	if second.DurationMinutes != 80 {
		t.Fatalf("expected duration 80, got %d", second.DurationMinutes)
	}
}

func TestReplaceSchedulesRejectsBadClockTime(t *testing.T) {
	app := newPatientTestApp(&stubPatientDirectory{}, &stubScheduleService{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/patients/5/schedules", strings.NewReader(`{
		"schedules": [{"weekday": 1, "time": "25:00"}]
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

func TestGenerateSessionsFallsBackToStoredPatterns(t *testing.T) {
	stored := []models.SessionSchedule{{PatientID: 5, Weekday: 2, Hour: 9, Minute: 0}}
	patients := &stubPatientDirectory{
		patients:  map[int64]*models.Patient{5: {ID: 5, Name: "Ana", Frequency: models.FrequencyWeekly, Active: true}},
		schedules: map[int64][]models.SessionSchedule{5: stored},
	}
	schedules := &stubScheduleService{}
	app := newPatientTestApp(patients, schedules)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients/5/generate", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if len(schedules.lastSchedules) != 1 || schedules.lastSchedules[0].Weekday != 2 {
		t.Fatalf("expected the stored Tuesday pattern, got %v", schedules.lastSchedules)
	}
}

func TestCreatePatientRejectsUnknownFrequency(t *testing.T) {
	app := newPatientTestApp(&stubPatientDirectory{}, &stubScheduleService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{
		"name": "Ana",
		"frequency": "daily"
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
