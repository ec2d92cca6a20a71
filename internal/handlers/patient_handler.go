package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/adelarp/PraxisBack/internal/models"
	"github.com/adelarp/PraxisBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type PatientHandler struct {
	patients  patientDirectory
	schedules scheduleApplicationService
}

type patientDirectory interface {
	Create(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	GetByID(ctx context.Context, patientID int64) (*models.Patient, error)
	ListAll(ctx context.Context) ([]models.Patient, error)
	Update(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	ListSchedules(ctx context.Context, patientID int64) ([]models.SessionSchedule, error)
}

type scheduleApplicationService interface {
	GenerateForPatient(ctx context.Context, patient *models.Patient, schedules []models.SessionSchedule, horizonWeeks int) ([]models.Session, error)
	ReplaceFutureSessions(ctx context.Context, patientID int64, schedules []models.SessionSchedule, horizonWeeks int) ([]models.Session, error)
}

func NewPatientHandler(patients patientDirectory, schedules scheduleApplicationService) *PatientHandler {
	return &PatientHandler{patients: patients, schedules: schedules}
}

type patientRequest struct {
	Name         string   `json:"name"`
	Frequency    string   `json:"frequency"`
	DefaultPrice *float64 `json:"default_price"`
	AutoRenew    bool     `json:"auto_renew"`
	Active       *bool    `json:"active"`
}

type scheduleSlotRequest struct {
	Weekday         int      `json:"weekday"`
	Time            string   `json:"time"` // HH:mm in the practice timezone
	PaymentStatus   string   `json:"payment_status"`
	Category        string   `json:"category"`
	DurationMinutes int      `json:"duration_minutes"`
	Price           *float64 `json:"price"`
}

type replaceSchedulesRequest struct {
	Schedules    []scheduleSlotRequest `json:"schedules"`
	HorizonWeeks int                   `json:"horizon_weeks"`
}

func (h *PatientHandler) CreatePatient(c *fiber.Ctx) error {
	var req patientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	patient, err := patientFromRequest(&req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	created, err := h.patients.Create(c.Context(), patient)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create patient"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"patient": created})
}

func (h *PatientHandler) ListPatients(c *fiber.Ctx) error {
	patients, err := h.patients.ListAll(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list patients"})
	}
	return c.JSON(fiber.Map{"patients": patients})
}

func (h *PatientHandler) GetPatient(c *fiber.Ctx) error {
	patientID, err := parsePatientID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid patient id"})
	}

	patient, err := h.patients.GetByID(c.Context(), patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Patient not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch patient"})
	}

	schedules, err := h.patients.ListSchedules(c.Context(), patientID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch schedules"})
	}
	patient.Schedules = schedules

	return c.JSON(fiber.Map{"patient": patient})
}

func (h *PatientHandler) UpdatePatient(c *fiber.Ctx) error {
	patientID, err := parsePatientID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid patient id"})
	}

	var req patientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	patient, err := patientFromRequest(&req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	patient.ID = patientID

	updated, err := h.patients.Update(c.Context(), patient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Patient not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update patient"})
	}

	return c.JSON(fiber.Map{"patient": updated})
}

// ReplaceSchedules swaps the patient's weekly patterns and regenerates
// their future sessions from the new set.
func (h *PatientHandler) ReplaceSchedules(c *fiber.Ctx) error {
	patientID, err := parsePatientID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid patient id"})
	}

	var req replaceSchedulesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	schedules, err := schedulesFromRequest(patientID, req.Schedules)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	created, err := h.schedules.ReplaceFutureSessions(c.Context(), patientID, schedules, req.HorizonWeeks)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": created})
}

// GenerateSessions expands the patient's stored patterns into a fresh batch
// without touching anything already on the timeline.
func (h *PatientHandler) GenerateSessions(c *fiber.Ctx) error {
	patientID, err := parsePatientID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid patient id"})
	}

	// Body is optional: callers may override the horizon or supply ad-hoc
	// patterns instead of the stored ones.
	var req replaceSchedulesRequest
	if err := c.BodyParser(&req); err != nil {
		req = replaceSchedulesRequest{}
	}

	patient, err := h.patients.GetByID(c.Context(), patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Patient not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch patient"})
	}

	schedules, err := schedulesFromRequest(patientID, req.Schedules)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if len(schedules) == 0 {
		schedules, err = h.patients.ListSchedules(c.Context(), patientID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch schedules"})
		}
	}

	created, err := h.schedules.GenerateForPatient(c.Context(), patient, schedules, req.HorizonWeeks)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"sessions": created})
}

func parsePatientID(c *fiber.Ctx) (int64, error) {
	patientID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || patientID <= 0 {
		return 0, errors.New("invalid patient id")
	}
	return patientID, nil
}

func patientFromRequest(req *patientRequest) (*models.Patient, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	frequency := models.Frequency(strings.TrimSpace(req.Frequency))
	if frequency == "" {
		frequency = models.FrequencyWeekly
	}
	if !frequency.Valid() {
		return nil, errors.New("frequency must be weekly, biweekly, monthly or as_needed")
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &models.Patient{
		Name:         name,
		Frequency:    frequency,
		DefaultPrice: req.DefaultPrice,
		AutoRenew:    req.AutoRenew,
		Active:       active,
	}, nil
}

func schedulesFromRequest(patientID int64, slots []scheduleSlotRequest) ([]models.SessionSchedule, error) {
	schedules := make([]models.SessionSchedule, 0, len(slots))
	for _, slot := range slots {
		hour, minute, err := models.ParseClockTime(slot.Time)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, models.SessionSchedule{
			PatientID:       patientID,
			Weekday:         slot.Weekday,
			Hour:            hour,
			Minute:          minute,
			PaymentStatus:   models.PaymentStatus(strings.TrimSpace(slot.PaymentStatus)),
			Category:        strings.TrimSpace(slot.Category),
			DurationMinutes: slot.DurationMinutes,
			Price:           slot.Price,
		})
	}
	if len(schedules) > 0 {
		if err := services.ValidateSchedules(schedules); err != nil {
			return nil, err
		}
	}
	return schedules, nil
}
