package scheduling

import (
	"testing"
	"time"

	"github.com/adelarp/PraxisBack/internal/models"
)

func testParams() Params {
	return NewParams(1, 50, time.UTC)
}

func buildSession(id, patientID int64, start time.Time, minutes int, status models.PaymentStatus, patientName string) models.SessionDetail {
	return models.SessionDetail{
		Session: models.Session{
			ID:              id,
			PatientID:       patientID,
			ScheduledAt:     start,
			DurationMinutes: minutes,
			PaymentStatus:   status,
		},
		PatientName: patientName,
	}
}

func TestFindConflictReportsOverlappingSession(t *testing.T) {
	params := testParams()
	tenAM := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	existing := []models.SessionDetail{
		buildSession(1, 5, tenAM, 50, models.PaymentStatusPending, "Ana"),
	}

	conflict := params.FindConflict(existing, tenAM.Add(30*time.Minute), 50*time.Minute, 0)
	if conflict == nil {
		t.Fatal("expected a conflict for a 10:30 candidate against a 10:00-10:50 session")
	}
	if conflict.ID != 1 {
		t.Fatalf("expected session 1 to conflict, got %d", conflict.ID)
	}
}

func TestFindConflictScenarioSuggestsBufferedEnd(t *testing.T) {
	params := testParams()
	tenAM := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	existing := []models.SessionDetail{
		buildSession(1, 5, tenAM, 50, models.PaymentStatusPending, "Ana"),
	}

	slot := params.NextFreeSlot(existing, tenAM.Add(30*time.Minute), 50*time.Minute, 0)
	want := time.Date(2026, 9, 7, 10, 51, 0, 0, time.UTC)
	if !slot.Equal(want) {
		t.Fatalf("expected next free slot at 10:51, got %s", slot)
	}
}

func TestFindConflictIsSymmetricAroundBuffer(t *testing.T) {
	params := testParams()
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	first := buildSession(1, 1, base, 50, models.PaymentStatusPending, "Ana")
	// Starts inside the first session's buffer minute.
	second := buildSession(2, 2, base.Add(50*time.Minute), 50, models.PaymentStatusPending, "Bruno")

	if params.FindConflict([]models.SessionDetail{first}, second.ScheduledAt, 50*time.Minute, 0) == nil {
		t.Fatal("expected probing the later interval against the earlier to conflict")
	}
	if params.FindConflict([]models.SessionDetail{second}, first.ScheduledAt, 50*time.Minute, 0) == nil {
		t.Fatal("expected probing the earlier interval against the later to conflict")
	}

	// One buffer minute later the pair is legal.
	clear := second.ScheduledAt.Add(time.Minute)
	if got := params.FindConflict([]models.SessionDetail{first}, clear, 50*time.Minute, 0); got != nil {
		t.Fatalf("expected no conflict with the buffer gap respected, got session %d", got.ID)
	}
}

func TestFindConflictSkipsCancelledAndExcluded(t *testing.T) {
	params := testParams()
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	existing := []models.SessionDetail{
		buildSession(1, 1, base, 50, models.PaymentStatusCancelled, "Ana"),
		buildSession(2, 2, base, 50, models.PaymentStatusPaid, "Bruno"),
	}

	if got := params.FindConflict(existing, base, 50*time.Minute, 2); got != nil {
		t.Fatalf("expected no conflict once session 2 is excluded, got session %d", got.ID)
	}
	if got := params.FindConflict(existing, base, 50*time.Minute, 0); got == nil || got.ID != 2 {
		t.Fatalf("expected session 2 to conflict, got %+v", got)
	}
}

func TestFindConflictReturnsChronologicallyFirst(t *testing.T) {
	params := testParams()
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	existing := []models.SessionDetail{
		buildSession(7, 2, base.Add(time.Hour), 50, models.PaymentStatusPending, "Bruno"),
		buildSession(3, 1, base, 50, models.PaymentStatusPending, "Ana"),
	}

	// A two-hour candidate overlaps both; the 9:00 session must win.
	got := params.FindConflict(existing, base, 2*time.Hour, 0)
	if got == nil || got.ID != 3 {
		t.Fatalf("expected the earliest overlapping session, got %+v", got)
	}
}

func TestNextFreeSlotReturnsCandidateWhenTimelineIsClear(t *testing.T) {
	params := testParams()
	start := time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)
	existing := []models.SessionDetail{
		buildSession(1, 1, start.Add(6*time.Hour), 50, models.PaymentStatusPending, "Ana"),
	}

	if slot := params.NextFreeSlot(existing, start, 50*time.Minute, 0); !slot.Equal(start) {
		t.Fatalf("expected the unblocked candidate start back, got %s", slot)
	}
	if slot := params.NextFreeSlot(nil, start, 50*time.Minute, 0); !slot.Equal(start) {
		t.Fatalf("expected the candidate start with no sessions, got %s", slot)
	}
}

func TestNextFreeSlotSkipsOverConsecutiveSessions(t *testing.T) {
	params := testParams()
	nine := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	existing := []models.SessionDetail{
		buildSession(1, 1, nine, 50, models.PaymentStatusPending, "Ana"),
		buildSession(2, 2, nine.Add(51*time.Minute), 50, models.PaymentStatusPending, "Bruno"),
	}

	slot := params.NextFreeSlot(existing, nine, 50*time.Minute, 0)
	want := nine.Add(102 * time.Minute) // 10:42, after both buffered sessions
	if !slot.Equal(want) {
		t.Fatalf("expected slot after the second buffered session at %s, got %s", want, slot)
	}
	if slot.Before(nine) {
		t.Fatal("slot finder must never move before the candidate start")
	}
	if got := params.FindConflict(existing, slot, 50*time.Minute, 0); got != nil {
		t.Fatalf("suggested slot still conflicts with session %d", got.ID)
	}
}

func TestNextFreeSlotFitsInGapBetweenSessions(t *testing.T) {
	params := testParams()
	nine := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	existing := []models.SessionDetail{
		buildSession(1, 1, nine, 50, models.PaymentStatusPending, "Ana"),
		buildSession(2, 2, nine.Add(3*time.Hour), 50, models.PaymentStatusPending, "Bruno"),
	}

	slot := params.NextFreeSlot(existing, nine.Add(10*time.Minute), 50*time.Minute, 0)
	want := nine.Add(51 * time.Minute)
	if !slot.Equal(want) {
		t.Fatalf("expected the gap between sessions at %s, got %s", want, slot)
	}
	if got := params.FindConflict(existing, slot, 50*time.Minute, 0); got != nil {
		t.Fatalf("suggested slot still conflicts with session %d", got.ID)
	}
}
