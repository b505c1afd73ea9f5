package queue

import (
	"errors"
	"fmt"
	"testing"

	"backend-antrian-klinik/internal/models"
)

func TestValidTransition(t *testing.T) {
	statuses := []models.TicketStatus{models.StatusWaiting, models.StatusConsulting, models.StatusFinished}
	allowed := map[Action]models.TicketStatus{
		ActionStart:  models.StatusWaiting,
		ActionFinish: models.StatusConsulting,
		ActionCancel: models.StatusWaiting,
	}

	for action, from := range allowed {
		for _, status := range statuses {
			want := status == from
			if got := ValidTransition(action, status); got != want {
				t.Fatalf("ValidTransition(%s, %s) = %v, want %v", action, status, got, want)
			}
		}
	}

	if ValidTransition(ActionBook, models.StatusWaiting) {
		t.Fatalf("book is not a transition")
	}
	if ValidTransition("reopen", models.StatusFinished) {
		t.Fatalf("unknown action must be rejected")
	}
}

func TestCode(t *testing.T) {
	cases := map[error]string{
		&ValidationError{Fields: []string{"x"}}:              "ValidationError",
		&AlreadyBookedError{TicketID: "t"}:                   "AlreadyBooked",
		fmt.Errorf("wrap: %w", ErrInvalidTarget):             "InvalidTarget",
		fmt.Errorf("%w: finished", ErrInvalidTransition):     "InvalidTransition",
		ErrDoctorBusy:                                        "DoctorBusy",
		ErrInvalidNextPatient:                                "InvalidNextPatient",
		ErrNotFound:                                          "NotFound",
		fmt.Errorf("%w: redis down", ErrAllocationFailure):   "AllocationFailure",
		errors.New("connection reset"):                       "Internal",
	}
	for err, want := range cases {
		if got := Code(err); got != want {
			t.Fatalf("Code(%v) = %s, want %s", err, got, want)
		}
	}
}
