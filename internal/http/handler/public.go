package handler

import (
	"backend-antrian-klinik/internal/queue"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetPublicTicket - status tiket untuk pasien, tanpa data klinis
func (h *Handler) GetPublicTicket(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return h.fail(c, queue.ErrNotFound)
	}

	view, err := h.svc.GetPublicTicket(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, view)
}

func (h *Handler) GetPublicQueueState(c *fiber.Ctx) error {
	clinicID, err1 := c.ParamsInt("clinicId")
	doctorID, err2 := c.ParamsInt("doctorId")
	if err1 != nil || err2 != nil || clinicID <= 0 || doctorID <= 0 {
		return h.fail(c, queue.ErrNotFound)
	}

	state, err := h.svc.GetQueueState(c.UserContext(), int64(clinicID), int64(doctorID))
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, state)
}
