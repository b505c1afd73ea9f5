package handler

import (
	"backend-antrian-klinik/internal/http/middleware"
	"backend-antrian-klinik/internal/models"

	"github.com/gofiber/fiber/v2"
)

/*
|--------------------------------------------------------------------------
| Transisi tiket (staff)
|--------------------------------------------------------------------------
*/

// TicketScope keeps doctor-bound tokens on tickets of their own queue.
// Tokens without a doctor pass through.
func (h *Handler) TicketScope() fiber.Handler {
	return func(c *fiber.Ctx) error {
		own, ok := middleware.DoctorID(c)
		if !ok {
			return c.Next()
		}
		doctorID, err := h.svc.TicketDoctor(c.UserContext(), middleware.ClinicID(c), c.Params("id"))
		if err != nil {
			return h.fail(c, err)
		}
		if doctorID != own {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "Anda tidak memiliki akses ke antrian dokter ini",
			})
		}
		return c.Next()
	}
}

func (h *Handler) StartConsulting(c *fiber.Ctx) error {
	ticket, err := h.svc.StartConsulting(c.UserContext(), middleware.ClinicID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, ticket)
}

func (h *Handler) FinishConsultation(c *fiber.Ctx) error {
	var req models.FinishRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	ticket, err := h.svc.FinishConsultation(c.UserContext(), middleware.ClinicID(c), c.Params("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, ticket)
}

// FinishAndCallNext - selesaikan pasien sekarang dan panggil pasien berikutnya sekaligus
func (h *Handler) FinishAndCallNext(c *fiber.Ctx) error {
	var req models.FinishAndCallNextRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	finished, next, err := h.svc.FinishAndCallNext(c.UserContext(), middleware.ClinicID(c), c.Params("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"finished": finished,
		"next":     next,
	})
}

func (h *Handler) CancelTicket(c *fiber.Ctx) error {
	if err := h.svc.CancelTicket(c.UserContext(), middleware.ClinicID(c), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Antrian dibatalkan",
	})
}
