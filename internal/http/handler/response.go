package handler

import (
	"errors"

	"backend-antrian-klinik/internal/queue"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   msg,
		"code":    "ValidationError",
	})
}

// statusOf maps the queue error taxonomy onto HTTP.
func statusOf(err error) int {
	switch {
	case errors.Is(err, queue.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, queue.ErrAlreadyBooked),
		errors.Is(err, queue.ErrInvalidTransition),
		errors.Is(err, queue.ErrDoctorBusy),
		errors.Is(err, queue.ErrInvalidNextPatient):
		return fiber.StatusConflict
	case errors.Is(err, queue.ErrInvalidTarget),
		errors.Is(err, queue.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, queue.ErrAllocationFailure):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// fail writes err as a JSON error. Storage details never reach the client.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	body := fiber.Map{
		"success": false,
		"code":    queue.Code(err),
	}

	var verr *queue.ValidationError
	var booked *queue.AlreadyBookedError
	switch {
	case errors.As(err, &verr):
		body["error"] = "Data tidak valid"
		body["fields"] = verr.Fields
	case errors.As(err, &booked):
		body["error"] = "Pasien sudah memiliki antrian aktif untuk dokter ini hari ini"
		body["ticket_id"] = booked.TicketID
		body["queue_number"] = booked.QueueNumber
	case status == fiber.StatusInternalServerError:
		h.log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		body["error"] = "Terjadi kesalahan pada server"
	case status == fiber.StatusServiceUnavailable:
		h.log.Error("allocation failure", zap.String("path", c.Path()), zap.Error(err))
		body["error"] = "Nomor antrian gagal dibuat, silakan coba lagi"
	default:
		body["error"] = messageFor(err)
	}
	return c.Status(status).JSON(body)
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, queue.ErrInvalidTarget):
		return "Klinik atau dokter tidak ditemukan"
	case errors.Is(err, queue.ErrInvalidTransition):
		return "Status antrian tidak sesuai untuk aksi ini"
	case errors.Is(err, queue.ErrDoctorBusy):
		return "Dokter sedang melayani pasien lain"
	case errors.Is(err, queue.ErrInvalidNextPatient):
		return "Pasien berikutnya tidak valid"
	case errors.Is(err, queue.ErrNotFound):
		return "Data tidak ditemukan"
	}
	return err.Error()
}
