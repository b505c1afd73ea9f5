package handler

import (
	"context"
	"time"

	"backend-antrian-klinik/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 20 * time.Second
)

// QueueStreamUpgrade validates the topic before the websocket handshake so
// unknown doctors get a plain 404.
func (h *Handler) QueueStreamUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
			"success": false,
			"error":   "Gunakan koneksi websocket",
		})
	}

	clinicID, err1 := c.ParamsInt("clinicId")
	doctorID, err2 := c.ParamsInt("doctorId")
	if err1 != nil || err2 != nil || clinicID <= 0 || doctorID <= 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Data tidak ditemukan",
			"code":    "NotFound",
		})
	}
	if _, err := h.svc.GetQueueState(c.UserContext(), int64(clinicID), int64(doctorID)); err != nil {
		return h.fail(c, err)
	}

	c.Locals("topic", realtime.Topic{ClinicID: int64(clinicID), DoctorID: int64(doctorID)})
	return c.Next()
}

// QueueStream sends the current state on connect, then every change.
func (h *Handler) QueueStream(c *websocket.Conn) {
	topic, ok := c.Locals("topic").(realtime.Topic)
	if !ok {
		_ = c.Close()
		return
	}

	client := h.hub.Subscribe(topic, c)
	defer h.hub.Unsubscribe(client)
	log := h.log.With(zap.String("client", client.ID), zap.String("topic", topic.String()))

	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	// state diambil setelah subscribe supaya tidak ada perubahan yang terlewat
	state, err := h.svc.GetQueueState(context.Background(), topic.ClinicID, topic.DoctorID)
	if err != nil {
		log.Warn("initial queue state", zap.Error(err))
		return
	}
	message, err := realtime.Encode(state)
	if err != nil {
		log.Error("encode queue state", zap.Error(err))
		return
	}
	h.hub.Send(client, message)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := h.hub.Ping(client); err != nil {
					log.Debug("ping failed", zap.Error(err))
					h.hub.Unsubscribe(client)
					return
				}
			case <-client.Done():
				return
			}
		}
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
			) {
				log.Info("unexpected close", zap.Error(err))
			}
			return
		}
	}
}
