package queue

import "backend-antrian-klinik/internal/models"

type Action string

const (
	ActionBook   Action = "book"
	ActionStart  Action = "start_consulting"
	ActionFinish Action = "finish_consultation"
	ActionNext   Action = "finish_and_call_next"
	ActionCancel Action = "cancel"
)

var transitionMap = map[Action][]models.TicketStatus{
	ActionStart:  {models.StatusWaiting},
	ActionFinish: {models.StatusConsulting},
	ActionCancel: {models.StatusWaiting},
}

func ValidTransition(action Action, from models.TicketStatus) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}
