package controllers

import (
	"github.com/gofiber/fiber/v2/log"
)

// crmEnqueuer is the slice of the CRM sync queue the controllers feed.
type crmEnqueuer interface {
	Enqueue(userID uint) error
}

var crmQueue crmEnqueuer

// InitializeCRMQueue wires the queue that feeds the CRM sync worker.
// Application events (registration, job acceptance) enqueue through it.
func InitializeCRMQueue(queue crmEnqueuer) {
	crmQueue = queue
}

// enqueueCRMSync is best-effort: a lost sync event must not fail the request.
func enqueueCRMSync(userID uint) {
	if crmQueue == nil {
		return
	}
	if err := crmQueue.Enqueue(userID); err != nil {
		log.Warnf("failed to enqueue CRM sync for user %d: %v", userID, err)
	}
}
