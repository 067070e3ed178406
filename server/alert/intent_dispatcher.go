package alert

import (
	"context"
	"fmt"

	"github.com/Daskott/enablex/server/intent"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/server/work"
	"github.com/google/uuid"
)

type Queue interface {
	Perform(job work.JobParams) error
}

// IntentDispatcher queues an sms/tel handoff per contact on the worker pool,
// failed launches are retried by the pool
type IntentDispatcher struct {
	queue Queue
}

func NewIntentDispatcher(queue Queue) *IntentDispatcher {
	return &IntentDispatcher{queue: queue}
}

func (dispatcher *IntentDispatcher) SendAlert(ctx context.Context, contact models.Contact, payload Payload) error {
	name := fmt.Sprintf("%v_%v_%v", payload.Kind, contact.ID, uuid.NewString())
	return dispatcher.queue.Perform(intent.LaunchJob(name, intent.SMS(contact.Phone, payload.Message())))
}

func (dispatcher *IntentDispatcher) Dial(ctx context.Context, contact models.Contact) error {
	name := fmt.Sprintf("call_%v_%v", contact.ID, uuid.NewString())
	return dispatcher.queue.Perform(intent.LaunchJob(name, intent.Tel(contact.Phone)))
}
