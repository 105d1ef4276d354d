package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"vas-training-be/internal/repository/persistence"
	"vas-training-be/pkg/events"
	"vas-training-be/pkg/store"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains completed sessions off the in-process bus, writes
// them to Postgres, and announces them on NATS.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	threadRepo persistence.ThreadRepository
	eventBus   EventPublisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	threadRepo persistence.ThreadRepository,
	eventBus EventPublisher,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		threadRepo: threadRepo,
		eventBus:   eventBus,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var completed store.CompletedSession
	if err := json.Unmarshal(msg.Payload, &completed); err != nil {
		log.Printf("[ERROR] Failed to unmarshal completed session: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Persisting completed session %s (%d messages)", completed.ID, len(completed.Transcript))

	if cs.threadRepo != nil {
		if err := cs.threadRepo.PersistCompleted(ctx, &completed); err != nil {
			log.Printf("[ERROR] Failed to persist session %s: %v", completed.ID, err)
			msg.Nack() // Nack for retriable errors
			return
		}
	}

	if cs.eventBus != nil {
		if err := cs.eventBus.Publish(ctx, events.NewSessionCompleted(&completed)); err != nil {
			// The row is already committed; the event is advisory.
			log.Printf("[WARN] Failed to publish completion event for %s: %v", completed.ID, err)
		}
	}

	log.Printf("[SUCCESS] Session persisted: %s", completed.ID)
	msg.Ack()
}
