package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"facevoice-chat/internal/model"
	"facevoice-chat/internal/repository"
)

// InteractionWorker consumes like/share events and applies the counter
// increments to the tools table.
type InteractionWorker struct {
	conn      *amqp.Connection
	toolRepo  *repository.ToolRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewInteractionWorker(conn *amqp.Connection, toolRepo *repository.ToolRepository, queueName string) *InteractionWorker {
	return &InteractionWorker{
		conn:      conn,
		toolRepo:  toolRepo,
		queueName: queueName,
	}
}

func (w *InteractionWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var event model.InteractionEvent
				if err := json.Unmarshal(d.Body, &event); err != nil {
					log.Printf("worker decode interaction failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.apply(event); err != nil {
					log.Printf("worker apply interaction failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *InteractionWorker) apply(event model.InteractionEvent) error {
	switch event.Kind {
	case model.InteractionLike:
		return w.toolRepo.IncrementCounter(event.ToolID, "likes")
	case model.InteractionShare:
		return w.toolRepo.IncrementCounter(event.ToolID, "shares")
	default:
		return fmt.Errorf("unknown interaction kind %q", event.Kind)
	}
}

func (w *InteractionWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
