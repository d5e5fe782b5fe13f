package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Worker consumes ingest tasks and runs the pipeline for each, one at a
// time. The guard keeps duplicate deliveries for the same document from
// running concurrently.
type Worker struct {
	conn      *amqp.Connection
	pipeline  *Pipeline
	guard     *Guard
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(conn *amqp.Connection, pipeline *Pipeline, guard *Guard, queueName string) *Worker {
	return &Worker{
		conn:      conn,
		pipeline:  pipeline,
		guard:     guard,
		queueName: queueName,
	}
}

func (w *Worker) Start(ctx context.Context) error {
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

				var task Task
				if err := json.Unmarshal(d.Body, &task); err != nil {
					log.Printf("worker decode ingest task failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				w.handle(workerCtx, task)
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *Worker) handle(ctx context.Context, task Task) {
	acquired, err := w.guard.Acquire(ctx, task.DocumentID)
	if err != nil {
		log.Printf("worker acquire lock for document %d failed: %v", task.DocumentID, err)
		return
	}
	if !acquired {
		log.Printf("document %d already being processed, skipping", task.DocumentID)
		return
	}
	defer func() {
		if err := w.guard.Release(ctx, task.DocumentID); err != nil {
			log.Printf("worker release lock for document %d failed: %v", task.DocumentID, err)
		}
	}()

	w.pipeline.Process(ctx, task.DocumentID)
}

func (w *Worker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
