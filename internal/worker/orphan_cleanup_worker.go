package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"agrovision/internal/platform/rabbitmq"
	"agrovision/internal/storage"
)

var errMalformed = errors.New("malformed orphan message")

// ImageIndex reports whether any image row still references a filename.
type ImageIndex interface {
	ExistsByFilename(ctx context.Context, filename string) (bool, error)
}

// OrphanCleanupWorker removes stored objects whose metadata row was never
// written. Objects that are referenced by a row are left alone.
type OrphanCleanupWorker struct {
	conn      *amqp.Connection
	images    ImageIndex
	store     storage.Storage
	queueName string
	log       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrphanCleanupWorker(conn *amqp.Connection, images ImageIndex, store storage.Storage, queueName string, log *zap.Logger) *OrphanCleanupWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrphanCleanupWorker{
		conn:      conn,
		images:    images,
		store:     store,
		queueName: queueName,
		log:       log,
	}
}

func (w *OrphanCleanupWorker) Start(ctx context.Context) error {
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
				if err := w.Handle(workerCtx, d.Body); err != nil {
					w.log.Error("orphan cleanup failed", zap.ByteString("body", d.Body), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// Handle processes one queue message body.
func (w *OrphanCleanupWorker) Handle(ctx context.Context, body []byte) error {
	var msg rabbitmq.OrphanFile
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if msg.Filename == "" {
		return errMalformed
	}

	referenced, err := w.images.ExistsByFilename(ctx, msg.Filename)
	if err != nil {
		return err
	}
	if referenced {
		w.log.Info("orphan candidate is referenced, keeping", zap.String("filename", msg.Filename))
		return nil
	}

	if err := w.store.Remove(ctx, msg.Filename); err != nil {
		return err
	}
	w.log.Info("orphaned upload removed", zap.String("filename", msg.Filename))
	return nil
}

func (w *OrphanCleanupWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
