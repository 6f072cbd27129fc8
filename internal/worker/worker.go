package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"docupload/internal/model"
	"docupload/internal/queue"
	"docupload/internal/repository"
	"docupload/internal/storage"
)

// DefaultDequeueTimeout bounds each blocking pop so the run loop can observe
// context cancellation between polls.
const DefaultDequeueTimeout = 5 * time.Second

// Processor consumes document IDs from the queue and runs them through the
// processing lifecycle: queued -> processing -> processed | failed.
type Processor struct {
	repo           repository.DocumentRepository
	store          storage.Storage
	queue          queue.Queue
	loc            *time.Location
	dequeueTimeout time.Duration
	processedTotal *prometheus.CounterVec
}

// New constructs a Processor and registers its metrics on reg.
func New(repo repository.DocumentRepository, store storage.Storage, q queue.Queue, loc *time.Location, reg prometheus.Registerer) (*Processor, error) {
	processedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_processed_total",
			Help: "Total number of documents that finished processing, by final status.",
		},
		[]string{"status"},
	)
	if err := reg.Register(processedTotal); err != nil {
		return nil, fmt.Errorf("register processed counter: %w", err)
	}

	return &Processor{
		repo:           repo,
		store:          store,
		queue:          q,
		loc:            loc,
		dequeueTimeout: DefaultDequeueTimeout,
		processedTotal: processedTotal,
	}, nil
}

// Run consumes the queue until ctx is cancelled. Individual document failures
// are recorded on the document row and never stop the loop.
func (p *Processor) Run(ctx context.Context) error {
	p.logJSON(map[string]any{
		"component": "worker",
		"event":     "worker_started",
		"status":    "success",
	})

	for {
		select {
		case <-ctx.Done():
			p.logJSON(map[string]any{
				"component": "worker",
				"event":     "worker_stopped",
				"status":    "success",
			})
			return nil
		default:
		}

		id, err := p.queue.Dequeue(ctx, p.dequeueTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			p.logJSON(map[string]any{
				"component":     "worker",
				"event":         "dequeue_failed",
				"status":        "error",
				"error_message": err.Error(),
			})
			// Avoid a hot loop when the broker is misbehaving.
			time.Sleep(time.Second)
			continue
		}

		if err := p.Process(ctx, id); err != nil {
			p.logJSON(map[string]any{
				"component":     "worker",
				"event":         "process_failed",
				"status":        "error",
				"document_id":   id,
				"error_message": err.Error(),
			})
		}
	}
}

// Process runs a single document through the lifecycle. A missing document is
// logged and skipped without error: the row may have been deleted between
// enqueue and dequeue.
func (p *Processor) Process(ctx context.Context, id string) error {
	start := time.Now()

	doc, err := p.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			p.logJSON(map[string]any{
				"component":   "worker",
				"event":       "document_missing",
				"status":      "success",
				"document_id": id,
			})
			return nil
		}
		return fmt.Errorf("find document %s: %w", id, err)
	}

	if err := p.repo.UpdateStatus(ctx, id, model.StatusProcessing); err != nil {
		return fmt.Errorf("mark processing %s: %w", id, err)
	}

	bytes, err := p.extract(ctx, doc)
	if err != nil {
		p.processedTotal.WithLabelValues(string(model.StatusFailed)).Inc()
		if updErr := p.repo.UpdateStatus(ctx, id, model.StatusFailed); updErr != nil {
			return fmt.Errorf("extract %s: %v; mark failed: %w", id, err, updErr)
		}
		return fmt.Errorf("extract %s: %w", id, err)
	}

	if err := p.repo.UpdateStatus(ctx, id, model.StatusProcessed); err != nil {
		return fmt.Errorf("mark processed %s: %w", id, err)
	}
	p.processedTotal.WithLabelValues(string(model.StatusProcessed)).Inc()

	p.logJSON(map[string]any{
		"component":   "worker",
		"event":       "document_processed",
		"status":      "success",
		"document_id": id,
		"filename":    doc.Filename,
		"bytes":       bytes,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// extract streams the object and returns the number of content bytes.
func (p *Processor) extract(ctx context.Context, doc *model.Document) (int64, error) {
	rc, _, err := p.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return 0, fmt.Errorf("get object %s: %w", doc.StoragePath, err)
	}
	defer rc.Close()

	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		return 0, fmt.Errorf("read object %s: %w", doc.StoragePath, err)
	}
	return n, nil
}

func (p *Processor) logJSON(data map[string]any) {
	data["ts"] = time.Now().In(p.loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal worker log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
