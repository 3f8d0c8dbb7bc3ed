// Package suggester runs the background label-suggestion worker. Saved
// images without a user label are queued here; the worker periodically
// drains the queue, asks the external classifier for a label and stores
// the prediction. Classification is strictly best effort: failures are
// logged and the job is dropped.
package suggester

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"sync"
	"time"

	"github.com/ptracker-app/ptracker/internal/classifier"
	"github.com/ptracker-app/ptracker/internal/logger"
	"github.com/ptracker-app/ptracker/internal/models"
)

type suggestionWriter interface {
	UpdateSuggestedLabel(
		ctx context.Context,
		userID, imageID int64,
		label string,
		transaction *sql.Tx,
	) error
}

// Suggester owns the job queue, the worker goroutine and the per-image
// prediction cache. The cache is keyed by a hash of the image reference so
// the same capture queued by several saves is classified once.
type Suggester struct {
	queue                    chan *models.SuggestionJob
	db                       suggestionWriter
	classifier               classifier.Classifier
	delayBetweenQueueFetches time.Duration
	errorChannel             chan error

	cacheMu sync.Mutex
	cache   map[string]string
}

// New creates a Suggester with the given queue capacity and drain
// interval.
func New(
	db suggestionWriter,
	cls classifier.Classifier,
	channelCapacity int,
	delayBetweenQueueFetches time.Duration,
) *Suggester {
	return &Suggester{
		queue:                    make(chan *models.SuggestionJob, channelCapacity),
		db:                       db,
		classifier:               cls,
		delayBetweenQueueFetches: delayBetweenQueueFetches,
		errorChannel:             make(chan error, channelCapacity),
		cache:                    map[string]string{},
	}
}

// EnqueueJob queues one image for classification. When the queue is full
// the job is dropped; a suggestion is never worth blocking a save for.
func (s *Suggester) EnqueueJob(job *models.SuggestionJob) {
	select {
	case s.queue <- job:
	default:
		logger.Log.Debugln("suggestion queue full, dropping job for image", job.ImageID)
	}
}

// ListenErrors invokes callback for every error the worker emits.
func (s *Suggester) ListenErrors(callback func(error)) {
	go func() {
		for err := range s.errorChannel {
			callback(err)
		}
	}()
}

// Run starts the worker goroutine. It stops when ctx is cancelled.
func (s *Suggester) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.delayBetweenQueueFetches)
		defer ticker.Stop()

		var jobs []*models.SuggestionJob

		for {
			select {
			case <-ctx.Done():
				return
			case job := <-s.queue:
				jobs = append(jobs, job)
			case <-ticker.C:
				if len(jobs) == 0 {
					continue
				}
				processed := s.processJobs(ctx, jobs)
				logger.Log.Infof("processed %d of %d label suggestions", processed, len(jobs))
				jobs = nil
			}
		}
	}()
}

func (s *Suggester) processJobs(ctx context.Context, jobs []*models.SuggestionJob) int {
	processed := 0
	for _, job := range jobs {
		if err := s.processJob(ctx, job); err != nil {
			select {
			case s.errorChannel <- err:
			default:
			}
			continue
		}
		processed++
	}

	return processed
}

func (s *Suggester) processJob(ctx context.Context, job *models.SuggestionJob) error {
	label, err := s.predict(ctx, job.URL)
	if err != nil {
		return err
	}
	if label == "" {
		return nil
	}

	return s.db.UpdateSuggestedLabel(ctx, job.UserID, job.ImageID, label, nil)
}

func (s *Suggester) predict(ctx context.Context, imageRef string) (string, error) {
	key := cacheKey(imageRef)

	s.cacheMu.Lock()
	label, found := s.cache[key]
	s.cacheMu.Unlock()
	if found {
		return label, nil
	}

	label, err := s.classifier.Classify(ctx, imageRef)
	if err != nil {
		return "", err
	}

	s.cacheMu.Lock()
	if s.cache == nil {
		s.cache = map[string]string{}
	}
	s.cache[key] = label
	s.cacheMu.Unlock()

	return label, nil
}

func cacheKey(imageRef string) string {
	sum := sha256.Sum256([]byte(imageRef))
	return hex.EncodeToString(sum[:])
}
