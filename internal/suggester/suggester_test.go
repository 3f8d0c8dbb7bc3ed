package suggester

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptracker-app/ptracker/internal/models"
)

type storedSuggestion struct {
	userID  int64
	imageID int64
	label   string
}

type recordingWriter struct {
	mu      sync.Mutex
	updates []storedSuggestion
}

func (w *recordingWriter) UpdateSuggestedLabel(
	ctx context.Context,
	userID, imageID int64,
	label string,
	tx *sql.Tx,
) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updates = append(w.updates, storedSuggestion{userID: userID, imageID: imageID, label: label})

	return nil
}

func (w *recordingWriter) snapshot() []storedSuggestion {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]storedSuggestion(nil), w.updates...)
}

type countingClassifier struct {
	mu    sync.Mutex
	calls int
	label string
	err   error
}

func (c *countingClassifier) Classify(ctx context.Context, imageRef string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	return c.label, c.err
}

func (c *countingClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

func TestRunStoresPredictions(t *testing.T) {
	db := &recordingWriter{}
	cls := &countingClassifier{label: "banana"}
	s := New(db, cls, 8, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Run(ctx)

	s.EnqueueJob(&models.SuggestionJob{UserID: 1, ImageID: 10, URL: "https://example.com/a.png"})

	require.Eventually(t, func() bool {
		return len(db.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	stored := db.snapshot()[0]
	assert.Equal(t, int64(1), stored.userID)
	assert.Equal(t, int64(10), stored.imageID)
	assert.Equal(t, "banana", stored.label)
}

func TestRunCachesPredictionPerImageReference(t *testing.T) {
	db := &recordingWriter{}
	cls := &countingClassifier{label: "banana"}
	s := New(db, cls, 8, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Run(ctx)

	// The same capture saved twice must be classified once, but both rows
	// still get the prediction.
	s.EnqueueJob(&models.SuggestionJob{UserID: 1, ImageID: 10, URL: "https://example.com/a.png"})
	s.EnqueueJob(&models.SuggestionJob{UserID: 2, ImageID: 11, URL: "https://example.com/a.png"})

	require.Eventually(t, func() bool {
		return len(db.snapshot()) == 2
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, cls.callCount())
}

func TestRunForwardsClassifierErrors(t *testing.T) {
	db := &recordingWriter{}
	cls := &countingClassifier{err: errors.New("classifier down")}
	s := New(db, cls, 8, 10*time.Millisecond)

	errCh := make(chan error, 1)
	s.ListenErrors(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Run(ctx)

	s.EnqueueJob(&models.SuggestionJob{UserID: 1, ImageID: 10, URL: "https://example.com/a.png"})

	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "classifier down")
	case <-time.After(time.Second):
		t.Fatal("expected an error from the suggester")
	}

	assert.Empty(t, db.snapshot())
}

func TestEnqueueJobDropsWhenQueueIsFull(t *testing.T) {
	db := &recordingWriter{}
	cls := &countingClassifier{label: "banana"}

	// Worker never started, so the queue fills up and stays full.
	s := New(db, cls, 1, time.Hour)

	s.EnqueueJob(&models.SuggestionJob{UserID: 1, ImageID: 10, URL: "https://example.com/a.png"})
	s.EnqueueJob(&models.SuggestionJob{UserID: 1, ImageID: 11, URL: "https://example.com/b.png"})

	assert.Len(t, s.queue, 1)
}
