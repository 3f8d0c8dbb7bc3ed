// Package gallery implements the session-scoped image store: list,
// bulk-save, delete and label operations, each fully scoped to the
// resolved user identity and executed as one transactional unit of work.
package gallery

import (
	"context"
	"database/sql"

	"github.com/ptracker-app/ptracker/internal/models"
	"github.com/ptracker-app/ptracker/internal/urlsanitizer"
)

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	CommitTransaction(transaction *sql.Tx) error

	RollbackTransaction(transaction *sql.Tx) error
}

type userFinder interface {
	FindUserIDByEmail(ctx context.Context, email string, transaction *sql.Tx) (int64, bool, error)
}

type imagesKeeper interface {
	GetUserImages(ctx context.Context, userID int64, transaction *sql.Tx) ([]models.Image, error)

	SaveImages(
		ctx context.Context,
		userID int64,
		items []models.SaveImageItem,
		transaction *sql.Tx,
	) ([]models.Image, error)

	DeleteImage(ctx context.Context, userID, imageID int64, transaction *sql.Tx) (bool, error)

	DeleteAllImages(ctx context.Context, userID int64, transaction *sql.Tx) (int64, error)

	UpdateImageLabel(
		ctx context.Context,
		userID, imageID int64,
		label string,
		transaction *sql.Tx,
	) (*models.Image, bool, error)
}

type storage interface {
	transactioner
	userFinder
	imagesKeeper
}

type suggestionEnqueuer interface {
	EnqueueJob(job *models.SuggestionJob)
}

// Service is the image store. The optional suggester receives a job for
// every freshly saved unlabeled image; classification is best effort and
// never affects the outcome of a save.
type Service struct {
	db        storage
	suggester suggestionEnqueuer
}

// New creates the image store service. suggester may be nil when label
// suggestion is disabled.
func New(db storage, suggester suggestionEnqueuer) *Service {
	return &Service{
		db:        db,
		suggester: suggester,
	}
}

// List returns the user's gallery, most recent first, with sanitized URLs.
// A session whose user row has vanished sees an empty gallery, matching the
// ownership-scoped query semantics.
func (s *Service) List(ctx context.Context, email string) ([]models.ImageView, error) {
	userID, found, err := s.db.FindUserIDByEmail(ctx, email, nil)
	if err != nil {
		return nil, err
	}
	if !found {
		return []models.ImageView{}, nil
	}

	images, err := s.db.GetUserImages(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	return toViews(images), nil
}

// SaveBatch persists the whole batch inside one transaction: either every
// item is stored or none is. Unlabeled items are handed to the suggester
// after a successful commit.
func (s *Service) SaveBatch(
	ctx context.Context,
	email string,
	items []models.SaveImageItem,
) ([]models.ImageView, error) {
	tx, err := s.db.BeginTransaction()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	userID, found, err := s.db.FindUserIDByEmail(ctx, email, tx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrUserNotFound
	}

	saved, err := s.db.SaveImages(ctx, userID, items, tx)
	if err != nil {
		return nil, err
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return nil, err
	}

	if s.suggester != nil {
		for _, image := range saved {
			if image.UserLabel != nil {
				continue
			}
			s.suggester.EnqueueJob(&models.SuggestionJob{
				UserID:  userID,
				ImageID: image.ID,
				URL:     image.URL,
			})
		}
	}

	return toViews(saved), nil
}

// DeleteOne removes a single image. Ownership is enforced by the delete
// predicate itself; zero affected rows means the image is absent or
// foreign, and the transaction is rolled back. The remaining-images read
// happens inside the same transaction as the delete.
func (s *Service) DeleteOne(
	ctx context.Context,
	email string,
	imageID int64,
) (int64, []models.ImageView, error) {
	tx, err := s.db.BeginTransaction()
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	userID, found, err := s.db.FindUserIDByEmail(ctx, email, tx)
	if err != nil {
		return 0, nil, err
	}
	if !found {
		return 0, nil, models.ErrUserNotFound
	}

	deleted, err := s.db.DeleteImage(ctx, userID, imageID, tx)
	if err != nil {
		return 0, nil, err
	}
	if !deleted {
		return 0, nil, models.ErrNotFoundOrNotOwned
	}

	remaining, err := s.db.GetUserImages(ctx, userID, tx)
	if err != nil {
		return 0, nil, err
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return 0, nil, err
	}

	return imageID, toViews(remaining), nil
}

// DeleteAll removes every image of the user and returns the count. Zero is
// a valid, successful result.
func (s *Service) DeleteAll(ctx context.Context, email string) (int64, error) {
	tx, err := s.db.BeginTransaction()
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	userID, found, err := s.db.FindUserIDByEmail(ctx, email, tx)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, models.ErrUserNotFound
	}

	count, err := s.db.DeleteAllImages(ctx, userID, tx)
	if err != nil {
		return 0, err
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return 0, err
	}

	return count, nil
}

// UpdateLabel sets the user label of one owned image. The ownership check
// and the update run in one transaction, so a concurrent delete cannot
// slip in between.
func (s *Service) UpdateLabel(
	ctx context.Context,
	email string,
	imageID int64,
	label string,
) (*models.ImageView, error) {
	if imageID == 0 || label == "" {
		return nil, models.ErrEmptyRequest
	}

	tx, err := s.db.BeginTransaction()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	userID, found, err := s.db.FindUserIDByEmail(ctx, email, tx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrUserNotFound
	}

	updated, found, err := s.db.UpdateImageLabel(ctx, userID, imageID, label, tx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrNotFoundOrNotOwned
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return nil, err
	}

	view := toView(*updated)

	return &view, nil
}

func toView(image models.Image) models.ImageView {
	return models.ImageView{
		ID:             image.ID,
		URL:            urlsanitizer.Sanitize(image.URL),
		UserLabel:      image.UserLabel,
		SuggestedLabel: image.SuggestedLabel,
	}
}

func toViews(images []models.Image) []models.ImageView {
	result := make([]models.ImageView, 0, len(images))
	for _, image := range images {
		result = append(result, toView(image))
	}

	return result
}
