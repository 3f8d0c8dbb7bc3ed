// Package mockstorage provides testify-based mock implementations of the
// internal storage interfaces. Service and handler tests use them to
// simulate database behavior without a live PostgreSQL or Redis.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/ptracker-app/ptracker/internal/models"
	"github.com/ptracker-app/ptracker/internal/user"
)

// StorageMock implements the relational storage interfaces consumed by
// the accounts, gallery and suggester packages.
type StorageMock struct {
	mock.Mock
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// CreateUser mocks inserting a users row.
func (m *StorageMock) CreateUser(
	ctx context.Context,
	email, passwordHash string,
	tx *sql.Tx,
) (*user.User, error) {
	args := m.Called(ctx, email, passwordHash, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// FindUserByEmail mocks the full-row user lookup.
func (m *StorageMock) FindUserByEmail(
	ctx context.Context,
	email string,
	tx *sql.Tx,
) (*user.User, bool, error) {
	args := m.Called(ctx, email, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// FindUserIDByEmail mocks the id-only user lookup.
func (m *StorageMock) FindUserIDByEmail(
	ctx context.Context,
	email string,
	tx *sql.Tx,
) (int64, bool, error) {
	args := m.Called(ctx, email, tx)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

// GetUserImages mocks fetching a user's gallery.
func (m *StorageMock) GetUserImages(
	ctx context.Context,
	userID int64,
	tx *sql.Tx,
) ([]models.Image, error) {
	args := m.Called(ctx, userID, tx)
	images, _ := args.Get(0).([]models.Image)
	return images, args.Error(1)
}

// SaveImages mocks the batch insert.
func (m *StorageMock) SaveImages(
	ctx context.Context,
	userID int64,
	items []models.SaveImageItem,
	tx *sql.Tx,
) ([]models.Image, error) {
	args := m.Called(ctx, userID, items, tx)
	images, _ := args.Get(0).([]models.Image)
	return images, args.Error(1)
}

// DeleteImage mocks the ownership-scoped single delete.
func (m *StorageMock) DeleteImage(
	ctx context.Context,
	userID, imageID int64,
	tx *sql.Tx,
) (bool, error) {
	args := m.Called(ctx, userID, imageID, tx)
	return args.Bool(0), args.Error(1)
}

// DeleteAllImages mocks the bulk delete.
func (m *StorageMock) DeleteAllImages(
	ctx context.Context,
	userID int64,
	tx *sql.Tx,
) (int64, error) {
	args := m.Called(ctx, userID, tx)
	return args.Get(0).(int64), args.Error(1)
}

// UpdateImageLabel mocks the ownership-scoped label update.
func (m *StorageMock) UpdateImageLabel(
	ctx context.Context,
	userID, imageID int64,
	label string,
	tx *sql.Tx,
) (*models.Image, bool, error) {
	args := m.Called(ctx, userID, imageID, label, tx)
	image, _ := args.Get(0).(*models.Image)
	return image, args.Bool(1), args.Error(2)
}

// UpdateSuggestedLabel mocks storing a classifier prediction.
func (m *StorageMock) UpdateSuggestedLabel(
	ctx context.Context,
	userID, imageID int64,
	label string,
	tx *sql.Tx,
) error {
	args := m.Called(ctx, userID, imageID, label, tx)
	return args.Error(0)
}

// ListStoreMock implements the document-store interface consumed by the
// shoppinglist package.
type ListStoreMock struct {
	mock.Mock
}

// LoadList mocks fetching a user's list document.
func (m *ListStoreMock) LoadList(
	ctx context.Context,
	email string,
) (*models.ShoppingList, bool, error) {
	args := m.Called(ctx, email)
	list, _ := args.Get(0).(*models.ShoppingList)
	return list, args.Bool(1), args.Error(2)
}

// SaveList mocks overwriting a user's list document.
func (m *ListStoreMock) SaveList(
	ctx context.Context,
	email string,
	list *models.ShoppingList,
) error {
	args := m.Called(ctx, email, list)
	return args.Error(0)
}
