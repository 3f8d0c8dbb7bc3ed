// Package postgresdb provides the PostgreSQL-backed storage for users and
// their image galleries. It runs goose migrations at startup and supports
// transactional operations: every method accepts an optional *sql.Tx and
// falls back to the shared connection pool when none is given.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/thoas/go-funk"

	"github.com/ptracker-app/ptracker/internal/models"
	"github.com/ptracker-app/ptracker/internal/user"
)

// PostgresDB is the relational storage of the service. One instance wraps
// the process-wide connection pool.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// New connects to PostgreSQL, applies pending goose migrations from
// migrationsDir and returns the configured store.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
) (*PostgresDB, error) {
	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return result, nil
}

func (db *PostgresDB) queryerFor(transaction *sql.Tx) queryer {
	if transaction == nil {
		return db.database
	}
	return transaction
}

func (db *PostgresDB) executorFor(transaction *sql.Tx) executor {
	if transaction == nil {
		return db.database
	}
	return transaction
}

// BeginTransaction starts a new transaction. The caller is responsible for
// committing or rolling it back.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// CommitTransaction commits the given transaction.
func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// RollbackTransaction rolls back the given transaction. Rolling back an
// already-finished transaction is not an error.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	err := transaction.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

// CreateUser inserts a new users row and returns it with the assigned id.
func (db *PostgresDB) CreateUser(
	ctx context.Context,
	email string,
	passwordHash string,
	transaction *sql.Tx,
) (*user.User, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`INSERT INTO users (email, password) VALUES ($1, $2) RETURNING id, created_at`,
		email,
		passwordHash,
	)

	result := &user.User{
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := row.Scan(&result.ID, &result.CreatedAt); err != nil {
		return nil, err
	}

	return result, nil
}

// FindUserByEmail fetches a full users row. The boolean reports presence.
func (db *PostgresDB) FindUserByEmail(
	ctx context.Context,
	email string,
	transaction *sql.Tx,
) (*user.User, bool, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`SELECT id, email, password, created_at FROM users WHERE email = $1`,
		email,
	)

	result := &user.User{}
	err := row.Scan(&result.ID, &result.Email, &result.PasswordHash, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return result, true, nil
}

// FindUserIDByEmail resolves the internal user id for the given identity.
func (db *PostgresDB) FindUserIDByEmail(
	ctx context.Context,
	email string,
	transaction *sql.Tx,
) (int64, bool, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`SELECT id FROM users WHERE email = $1`,
		email,
	)

	var userID int64
	err := row.Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}

	return userID, true, nil
}

// GetUserImages returns every image of the given user, most recent first.
func (db *PostgresDB) GetUserImages(
	ctx context.Context,
	userID int64,
	transaction *sql.Tx,
) ([]models.Image, error) {
	rows, err := db.queryerFor(transaction).QueryContext(
		ctx,
		`
			SELECT id, user_id, url, user_label, suggested_label, created_at
				FROM images
				WHERE user_id = $1
				ORDER BY created_at DESC, id DESC
		`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Image{}
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, image)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// SaveImages inserts the whole batch with a single multi-row statement and
// returns the persisted rows. Meant to run inside a transaction so that a
// failed batch leaves nothing behind.
func (db *PostgresDB) SaveImages(
	ctx context.Context,
	userID int64,
	items []models.SaveImageItem,
	transaction *sql.Tx,
) ([]models.Image, error) {
	if len(items) == 0 {
		return []models.Image{}, nil
	}

	values := make([][]interface{}, 0, len(items))
	placeholders := make([]string, 0, len(items))
	for i, item := range items {
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3))
		values = append(values, []interface{}{userID, item.URL, item.Label})
	}

	rows, err := db.queryerFor(transaction).QueryContext(
		ctx,
		fmt.Sprintf(
			`
				INSERT INTO images (user_id, url, user_label)
					VALUES %s
					RETURNING id, user_id, url, user_label, suggested_label, created_at
			`,
			strings.Join(placeholders, ","),
		),
		funk.Flatten(values).([]interface{})...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]models.Image, 0, len(items))
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, image)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteImage removes one image. Ownership is part of the query predicate;
// the boolean reports whether a row matching both id and owner existed.
func (db *PostgresDB) DeleteImage(
	ctx context.Context,
	userID int64,
	imageID int64,
	transaction *sql.Tx,
) (bool, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`DELETE FROM images WHERE id = $1 AND user_id = $2 RETURNING id`,
		imageID,
		userID,
	)

	var deletedID int64
	err := row.Scan(&deletedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// DeleteAllImages removes every image of the user and returns the count.
func (db *PostgresDB) DeleteAllImages(
	ctx context.Context,
	userID int64,
	transaction *sql.Tx,
) (int64, error) {
	result, err := db.executorFor(transaction).ExecContext(
		ctx,
		`DELETE FROM images WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// UpdateImageLabel sets the user label of one image. The ownership check
// and the update are a single statement, so there is no window for another
// request to delete the row in between. The boolean reports whether a row
// matching both id and owner existed.
func (db *PostgresDB) UpdateImageLabel(
	ctx context.Context,
	userID int64,
	imageID int64,
	label string,
	transaction *sql.Tx,
) (*models.Image, bool, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			UPDATE images
				SET user_label = $1
				WHERE id = $2 AND user_id = $3
				RETURNING id, user_id, url, user_label, suggested_label, created_at
		`,
		label,
		imageID,
		userID,
	)

	image, err := scanImageRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return image, true, nil
}

// UpdateSuggestedLabel stores a classifier suggestion for one image. Used
// by the background suggester only; silently matches zero rows when the
// image was deleted in the meantime.
func (db *PostgresDB) UpdateSuggestedLabel(
	ctx context.Context,
	userID int64,
	imageID int64,
	label string,
	transaction *sql.Tx,
) error {
	_, err := db.executorFor(transaction).ExecContext(
		ctx,
		`UPDATE images SET suggested_label = $1 WHERE id = $2 AND user_id = $3`,
		label,
		imageID,
		userID,
	)

	return err
}

// Ping verifies database connectivity within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close releases the connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(rows *sql.Rows) (models.Image, error) {
	var image models.Image
	var userLabel, suggestedLabel sql.NullString
	err := rows.Scan(&image.ID, &image.UserID, &image.URL, &userLabel, &suggestedLabel, &image.CreatedAt)
	if err != nil {
		return models.Image{}, err
	}

	image.UserLabel = nullableString(userLabel)
	image.SuggestedLabel = nullableString(suggestedLabel)

	return image, nil
}

func scanImageRow(row rowScanner) (*models.Image, error) {
	image := &models.Image{}
	var userLabel, suggestedLabel sql.NullString
	err := row.Scan(&image.ID, &image.UserID, &image.URL, &userLabel, &suggestedLabel, &image.CreatedAt)
	if err != nil {
		return nil, err
	}

	image.UserLabel = nullableString(userLabel)
	image.SuggestedLabel = nullableString(suggestedLabel)

	return image, nil
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}

	return &value.String
}
