// Package listfiledb is a JSON-file fallback for the shopping-list
// document store, used in development when no Redis address is configured.
// The whole store is one file holding a map from email to list document.
package listfiledb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ptracker-app/ptracker/internal/models"
)

// ListFileDB keeps every user's list in memory and flushes the whole map
// to its backing file on each save and on Close.
type ListFileDB struct {
	fileName string
	mu       sync.RWMutex
	cache    map[string]models.ShoppingList
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(dbFile, `{}`); err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache map[string]models.ShoppingList) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(jsonData); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *map[string]models.ShoppingList) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New opens (or creates) the backing file and loads its content.
func New(fileName string) (*ListFileDB, error) {
	db := &ListFileDB{
		fileName: fileName,
		cache:    map[string]models.ShoppingList{},
	}

	err := parseJSONFile(db.fileName, &db.cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
		if err := parseJSONFile(db.fileName, &db.cache); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// LoadList returns the user's saved document, if any.
func (db *ListFileDB) LoadList(ctx context.Context, email string) (*models.ShoppingList, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	list, found := db.cache[email]
	if !found {
		return nil, false, nil
	}

	// Return a copy so callers cannot mutate the cache behind the lock.
	copied := list
	copied.Items = append([]models.ListItem(nil), list.Items...)

	return &copied, true, nil
}

// SaveList overwrites the user's document and flushes the store to disk.
func (db *ListFileDB) SaveList(ctx context.Context, email string, list *models.ShoppingList) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := *list
	stored.Items = append([]models.ListItem(nil), list.Items...)
	db.cache[email] = stored

	return writeToJSONFile(db.fileName, db.cache)
}

// Ping is a no-op for the file store.
func (db *ListFileDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the cache to the backing file.
func (db *ListFileDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.cache)
}
