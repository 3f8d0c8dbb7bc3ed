// Package shoppinglist implements the per-user named-list feature on top
// of a document store. Each mutation is one independent load-modify-save of
// the user's whole document; there is no cross-item transactional
// guarantee.
package shoppinglist

import (
	"context"
	"strings"

	"github.com/thoas/go-funk"

	"github.com/ptracker-app/ptracker/internal/models"
)

type listKeeper interface {
	LoadList(ctx context.Context, email string) (*models.ShoppingList, bool, error)
	SaveList(ctx context.Context, email string, list *models.ShoppingList) error
}

// Service is the list store. Users without a saved document get a copy of
// the shared default list.
type Service struct {
	db              listKeeper
	defaultListName string
}

// New creates the list service.
func New(db listKeeper, defaultListName string) *Service {
	return &Service{
		db:              db,
		defaultListName: defaultListName,
	}
}

func (s *Service) defaultList() *models.ShoppingList {
	return &models.ShoppingList{
		Name:  s.defaultListName,
		Items: []models.ListItem{},
	}
}

// Load returns the user's saved list, falling back to the default list
// when none has been saved yet.
func (s *Service) Load(ctx context.Context, email string) (*models.ShoppingList, error) {
	list, found, err := s.db.LoadList(ctx, email)
	if err != nil {
		return nil, err
	}
	if !found {
		return s.defaultList(), nil
	}

	if list.Items == nil {
		list.Items = []models.ListItem{}
	}

	return list, nil
}

// AddItem appends a new item with quantity 1. Adding a name that already
// exists is a no-op. Units outside the known set fall back to "piece".
func (s *Service) AddItem(ctx context.Context, email, name, unit string) (*models.ShoppingList, error) {
	list, err := s.Load(ctx, email)
	if err != nil {
		return nil, err
	}

	if funk.Contains(itemNames(list), name) {
		return list, nil
	}

	if !funk.Contains(models.KnownUnits, unit) {
		unit = "piece"
	}

	list.Items = append(list.Items, models.ListItem{
		Name:     name,
		Quantity: 1,
		Unit:     unit,
	})

	if err := s.db.SaveList(ctx, email, list); err != nil {
		return nil, err
	}

	return list, nil
}

// RemoveItem deletes the named item.
func (s *Service) RemoveItem(ctx context.Context, email, name string) (*models.ShoppingList, error) {
	list, err := s.Load(ctx, email)
	if err != nil {
		return nil, err
	}

	index := indexOfItem(list, name)
	if index < 0 {
		return nil, models.ErrListItemNotFound
	}

	list.Items = append(list.Items[:index], list.Items[index+1:]...)

	if err := s.db.SaveList(ctx, email, list); err != nil {
		return nil, err
	}

	return list, nil
}

// Adjust changes the named item's quantity by delta. Quantity is clamped
// at zero, and an item reaching zero is removed from the list.
func (s *Service) Adjust(ctx context.Context, email, name string, delta int) (*models.ShoppingList, error) {
	list, err := s.Load(ctx, email)
	if err != nil {
		return nil, err
	}

	index := indexOfItem(list, name)
	if index < 0 {
		return nil, models.ErrListItemNotFound
	}

	quantity := list.Items[index].Quantity + delta
	if quantity < 0 {
		quantity = 0
	}

	if quantity == 0 {
		list.Items = append(list.Items[:index], list.Items[index+1:]...)
	} else {
		list.Items[index].Quantity = quantity
	}

	if err := s.db.SaveList(ctx, email, list); err != nil {
		return nil, err
	}

	return list, nil
}

// Rename changes the name of the user's active list.
func (s *Service) Rename(ctx context.Context, email, newName string) (*models.ShoppingList, error) {
	list, err := s.Load(ctx, email)
	if err != nil {
		return nil, err
	}

	list.Name = newName

	if err := s.db.SaveList(ctx, email, list); err != nil {
		return nil, err
	}

	return list, nil
}

// Save persists the given document as-is under the user's email. Items
// with non-positive quantities are dropped, keeping the stored document
// consistent with the clamp-at-zero rule.
func (s *Service) Save(ctx context.Context, email string, list *models.ShoppingList) error {
	if list.Name == "" {
		list.Name = s.defaultListName
	}

	kept := make([]models.ListItem, 0, len(list.Items))
	for _, item := range list.Items {
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	list.Items = kept

	return s.db.SaveList(ctx, email, list)
}

// Filter returns the items whose name contains substr, case-insensitively.
// An empty substr returns every item. Pure; the list is not modified.
func Filter(list *models.ShoppingList, substr string) []models.ListItem {
	if substr == "" {
		return append([]models.ListItem(nil), list.Items...)
	}

	needle := strings.ToLower(substr)
	result := []models.ListItem{}
	for _, item := range list.Items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			result = append(result, item)
		}
	}

	return result
}

func itemNames(list *models.ShoppingList) []string {
	result := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		result = append(result, item.Name)
	}

	return result
}

func indexOfItem(list *models.ShoppingList, name string) int {
	for i, item := range list.Items {
		if item.Name == name {
			return i
		}
	}

	return -1
}
