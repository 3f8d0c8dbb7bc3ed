// Package models defines the request/response structures of the HTTP API
// and the sentinel errors shared between the service and handler layers.
package models

import (
	"encoding/json"
	"errors"
	"time"
)

// Image is one row of the images table. Label fields are nil when the
// corresponding column is NULL.
type Image struct {
	ID             int64
	UserID         int64
	URL            string
	UserLabel      *string
	SuggestedLabel *string
	CreatedAt      time.Time
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserView is the opaque user object returned to the credential provider.
type UserView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// ImageView is one gallery entry as returned by the API. The URL is already
// sanitized. Label fields are nil when the column is NULL.
type ImageView struct {
	ID             int64   `json:"id"`
	URL            string  `json:"url"`
	UserLabel      *string `json:"userLabel"`
	SuggestedLabel *string `json:"suggestedLabel,omitempty"`
}

// SaveImageItem is one element of the POST /images batch. The wire form is
// either a bare reference string or an object {"url": ..., "label": ...}.
type SaveImageItem struct {
	URL   string
	Label *string
}

// UnmarshalJSON accepts both wire forms. An empty label in the structured
// form is treated as absent.
func (i *SaveImageItem) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		i.URL = plain
		i.Label = nil
		return nil
	}

	var structured struct {
		URL   string `json:"url"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &structured); err != nil {
		return err
	}

	i.URL = structured.URL
	if structured.Label == "" {
		i.Label = nil
	} else {
		label := structured.Label
		i.Label = &label
	}

	return nil
}

// SaveImagesRequest is the body of POST /images.
type SaveImagesRequest struct {
	Images []SaveImageItem `json:"images"`
}

// SubmitLabelRequest is the body of POST /images/label.
type SubmitLabelRequest struct {
	ImageID int64  `json:"imageId"`
	Label   string `json:"label"`
}

// ListItem is one entry of a user's shopping list.
type ListItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

// ShoppingList is the per-user list document, stored as a whole under the
// user's email.
type ShoppingList struct {
	Name  string     `json:"name"`
	Items []ListItem `json:"items"`
}

// AddListItemRequest is the body of POST /list/items.
type AddListItemRequest struct {
	Name string `json:"name" validate:"required"`
	Unit string `json:"unit"`
}

// AdjustListItemRequest is the body of POST /list/items/{name}/adjust.
type AdjustListItemRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// RenameListRequest is the body of POST /list/rename.
type RenameListRequest struct {
	Name string `json:"name" validate:"required"`
}

// SuggestionJob asks the background suggester to classify one freshly
// saved image.
type SuggestionJob struct {
	UserID  int64
	ImageID int64
	URL     string
}

// KnownUnits are the units accepted for list items; anything else is
// normalized to "piece".
var KnownUnits = []string{"piece", "kg", "lb", "gram", "ml", "liter"}

var (
	// ErrUserNotFound is returned when the session email has no users row.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists is returned on duplicate registration.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrBadCredentials is returned when login verification fails.
	ErrBadCredentials = errors.New("invalid email or password")

	// ErrNotFoundOrNotOwned is returned when the target image is absent or
	// belongs to another user. The two cases are never distinguished.
	ErrNotFoundOrNotOwned = errors.New("image not found or not owned by user")

	// ErrEmptyRequest is returned when a required request field is missing.
	ErrEmptyRequest = errors.New("missing required field")

	// ErrListItemNotFound is returned when a list mutation targets an
	// unknown item name.
	ErrListItemNotFound = errors.New("list item not found")
)
