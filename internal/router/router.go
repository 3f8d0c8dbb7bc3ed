// Package router wires the HTTP surface of the service: account
// endpoints, the session-gated image gallery and shopping-list endpoints,
// and the health check. Handlers translate service-level sentinel errors
// into HTTP statuses; every failure body is JSON {"error": ...}.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/ptracker-app/ptracker/internal/auth"
	"github.com/ptracker-app/ptracker/internal/gzippedhttp"
	"github.com/ptracker-app/ptracker/internal/logger"
	"github.com/ptracker-app/ptracker/internal/models"
	"github.com/ptracker-app/ptracker/internal/shoppinglist"
	"github.com/ptracker-app/ptracker/internal/user"
)

type galleryService interface {
	List(ctx context.Context, email string) ([]models.ImageView, error)

	SaveBatch(
		ctx context.Context,
		email string,
		items []models.SaveImageItem,
	) ([]models.ImageView, error)

	DeleteOne(ctx context.Context, email string, imageID int64) (int64, []models.ImageView, error)

	DeleteAll(ctx context.Context, email string) (int64, error)

	UpdateLabel(
		ctx context.Context,
		email string,
		imageID int64,
		label string,
	) (*models.ImageView, error)
}

type accountsService interface {
	Register(ctx context.Context, email, password string) (*user.User, error)
	Login(ctx context.Context, email, password string) (*user.User, error)
}

type listService interface {
	Load(ctx context.Context, email string) (*models.ShoppingList, error)
	AddItem(ctx context.Context, email, name, unit string) (*models.ShoppingList, error)
	RemoveItem(ctx context.Context, email, name string) (*models.ShoppingList, error)
	Adjust(ctx context.Context, email, name string, delta int) (*models.ShoppingList, error)
	Rename(ctx context.Context, email, newName string) (*models.ShoppingList, error)
	Save(ctx context.Context, email string, list *models.ShoppingList) error
}

type sessionManager interface {
	IssueSession(response http.ResponseWriter, email string) error
	AuthenticateUser(h http.Handler) http.Handler
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Router holds the handler dependencies.
type Router struct {
	gallery  galleryService
	accounts accountsService
	lists    listService
	sessions sessionManager
	pinger   pinger
	validate *validator.Validate
}

// New builds the chi router with logging, gzip and authentication
// middleware in place.
func New(
	gallery galleryService,
	accounts accountsService,
	lists listService,
	sessions sessionManager,
	p pinger,
) *chi.Mux {
	h := &Router{
		gallery:  gallery,
		accounts: accounts,
		lists:    lists,
		sessions: sessions,
		pinger:   p,
		validate: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(gzippedhttp.UngzipRequest)
	router.Use(gzippedhttp.GzipResponse)

	router.Post(`/auth/register`, h.PostAuthRegister)
	router.Post(`/auth/login`, h.PostAuthLogin)
	router.Get(`/ping`, h.GetPing)

	router.Group(func(protected chi.Router) {
		protected.Use(h.sessions.AuthenticateUser)

		protected.Get(`/images`, h.GetImages)
		protected.Post(`/images`, h.PostImages)
		protected.Delete(`/images/one`, h.DeleteImagesOne)
		protected.Delete(`/images/all`, h.DeleteImagesAll)
		protected.Post(`/images/label`, h.PostImagesLabel)

		protected.Route(`/list`, func(list chi.Router) {
			list.Get(`/`, h.GetList)
			list.Put(`/`, h.PutList)
			list.Post(`/items`, h.PostListItems)
			list.Delete(`/items/{name}`, h.DeleteListItem)
			list.Post(`/items/{name}/adjust`, h.PostListItemAdjust)
			list.Post(`/rename`, h.PostListRename)
		})
	})

	return router
}

// PostAuthRegister creates a new account and opens a session for it.
func (h *Router) PostAuthRegister(response http.ResponseWriter, request *http.Request) {
	requestBody := &models.RegisterRequest{}
	if err := json.NewDecoder(request.Body).Decode(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Email and password required")
		return
	}

	created, err := h.accounts.Register(request.Context(), requestBody.Email, requestBody.Password)
	if err != nil {
		if errors.Is(err, models.ErrUserAlreadyExists) {
			writeError(response, http.StatusBadRequest, "User already exists")
			return
		}
		logger.Log.Errorln("registration error:", err)
		writeError(response, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.sessions.IssueSession(response, created.Email); err != nil {
		logger.Log.Errorln("session issuance error:", err)
		writeError(response, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(response, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user": models.UserView{
			ID:    created.ID,
			Email: created.Email,
		},
	})
}

// PostAuthLogin verifies credentials and returns the opaque user object
// the credential provider expects, with the session attached.
func (h *Router) PostAuthLogin(response http.ResponseWriter, request *http.Request) {
	requestBody := &models.LoginRequest{}
	if err := json.NewDecoder(request.Body).Decode(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Email and password required")
		return
	}

	usr, err := h.accounts.Login(request.Context(), requestBody.Email, requestBody.Password)
	if err != nil {
		if errors.Is(err, models.ErrBadCredentials) {
			writeError(response, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		logger.Log.Errorln("login error:", err)
		writeError(response, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.sessions.IssueSession(response, usr.Email); err != nil {
		logger.Log.Errorln("session issuance error:", err)
		writeError(response, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(response, http.StatusOK, models.UserView{
		ID:    usr.ID,
		Email: usr.Email,
	})
}

// GetImages returns the caller's gallery, most recent first.
func (h *Router) GetImages(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	images, err := h.gallery.List(request.Context(), email)
	if err != nil {
		logger.Log.Errorln("error fetching images:", err)
		writeError(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, images)
}

// PostImages persists a batch of captured images in one transaction.
func (h *Router) PostImages(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	requestBody := &models.SaveImagesRequest{}
	if err := json.NewDecoder(request.Body).Decode(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Invalid request body")
		return
	}
	if requestBody.Images == nil {
		writeError(response, http.StatusBadRequest, "Images must be an array")
		return
	}

	saved, err := h.gallery.SaveBatch(request.Context(), email, requestBody.Images)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			writeError(response, http.StatusNotFound, "User not found")
			return
		}
		logger.Log.Errorln("error saving images:", err)
		writeError(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, map[string]interface{}{
		"message":     "Images saved successfully",
		"savedImages": saved,
	})
}

// DeleteImagesOne removes the image given by the id query parameter and
// returns the consistent post-delete gallery.
func (h *Router) DeleteImagesOne(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	rawImageID := request.URL.Query().Get("id")
	if rawImageID == "" {
		writeError(response, http.StatusBadRequest, "Missing image ID")
		return
	}
	imageID, err := strconv.ParseInt(rawImageID, 10, 64)
	if err != nil {
		writeError(response, http.StatusBadRequest, "Invalid image ID")
		return
	}

	deletedID, remaining, err := h.gallery.DeleteOne(request.Context(), email, imageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFoundOrNotOwned) || errors.Is(err, models.ErrUserNotFound) {
			writeError(response, http.StatusInternalServerError, err.Error())
			return
		}
		logger.Log.Errorln("error deleting image:", err)
		writeError(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, map[string]interface{}{
		"message":         "Image deleted successfully",
		"deletedImageId":  deletedID,
		"remainingImages": remaining,
	})
}

// DeleteImagesAll removes the caller's whole gallery. Zero deletions is a
// success.
func (h *Router) DeleteImagesAll(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	count, err := h.gallery.DeleteAll(request.Context(), email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			writeError(response, http.StatusInternalServerError, err.Error())
			return
		}
		logger.Log.Errorln("error deleting all images:", err)
		writeError(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, map[string]interface{}{
		"message":      "All images deleted successfully",
		"deletedCount": count,
	})
}

// PostImagesLabel sets the user label of one owned image.
func (h *Router) PostImagesLabel(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	requestBody := &models.SubmitLabelRequest{}
	if err := json.NewDecoder(request.Body).Decode(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.gallery.UpdateLabel(request.Context(), email, requestBody.ImageID, requestBody.Label)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyRequest):
			writeError(response, http.StatusBadRequest, "Missing imageId or label")
		case errors.Is(err, models.ErrNotFoundOrNotOwned):
			writeError(response, http.StatusNotFound, "Image not found or does not belong to user")
		default:
			logger.Log.Errorln("error submitting label:", err)
			writeError(response, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(response, http.StatusOK, map[string]interface{}{
		"message":   "Label submitted successfully",
		"image":     updated,
		"userLabel": updated.UserLabel,
	})
}

// GetList returns the caller's list document, with an optional
// case-insensitive ?q= substring filter over the items.
func (h *Router) GetList(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	list, err := h.lists.Load(request.Context(), email)
	if err != nil {
		logger.Log.Errorln("error loading list:", err)
		writeError(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	if q := request.URL.Query().Get("q"); q != "" {
		list.Items = shoppinglist.Filter(list, q)
	}

	writeJSON(response, http.StatusOK, list)
}

// PutList replaces the caller's whole list document.
func (h *Router) PutList(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	requestBody := &models.ShoppingList{}
	if err := json.NewDecoder(request.Body).Decode(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.lists.Save(request.Context(), email, requestBody); err != nil {
		logger.Log.Errorln("error saving list:", err)
		writeError(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, map[string]string{"message": "List saved successfully"})
}

// PostListItems adds one item to the caller's list. Duplicate names are a
// no-op.
func (h *Router) PostListItems(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	requestBody := &models.AddListItemRequest{}
	if err := json.NewDecoder(request.Body).Decode(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Item name required")
		return
	}

	list, err := h.lists.AddItem(request.Context(), email, requestBody.Name, requestBody.Unit)
	if err != nil {
		logger.Log.Errorln("error adding list item:", err)
		writeError(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, list)
}

// DeleteListItem removes the named item from the caller's list.
func (h *Router) DeleteListItem(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	name := chi.URLParam(request, "name")

	list, err := h.lists.RemoveItem(request.Context(), email, name)
	if err != nil {
		if errors.Is(err, models.ErrListItemNotFound) {
			writeError(response, http.StatusNotFound, "Item not found")
			return
		}
		logger.Log.Errorln("error removing list item:", err)
		writeError(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, list)
}

// PostListItemAdjust changes the named item's quantity by the given delta.
func (h *Router) PostListItemAdjust(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	name := chi.URLParam(request, "name")

	requestBody := &models.AdjustListItemRequest{}
	if err := json.NewDecoder(request.Body).Decode(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Invalid request body")
		return
	}
	if requestBody.Delta == 0 {
		writeError(response, http.StatusBadRequest, "Delta must be non-zero")
		return
	}

	list, err := h.lists.Adjust(request.Context(), email, name, requestBody.Delta)
	if err != nil {
		if errors.Is(err, models.ErrListItemNotFound) {
			writeError(response, http.StatusNotFound, "Item not found")
			return
		}
		logger.Log.Errorln("error adjusting list item:", err)
		writeError(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, list)
}

// PostListRename renames the caller's active list.
func (h *Router) PostListRename(response http.ResponseWriter, request *http.Request) {
	email, ok := auth.EmailFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Not authenticated")
		return
	}

	requestBody := &models.RenameListRequest{}
	if err := json.NewDecoder(request.Body).Decode(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(requestBody); err != nil {
		writeError(response, http.StatusBadRequest, "List name required")
		return
	}

	list, err := h.lists.Rename(request.Context(), email, requestBody.Name)
	if err != nil {
		logger.Log.Errorln("error renaming list:", err)
		writeError(response, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(response, http.StatusOK, list)
}

// GetPing reports storage health.
func (h *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := h.pinger.Ping(request.Context()); err != nil {
		logger.Log.Errorln("ping error:", err)
		writeError(response, http.StatusInternalServerError, "storage unavailable")
		return
	}

	response.WriteHeader(http.StatusOK)
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Errorln("error encoding response:", err)
	}
}

func writeError(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, map[string]string{"error": message})
}
