package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
)

// Handler handles HTTP requests for zombies and their items.
type Handler struct {
	store     *Store
	refresher *Refresher
	logger    *log.Logger
}

// NewHandler creates a Handler with dependencies.
func NewHandler(store *Store, refresher *Refresher, logger *log.Logger) *Handler {
	return &Handler{store: store, refresher: refresher, logger: logger}
}

// zombiesHandler routes requests without ID: GET for list, POST for create.
func (h *Handler) zombiesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListZombies(w, r)
	case http.MethodPost:
		h.handleCreateZombie(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// zombieHandler routes requests below /zombies/: the single-zombie routes,
// the items collection, and the single-item-by-index routes.
func (h *Handler) zombieHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/zombies/"), "/")
	parts := strings.Split(path, "/")
	if parts[0] == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := parseZombieID(parts[0])

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleGetZombie(w, r, id)
		case http.MethodPut:
			h.handleUpdateZombie(w, r, id)
		case http.MethodDelete:
			h.handleDeleteZombie(w, r, id)
		default:
			w.Header().Set("Allow", "GET, PUT, DELETE")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "items":
		switch r.Method {
		case http.MethodGet:
			h.handleListItems(w, r, id)
		case http.MethodPut:
			h.handleReplaceItems(w, r, id)
		case http.MethodPatch:
			h.handleAppendItem(w, r, id)
		default:
			w.Header().Set("Allow", "GET, PUT, PATCH")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	case len(parts) == 3 && parts[1] == "items":
		switch r.Method {
		case http.MethodGet:
			h.handleGetItem(w, r, id, parts[2])
		case http.MethodDelete:
			h.handleDeleteItem(w, r, id, parts[2])
		default:
			w.Header().Set("Allow", "GET, DELETE")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	default:
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	}
}

// parseZombieID maps the path segment to a stored id. Non-numeric segments
// map to a value no zombie can carry, so lookups and deletes fall through to
// their regular not-found paths.
func parseZombieID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// handleListZombies processes GET /zombies.
func (h *Handler) handleListZombies(w http.ResponseWriter, r *http.Request) {
	zombies, err := h.store.All(r.Context())
	if err != nil {
		h.internalError(w, "listing zombies", err)
		return
	}
	if zombies == nil {
		zombies = []Zombie{}
	}
	writeJSON(w, http.StatusOK, zombies)
}

// handleCreateZombie processes POST /zombies.
func (h *Handler) handleCreateZombie(w http.ResponseWriter, r *http.Request) {
	var payload zombiePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid request payload: %v", err), http.StatusBadRequest)
		return
	}
	catalog, _, err := h.refresher.EnsureFresh(r.Context())
	if err != nil {
		h.internalError(w, "loading reference data", err)
		return
	}
	draft, verr := validateZombie(payload, catalog)
	if verr != nil {
		writeValidationError(w, http.StatusUnprocessableEntity, verr)
		return
	}
	zombie, err := h.store.Create(r.Context(), draft)
	if err != nil {
		h.internalError(w, "creating zombie", err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/zombies/%d", zombie.ID))
	writeJSON(w, http.StatusCreated, zombie)
}

// handleGetZombie processes GET /zombies/{id}: the zombie plus its total
// item value derived from the cached reference data.
func (h *Handler) handleGetZombie(w http.ResponseWriter, r *http.Request, id int64) {
	zombie, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeZombieNotFound(w, id)
		return
	}
	if err != nil {
		h.internalError(w, "getting zombie", err)
		return
	}
	catalog, exchange, err := h.refresher.EnsureFresh(r.Context())
	if err != nil {
		h.internalError(w, "loading reference data", err)
		return
	}
	valued, err := computeTotalValue(zombie, catalog, exchange)
	if err != nil {
		h.internalError(w, "computing total value", err)
		return
	}
	writeJSON(w, http.StatusOK, valued)
}

// handleUpdateZombie processes PUT /zombies/{id}.
func (h *Handler) handleUpdateZombie(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := h.store.Get(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeZombieNotFound(w, id)
		} else {
			h.internalError(w, "getting zombie for update", err)
		}
		return
	}
	var payload zombiePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid request payload: %v", err), http.StatusBadRequest)
		return
	}
	catalog, _, err := h.refresher.EnsureFresh(r.Context())
	if err != nil {
		h.internalError(w, "loading reference data", err)
		return
	}
	patch, verr := validateMutation(payload, catalog)
	if verr != nil {
		writeValidationError(w, http.StatusUnprocessableEntity, verr)
		return
	}
	zombie, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		h.internalError(w, "updating zombie", err)
		return
	}
	writeJSON(w, http.StatusOK, zombie)
}

// handleDeleteZombie processes DELETE /zombies/{id}. A delete that matched
// nothing is reported as not found, not as success.
func (h *Handler) handleDeleteZombie(w http.ResponseWriter, r *http.Request, id int64) {
	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.internalError(w, "deleting zombie", err)
		return
	}
	if verr := validateDeletions(deleted); verr != nil {
		writeValidationError(w, http.StatusNotFound, verr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "success"})
}

// handleListItems processes GET /zombies/{id}/items.
func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request, id int64) {
	zombie, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeZombieNotFound(w, id)
		return
	}
	if err != nil {
		h.internalError(w, "getting zombie", err)
		return
	}
	items := zombie.Items
	if items == nil {
		items = []ItemRef{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleReplaceItems processes PUT /zombies/{id}/items: the body is the new
// items array, replacing the old one wholesale.
func (h *Handler) handleReplaceItems(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := h.store.Get(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeZombieNotFound(w, id)
		} else {
			h.internalError(w, "getting zombie", err)
		}
		return
	}
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, fmt.Sprintf("invalid request payload: %v", err), http.StatusBadRequest)
		return
	}
	catalog, _, err := h.refresher.EnsureFresh(r.Context())
	if err != nil {
		h.internalError(w, "loading reference data", err)
		return
	}
	items, verr := validateItems(&raw, catalog)
	if verr != nil {
		writeValidationError(w, http.StatusUnprocessableEntity, verr)
		return
	}
	zombie, err := h.store.Update(r.Context(), id, ZombiePatch{Items: &items})
	if err != nil {
		h.internalError(w, "replacing items", err)
		return
	}
	writeJSON(w, http.StatusOK, zombie)
}

// handleAppendItem processes PATCH /zombies/{id}/items: the body is a single
// item appended to the zombie's items. The combined list is validated again,
// so a sixth item is rejected and the stored zombie stays unchanged.
func (h *Handler) handleAppendItem(w http.ResponseWriter, r *http.Request, id int64) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, fmt.Sprintf("invalid request payload: %v", err), http.StatusBadRequest)
		return
	}
	catalog, _, err := h.refresher.EnsureFresh(r.Context())
	if err != nil {
		h.internalError(w, "loading reference data", err)
		return
	}
	item, verr := validateItem(raw, 0, catalog)
	if verr != nil {
		writeValidationError(w, http.StatusUnprocessableEntity, verr)
		return
	}
	zombie, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeZombieNotFound(w, id)
		return
	}
	if err != nil {
		h.internalError(w, "getting zombie", err)
		return
	}
	combined := append(append([]ItemRef{}, zombie.Items...), item)
	if len(combined) > 5 {
		writeValidationError(w, http.StatusUnprocessableEntity,
			validationErrorf(CodeTooManyItems, "A zombie can have up to 5 items"))
		return
	}
	updated, err := h.store.Update(r.Context(), id, ZombiePatch{Items: &combined})
	if err != nil {
		h.internalError(w, "appending item", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleGetItem processes GET /zombies/{id}/items/{index}. The index is a
// position in the zombie's items, not an item id.
func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request, id int64, indexSegment string) {
	zombie, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeZombieNotFound(w, id)
		return
	}
	if err != nil {
		h.internalError(w, "getting zombie", err)
		return
	}
	index, ok := itemIndex(zombie, indexSegment)
	if !ok {
		writeItemNotFound(w, indexSegment)
		return
	}
	writeJSON(w, http.StatusOK, zombie.Items[index])
}

// handleDeleteItem processes DELETE /zombies/{id}/items/{index}.
func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request, id int64, indexSegment string) {
	zombie, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeZombieNotFound(w, id)
		return
	}
	if err != nil {
		h.internalError(w, "getting zombie", err)
		return
	}
	index, ok := itemIndex(zombie, indexSegment)
	if !ok {
		writeItemNotFound(w, indexSegment)
		return
	}
	items := append(append([]ItemRef{}, zombie.Items[:index]...), zombie.Items[index+1:]...)
	updated, err := h.store.Update(r.Context(), id, ZombiePatch{Items: &items})
	if err != nil {
		h.internalError(w, "removing item", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// itemIndex parses an item index path segment and bounds-checks it against
// the zombie's items.
func itemIndex(zombie Zombie, segment string) (int, bool) {
	index, err := strconv.Atoi(segment)
	if err != nil || index < 0 || index >= len(zombie.Items) {
		return 0, false
	}
	return index, true
}

func (h *Handler) internalError(w http.ResponseWriter, action string, err error) {
	h.logger.Printf("error %s: %v", action, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// errorEnvelope is the JSON error body sent for 4xx responses.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func writeValidationError(w http.ResponseWriter, status int, verr *ValidationError) {
	writeJSON(w, status, errorEnvelope{Error: verr.Code, Message: verr.Message, Status: status})
}

func writeZombieNotFound(w http.ResponseWriter, id int64) {
	writeJSON(w, http.StatusNotFound, errorEnvelope{
		Error:   CodeZombieNotFound,
		Message: fmt.Sprintf("There is no zombie under the id %d", id),
		Status:  http.StatusNotFound,
	})
}

func writeItemNotFound(w http.ResponseWriter, index string) {
	writeJSON(w, http.StatusNotFound, errorEnvelope{
		Error:   CodeZombieItemNotFound,
		Message: fmt.Sprintf("There is no zombie item under the index %s", index),
		Status:  http.StatusNotFound,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
