// Package handlers implements the /todos HTTP endpoints on top of a TodoStore.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tomyedwab/todos/applib/database"
	"github.com/tomyedwab/todos/applib/httputils"
)

const maxRequestBodyBytes = 1 << 20

// TodoStore is the storage the handlers need. *database.Database satisfies it.
type TodoStore interface {
	List() ([]database.Todo, error)
	Create(author, body string) error
	Delete(id uint64) error
	Update(id uint64, fields database.TodoUpdate) (int64, error)
}

// CreateTodoRequest is the POST /todos payload
type CreateTodoRequest struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

// UpdateTodoRequest is the PATCH /todos payload. Only ID is required.
type UpdateTodoRequest struct {
	ID     *uint64 `json:"id"`
	Author *string `json:"author,omitempty"`
	Body   *string `json:"body,omitempty"`
	Done   *bool   `json:"done,omitempty"`
}

type TodoHandler struct {
	store  TodoStore
	logger *slog.Logger
}

func NewTodoHandler(store TodoStore, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{
		store:  store,
		logger: logger,
	}
}

// Register installs the todo routes on mux. Middleware is applied around the
// whole mux by the caller so unmatched requests go through it too.
func (h *TodoHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /todos", h.HandleList)
	mux.HandleFunc("POST /todos", h.HandleCreate)
	mux.HandleFunc("PATCH /todos", h.HandleUpdate)
	mux.HandleFunc("DELETE /todos/{id}", h.HandleDelete)
}

// HandleList handles GET /todos
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	todos, err := h.store.List()
	httputils.HandleAPIResponse(h.logger, w, r, todos, err, http.StatusOK)
}

// HandleCreate handles POST /todos
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Author == "" || req.Body == "" {
		h.logger.Warn("Missing required fields in create request",
			"hasAuthor", req.Author != "", "hasBody", req.Body != "")
		httputils.WriteError(w, http.StatusBadRequest, "Missing required fields: author, body")
		return
	}

	err := h.store.Create(req.Author, req.Body)
	httputils.HandleAPIResponse(h.logger, w, r, nil, err, http.StatusCreated)
}

// HandleUpdate handles PATCH /todos
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateTodoRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.ID == nil {
		httputils.WriteError(w, http.StatusBadRequest, "Missing required field: id")
		return
	}
	if (req.Author != nil && *req.Author == "") || (req.Body != nil && *req.Body == "") {
		httputils.WriteError(w, http.StatusBadRequest, "author and body must not be empty")
		return
	}

	affected, err := h.store.Update(*req.ID, database.TodoUpdate{
		Author: req.Author,
		Body:   req.Body,
		Done:   req.Done,
	})
	if errors.Is(err, database.ErrNoFieldsToUpdate) {
		httputils.WriteError(w, http.StatusBadRequest, "At least one of author, body, done is required")
		return
	}
	if err == nil {
		h.logger.Debug("Updated todo", "id", *req.ID, "rowsAffected", affected)
	}
	httputils.HandleAPIResponse(h.logger, w, r, nil, err, http.StatusOK)
}

// HandleDelete handles DELETE /todos/{id}
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		httputils.WriteError(w, http.StatusBadRequest, "Invalid todo ID "+strconv.Quote(idStr))
		return
	}

	err = h.store.Delete(id)
	httputils.HandleAPIResponse(h.logger, w, r, nil, err, http.StatusOK)
}

// decodeBody parses the JSON request body into v, answering 400 on failure.
// The body must hold exactly one JSON value.
func (h *TodoHandler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(v)
	if err == nil {
		if extra := dec.Decode(&struct{}{}); extra != io.EOF {
			err = errors.New("unexpected data after JSON value")
		}
	}
	if err != nil {
		h.logger.Warn("Failed to parse request body",
			"method", r.Method, "path", r.URL.Path, "error", err)
		httputils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
