package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	log "github.com/freundallein/todo/backend/chassis/logging"
	"github.com/freundallein/todo/backend/chassis/storage"
	"github.com/freundallein/todo/backend/notifier"
)

const notFoundDetail = "Todo item not found"

// Publisher receives change notifications.
type Publisher interface {
	Publish(method string, todo storage.Todo)
}

// Handlers - todo endpoints.
type Handlers struct {
	Repository storage.TodoRepository
	Events     Publisher
}

func (h *Handlers) publish(method string, todo storage.Todo) {
	if h.Events != nil {
		h.Events.Publish(method, todo)
	}
}

func parseTodoID(raw string) (uuid.UUID, *ValidationDetail) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ValidationDetail{
			Loc:  []interface{}{"path", "todo_id"},
			Msg:  "Input should be a valid UUID, " + err.Error(),
			Type: "uuid_parsing",
		}
	}
	return id, nil
}

// todoID parses the path parameter, answering 422 when it is not a UUID.
func todoID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, detail := parseTodoID(mux.Vars(r)["todo_id"])
	if detail != nil {
		writeValidation(w, *detail)
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeValidation(w, ValidationDetail{
			Loc:  []interface{}{"body"},
			Msg:  err.Error(),
			Type: "json_invalid",
		})
		return false
	}
	return true
}

func (h *Handlers) storageFailed(w http.ResponseWriter, event string, err error) {
	log.WithFields(log.Fields{
		"event": event,
	}).Error(err)
	writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// CreateTodo - POST /todos/
func (h *Handlers) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var in storage.TodoCreate
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Title == "" {
		writeValidation(w, ValidationDetail{
			Loc:  []interface{}{"body", "title"},
			Msg:  "String should have at least 1 character",
			Type: "string_too_short",
		})
		return
	}
	todo := storage.NewTodo(in)
	if err := h.Repository.Create(r.Context(), todo); err != nil {
		h.storageFailed(w, "create_failed", err)
		return
	}
	log.WithFields(log.Fields{
		"event":  "todo_created",
		"todoID": todo.ID,
	}).Info("create todo item")
	h.publish(notifier.Created, todo)
	writeJSON(w, http.StatusCreated, todo)
}

// ListTodos - GET /todos/
func (h *Handlers) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.Repository.List(r.Context())
	if err != nil {
		h.storageFailed(w, "list_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

// GetTodo - GET /todos/{todo_id}
func (h *Handlers) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	todo, err := h.Repository.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, notFoundDetail)
		return
	}
	if err != nil {
		h.storageFailed(w, "get_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// UpdateTodo - PUT /todos/{todo_id}, only the sent fields change.
func (h *Handlers) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	var update storage.TodoUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	if update.Empty() {
		// nothing to write, answer with the stored item
		h.GetTodo(w, r)
		return
	}
	todo, err := h.Repository.Update(r.Context(), id, update)
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, notFoundDetail)
		return
	}
	if err != nil {
		h.storageFailed(w, "update_failed", err)
		return
	}
	log.WithFields(log.Fields{
		"event":  "todo_updated",
		"todoID": todo.ID,
	}).Info("update todo item")
	h.publish(notifier.Updated, *todo)
	writeJSON(w, http.StatusOK, todo)
}

// DeleteTodo - DELETE /todos/{todo_id}
func (h *Handlers) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	todo, err := h.Repository.Get(r.Context(), id)
	if err == nil {
		err = h.Repository.Delete(r.Context(), id)
	}
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, notFoundDetail)
		return
	}
	if err != nil {
		h.storageFailed(w, "delete_failed", err)
		return
	}
	log.WithFields(log.Fields{
		"event":  "todo_deleted",
		"todoID": id,
	}).Info("delete todo item")
	h.publish(notifier.Deleted, *todo)
	w.WriteHeader(http.StatusNoContent)
}

// Health - GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Repository.Ping(r.Context()); err != nil {
		log.WithFields(log.Fields{
			"event": "health_check_failed",
		}).Error(err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
