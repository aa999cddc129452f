// Package api exposes the task store over HTTP.
//
// Routes:
//
//	GET    /tasks        list all tasks
//	GET    /tasks/{id}   a single task, or null
//	POST   /tasks        add a task
//	PATCH  /tasks/{id}   update the provided fields of a task
//	DELETE /tasks/{id}   delete a task, reporting whether it existed
//	GET    /health       liveness and task count
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"taskbook/storage"
)

// Server holds the store and logger shared by the handlers
type Server struct {
	store  storage.Store
	logger *slog.Logger
	router *mux.Router
}

// AddTaskRequest is the JSON request body for POST /tasks.
// Title is a pointer so that a missing title can be told apart from "".
type AddTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description,omitempty"`
}

// DeleteTaskResponse is the JSON response for DELETE /tasks/{id}.
type DeleteTaskResponse struct {
	Deleted bool `json:"deleted"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Tasks  int    `json:"tasks"`
}

// NewServer builds the router for store
func NewServer(store storage.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:  store,
		logger: logger.With("component", "api"),
		router: mux.NewRouter(),
	}

	s.router.Use(requestIDMiddleware, s.loggingMiddleware)
	s.router.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	s.router.HandleFunc("/tasks", s.handleAddTask).Methods(http.MethodPost)
	s.router.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet)
	s.router.HandleFunc("/tasks/{id}", s.handleUpdateTask).Methods(http.MethodPatch)
	s.router.HandleFunc("/tasks/{id}", s.handleDeleteTask).Methods(http.MethodDelete)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.store.List())
}

// handleGetTask answers 200 with null for an unknown id; absence is not an error.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, found := s.store.Get(id)
	if !found {
		respondWithJSON(w, http.StatusOK, nil)
		return
	}
	respondWithJSON(w, http.StatusOK, task)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req AddTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == nil {
		respondWithError(w, http.StatusBadRequest, "title is required")
		return
	}

	description := ""
	if req.Description != nil {
		description = *req.Description
	}

	task, err := s.store.Create(*req.Title, description)
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var patch storage.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := s.store.Update(id, patch)
	if errors.Is(err, storage.ErrTaskNotFound) {
		respondWithError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	deleted, err := s.store.Delete(id)
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, DeleteTaskResponse{Deleted: deleted})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok", Tasks: len(s.store.List())})
}

func (s *Server) storageError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("storage failure",
		"error", err,
		"request_id", requestIDFrom(r.Context()),
	)
	respondWithError(w, http.StatusInternalServerError, "failed to save tasks")
}

// taskID parses the {id} route variable, writing a 400 when it is not an integer
func taskID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
