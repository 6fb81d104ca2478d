package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tahmid/coursehub/internal/model"
	"github.com/tahmid/coursehub/internal/service"
)

// CourseHandler exposes the course catalog. Reads are open to any
// authenticated user; every mutating route sits behind the admin gate in the
// router.
type CourseHandler struct {
	courses *service.CourseService
	logger  *slog.Logger
}

func NewCourseHandler(courses *service.CourseService, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{courses: courses, logger: logger}
}

type courseRequest struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
}

// HandleList returns a catalog page.
//
// HTTP: GET /api/courses?limit=20&offset=0&archived=true
func (h *CourseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	includeArchived := r.URL.Query().Get("archived") == "true"

	courses, err := h.courses.List(r.Context(), limit, offset, includeArchived)
	if err != nil {
		writeError(w, err)
		return
	}
	if courses == nil {
		courses = []model.Course{} // serialize as [], not null
	}
	writeJSON(w, http.StatusOK, courses)
}

// HandleGetByID returns one course.
//
// HTTP: GET /api/courses/{id}
func (h *CourseHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	course, err := h.courses.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// HandleCreate adds a course at the end of the catalog.
//
// HTTP: POST /api/courses (admin)
func (h *CourseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	course, err := h.courses.Create(r.Context(), req.Title, req.Slug, req.Description, req.PriceCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

// HandleUpdate modifies title/description/price.
//
// HTTP: PUT /api/courses/{id} (admin)
func (h *CourseHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	course, err := h.courses.Update(r.Context(), r.PathValue("id"), req.Title, req.Description, req.PriceCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// HandleArchive soft-deletes a course.
//
// HTTP: DELETE /api/courses/{id} (admin)
func (h *CourseHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	if err := h.courses.Archive(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReorder moves a course to a new catalog position.
//
// HTTP: POST /api/courses/{id}/reorder (admin)
// BODY: {"position": 2}
func (h *CourseHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	course, err := h.courses.Reorder(r.Context(), r.PathValue("id"), req.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// HandleListLessons returns a course's lessons in position order.
//
// HTTP: GET /api/courses/{id}/lessons
func (h *CourseHandler) HandleListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.courses.ListLessons(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if lessons == nil {
		lessons = []model.Lesson{}
	}
	writeJSON(w, http.StatusOK, lessons)
}

// HandleCreateLesson appends a lesson to a course.
//
// HTTP: POST /api/courses/{id}/lessons (admin)
func (h *CourseHandler) HandleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	lesson, err := h.courses.CreateLesson(r.Context(), r.PathValue("id"), req.Title, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lesson)
}

// HandleReorderLesson moves a lesson within its course.
//
// HTTP: POST /api/lessons/{id}/reorder (admin)
func (h *CourseHandler) HandleReorderLesson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	lesson, err := h.courses.ReorderLesson(r.Context(), r.PathValue("id"), req.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}
