package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joshijoe05/records-backend/internal/service"
)

// CourseHandler serves the YouTube course tool. Every route sits behind
// auth.RequireSession and only ever touches the caller's own courses.
type CourseHandler struct {
	courses *service.CourseService
	logger  *slog.Logger
}

func NewCourseHandler(courses *service.CourseService, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{courses: courses, logger: logger}
}

type importRequest struct {
	PlaylistURL string `json:"youtubePlayListUrl"`
}

// HandleImport turns a playlist into a course.
//
// HTTP: POST /tools/youtube/course  {"youtubePlayListUrl"}
//
// The request waits for both YouTube calls; the service bounds them with a
// timeout, so a slow API cannot hold the connection indefinitely.
func (h *CourseHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	var in importRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleCreateCourse", err)
		return
	}

	course, err := h.courses.Import(r.Context(), userID, in.PlaylistURL)
	if err != nil {
		writeError(w, h.logger, "handleCreateCourse", err)
		return
	}
	respond(w, http.StatusCreated, "", course)
}

// HandleListNotStarted lists the caller's courses with no completed video,
// newest first.
//
// HTTP: GET /tools/youtube/course
func (h *CourseHandler) HandleListNotStarted(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	courses, err := h.courses.ListNotStarted(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "handleGetAllCourses", err)
		return
	}
	respond(w, http.StatusOK, "", courses)
}

// HandleGet returns one of the caller's courses.
//
// HTTP: GET /tools/youtube/course/{courseId}
func (h *CourseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	course, err := h.courses.Get(r.Context(), userID, chi.URLParam(r, "courseId"))
	if err != nil {
		writeError(w, h.logger, "handleGetCourse", err)
		return
	}
	respond(w, http.StatusOK, "", course)
}

// HandleDelete removes one of the caller's courses.
//
// HTTP: DELETE /tools/youtube/course/{courseId}
func (h *CourseHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	if err := h.courses.Delete(r.Context(), userID, chi.URLParam(r, "courseId")); err != nil {
		writeError(w, h.logger, "handleDeleteCourse", err)
		return
	}
	respond(w, http.StatusOK, "", nil)
}

// HandleUpdateProgress marks one video as completed or not.
//
// HTTP: PUT /tools/youtube/course/{courseId}/progress  {"videoId", "isCompleted"}
func (h *CourseHandler) HandleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	var in service.ProgressInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleUpdateCourseProgress", err)
		return
	}

	course, err := h.courses.UpdateProgress(r.Context(), userID, chi.URLParam(r, "courseId"), in)
	if err != nil {
		writeError(w, h.logger, "handleUpdateCourseProgress", err)
		return
	}
	respond(w, http.StatusOK, "", course)
}
