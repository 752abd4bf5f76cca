package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/domain/model"
	apperrors "github.com/auy/thinkers-portal/internal/errors"
	"github.com/auy/thinkers-portal/internal/service"
)

// AcademicServiceInterface is the academic data surface the API handlers need.
type AcademicServiceInterface interface {
	Attendance(ctx context.Context, caller domainauth.UserProfile, email string) ([]model.AttendanceRecord, error)
	AttendanceSummary(ctx context.Context, caller domainauth.UserProfile, email string) (model.AttendanceSummary, error)
	MarkAttendance(ctx context.Context, caller domainauth.UserProfile, req model.MarkAttendanceRequest) (model.WriteResult, error)
	Exams(ctx context.Context, caller domainauth.UserProfile) ([]model.Exam, error)
	CreateExam(ctx context.Context, caller domainauth.UserProfile, req model.CreateExamRequest) (model.WriteResult, error)
	Results(ctx context.Context, caller domainauth.UserProfile, email string) ([]model.Result, error)
	SubmitResult(ctx context.Context, caller domainauth.UserProfile, req model.SubmitResultRequest) (model.WriteResult, error)
	Announcements(ctx context.Context, caller domainauth.UserProfile) ([]model.Announcement, error)
	CreateAnnouncement(
		ctx context.Context,
		caller domainauth.UserProfile,
		req model.CreateAnnouncementRequest,
	) (model.WriteResult, error)
	Courses(ctx context.Context, caller domainauth.UserProfile) ([]model.CourseInfo, error)
	Users(ctx context.Context, caller domainauth.UserProfile) ([]domainauth.UserProfile, error)
	Stats(ctx context.Context, caller domainauth.UserProfile) (model.SystemStats, error)
	Dashboard(ctx context.Context, caller domainauth.UserProfile) (model.Dashboard, error)
}

var _ AcademicServiceInterface = (*service.AcademicService)(nil)

// AcademicHandlers serves the academic data API. Every route runs behind RequireAuth.
type AcademicHandlers struct {
	Svc    AcademicServiceInterface
	Logger *slog.Logger
}

func (h *AcademicHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// read runs a read operation for the signed-in caller and writes {key: result}.
func read[T any](
	h *AcademicHandlers,
	w http.ResponseWriter,
	r *http.Request,
	key string,
	fn func(context.Context, domainauth.UserProfile) (T, error),
) {
	caller, ok := ProfileFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}
	out, err := fn(r.Context(), caller)
	if err != nil {
		h.writeDataError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{key: out})
}

// create decodes a write payload and submits it for the signed-in caller.
func create[Req any](
	h *AcademicHandlers,
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, domainauth.UserProfile, Req) (model.WriteResult, error),
) {
	caller, ok := ProfileFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}
	var req Req
	if !DecodeJSON(w, r, &req) {
		return
	}
	res, err := fn(r.Context(), caller, req)
	if err != nil {
		h.writeDataError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, res)
}

// writeDataError maps data API failures. Transport failures get their own message since
// the auth one would point at the sign-in service.
func (h *AcademicHandlers) writeDataError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domainauth.ErrNetwork) {
		h.logger().WarnContext(r.Context(), "data api unreachable", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "upstream_unavailable",
			Err:     errors.New("unable to reach the academic data service"),
		})
		return
	}
	var appErr *apperrors.AppError
	if domainauth.KindOf(err) == domainauth.KindNone && !errors.As(err, &appErr) {
		h.logger().ErrorContext(r.Context(), "academic request failed", "path", r.URL.Path, "error", err)
	}
	writeServiceError(w, err)
}

// Attendance handles GET /api/attendance?email=<optional>.
func (h *AcademicHandlers) Attendance(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	read(h, w, r, "attendance", func(ctx context.Context, c domainauth.UserProfile) ([]model.AttendanceRecord, error) {
		return h.Svc.Attendance(ctx, c, email)
	})
}

// AttendanceSummary handles GET /api/attendance/summary?email=<optional>.
func (h *AcademicHandlers) AttendanceSummary(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	read(h, w, r, "summary", func(ctx context.Context, c domainauth.UserProfile) (model.AttendanceSummary, error) {
		return h.Svc.AttendanceSummary(ctx, c, email)
	})
}

// MarkAttendance handles POST /api/attendance.
func (h *AcademicHandlers) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Svc.MarkAttendance)
}

// Exams handles GET /api/exams.
func (h *AcademicHandlers) Exams(w http.ResponseWriter, r *http.Request) {
	read(h, w, r, "exams", h.Svc.Exams)
}

// CreateExam handles POST /api/exams.
func (h *AcademicHandlers) CreateExam(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Svc.CreateExam)
}

// Results handles GET /api/results?email=<optional>.
func (h *AcademicHandlers) Results(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	read(h, w, r, "results", func(ctx context.Context, c domainauth.UserProfile) ([]model.Result, error) {
		return h.Svc.Results(ctx, c, email)
	})
}

// SubmitResult handles POST /api/results.
func (h *AcademicHandlers) SubmitResult(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Svc.SubmitResult)
}

// Announcements handles GET /api/announcements.
func (h *AcademicHandlers) Announcements(w http.ResponseWriter, r *http.Request) {
	read(h, w, r, "announcements", h.Svc.Announcements)
}

// CreateAnnouncement handles POST /api/announcements.
func (h *AcademicHandlers) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Svc.CreateAnnouncement)
}

// Courses handles GET /api/courses.
func (h *AcademicHandlers) Courses(w http.ResponseWriter, r *http.Request) {
	read(h, w, r, "courses", h.Svc.Courses)
}

// Users handles GET /api/users.
func (h *AcademicHandlers) Users(w http.ResponseWriter, r *http.Request) {
	read(h, w, r, "users", h.Svc.Users)
}

// Stats handles GET /api/stats.
func (h *AcademicHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	read(h, w, r, "stats", h.Svc.Stats)
}

// Dashboard handles GET /api/dashboard.
func (h *AcademicHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	read(h, w, r, "dashboard", h.Svc.Dashboard)
}
