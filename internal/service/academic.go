package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/domain/model"
	apperrors "github.com/auy/thinkers-portal/internal/errors"
	"github.com/auy/thinkers-portal/internal/ports"
)

// Data API actions.
const (
	actionGetAttendance        = "getAttendance"
	actionGetAttendanceSummary = "getAttendanceSummary"
	actionMarkAttendance       = "markAttendance"
	actionGetExams             = "getExams"
	actionCreateExam           = "createExam"
	actionGetResults           = "getResults"
	actionSubmitResult         = "submitResult"
	actionGetAnnouncements     = "getAnnouncements"
	actionCreateAnnouncement   = "createAnnouncement"
	actionGetCourses           = "getCourses"
	actionGetAllUsers          = "getAllUsers"
	actionGetSystemStats       = "getSystemStats"
)

// Fallback serves academic data when the data API is not configured.
type Fallback interface {
	Attendance(email string) []model.AttendanceRecord
	AttendanceSummary(email string) model.AttendanceSummary
	Exams() []model.Exam
	Results(email string) []model.Result
	Announcements() []model.Announcement
	Courses() []model.CourseInfo
	Users() []domainauth.UserProfile
	Stats() model.SystemStats
}

// AcademicServiceOptions groups dependencies for AcademicService.
type AcademicServiceOptions struct {
	API      ports.DataAPI // Required: remote data API (may be unconfigured)
	Fallback Fallback      // Required: data served when the API is unconfigured
	Logger   *slog.Logger
	Now      func() time.Time
}

// AcademicService applies the portal's role rules to the remote data API.
type AcademicService struct {
	api      ports.DataAPI
	fallback Fallback
	logger   *slog.Logger
	now      func() time.Time
}

// NewAcademicService constructs a new AcademicService.
func NewAcademicService(opts AcademicServiceOptions) *AcademicService {
	if opts.API == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("DataAPI is required")
	}
	if opts.Fallback == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("Fallback is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AcademicService{
		api:      opts.API,
		fallback: opts.Fallback,
		logger:   logger.With("component", "academic_service"),
		now:      now,
	}
}

var (
	staffRoles = domainauth.NewRoleSet(domainauth.RoleAdmin, domainauth.RoleTeacher)
	adminRoles = domainauth.NewRoleSet(domainauth.RoleAdmin)
)

func requireRole(caller domainauth.UserProfile, roles domainauth.RoleSet, action string) error {
	if !roles.Has(caller.Role) {
		return apperrors.Forbidden(fmt.Sprintf("role %q may not %s", caller.Role, action))
	}
	return nil
}

// subjectEmail picks whose records to read. Students only ever read their own.
func subjectEmail(caller domainauth.UserProfile, requested string) string {
	requested = domainauth.NormalizeEmail(requested)
	if requested == "" || caller.Role == domainauth.RoleStudent {
		return domainauth.NormalizeEmail(caller.Email)
	}
	return requested
}

func fetch[T any](ctx context.Context, s *AcademicService, action string, params url.Values, fallback func() T) (T, error) {
	var out T
	err := s.api.Get(ctx, action, params, &out)
	if errors.Is(err, ports.ErrDataAPIUnconfigured) {
		s.logger.DebugContext(ctx, "serving fixture data", "action", action)
		return fallback(), nil
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", action, err)
	}
	return out, nil
}

func (s *AcademicService) write(ctx context.Context, action string, body any) (model.WriteResult, error) {
	if err := model.Validate(body); err != nil {
		return model.WriteResult{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid "+action+" payload")
	}
	var out model.WriteResult
	err := s.api.Post(ctx, action, body, &out)
	if errors.Is(err, ports.ErrDataAPIUnconfigured) {
		s.logger.InfoContext(ctx, "data api unconfigured, write acknowledged locally", "action", action)
		return model.WriteResult{Success: true}, nil
	}
	if err != nil {
		return model.WriteResult{}, fmt.Errorf("%s: %w", action, err)
	}
	return out, nil
}

// Attendance lists attendance records for email (the caller's own for students).
func (s *AcademicService) Attendance(ctx context.Context, caller domainauth.UserProfile, email string) ([]model.AttendanceRecord, error) {
	email = subjectEmail(caller, email)
	return fetch(ctx, s, actionGetAttendance, url.Values{"email": {email}}, func() []model.AttendanceRecord {
		return s.fallback.Attendance(email)
	})
}

// AttendanceSummary aggregates attendance for email (the caller's own for students).
func (s *AcademicService) AttendanceSummary(ctx context.Context, caller domainauth.UserProfile, email string) (model.AttendanceSummary, error) {
	email = subjectEmail(caller, email)
	return fetch(ctx, s, actionGetAttendanceSummary, url.Values{"email": {email}}, func() model.AttendanceSummary {
		return s.fallback.AttendanceSummary(email)
	})
}

// MarkAttendance records attendance. Teachers and admins only.
func (s *AcademicService) MarkAttendance(ctx context.Context, caller domainauth.UserProfile, req model.MarkAttendanceRequest) (model.WriteResult, error) {
	if err := requireRole(caller, staffRoles, "mark attendance"); err != nil {
		return model.WriteResult{}, err
	}
	req.Normalize()
	req.MarkedBy = caller.Name
	return s.write(ctx, actionMarkAttendance, req)
}

// Exams lists the exam schedule visible to the caller.
func (s *AcademicService) Exams(ctx context.Context, caller domainauth.UserProfile) ([]model.Exam, error) {
	return fetch(ctx, s, actionGetExams, url.Values{"email": {domainauth.NormalizeEmail(caller.Email)}}, s.fallback.Exams)
}

// CreateExam schedules an exam. Teachers and admins only.
func (s *AcademicService) CreateExam(ctx context.Context, caller domainauth.UserProfile, req model.CreateExamRequest) (model.WriteResult, error) {
	if err := requireRole(caller, staffRoles, "create exams"); err != nil {
		return model.WriteResult{}, err
	}
	req.Normalize()
	req.CreatedBy = caller.Name
	return s.write(ctx, actionCreateExam, req)
}

// Results lists graded results for email (the caller's own for students).
func (s *AcademicService) Results(ctx context.Context, caller domainauth.UserProfile, email string) ([]model.Result, error) {
	email = subjectEmail(caller, email)
	return fetch(ctx, s, actionGetResults, url.Values{"email": {email}}, func() []model.Result {
		return s.fallback.Results(email)
	})
}

// SubmitResult records a graded result. Teachers and admins only.
func (s *AcademicService) SubmitResult(ctx context.Context, caller domainauth.UserProfile, req model.SubmitResultRequest) (model.WriteResult, error) {
	if err := requireRole(caller, staffRoles, "submit results"); err != nil {
		return model.WriteResult{}, err
	}
	req.Normalize()
	return s.write(ctx, actionSubmitResult, req)
}

// Announcements lists the announcements addressed to the caller's role.
func (s *AcademicService) Announcements(ctx context.Context, caller domainauth.UserProfile) ([]model.Announcement, error) {
	all, err := fetch(ctx, s, actionGetAnnouncements, nil, s.fallback.Announcements)
	if err != nil {
		return nil, err
	}
	out := make([]model.Announcement, 0, len(all))
	for _, a := range all {
		if a.Target.Includes(caller.Role) {
			out = append(out, a)
		}
	}
	return out, nil
}

// CreateAnnouncement posts an announcement authored by the caller. Teachers and admins only.
func (s *AcademicService) CreateAnnouncement(ctx context.Context, caller domainauth.UserProfile, req model.CreateAnnouncementRequest) (model.WriteResult, error) {
	if err := requireRole(caller, staffRoles, "post announcements"); err != nil {
		return model.WriteResult{}, err
	}
	req.Normalize()
	req.Author = caller.Name
	req.AuthorRole = caller.Role
	if req.Date == "" {
		req.Date = s.now().Format(time.DateOnly)
	}
	return s.write(ctx, actionCreateAnnouncement, req)
}

// Courses lists the course catalogue. Teachers and admins only.
func (s *AcademicService) Courses(ctx context.Context, caller domainauth.UserProfile) ([]model.CourseInfo, error) {
	if err := requireRole(caller, staffRoles, "view courses"); err != nil {
		return nil, err
	}
	return fetch(ctx, s, actionGetCourses, nil, s.fallback.Courses)
}

// Users lists every portal user. Admins only.
func (s *AcademicService) Users(ctx context.Context, caller domainauth.UserProfile) ([]domainauth.UserProfile, error) {
	if err := requireRole(caller, adminRoles, "view users"); err != nil {
		return nil, err
	}
	return fetch(ctx, s, actionGetAllUsers, nil, s.fallback.Users)
}

// Stats returns portal-wide counters. Admins only.
func (s *AcademicService) Stats(ctx context.Context, caller domainauth.UserProfile) (model.SystemStats, error) {
	if err := requireRole(caller, adminRoles, "view statistics"); err != nil {
		return model.SystemStats{}, err
	}
	return fetch(ctx, s, actionGetSystemStats, nil, s.fallback.Stats)
}

// Dashboard gathers the caller's landing data concurrently.
func (s *AcademicService) Dashboard(ctx context.Context, caller domainauth.UserProfile) (model.Dashboard, error) {
	if !caller.Role.Valid() {
		return model.Dashboard{}, apperrors.Forbidden(fmt.Sprintf("unknown role %q", caller.Role))
	}
	d := model.Dashboard{Role: caller.Role}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ann, err := s.Announcements(gctx, caller)
		d.Announcements = ann
		return err
	})

	switch caller.Role {
	case domainauth.RoleStudent:
		g.Go(func() error {
			sum, err := s.AttendanceSummary(gctx, caller, "")
			if err == nil {
				d.Attendance = &sum
			}
			return err
		})
		g.Go(func() error {
			exams, err := s.Exams(gctx, caller)
			d.Exams = exams
			return err
		})
		g.Go(func() error {
			results, err := s.Results(gctx, caller, "")
			d.Results = results
			return err
		})
	case domainauth.RoleTeacher:
		g.Go(func() error {
			exams, err := s.Exams(gctx, caller)
			d.Exams = exams
			return err
		})
	case domainauth.RoleAdmin:
		g.Go(func() error {
			stats, err := s.Stats(gctx, caller)
			if err == nil {
				d.Stats = &stats
			}
			return err
		})
		g.Go(func() error {
			users, err := s.Users(gctx, caller)
			d.Users = users
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return model.Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}
	return d, nil
}
