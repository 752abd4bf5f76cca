//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"strings"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
)

// AttendanceStatus is the outcome recorded for a student in one class.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// AttendanceRecord is one marked class for a student.
type AttendanceRecord struct {
	ID           string           `json:"id"`
	StudentEmail string           `json:"studentEmail"`
	StudentName  string           `json:"studentName"`
	Course       string           `json:"course"`
	Date         string           `json:"date"`
	Status       AttendanceStatus `json:"status"`
	MarkedBy     string           `json:"markedBy"`
}

// AttendanceSummary aggregates a student's attendance.
type AttendanceSummary struct {
	TotalClasses int     `json:"totalClasses"`
	Present      int     `json:"present"`
	Absent       int     `json:"absent"`
	Late         int     `json:"late"`
	Percentage   float64 `json:"percentage"`
}

// MarkAttendanceRequest is the payload for recording attendance.
type MarkAttendanceRequest struct {
	StudentEmail string           `json:"studentEmail" validate:"required,email"`
	StudentName  string           `json:"studentName"  validate:"notblank"`
	Course       string           `json:"course"       validate:"notblank"`
	Date         string           `json:"date"         validate:"required,datetime=2006-01-02"`
	Status       AttendanceStatus `json:"status"       validate:"required,oneof=present absent late"`
	MarkedBy     string           `json:"markedBy"`
}

// Normalize trims user input.
func (r *MarkAttendanceRequest) Normalize() {
	r.StudentEmail = domainauth.NormalizeEmail(r.StudentEmail)
	r.StudentName = strings.TrimSpace(r.StudentName)
	r.Course = strings.TrimSpace(r.Course)
	r.Date = strings.TrimSpace(r.Date)
	r.Status = AttendanceStatus(strings.ToLower(strings.TrimSpace(string(r.Status))))
}

// ExamStatus tracks where an exam is in its schedule.
type ExamStatus string

const (
	ExamUpcoming  ExamStatus = "upcoming"
	ExamOngoing   ExamStatus = "ongoing"
	ExamCompleted ExamStatus = "completed"
)

// Exam is a scheduled assessment.
type Exam struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Course     string     `json:"course"`
	Date       string     `json:"date"`
	Time       string     `json:"time"`
	Duration   string     `json:"duration"`
	TotalMarks int        `json:"totalMarks"`
	CreatedBy  string     `json:"createdBy"`
	Status     ExamStatus `json:"status"`
}

// CreateExamRequest is the payload for scheduling an exam.
type CreateExamRequest struct {
	Title      string     `json:"title"      validate:"notblank,max=200"`
	Course     string     `json:"course"     validate:"notblank"`
	Date       string     `json:"date"       validate:"required,datetime=2006-01-02"`
	Time       string     `json:"time"       validate:"notblank"`
	Duration   string     `json:"duration"   validate:"notblank"`
	TotalMarks int        `json:"totalMarks" validate:"gt=0,lte=1000"`
	CreatedBy  string     `json:"createdBy"`
	Status     ExamStatus `json:"status"     validate:"omitempty,oneof=upcoming ongoing completed"`
}

// Normalize trims input and applies defaults.
func (r *CreateExamRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Course = strings.TrimSpace(r.Course)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Duration = strings.TrimSpace(r.Duration)
	if r.Status == "" {
		r.Status = ExamUpcoming
	}
}

// Result is a graded exam outcome for one student.
type Result struct {
	ID            string `json:"id"`
	ExamID        string `json:"examId"`
	ExamTitle     string `json:"examTitle"`
	Course        string `json:"course"`
	StudentEmail  string `json:"studentEmail"`
	StudentName   string `json:"studentName"`
	MarksObtained int    `json:"marksObtained"`
	TotalMarks    int    `json:"totalMarks"`
	Grade         string `json:"grade"`
	Date          string `json:"date"`
}

// SubmitResultRequest is the payload for recording a result.
type SubmitResultRequest struct {
	ExamID        string `json:"examId"        validate:"notblank"`
	ExamTitle     string `json:"examTitle"     validate:"notblank"`
	Course        string `json:"course"        validate:"notblank"`
	StudentEmail  string `json:"studentEmail"  validate:"required,email"`
	StudentName   string `json:"studentName"   validate:"notblank"`
	MarksObtained int    `json:"marksObtained" validate:"gte=0,ltefield=TotalMarks"`
	TotalMarks    int    `json:"totalMarks"    validate:"gt=0"`
	Grade         string `json:"grade"         validate:"notblank,max=3"`
	Date          string `json:"date"          validate:"required,datetime=2006-01-02"`
}

// Normalize trims user input.
func (r *SubmitResultRequest) Normalize() {
	r.ExamID = strings.TrimSpace(r.ExamID)
	r.ExamTitle = strings.TrimSpace(r.ExamTitle)
	r.Course = strings.TrimSpace(r.Course)
	r.StudentEmail = domainauth.NormalizeEmail(r.StudentEmail)
	r.StudentName = strings.TrimSpace(r.StudentName)
	r.Grade = strings.ToUpper(strings.TrimSpace(r.Grade))
	r.Date = strings.TrimSpace(r.Date)
}

// Priority of an announcement.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Audience selects which roles see an announcement.
type Audience string

const (
	AudienceAll      Audience = "all"
	AudienceStudents Audience = "students"
	AudienceTeachers Audience = "teachers"
)

// Includes reports whether a user with role r is in the audience.
// Admins see every announcement.
func (a Audience) Includes(r domainauth.Role) bool {
	switch r {
	case domainauth.RoleAdmin:
		return true
	case domainauth.RoleTeacher:
		return a == AudienceAll || a == AudienceTeachers
	case domainauth.RoleStudent:
		return a == AudienceAll || a == AudienceStudents
	default:
		return false
	}
}

// Announcement is a message posted to a portal audience.
type Announcement struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	Author     string          `json:"author"`
	AuthorRole domainauth.Role `json:"authorRole"`
	Date       string          `json:"date"`
	Priority   Priority        `json:"priority"`
	Target     Audience        `json:"target"`
}

// CreateAnnouncementRequest is the payload for posting an announcement.
// Author fields are filled from the caller's profile.
type CreateAnnouncementRequest struct {
	Title      string          `json:"title"    validate:"notblank,max=200"`
	Message    string          `json:"message"  validate:"notblank,max=5000"`
	Author     string          `json:"author"`
	AuthorRole domainauth.Role `json:"authorRole"`
	Date       string          `json:"date"     validate:"omitempty,datetime=2006-01-02"`
	Priority   Priority        `json:"priority" validate:"required,oneof=low medium high"`
	Target     Audience        `json:"target"   validate:"required,oneof=all students teachers"`
}

// Normalize trims input and applies defaults.
func (r *CreateAnnouncementRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Message = strings.TrimSpace(r.Message)
	r.Date = strings.TrimSpace(r.Date)
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Target == "" {
		r.Target = AudienceAll
	}
}

// CourseInfo describes a course offering.
type CourseInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	Department string `json:"department"`
	Teacher    string `json:"teacher"`
	Students   int    `json:"students"`
}

// SystemStats are portal-wide counters shown on the admin dashboard.
type SystemStats struct {
	TotalUsers          int     `json:"totalUsers"`
	TotalStudents       int     `json:"totalStudents"`
	TotalTeachers       int     `json:"totalTeachers"`
	TotalCourses        int     `json:"totalCourses"`
	ActiveAnnouncements int     `json:"activeAnnouncements"`
	AverageAttendance   float64 `json:"averageAttendance"`
}

// WriteResult is the acknowledgement returned by the data API for writes.
type WriteResult struct {
	Success bool `json:"success"`
}

// Dashboard is the role-specific landing aggregate.
type Dashboard struct {
	Role          domainauth.Role          `json:"role"`
	Attendance    *AttendanceSummary       `json:"attendance,omitempty"`
	Exams         []Exam                   `json:"exams,omitempty"`
	Results       []Result                 `json:"results,omitempty"`
	Announcements []Announcement           `json:"announcements"`
	Courses       []CourseInfo             `json:"courses,omitempty"`
	Users         []domainauth.UserProfile `json:"users,omitempty"`
	Stats         *SystemStats             `json:"stats,omitempty"`
}
