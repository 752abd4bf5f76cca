// Package fixtures holds the deterministic data served when the remote data API is not
// configured, plus the demo accounts used by demo mode and the static allowlist.
package fixtures

import (
	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/domain/model"
)

// Demo account emails, one per role.
const (
	DemoAdminEmail   = "admin@university.edu"
	DemoTeacherEmail = "teacher@university.edu"
	DemoStudentEmail = "student@university.edu"
)

var demoProfiles = map[domainauth.Role]domainauth.UserProfile{
	domainauth.RoleAdmin: {
		UID:        "admin-001",
		Name:       "Dr. Thandar Win",
		Email:      DemoAdminEmail,
		Role:       domainauth.RoleAdmin,
		Department: "Administration",
	},
	domainauth.RoleTeacher: {
		UID:        "teacher-001",
		Name:       "Prof. Kyaw Zin Htet",
		Email:      DemoTeacherEmail,
		Role:       domainauth.RoleTeacher,
		Department: "Computer Science",
	},
	domainauth.RoleStudent: {
		UID:       "student-001",
		Name:      "Aung Myat Thu",
		Email:     DemoStudentEmail,
		Role:      domainauth.RoleStudent,
		StudentID: "AUY-2024-0042",
		Course:    "B.Sc. Computer Science",
	},
}

// DemoProfile returns the synthetic profile for a demo session in role.
func DemoProfile(role domainauth.Role) (domainauth.UserProfile, bool) {
	p, ok := demoProfiles[role]
	return p, ok
}

// DemoEntries returns the demo accounts as allowlist entries.
func DemoEntries() []domainauth.AllowlistEntry {
	out := make([]domainauth.AllowlistEntry, 0, len(demoProfiles))
	for _, r := range domainauth.Roles() {
		p := demoProfiles[r]
		out = append(out, domainauth.AllowlistEntry{
			UID:        p.UID,
			Name:       p.Name,
			Email:      p.Email,
			Role:       p.Role,
			StudentID:  p.StudentID,
			Course:     p.Course,
			Department: p.Department,
		})
	}
	return out
}

// Users returns the portal user directory.
func Users() []domainauth.UserProfile {
	return []domainauth.UserProfile{
		{UID: "admin-001", Name: "Dr. Thandar Win", Email: "admin@university.edu", Role: domainauth.RoleAdmin, Department: "Administration"},
		{UID: "teacher-001", Name: "Prof. Kyaw Zin Htet", Email: "teacher@university.edu", Role: domainauth.RoleTeacher, Department: "Computer Science"},
		{UID: "teacher-002", Name: "Prof. Min Thant", Email: "minthant@auy.edu.mm", Role: domainauth.RoleTeacher, Department: "Computer Science"},
		{UID: "teacher-003", Name: "Prof. Su Su Lwin", Email: "susulwin@auy.edu.mm", Role: domainauth.RoleTeacher, Department: "Computer Science"},
		{UID: "teacher-004", Name: "Prof. Hla Myo", Email: "hlamyo@auy.edu.mm", Role: domainauth.RoleTeacher, Department: "Computer Science"},
		{UID: "student-001", Name: "Aung Myat Thu", Email: "student@university.edu", Role: domainauth.RoleStudent, StudentID: "AUY-2024-0042", Course: "B.Sc. CS"},
		{UID: "student-002", Name: "Aye Chan Myae", Email: "ayechan@auy.edu.mm", Role: domainauth.RoleStudent, StudentID: "AUY-2024-0043", Course: "B.Sc. CS"},
		{UID: "student-003", Name: "Thet Paing Soe", Email: "thetpaing@auy.edu.mm", Role: domainauth.RoleStudent, StudentID: "AUY-2024-0044", Course: "B.Sc. CS"},
		{UID: "student-004", Name: "Su Myat Noe", Email: "sumyat@auy.edu.mm", Role: domainauth.RoleStudent, StudentID: "AUY-2024-0045", Course: "B.Sc. IT"},
		{UID: "student-005", Name: "Kaung Htet Aung", Email: "kaunghtet@auy.edu.mm", Role: domainauth.RoleStudent, StudentID: "AUY-2024-0046", Course: "B.Sc. IT"},
	}
}

// AllowlistEntries returns the static allowlist: the user directory with the demo
// accounts' full attributes taking precedence.
func AllowlistEntries() []domainauth.AllowlistEntry {
	byEmail := map[string]domainauth.AllowlistEntry{}
	order := []string{}
	for _, u := range Users() {
		email := domainauth.NormalizeEmail(u.Email)
		byEmail[email] = domainauth.AllowlistEntry{
			UID:        u.UID,
			Name:       u.Name,
			Email:      email,
			Role:       u.Role,
			StudentID:  u.StudentID,
			Course:     u.Course,
			Department: u.Department,
		}
		order = append(order, email)
	}
	for _, e := range DemoEntries() {
		if _, ok := byEmail[e.Email]; !ok {
			order = append(order, e.Email)
		}
		byEmail[e.Email] = e
	}
	out := make([]domainauth.AllowlistEntry, 0, len(order))
	for _, email := range order {
		out = append(out, byEmail[email])
	}
	return out
}

// Attendance returns the attendance history for email.
func Attendance(email string) []model.AttendanceRecord {
	rec := func(id, course, date string, status model.AttendanceStatus, by string) model.AttendanceRecord {
		return model.AttendanceRecord{
			ID:           id,
			StudentEmail: email,
			StudentName:  "Aung Myat Thu",
			Course:       course,
			Date:         date,
			Status:       status,
			MarkedBy:     by,
		}
	}
	return []model.AttendanceRecord{
		rec("att-1", "Data Structures", "2025-01-15", model.AttendancePresent, "Prof. Kyaw Zin Htet"),
		rec("att-2", "Data Structures", "2025-01-14", model.AttendancePresent, "Prof. Kyaw Zin Htet"),
		rec("att-3", "Algorithms", "2025-01-15", model.AttendanceLate, "Prof. Hla Myo"),
		rec("att-4", "Data Structures", "2025-01-13", model.AttendanceAbsent, "Prof. Kyaw Zin Htet"),
		rec("att-5", "Database Systems", "2025-01-15", model.AttendancePresent, "Prof. Min Thant"),
		rec("att-6", "Algorithms", "2025-01-14", model.AttendancePresent, "Prof. Hla Myo"),
		rec("att-7", "Operating Systems", "2025-01-15", model.AttendancePresent, "Prof. Su Su Lwin"),
		rec("att-8", "Data Structures", "2025-01-12", model.AttendancePresent, "Prof. Kyaw Zin Htet"),
	}
}

// AttendanceSummary returns the term attendance aggregate.
func AttendanceSummary() model.AttendanceSummary {
	return model.AttendanceSummary{TotalClasses: 48, Present: 38, Absent: 5, Late: 5, Percentage: 79.2}
}

// Exams returns the exam schedule.
func Exams() []model.Exam {
	return []model.Exam{
		{ID: "exam-1", Title: "Data Structures Mid-Term", Course: "Data Structures", Date: "2025-02-10", Time: "10:00 AM", Duration: "2 hours", TotalMarks: 100, CreatedBy: "Prof. Kyaw Zin Htet", Status: model.ExamUpcoming},
		{ID: "exam-2", Title: "Algorithms Quiz 3", Course: "Algorithms", Date: "2025-01-28", Time: "2:00 PM", Duration: "45 min", TotalMarks: 30, CreatedBy: "Prof. Hla Myo", Status: model.ExamUpcoming},
		{ID: "exam-3", Title: "Database Design Project", Course: "Database Systems", Date: "2025-02-15", Time: "9:00 AM", Duration: "3 hours", TotalMarks: 100, CreatedBy: "Prof. Min Thant", Status: model.ExamUpcoming},
		{ID: "exam-4", Title: "OS Lab Practical", Course: "Operating Systems", Date: "2025-01-20", Time: "11:00 AM", Duration: "1.5 hours", TotalMarks: 50, CreatedBy: "Prof. Su Su Lwin", Status: model.ExamCompleted},
	}
}

// Results returns graded results.
func Results() []model.Result {
	return []model.Result{
		{ID: "res-1", ExamID: "exam-10", ExamTitle: "Algorithms Mid-Term", Course: "Algorithms", StudentName: "Aung Myat Thu", MarksObtained: 82, TotalMarks: 100, Grade: "A", Date: "2025-01-05"},
		{ID: "res-2", ExamID: "exam-11", ExamTitle: "Data Structures Quiz 2", Course: "Data Structures", StudentName: "Aung Myat Thu", MarksObtained: 27, TotalMarks: 30, Grade: "A+", Date: "2024-12-18"},
		{ID: "res-3", ExamID: "exam-12", ExamTitle: "Database Fundamentals", Course: "Database Systems", StudentName: "Aung Myat Thu", MarksObtained: 71, TotalMarks: 100, Grade: "B+", Date: "2024-12-10"},
		{ID: "res-4", ExamID: "exam-13", ExamTitle: "OS Concepts Quiz", Course: "Operating Systems", StudentName: "Aung Myat Thu", MarksObtained: 44, TotalMarks: 50, Grade: "A", Date: "2024-11-28"},
	}
}

// Announcements returns every announcement regardless of audience.
func Announcements() []model.Announcement {
	return []model.Announcement{
		{ID: "ann-1", Title: "Spring Semester Registration Open", Message: "Registration for Spring 2025 is now open. Please complete your course selection by January 25th. Contact your academic advisor for guidance.", Author: "Dr. Thandar Win", AuthorRole: domainauth.RoleAdmin, Date: "2025-01-15", Priority: model.PriorityHigh, Target: model.AudienceAll},
		{ID: "ann-2", Title: "Library Extended Hours", Message: "The AUY library will have extended hours during exam week: 7 AM - 12 AM. Study rooms can be reserved online.", Author: "Admin Office", AuthorRole: domainauth.RoleAdmin, Date: "2025-01-14", Priority: model.PriorityMedium, Target: model.AudienceAll},
		{ID: "ann-3", Title: "Data Structures Lab Rescheduled", Message: "The Data Structures lab originally scheduled for Friday has been moved to Monday 3 PM in Lab 204.", Author: "Prof. Kyaw Zin Htet", AuthorRole: domainauth.RoleTeacher, Date: "2025-01-13", Priority: model.PriorityMedium, Target: model.AudienceStudents},
		{ID: "ann-4", Title: "AUY Career Fair 2025", Message: "Annual Career Fair will be held on February 20th at the University Auditorium. 50+ companies participating. Bring your resume!", Author: "Placement Cell", AuthorRole: domainauth.RoleAdmin, Date: "2025-01-12", Priority: model.PriorityLow, Target: model.AudienceAll},
		{ID: "ann-5", Title: "Faculty Meeting, Jan 30", Message: "Mandatory faculty meeting on January 30th at 4 PM in Conference Room A. Agenda: Curriculum revision and evaluation methods.", Author: "Dr. Thandar Win", AuthorRole: domainauth.RoleAdmin, Date: "2025-01-11", Priority: model.PriorityHigh, Target: model.AudienceTeachers},
	}
}

// Courses returns the course catalogue.
func Courses() []model.CourseInfo {
	return []model.CourseInfo{
		{ID: "crs-1", Name: "Data Structures & Algorithms", Code: "CS201", Department: "Computer Science", Teacher: "Prof. Kyaw Zin Htet", Students: 65},
		{ID: "crs-2", Name: "Database Management Systems", Code: "CS301", Department: "Computer Science", Teacher: "Prof. Min Thant", Students: 58},
		{ID: "crs-3", Name: "Operating Systems", Code: "CS302", Department: "Computer Science", Teacher: "Prof. Su Su Lwin", Students: 52},
		{ID: "crs-4", Name: "Computer Networks", Code: "CS401", Department: "Computer Science", Teacher: "Prof. Hla Myo", Students: 45},
		{ID: "crs-5", Name: "Machine Learning", Code: "CS501", Department: "Computer Science", Teacher: "Prof. Zaw Win Tun", Students: 38},
		{ID: "crs-6", Name: "Software Engineering", Code: "CS303", Department: "Computer Science", Teacher: "Prof. Kyaw Zin Htet", Students: 60},
	}
}

// Stats returns portal-wide counters.
func Stats() model.SystemStats {
	return model.SystemStats{
		TotalUsers:          342,
		TotalStudents:       285,
		TotalTeachers:       47,
		TotalCourses:        36,
		ActiveAnnouncements: 5,
		AverageAttendance:   82.4,
	}
}

// Data serves the fixtures behind the academic service's fallback interface.
type Data struct{}

func (Data) Attendance(email string) []model.AttendanceRecord { return Attendance(email) }

func (Data) AttendanceSummary(string) model.AttendanceSummary { return AttendanceSummary() }

func (Data) Exams() []model.Exam { return Exams() }

// Results returns the graded results attributed to email.
func (Data) Results(email string) []model.Result {
	out := Results()
	for i := range out {
		out[i].StudentEmail = email
	}
	return out
}

func (Data) Announcements() []model.Announcement { return Announcements() }

func (Data) Courses() []model.CourseInfo { return Courses() }

func (Data) Users() []domainauth.UserProfile { return Users() }

func (Data) Stats() model.SystemStats { return Stats() }
