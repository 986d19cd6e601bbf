// Package attendance keeps one attendance session per class and date.
package attendance

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/access"
	"github.com/trezcool/daftari/core/school"
)

type (
	Repository interface {
		// GetSession returns the session of a class on `date`, or school.ErrSessionNotFound.
		GetSession(ctx context.Context, classID int, date time.Time) (school.AttendanceSession, error)
		QueryRecords(ctx context.Context, sessionID int) ([]school.AttendanceRecord, error)
		// SaveSession creates the session of a class on `date` when missing and replaces
		// all of its records with `records`, in one transaction.
		SaveSession(ctx context.Context, classID int, date time.Time, records []school.AttendanceRecord) (school.AttendanceSession, error)

		GetClass(ctx context.Context, id int) (school.Class, error)
		QueryStudents(ctx context.Context, classID int) ([]school.Student, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

// Entry is the status of one student in a Sheet.
type Entry struct {
	Student school.Student `json:"student"`
	Status  school.Status  `json:"status"`
}

// Sheet is the attendance of a class on a date. Saved is false when
// no session exists yet; every student then reads Present.
type Sheet struct {
	Class   school.Class `json:"class"`
	Date    time.Time    `json:"date"`
	Saved   bool         `json:"saved"`
	Entries []Entry      `json:"entries"` // by roll number
}

// Statuses maps student IDs to their status.
func (sh Sheet) Statuses() map[int]school.Status {
	statuses := make(map[int]school.Status, len(sh.Entries))
	for _, e := range sh.Entries {
		statuses[e.Student.ID] = e.Status
	}
	return statuses
}

// Absentees returns the students marked absent.
func (sh Sheet) Absentees() []school.Student {
	var absent []school.Student
	for _, e := range sh.Entries {
		if e.Status == school.Absent {
			absent = append(absent, e.Student)
		}
	}
	return absent
}

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Load returns the attendance of a class on `date` (today when zero). Nothing is persisted.
func (svc *Service) Load(ctx context.Context, actor access.Identity, classID int, date time.Time) (Sheet, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return Sheet{}, err
	}
	cls, students, err := svc.roster(ctx, classID)
	if err != nil {
		return Sheet{}, err
	}
	date = core.Day(date)

	sess, err := svc.repo.GetSession(ctx, classID, date)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return sheet(cls, date, false, students, nil), nil
		}
		return Sheet{}, errors.Wrap(err, "getting attendance session")
	}
	records, err := svc.repo.QueryRecords(ctx, sess.ID)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "querying attendance records")
	}
	statuses := make(map[int]school.Status, len(records))
	for _, rec := range records {
		statuses[rec.StudentID] = rec.Status
	}
	return sheet(cls, date, true, students, statuses), nil
}

// Save replaces the attendance of a class on `date` (today when zero) with one record per
// student of the class. Students left out of `statuses` are Present; invalid statuses fall back
// to Present and IDs of students outside the class are ignored.
func (svc *Service) Save(ctx context.Context, actor access.Identity, classID int, date time.Time, statuses map[int]school.Status) (Sheet, error) {
	if err := access.Authorize(actor, access.SaveAttendance); err != nil {
		return Sheet{}, err
	}
	cls, students, err := svc.roster(ctx, classID)
	if err != nil {
		return Sheet{}, err
	}
	date = core.Day(date)

	enrolled := make(map[int]bool, len(students))
	records := make([]school.AttendanceRecord, 0, len(students))
	saved := make(map[int]school.Status, len(students))
	for _, std := range students {
		enrolled[std.ID] = true
		status, ok := statuses[std.ID]
		if !ok {
			status = school.Present
		} else if !status.Valid() {
			svc.logger.Warn("invalid attendance status, marking present", map[string]interface{}{
				"student_id": std.ID, "status": string(status),
			})
			status = school.Present
		}
		records = append(records, school.AttendanceRecord{StudentID: std.ID, Status: status})
		saved[std.ID] = status
	}
	for _, id := range sortedKeys(statuses) {
		if !enrolled[id] {
			svc.logger.Warn("attendance ignored for student outside class", map[string]interface{}{
				"student_id": id, "class_id": classID,
			})
		}
	}

	if _, err = svc.repo.SaveSession(ctx, classID, date, records); err != nil {
		return Sheet{}, errors.Wrap(err, "saving attendance session")
	}
	return sheet(cls, date, true, students, saved), nil
}

func (svc *Service) roster(ctx context.Context, classID int) (school.Class, []school.Student, error) {
	cls, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return school.Class{}, nil, err
	}
	students, err := svc.repo.QueryStudents(ctx, classID)
	if err != nil {
		return school.Class{}, nil, errors.Wrap(err, "querying students")
	}
	return cls, students, nil
}

func sheet(cls school.Class, date time.Time, saved bool, students []school.Student, statuses map[int]school.Status) Sheet {
	sh := Sheet{Class: cls, Date: date, Saved: saved, Entries: make([]Entry, 0, len(students))}
	for _, std := range students {
		status, ok := statuses[std.ID]
		if !ok {
			status = school.Present
		}
		sh.Entries = append(sh.Entries, Entry{Student: std, Status: status})
	}
	return sh
}

func sortedKeys(m map[int]school.Status) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
