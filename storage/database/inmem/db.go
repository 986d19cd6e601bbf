// Package inmemdb keeps every record in memory behind a single lock,
// so multi-table mutations (cascades, promotion, attendance replace) are atomic.
package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/daftari/core/school"
	"github.com/trezcool/daftari/core/user"
)

type markKey struct {
	studentID, subjectID, examID int
}

type DB struct {
	mutex sync.RWMutex
	pk    int

	classes  map[int]school.Class
	subjects map[int]school.Subject
	students map[int]school.Student
	exams    map[int]school.Exam
	marks    map[markKey]school.Mark
	sessions map[int]school.AttendanceSession
	records  map[int]school.AttendanceRecord
	fees     map[int]school.FeeStructure
	payments map[int]school.FeePayment
	users    map[int]user.User
}

func Open() (*DB, error) {
	db := &DB{
		classes:  make(map[int]school.Class),
		subjects: make(map[int]school.Subject),
		students: make(map[int]school.Student),
		exams:    make(map[int]school.Exam),
		marks:    make(map[markKey]school.Mark),
		sessions: make(map[int]school.AttendanceSession),
		records:  make(map[int]school.AttendanceRecord),
		fees:     make(map[int]school.FeeStructure),
		payments: make(map[int]school.FeePayment),
		users:    make(map[int]user.User),
	}
	return db, nil
}

// nextID must be called with the write lock held.
func (db *DB) nextID() int {
	db.pk++
	return db.pk
}

// The helpers below expect the caller to hold the lock.

func (db *DB) getClass(id int) (school.Class, error) {
	if cls, ok := db.classes[id]; ok {
		return cls, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (db *DB) getStudent(id int) (school.Student, error) {
	if std, ok := db.students[id]; ok {
		return std, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (db *DB) classStudents(classID int) []school.Student {
	students := make([]school.Student, 0)
	for _, std := range db.students {
		if std.ClassID == classID {
			students = append(students, std)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].RollNo != students[j].RollNo {
			return students[i].RollNo < students[j].RollNo
		}
		return students[i].ID < students[j].ID
	})
	return students
}

func (db *DB) classSubjects(classID int) []school.Subject {
	subjects := make([]school.Subject, 0)
	for _, subj := range db.subjects {
		if subj.ClassID == classID {
			subjects = append(subjects, subj)
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Name != subjects[j].Name {
			return subjects[i].Name < subjects[j].Name
		}
		return subjects[i].ID < subjects[j].ID
	})
	return subjects
}

func (db *DB) classExams(classID int) []school.Exam {
	exams := make([]school.Exam, 0)
	for _, ex := range db.exams {
		if ex.ClassID == classID {
			exams = append(exams, ex)
		}
	}
	sort.Slice(exams, func(i, j int) bool { return exams[i].ID > exams[j].ID })
	return exams
}

func (db *DB) rollTaken(classID int, rollNo string, excludedID int) bool {
	for _, std := range db.students {
		if std.ClassID == classID && std.RollNo == rollNo && std.ID != excludedID {
			return true
		}
	}
	return false
}

func (db *DB) subjectNameTaken(classID int, name string, excludedID int) bool {
	for _, subj := range db.subjects {
		if subj.ClassID == classID && strings.EqualFold(subj.Name, name) && subj.ID != excludedID {
			return true
		}
	}
	return false
}

// Cascades, leaves first.

func (db *DB) deleteStudent(id int) {
	for key := range db.marks {
		if key.studentID == id {
			delete(db.marks, key)
		}
	}
	for recID, rec := range db.records {
		if rec.StudentID == id {
			delete(db.records, recID)
		}
	}
	for pID, p := range db.payments {
		if p.StudentID == id {
			delete(db.payments, pID)
		}
	}
	delete(db.students, id)
}

func (db *DB) deleteSubject(id int) {
	for key := range db.marks {
		if key.subjectID == id {
			delete(db.marks, key)
		}
	}
	delete(db.subjects, id)
}

func (db *DB) deleteExam(id int) {
	for key := range db.marks {
		if key.examID == id {
			delete(db.marks, key)
		}
	}
	delete(db.exams, id)
}

func (db *DB) deleteSession(id int) {
	for recID, rec := range db.records {
		if rec.SessionID == id {
			delete(db.records, recID)
		}
	}
	delete(db.sessions, id)
}

func (db *DB) deleteFee(id int) {
	for pID, p := range db.payments {
		if p.FeeID == id {
			delete(db.payments, pID)
		}
	}
	delete(db.fees, id)
}

func (db *DB) deleteClass(id int) {
	for sessID, sess := range db.sessions {
		if sess.ClassID == id {
			db.deleteSession(sessID)
		}
	}
	for feeID, fs := range db.fees {
		if fs.ClassID == id {
			db.deleteFee(feeID)
		}
	}
	for stdID, std := range db.students {
		if std.ClassID == id {
			db.deleteStudent(stdID)
		}
	}
	for exID, ex := range db.exams {
		if ex.ClassID == id {
			db.deleteExam(exID)
		}
	}
	for subjID, subj := range db.subjects {
		if subj.ClassID == id {
			db.deleteSubject(subjID)
		}
	}
	delete(db.classes, id)
}

// reader serves the class and roster lookups every repository needs.
type reader struct {
	db *DB
}

func (r reader) GetClass(_ context.Context, id int) (school.Class, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()
	return r.db.getClass(id)
}

func (r reader) GetStudent(_ context.Context, id int) (school.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()
	return r.db.getStudent(id)
}

func (r reader) QueryStudents(_ context.Context, classID int) ([]school.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()
	return r.db.classStudents(classID), nil
}

func (r reader) QuerySubjects(_ context.Context, classID int) ([]school.Subject, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()
	return r.db.classSubjects(classID), nil
}
