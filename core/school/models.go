// Package school holds the records shared by every part of the engine:
// classes and what they own.
package school

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// MaxSubjectScore is the fixed ceiling of a subject score.
const MaxSubjectScore = 100

type Class struct {
	ID      int    `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Section string `json:"section" db:"section"`
}

// Label returns "<name>-<section>".
func (c Class) Label() string {
	return c.Name + "-" + c.Section
}

type Subject struct {
	ID      int    `json:"id" db:"id"`
	ClassID int    `json:"class_id" db:"class_id"`
	Name    string `json:"name" db:"name"`
}

type Student struct {
	ID      int    `json:"id" db:"id"`
	ClassID int    `json:"class_id" db:"class_id"`
	Name    string `json:"name" db:"name"`
	RollNo  string `json:"roll_no" db:"roll_no"`
}

// Exam is an assessment of one class.
// Weight is stored as given but never applied to totals.
type Exam struct {
	ID      int         `json:"id" db:"id"`
	ClassID int         `json:"class_id" db:"class_id"`
	Name    string      `json:"name" db:"name"`
	Type    null.String `json:"type" db:"exam_type"`
	Weight  float64     `json:"weight" db:"weight"`
}

// Mark is identified by (StudentID, SubjectID, ExamID).
type Mark struct {
	StudentID int     `json:"student_id" db:"student_id"`
	SubjectID int     `json:"subject_id" db:"subject_id"`
	ExamID    int     `json:"exam_id" db:"exam_id"`
	Score     float64 `json:"score" db:"score"`
}

// Status is the attendance status of a student for a session.
type Status string

const (
	Present Status = "P"
	Absent  Status = "A"
)

func (s Status) Valid() bool {
	return s == Present || s == Absent
}

func (s Status) String() string {
	switch s {
	case Present:
		return "Present"
	case Absent:
		return "Absent"
	default:
		return string(s)
	}
}

// AttendanceSession is the attendance taken for a class on a date (UTC midnight).
type AttendanceSession struct {
	ID      int       `json:"id" db:"id"`
	ClassID int       `json:"class_id" db:"class_id"`
	Date    time.Time `json:"date" db:"date"`
}

type AttendanceRecord struct {
	ID        int    `json:"id" db:"id"`
	SessionID int    `json:"session_id" db:"session_id"`
	StudentID int    `json:"student_id" db:"student_id"`
	Status    Status `json:"status" db:"status"`
}

// FeeStructure is a charge applied to every student of a class.
type FeeStructure struct {
	ID      int       `json:"id" db:"id"`
	ClassID int       `json:"class_id" db:"class_id"`
	Name    string    `json:"name" db:"name"`
	Amount  float64   `json:"amount" db:"amount"`
	DueDate null.Time `json:"due_date" db:"due_date"`
}

// FeePayment is append-only.
type FeePayment struct {
	ID        int         `json:"id" db:"id"`
	StudentID int         `json:"student_id" db:"student_id"`
	FeeID     int         `json:"fee_id" db:"fee_id"`
	Amount    float64     `json:"amount" db:"paid_amount"`
	PaidOn    time.Time   `json:"paid_on" db:"paid_on"`
	Mode      null.String `json:"mode" db:"mode"`
}
