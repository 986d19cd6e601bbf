package exam

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/school"
)

// DefaultWeight is the weight of an exam created without one.
const DefaultWeight = 1.0

// NewExam contains information needed to create an Exam for a class.
type NewExam struct {
	Name   string  `json:"name" validate:"required"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight" validate:"gte=0,finite"`
}

func (ne *NewExam) Validate() error {
	ne.Name = core.CleanString(ne.Name)
	ne.Type = core.CleanString(ne.Type)
	if err := core.ValidateStruct(ne); err != nil {
		return err
	}
	if ne.Weight == 0 {
		ne.Weight = DefaultWeight
	}
	return nil
}

func (ne NewExam) exam(classID int) school.Exam {
	return school.Exam{
		ClassID: classID,
		Name:    ne.Name,
		Type:    null.NewString(ne.Type, ne.Type != ""),
		Weight:  ne.Weight,
	}
}

// MarkEntry is one student's submitted scores for an exam, keyed by subject ID.
// Subjects left out are not touched.
type MarkEntry struct {
	StudentID int            `json:"student_id" validate:"required"`
	ExamID    int            `json:"exam_id" validate:"required"`
	Scores    map[int]string `json:"scores"`
}

func (me *MarkEntry) Validate() error {
	return core.ValidateStruct(me)
}

// MarksReport tells what became of a MarkEntry.
type MarksReport struct {
	Saved     []school.Mark `json:"saved"`
	Defaulted []int         `json:"defaulted"` // subject IDs whose score was blank or unparseable, saved as 0
	Skipped   []int         `json:"skipped"`   // subject IDs not taught in the exam's class
}

// MarkSheet is the marks grid of a class for an exam; missing marks read 0.
type MarkSheet struct {
	Class    school.Class     `json:"class"`
	Exam     school.Exam      `json:"exam"`
	Students []school.Student `json:"students"` // by roll number
	Subjects []school.Subject `json:"subjects"` // by name
	// Scores maps student IDs to subject IDs to scores.
	Scores map[int]map[int]float64 `json:"scores"`
}

// Score returns the score of a student in a subject, 0 when not entered.
func (ms MarkSheet) Score(studentID, subjectID int) float64 {
	return ms.Scores[studentID][subjectID]
}

// RankedResult is a Result with its 1-based position in the class.
type RankedResult struct {
	Rank int `json:"rank"`
	Result
}

// ClassResults ranks every student of a class by total descending, then roll number ascending.
type ClassResults struct {
	Class    school.Class     `json:"class"`
	Exam     school.Exam      `json:"exam"`
	Subjects []school.Subject `json:"subjects"`
	Results  []RankedResult   `json:"results"`
}
