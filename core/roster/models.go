package roster

import (
	"strings"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/school"
)

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name    string `json:"name" validate:"required"`
	Section string `json:"section" validate:"required"`
}

// Validate cleans the input and validates it. Sections are stored upper-cased.
func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Section = strings.ToUpper(core.CleanString(nc.Section))
	return core.ValidateStruct(nc)
}

// UpdateClass renames a Class.
type UpdateClass NewClass

func (uc *UpdateClass) Validate() error {
	nc := (*NewClass)(uc)
	return nc.Validate()
}

// NewSubject contains information needed to add a Subject to a Class.
type NewSubject struct {
	Name string `json:"name" validate:"required"`
}

func (ns *NewSubject) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	return core.ValidateStruct(ns)
}

// UpdateSubject renames a Subject.
type UpdateSubject NewSubject

func (us *UpdateSubject) Validate() error {
	return (*NewSubject)(us).Validate()
}

// NewStudent contains information needed to enrol a Student in a Class.
type NewStudent struct {
	Name   string `json:"name" validate:"required"`
	RollNo string `json:"roll_no" validate:"required"`
}

func (ns *NewStudent) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.RollNo = core.CleanString(ns.RollNo)
	return core.ValidateStruct(ns)
}

// UpdateStudent edits a Student's name and roll number; the class is unchanged.
type UpdateStudent NewStudent

func (us *UpdateStudent) Validate() error {
	return (*NewStudent)(us).Validate()
}

// Promotion copies the students of the source class into the target class.
// With Move set, the source class is emptied afterwards.
type Promotion struct {
	SourceID int  `json:"source_id" validate:"required"`
	TargetID int  `json:"target_id" validate:"required,nefield=SourceID"`
	Move     bool `json:"move"`
}

func (p *Promotion) Validate() error {
	return core.ValidateStruct(p)
}

// PromotionReport lists the students copied into the target class (with their new IDs)
// and the source students skipped because their roll number was already taken.
type PromotionReport struct {
	Promoted []school.Student `json:"promoted"`
	Skipped  []school.Student `json:"skipped"`
	Moved    bool             `json:"moved"`
}

// ClassDetail is a Class with everything it owns.
type ClassDetail struct {
	Class    school.Class     `json:"class"`
	Students []school.Student `json:"students"` // by roll number
	Subjects []school.Subject `json:"subjects"` // by name
	Exams    []school.Exam    `json:"exams"`    // newest first
}

// StudentMatch is a search hit: a Student with its Class.
type StudentMatch struct {
	Student school.Student `json:"student"`
	Class   school.Class   `json:"class"`
}

// Overview counts the records kept by the engine.
type Overview struct {
	Classes  int `json:"classes" db:"classes" boil:"classes"`
	Students int `json:"students" db:"students" boil:"students"`
	Exams    int `json:"exams" db:"exams" boil:"exams"`
}
