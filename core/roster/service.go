// Package roster manages classes, their subjects and students, and promotion between classes.
package roster

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/access"
	"github.com/trezcool/daftari/core/school"
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls school.Class) (school.Class, error)
		GetClass(ctx context.Context, id int) (school.Class, error)
		// QueryClasses returns all classes ordered by name then section.
		QueryClasses(ctx context.Context) ([]school.Class, error)
		UpdateClass(ctx context.Context, cls school.Class) (school.Class, error)
		// DeleteClass removes the class and everything it owns in one transaction.
		DeleteClass(ctx context.Context, id int) error

		CreateSubject(ctx context.Context, subj school.Subject) (school.Subject, error)
		GetSubject(ctx context.Context, id int) (school.Subject, error)
		// QuerySubjects returns the subjects of a class ordered by name.
		QuerySubjects(ctx context.Context, classID int) ([]school.Subject, error)
		UpdateSubject(ctx context.Context, subj school.Subject) (school.Subject, error)
		DeleteSubject(ctx context.Context, id int) error

		CreateStudent(ctx context.Context, std school.Student) (school.Student, error)
		GetStudent(ctx context.Context, id int) (school.Student, error)
		// QueryStudents returns the students of a class ordered by roll number.
		QueryStudents(ctx context.Context, classID int) ([]school.Student, error)
		UpdateStudent(ctx context.Context, std school.Student) (school.Student, error)
		DeleteStudent(ctx context.Context, id int) error
		// SearchStudents matches `q` case-insensitively against names and roll numbers,
		// ordered by class name, section and roll number.
		SearchStudents(ctx context.Context, q string) ([]StudentMatch, error)

		// PromoteStudents copies every student of `sourceID` into `targetID` in one transaction,
		// skipping those whose roll number is taken. With `move`, all source students are then deleted.
		PromoteStudents(ctx context.Context, sourceID, targetID int, move bool) (PromotionReport, error)

		// QueryClassExams returns the exams of a class, newest first.
		QueryClassExams(ctx context.Context, classID int) ([]school.Exam, error)
		CountRecords(ctx context.Context) (Overview, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, actor access.Identity, nc NewClass) (school.Class, error) {
	if err := access.Authorize(actor, access.CreateClass); err != nil {
		return school.Class{}, err
	}
	if err := nc.Validate(); err != nil {
		return school.Class{}, err
	}
	return svc.repo.CreateClass(ctx, school.Class{Name: nc.Name, Section: nc.Section})
}

func (svc *Service) RenameClass(ctx context.Context, actor access.Identity, id int, uc UpdateClass) (school.Class, error) {
	if err := access.Authorize(actor, access.RenameClass); err != nil {
		return school.Class{}, err
	}
	if err := uc.Validate(); err != nil {
		return school.Class{}, err
	}
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return school.Class{}, err
	}
	cls.Name = uc.Name
	cls.Section = uc.Section
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) DeleteClass(ctx context.Context, actor access.Identity, id int) error {
	if err := access.Authorize(actor, access.DeleteClass); err != nil {
		return err
	}
	if err := svc.repo.DeleteClass(ctx, id); err != nil {
		return err
	}
	svc.logger.Info("class deleted", map[string]interface{}{"class_id": id}, actor)
	return nil
}

func (svc *Service) Classes(ctx context.Context, actor access.Identity) ([]school.Class, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return nil, err
	}
	return svc.repo.QueryClasses(ctx)
}

func (svc *Service) ClassDetail(ctx context.Context, actor access.Identity, id int) (ClassDetail, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return ClassDetail{}, err
	}

	var (
		detail ClassDetail
		err    error
	)
	if detail.Class, err = svc.repo.GetClass(ctx, id); err != nil {
		return ClassDetail{}, err
	}
	if detail.Students, err = svc.repo.QueryStudents(ctx, id); err != nil {
		return ClassDetail{}, errors.Wrap(err, "querying students")
	}
	if detail.Subjects, err = svc.repo.QuerySubjects(ctx, id); err != nil {
		return ClassDetail{}, errors.Wrap(err, "querying subjects")
	}
	if detail.Exams, err = svc.repo.QueryClassExams(ctx, id); err != nil {
		return ClassDetail{}, errors.Wrap(err, "querying exams")
	}
	return detail, nil
}

// Overview counts classes, students and exams.
func (svc *Service) Overview(ctx context.Context, actor access.Identity) (Overview, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return Overview{}, err
	}
	return svc.repo.CountRecords(ctx)
}

// Subjects

func (svc *Service) AddSubject(ctx context.Context, actor access.Identity, classID int, ns NewSubject) (school.Subject, error) {
	if err := access.Authorize(actor, access.AddSubject); err != nil {
		return school.Subject{}, err
	}
	if err := ns.Validate(); err != nil {
		return school.Subject{}, err
	}
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return school.Subject{}, err
	}
	if err := svc.checkSubjectName(ctx, classID, ns.Name, 0); err != nil {
		return school.Subject{}, err
	}
	return svc.repo.CreateSubject(ctx, school.Subject{ClassID: classID, Name: ns.Name})
}

func (svc *Service) EditSubject(ctx context.Context, actor access.Identity, id int, us UpdateSubject) (school.Subject, error) {
	if err := access.Authorize(actor, access.EditSubject); err != nil {
		return school.Subject{}, err
	}
	if err := us.Validate(); err != nil {
		return school.Subject{}, err
	}
	subj, err := svc.repo.GetSubject(ctx, id)
	if err != nil {
		return school.Subject{}, err
	}
	if err = svc.checkSubjectName(ctx, subj.ClassID, us.Name, subj.ID); err != nil {
		return school.Subject{}, err
	}
	subj.Name = us.Name
	return svc.repo.UpdateSubject(ctx, subj)
}

func (svc *Service) DeleteSubject(ctx context.Context, actor access.Identity, id int) error {
	if err := access.Authorize(actor, access.DeleteSubject); err != nil {
		return err
	}
	if err := svc.repo.DeleteSubject(ctx, id); err != nil {
		return err
	}
	svc.logger.Info("subject deleted", map[string]interface{}{"subject_id": id}, actor)
	return nil
}

// checkSubjectName rejects a subject name already used in the class, ignoring case.
func (svc *Service) checkSubjectName(ctx context.Context, classID int, name string, excludedID int) error {
	subjects, err := svc.repo.QuerySubjects(ctx, classID)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	for _, subj := range subjects {
		if subj.ID != excludedID && strings.EqualFold(subj.Name, name) {
			return school.ErrSubjectExists
		}
	}
	return nil
}

// Students

func (svc *Service) AddStudent(ctx context.Context, actor access.Identity, classID int, ns NewStudent) (school.Student, error) {
	if err := access.Authorize(actor, access.AddStudent); err != nil {
		return school.Student{}, err
	}
	if err := ns.Validate(); err != nil {
		return school.Student{}, err
	}
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return school.Student{}, err
	}
	return svc.repo.CreateStudent(ctx, school.Student{ClassID: classID, Name: ns.Name, RollNo: ns.RollNo})
}

func (svc *Service) EditStudent(ctx context.Context, actor access.Identity, id int, us UpdateStudent) (school.Student, error) {
	if err := access.Authorize(actor, access.EditStudent); err != nil {
		return school.Student{}, err
	}
	if err := us.Validate(); err != nil {
		return school.Student{}, err
	}
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return school.Student{}, err
	}
	std.Name = us.Name
	std.RollNo = us.RollNo
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) DeleteStudent(ctx context.Context, actor access.Identity, id int) error {
	if err := access.Authorize(actor, access.DeleteStudent); err != nil {
		return err
	}
	if err := svc.repo.DeleteStudent(ctx, id); err != nil {
		return err
	}
	svc.logger.Info("student deleted", map[string]interface{}{"student_id": id}, actor)
	return nil
}

func (svc *Service) GetStudent(ctx context.Context, actor access.Identity, id int) (school.Student, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return school.Student{}, err
	}
	return svc.repo.GetStudent(ctx, id)
}

// SearchStudents finds students whose name or roll number contains `q`, ignoring case.
func (svc *Service) SearchStudents(ctx context.Context, actor access.Identity, q string) ([]StudentMatch, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return nil, err
	}
	if q = core.CleanString(q); q == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "q", Error: "this field is required"})
	}
	return svc.repo.SearchStudents(ctx, q)
}

// Promote copies the students of one class into another. Students whose roll number
// already exists in the target class are skipped and reported, not failed.
func (svc *Service) Promote(ctx context.Context, actor access.Identity, p Promotion) (PromotionReport, error) {
	if err := access.Authorize(actor, access.PromoteStudents); err != nil {
		return PromotionReport{}, err
	}
	if err := p.Validate(); err != nil {
		return PromotionReport{}, err
	}
	for _, id := range []int{p.SourceID, p.TargetID} {
		if _, err := svc.repo.GetClass(ctx, id); err != nil {
			return PromotionReport{}, err
		}
	}

	report, err := svc.repo.PromoteStudents(ctx, p.SourceID, p.TargetID, p.Move)
	if err != nil {
		return PromotionReport{}, errors.Wrap(err, "promoting students")
	}
	for _, std := range report.Skipped {
		svc.logger.Warn("promotion skipped duplicate roll number", map[string]interface{}{
			"student_id": std.ID,
			"roll_no":    std.RollNo,
			"target_id":  p.TargetID,
		})
	}
	svc.logger.Info("students promoted", map[string]interface{}{
		"source_id": p.SourceID,
		"target_id": p.TargetID,
		"promoted":  len(report.Promoted),
		"skipped":   len(report.Skipped),
		"moved":     report.Moved,
	}, actor)
	return report, nil
}
