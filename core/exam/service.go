// Package exam keeps exams and marks and scores them into results.
package exam

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/access"
	"github.com/trezcool/daftari/core/school"
)

var ErrClassMismatch = core.NewInputError("student and exam belong to different classes")

type (
	Repository interface {
		CreateExam(ctx context.Context, ex school.Exam) (school.Exam, error)
		GetExam(ctx context.Context, id int) (school.Exam, error)
		// QueryExams returns the exams of a class, newest first.
		QueryExams(ctx context.Context, classID int) ([]school.Exam, error)
		// DeleteExam removes the exam and its marks in one transaction.
		DeleteExam(ctx context.Context, id int) error

		// UpsertMarks stores all marks in one transaction, replacing existing
		// marks with the same (student, subject, exam).
		UpsertMarks(ctx context.Context, marks []school.Mark) error
		// QueryMarks returns the marks of an exam, restricted to `studentIDs` when given.
		QueryMarks(ctx context.Context, examID int, studentIDs ...int) ([]school.Mark, error)

		GetClass(ctx context.Context, id int) (school.Class, error)
		GetStudent(ctx context.Context, id int) (school.Student, error)
		QueryStudents(ctx context.Context, classID int) ([]school.Student, error)
		QuerySubjects(ctx context.Context, classID int) ([]school.Subject, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) CreateExam(ctx context.Context, actor access.Identity, classID int, ne NewExam) (school.Exam, error) {
	if err := access.Authorize(actor, access.CreateExam); err != nil {
		return school.Exam{}, err
	}
	if err := ne.Validate(); err != nil {
		return school.Exam{}, err
	}
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return school.Exam{}, err
	}
	return svc.repo.CreateExam(ctx, ne.exam(classID))
}

func (svc *Service) DeleteExam(ctx context.Context, actor access.Identity, id int) error {
	if err := access.Authorize(actor, access.DeleteExam); err != nil {
		return err
	}
	if err := svc.repo.DeleteExam(ctx, id); err != nil {
		return err
	}
	svc.logger.Info("exam deleted", map[string]interface{}{"exam_id": id}, actor)
	return nil
}

// Exams lists the exams of a class, newest first.
func (svc *Service) Exams(ctx context.Context, actor access.Identity, classID int) ([]school.Exam, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return nil, err
	}
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryExams(ctx, classID)
}

// UpsertMarks saves a student's scores for an exam. Each subject is handled on its own:
// blank or unparseable scores are saved as 0 and subjects of other classes are skipped,
// both reported back without failing the batch.
func (svc *Service) UpsertMarks(ctx context.Context, actor access.Identity, me MarkEntry) (MarksReport, error) {
	if err := access.Authorize(actor, access.EnterMarks); err != nil {
		return MarksReport{}, err
	}
	if err := me.Validate(); err != nil {
		return MarksReport{}, err
	}

	std, err := svc.repo.GetStudent(ctx, me.StudentID)
	if err != nil {
		return MarksReport{}, err
	}
	ex, err := svc.repo.GetExam(ctx, me.ExamID)
	if err != nil {
		return MarksReport{}, err
	}
	if std.ClassID != ex.ClassID {
		return MarksReport{}, ErrClassMismatch
	}
	subjects, err := svc.repo.QuerySubjects(ctx, ex.ClassID)
	if err != nil {
		return MarksReport{}, errors.Wrap(err, "querying subjects")
	}
	taught := make(map[int]bool, len(subjects))
	for _, subj := range subjects {
		taught[subj.ID] = true
	}

	subjectIDs := make([]int, 0, len(me.Scores))
	for id := range me.Scores {
		subjectIDs = append(subjectIDs, id)
	}
	sort.Ints(subjectIDs)

	var report MarksReport
	for _, subjID := range subjectIDs {
		if !taught[subjID] {
			svc.logger.Warn("mark skipped: subject not taught in class", map[string]interface{}{
				"subject_id": subjID, "exam_id": ex.ID, "student_id": std.ID,
			})
			report.Skipped = append(report.Skipped, subjID)
			continue
		}
		score, ok := ParseScore(me.Scores[subjID])
		if !ok {
			svc.logger.Warn("mark defaulted to 0", map[string]interface{}{
				"subject_id": subjID, "exam_id": ex.ID, "student_id": std.ID, "input": me.Scores[subjID],
			})
			report.Defaulted = append(report.Defaulted, subjID)
		}
		report.Saved = append(report.Saved, school.Mark{StudentID: std.ID, SubjectID: subjID, ExamID: ex.ID, Score: score})
	}

	if len(report.Saved) > 0 {
		if err = svc.repo.UpsertMarks(ctx, report.Saved); err != nil {
			return MarksReport{}, errors.Wrap(err, "upserting marks")
		}
	}
	return report, nil
}

// classExam returns the exam `examID` of a class, or its latest exam when `examID` is 0.
// An exam of another class is not found.
func (svc *Service) classExam(ctx context.Context, classID, examID int) (school.Exam, error) {
	if examID == 0 {
		exams, err := svc.repo.QueryExams(ctx, classID)
		if err != nil {
			return school.Exam{}, errors.Wrap(err, "querying exams")
		}
		if len(exams) == 0 {
			return school.Exam{}, school.ErrExamNotFound
		}
		return exams[0], nil
	}

	ex, err := svc.repo.GetExam(ctx, examID)
	if err != nil {
		return school.Exam{}, err
	}
	if ex.ClassID != classID {
		return school.Exam{}, school.ErrExamNotFound
	}
	return ex, nil
}

// groupScores maps student IDs to subject IDs to scores.
func groupScores(marks []school.Mark) map[int]map[int]float64 {
	scores := make(map[int]map[int]float64)
	for _, m := range marks {
		if scores[m.StudentID] == nil {
			scores[m.StudentID] = make(map[int]float64)
		}
		scores[m.StudentID][m.SubjectID] = m.Score
	}
	return scores
}

// MarkSheet returns the scores entered so far for every student and subject of a class.
func (svc *Service) MarkSheet(ctx context.Context, actor access.Identity, classID, examID int) (MarkSheet, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return MarkSheet{}, err
	}

	var (
		sheet MarkSheet
		err   error
	)
	if sheet.Class, err = svc.repo.GetClass(ctx, classID); err != nil {
		return MarkSheet{}, err
	}
	if sheet.Exam, err = svc.classExam(ctx, classID, examID); err != nil {
		return MarkSheet{}, err
	}
	if sheet.Students, err = svc.repo.QueryStudents(ctx, classID); err != nil {
		return MarkSheet{}, errors.Wrap(err, "querying students")
	}
	if sheet.Subjects, err = svc.repo.QuerySubjects(ctx, classID); err != nil {
		return MarkSheet{}, errors.Wrap(err, "querying subjects")
	}
	marks, err := svc.repo.QueryMarks(ctx, sheet.Exam.ID)
	if err != nil {
		return MarkSheet{}, errors.Wrap(err, "querying marks")
	}
	sheet.Scores = groupScores(marks)
	return sheet, nil
}

// StudentResult scores a student in an exam of their class.
func (svc *Service) StudentResult(ctx context.Context, actor access.Identity, studentID, examID int) (Result, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return Result{}, err
	}
	if examID == 0 {
		return Result{}, school.ErrExamNotFound
	}
	return svc.studentResult(ctx, studentID, examID)
}

// LatestStudentResult scores a student in the latest exam of their class.
func (svc *Service) LatestStudentResult(ctx context.Context, actor access.Identity, studentID int) (Result, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return Result{}, err
	}
	return svc.studentResult(ctx, studentID, 0)
}

func (svc *Service) studentResult(ctx context.Context, studentID, examID int) (Result, error) {
	std, err := svc.repo.GetStudent(ctx, studentID)
	if err != nil {
		return Result{}, err
	}
	ex, err := svc.classExam(ctx, std.ClassID, examID)
	if err != nil {
		return Result{}, err
	}
	subjects, err := svc.repo.QuerySubjects(ctx, std.ClassID)
	if err != nil {
		return Result{}, errors.Wrap(err, "querying subjects")
	}
	marks, err := svc.repo.QueryMarks(ctx, ex.ID, std.ID)
	if err != nil {
		return Result{}, errors.Wrap(err, "querying marks")
	}
	return computeResult(std, ex, subjects, groupScores(marks)[std.ID]), nil
}

// ClassResults scores every student of a class in an exam (the latest one when `examID` is 0)
// and ranks them by total descending, then roll number ascending.
func (svc *Service) ClassResults(ctx context.Context, actor access.Identity, classID, examID int) (ClassResults, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return ClassResults{}, err
	}

	var (
		res ClassResults
		err error
	)
	if res.Class, err = svc.repo.GetClass(ctx, classID); err != nil {
		return ClassResults{}, err
	}
	if res.Exam, err = svc.classExam(ctx, classID, examID); err != nil {
		return ClassResults{}, err
	}
	if res.Subjects, err = svc.repo.QuerySubjects(ctx, classID); err != nil {
		return ClassResults{}, errors.Wrap(err, "querying subjects")
	}
	students, err := svc.repo.QueryStudents(ctx, classID)
	if err != nil {
		return ClassResults{}, errors.Wrap(err, "querying students")
	}
	marks, err := svc.repo.QueryMarks(ctx, res.Exam.ID)
	if err != nil {
		return ClassResults{}, errors.Wrap(err, "querying marks")
	}

	scores := groupScores(marks)
	res.Results = make([]RankedResult, 0, len(students))
	for _, std := range students {
		res.Results = append(res.Results, RankedResult{Result: computeResult(std, res.Exam, res.Subjects, scores[std.ID])})
	}
	sortResults(res.Results)
	for i := range res.Results {
		res.Results[i].Rank = i + 1
	}
	return res, nil
}

func sortResults(results []RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Total != results[j].Total {
			return results[i].Total > results[j].Total
		}
		return results[i].Student.RollNo < results[j].Student.RollNo
	})
}
