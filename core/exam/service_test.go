package exam_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/access"
	"github.com/trezcool/daftari/core/exam"
	"github.com/trezcool/daftari/core/school"
	"github.com/trezcool/daftari/tests"
)

var ctx = context.Background()

type fixture struct {
	svcs     *testutil.Services
	class    school.Class
	subjects []school.Subject // English, Maths, Science
	students []school.Student // rolls 1, 2, 3
	exam     school.Exam
}

func setup(t *testing.T) fixture {
	svcs := testutil.NewServices(t)
	cls := svcs.CreateClass(t, "Grade 5", "a")
	return fixture{
		svcs:  svcs,
		class: cls,
		subjects: []school.Subject{
			svcs.AddSubject(t, cls.ID, "English"),
			svcs.AddSubject(t, cls.ID, "Maths"),
			svcs.AddSubject(t, cls.ID, "Science"),
		},
		students: []school.Student{
			svcs.AddStudent(t, cls.ID, "Amani", "1"),
			svcs.AddStudent(t, cls.ID, "Baraka", "2"),
			svcs.AddStudent(t, cls.ID, "Chausiku", "3"),
		},
		exam: svcs.CreateExam(t, cls.ID, "Mid Term"),
	}
}

func (f fixture) enter(t *testing.T, std school.Student, scores ...string) {
	entry := exam.MarkEntry{StudentID: std.ID, ExamID: f.exam.ID, Scores: map[int]string{}}
	for i, s := range scores {
		entry.Scores[f.subjects[i].ID] = s
	}
	if _, err := f.svcs.Exam.UpsertMarks(ctx, testutil.Teacher, entry); err != nil {
		t.Fatalf("UpsertMarks() failed: %v", err)
	}
}

func TestService_CreateExam(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name       string
		ne         exam.NewExam
		classID    int
		wantWeight float64
		wantType   string
		wantErr    error
	}{
		{name: "default weight", ne: exam.NewExam{Name: "Final"}, classID: f.class.ID, wantWeight: 1},
		{name: "explicit weight", ne: exam.NewExam{Name: " Final ", Type: "Theory", Weight: 2.5}, classID: f.class.ID, wantWeight: 2.5, wantType: "Theory"},
		{name: "blank name", ne: exam.NewExam{Name: "  "}, classID: f.class.ID, wantErr: core.ErrInvalidInput},
		{name: "negative weight", ne: exam.NewExam{Name: "Final", Weight: -1}, classID: f.class.ID, wantErr: core.ErrInvalidInput},
		{name: "infinite weight", ne: exam.NewExam{Name: "Final", Weight: math.Inf(1)}, classID: f.class.ID, wantErr: core.ErrInvalidInput},
		{name: "unknown class", ne: exam.NewExam{Name: "Final"}, classID: 999, wantErr: core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := f.svcs.Exam.CreateExam(ctx, testutil.Teacher, tt.classID, tt.ne)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "CreateExam() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Final", ex.Name)
			assert.Equal(t, tt.wantWeight, ex.Weight)
			assert.Equal(t, tt.wantType, ex.Type.String)
			assert.Equal(t, tt.wantType != "", ex.Type.Valid)
		})
	}
}

func TestService_DeleteExam(t *testing.T) {
	f := setup(t)
	f.enter(t, f.students[0], "50", "60", "70")

	err := f.svcs.Exam.DeleteExam(ctx, testutil.Teacher, f.exam.ID)
	assert.True(t, errors.Is(err, core.ErrForbidden), "teacher DeleteExam() error = %v", err)

	require.NoError(t, f.svcs.Exam.DeleteExam(ctx, testutil.Admin, f.exam.ID))
	_, err = f.svcs.Exam.StudentResult(ctx, testutil.Admin, f.students[0].ID, f.exam.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	err = f.svcs.Exam.DeleteExam(ctx, testutil.Admin, f.exam.ID)
	assert.True(t, errors.Is(err, school.ErrExamNotFound))
}

func TestService_UpsertMarks(t *testing.T) {
	f := setup(t)
	other := f.svcs.CreateClass(t, "Grade 6", "A")
	otherSubj := f.svcs.AddSubject(t, other.ID, "History")
	otherStd := f.svcs.AddStudent(t, other.ID, "Dalila", "1")
	eng, maths, sci := f.subjects[0], f.subjects[1], f.subjects[2]
	std := f.students[0]

	t.Run("per subject defaults and skips", func(t *testing.T) {
		report, err := f.svcs.Exam.UpsertMarks(ctx, testutil.Teacher, exam.MarkEntry{
			StudentID: std.ID,
			ExamID:    f.exam.ID,
			Scores:    map[int]string{eng.ID: "80", maths.ID: "eighty", sci.ID: "", otherSubj.ID: "90"},
		})
		require.NoError(t, err)
		assert.Len(t, report.Saved, 3)
		assert.ElementsMatch(t, []int{maths.ID, sci.ID}, report.Defaulted)
		assert.Equal(t, []int{otherSubj.ID}, report.Skipped)

		res, err := f.svcs.Exam.StudentResult(ctx, testutil.Teacher, std.ID, f.exam.ID)
		require.NoError(t, err)
		assert.Equal(t, 80.0, res.Total)
	})

	t.Run("left out subjects are untouched", func(t *testing.T) {
		_, err := f.svcs.Exam.UpsertMarks(ctx, testutil.Teacher, exam.MarkEntry{
			StudentID: std.ID, ExamID: f.exam.ID, Scores: map[int]string{maths.ID: "70"},
		})
		require.NoError(t, err)

		sheet, err := f.svcs.Exam.MarkSheet(ctx, testutil.Teacher, f.class.ID, f.exam.ID)
		require.NoError(t, err)
		assert.Equal(t, 80.0, sheet.Score(std.ID, eng.ID))
		assert.Equal(t, 70.0, sheet.Score(std.ID, maths.ID))
		assert.Equal(t, 0.0, sheet.Score(std.ID, sci.ID))
	})

	t.Run("idempotent", func(t *testing.T) {
		entry := exam.MarkEntry{StudentID: std.ID, ExamID: f.exam.ID, Scores: map[int]string{sci.ID: "65"}}
		for i := 0; i < 2; i++ {
			_, err := f.svcs.Exam.UpsertMarks(ctx, testutil.Teacher, entry)
			require.NoError(t, err)
		}
		sheet, err := f.svcs.Exam.MarkSheet(ctx, testutil.Teacher, f.class.ID, f.exam.ID)
		require.NoError(t, err)
		assert.Len(t, sheet.Scores[std.ID], 3)
		assert.Equal(t, 65.0, sheet.Score(std.ID, sci.ID))
	})

	errTests := []struct {
		name    string
		actor   access.Identity
		entry   exam.MarkEntry
		wantErr error
	}{
		{name: "unauthenticated", actor: testutil.Anonymous, entry: exam.MarkEntry{StudentID: std.ID, ExamID: f.exam.ID}, wantErr: core.ErrUnauthenticated},
		{name: "student of another class", actor: testutil.Teacher, entry: exam.MarkEntry{StudentID: otherStd.ID, ExamID: f.exam.ID}, wantErr: core.ErrInvalidInput},
		{name: "unknown student", actor: testutil.Teacher, entry: exam.MarkEntry{StudentID: 999, ExamID: f.exam.ID}, wantErr: school.ErrStudentNotFound},
		{name: "unknown exam", actor: testutil.Teacher, entry: exam.MarkEntry{StudentID: std.ID, ExamID: 999}, wantErr: school.ErrExamNotFound},
		{name: "missing exam", actor: testutil.Teacher, entry: exam.MarkEntry{StudentID: std.ID}, wantErr: core.ErrInvalidInput},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svcs.Exam.UpsertMarks(ctx, tt.actor, tt.entry)
			assert.True(t, errors.Is(err, tt.wantErr), "UpsertMarks() error = %v, wantErr %v", err, tt.wantErr)
		})
	}
}

func TestService_StudentResult(t *testing.T) {
	f := setup(t)
	later := f.svcs.CreateExam(t, f.class.ID, "Final")
	other := f.svcs.CreateClass(t, "Grade 6", "A")
	otherExam := f.svcs.CreateExam(t, other.ID, "Mid Term")
	full, zero := f.students[0], f.students[1]
	f.enter(t, full, "100", "100", "100")

	t.Run("all full marks", func(t *testing.T) {
		res, err := f.svcs.Exam.StudentResult(ctx, testutil.Teacher, full.ID, f.exam.ID)
		require.NoError(t, err)
		assert.Equal(t, 300.0, res.Total)
		assert.Equal(t, 300.0, res.Max)
		assert.Equal(t, 100.0, res.Percentage)
		assert.Equal(t, exam.GradeAPlus, res.Grade)
		assert.Equal(t, exam.Pass, res.Status)
		for _, s := range res.Subjects {
			assert.True(t, s.Entered)
		}
	})

	t.Run("no marks", func(t *testing.T) {
		res, err := f.svcs.Exam.StudentResult(ctx, testutil.Teacher, zero.ID, f.exam.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.Percentage)
		assert.Equal(t, exam.GradeF, res.Grade)
		assert.Equal(t, exam.Fail, res.Status)
		assert.Len(t, res.Subjects, 3)
	})

	t.Run("latest exam", func(t *testing.T) {
		res, err := f.svcs.Exam.LatestStudentResult(ctx, testutil.Teacher, full.ID)
		require.NoError(t, err)
		assert.Equal(t, later.ID, res.Exam.ID)
		assert.Equal(t, 0.0, res.Total)
	})

	t.Run("exam of another class", func(t *testing.T) {
		_, err := f.svcs.Exam.StudentResult(ctx, testutil.Teacher, full.ID, otherExam.ID)
		assert.True(t, errors.Is(err, school.ErrExamNotFound))
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := f.svcs.Exam.StudentResult(ctx, testutil.Teacher, 999, f.exam.ID)
		assert.True(t, errors.Is(err, school.ErrStudentNotFound))
	})

	t.Run("no exam yet", func(t *testing.T) {
		std := f.svcs.AddStudent(t, other.ID, "Dalila", "1")
		require.NoError(t, f.svcs.Exam.DeleteExam(ctx, testutil.Admin, otherExam.ID))
		_, err := f.svcs.Exam.LatestStudentResult(ctx, testutil.Teacher, std.ID)
		assert.True(t, errors.Is(err, school.ErrExamNotFound))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := f.svcs.Exam.StudentResult(ctx, testutil.Anonymous, full.ID, f.exam.ID)
		assert.True(t, errors.Is(err, core.ErrUnauthenticated))
	})
}

func TestService_ClassResults(t *testing.T) {
	f := setup(t)
	late := f.svcs.AddStudent(t, f.class.ID, "Dalila", "4")
	f.enter(t, f.students[0], "20", "20", "10") // 50
	f.enter(t, f.students[1], "30", "30", "20") // 80
	f.enter(t, f.students[2], "10", "20", "20") // 50
	f.enter(t, late, "33", "33", "33")          // 99

	res, err := f.svcs.Exam.ClassResults(ctx, testutil.Teacher, f.class.ID, f.exam.ID)
	require.NoError(t, err)
	require.Len(t, res.Results, 4)

	wantRolls := []string{"4", "2", "1", "3"}
	wantTotals := []float64{99, 80, 50, 50}
	for i, r := range res.Results {
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, wantRolls[i], r.Student.RollNo)
		assert.Equal(t, wantTotals[i], r.Total)
	}
	assert.Equal(t, 33.0, res.Results[0].Percentage)
	assert.Equal(t, exam.GradeC, res.Results[0].Grade)
	assert.Equal(t, exam.Pass, res.Results[0].Status)

	t.Run("zero marks listed", func(t *testing.T) {
		f.svcs.AddStudent(t, f.class.ID, "Eshe", "5")
		res, err := f.svcs.Exam.ClassResults(ctx, testutil.Teacher, f.class.ID, 0 /* latest */)
		require.NoError(t, err)
		require.Len(t, res.Results, 5)
		last := res.Results[4]
		assert.Equal(t, "5", last.Student.RollNo)
		assert.Equal(t, 0.0, last.Total)
		assert.Equal(t, exam.Fail, last.Status)
	})

	t.Run("weight is not applied", func(t *testing.T) {
		heavy, err := f.svcs.Exam.CreateExam(ctx, testutil.Admin, f.class.ID, exam.NewExam{Name: "Final", Weight: 3})
		require.NoError(t, err)
		_, err = f.svcs.Exam.UpsertMarks(ctx, testutil.Teacher, exam.MarkEntry{
			StudentID: f.students[0].ID, ExamID: heavy.ID, Scores: map[int]string{f.subjects[0].ID: "60"},
		})
		require.NoError(t, err)
		res, err := f.svcs.Exam.ClassResults(ctx, testutil.Teacher, f.class.ID, heavy.ID)
		require.NoError(t, err)
		assert.Equal(t, 60.0, res.Results[0].Total)
		assert.Equal(t, 20.0, res.Results[0].Percentage)
	})
}
