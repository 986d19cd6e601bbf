package sqlxrepos_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/access"
	"github.com/trezcool/daftari/core/attendance"
	"github.com/trezcool/daftari/core/exam"
	"github.com/trezcool/daftari/core/fee"
	"github.com/trezcool/daftari/core/roster"
	"github.com/trezcool/daftari/core/school"
	"github.com/trezcool/daftari/core/user"
	"github.com/trezcool/daftari/storage/database/sqlx"
	"github.com/trezcool/daftari/tests"
)

var ctx = context.Background()

// newServices wires every service on the Postgres test database.
func newServices(t *testing.T) *testutil.Services {
	db := testutil.PrepareDB(t)
	logger := testutil.NewLogger()
	usrRepo := sqlxrepos.NewUserRepository(db)
	return &testutil.Services{
		Roster:     roster.NewService(sqlxrepos.NewRosterRepository(db), logger),
		Exam:       exam.NewService(sqlxrepos.NewExamRepository(db), logger),
		Attendance: attendance.NewService(sqlxrepos.NewAttendanceRepository(db), logger),
		Fee:        fee.NewService(sqlxrepos.NewFeeRepository(db), logger),
		User:       user.NewService(usrRepo, logger),
		UserRepo:   usrRepo,
	}
}

func TestRoster(t *testing.T) {
	svcs := newServices(t)
	cls := svcs.CreateClass(t, "Grade 5", "A")

	_, err := svcs.Roster.CreateClass(ctx, testutil.Admin, roster.NewClass{Name: "Grade 5", Section: "a"})
	assert.True(t, errors.Is(err, school.ErrClassExists), "CreateClass() error = %v", err)

	svcs.AddSubject(t, cls.ID, "Maths")
	_, err = svcs.Roster.AddSubject(ctx, testutil.Admin, cls.ID, roster.NewSubject{Name: "maths"})
	assert.True(t, errors.Is(err, school.ErrSubjectExists), "AddSubject() error = %v", err)

	svcs.AddStudent(t, cls.ID, "Baraka", "2")
	svcs.AddStudent(t, cls.ID, "Juma", "10")
	svcs.AddStudent(t, cls.ID, "Amani", "1")
	_, err = svcs.Roster.AddStudent(ctx, testutil.Admin, cls.ID, roster.NewStudent{Name: "Eshe", RollNo: "1"})
	assert.True(t, errors.Is(err, school.ErrRollNoExists), "AddStudent() error = %v", err)

	detail, err := svcs.Roster.ClassDetail(ctx, testutil.Teacher, cls.ID)
	require.NoError(t, err)
	rolls := make([]string, 0, len(detail.Students))
	for _, std := range detail.Students {
		rolls = append(rolls, std.RollNo)
	}
	assert.Equal(t, []string{"1", "10", "2"}, rolls)

	matches, err := svcs.Roster.SearchStudents(ctx, testutil.Teacher, "AM")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Amani", matches[0].Student.Name)
	assert.Equal(t, cls, matches[0].Class)

	ov, err := svcs.Roster.Overview(ctx, testutil.Teacher)
	require.NoError(t, err)
	assert.Equal(t, roster.Overview{Classes: 1, Students: 3, Exams: 0}, ov)
}

func TestRoster_DeleteClass(t *testing.T) {
	svcs := newServices(t)
	cls := svcs.CreateClass(t, "Grade 5", "A")
	other := svcs.CreateClass(t, "Grade 6", "A")
	subj := svcs.AddSubject(t, cls.ID, "Maths")
	std := svcs.AddStudent(t, cls.ID, "Amani", "1")
	kept := svcs.AddStudent(t, other.ID, "Baraka", "1")
	ex := svcs.CreateExam(t, cls.ID, "Mid Term")
	fs := svcs.AddFee(t, cls.ID, "Tuition", 500)

	_, err := svcs.Exam.UpsertMarks(ctx, testutil.Admin, exam.MarkEntry{StudentID: std.ID, ExamID: ex.ID, Scores: map[int]string{subj.ID: "70"}})
	require.NoError(t, err)
	_, err = svcs.Attendance.Save(ctx, testutil.Admin, cls.ID, time.Time{}, map[int]school.Status{std.ID: school.Absent})
	require.NoError(t, err)
	_, err = svcs.Fee.RecordPayment(ctx, testutil.Admin, fee.NewPayment{StudentID: std.ID, FeeID: fs.ID, Amount: 100})
	require.NoError(t, err)

	require.NoError(t, svcs.Roster.DeleteClass(ctx, testutil.Admin, cls.ID))

	_, err = svcs.Roster.GetStudent(ctx, testutil.Admin, std.ID)
	assert.True(t, errors.Is(err, school.ErrStudentNotFound))
	_, err = svcs.Roster.GetStudent(ctx, testutil.Admin, kept.ID)
	assert.NoError(t, err)

	ov, err := svcs.Roster.Overview(ctx, testutil.Admin)
	require.NoError(t, err)
	assert.Equal(t, roster.Overview{Classes: 1, Students: 1, Exams: 0}, ov)

	err = svcs.Roster.DeleteClass(ctx, testutil.Admin, cls.ID)
	assert.True(t, errors.Is(err, school.ErrClassNotFound))
}

func TestRoster_Promote(t *testing.T) {
	svcs := newServices(t)
	src := svcs.CreateClass(t, "Grade 5", "A")
	tgt := svcs.CreateClass(t, "Grade 6", "A")
	svcs.AddStudent(t, src.ID, "Amani", "1")
	svcs.AddStudent(t, src.ID, "Baraka", "2")
	svcs.AddStudent(t, src.ID, "Chausiku", "3")
	svcs.AddStudent(t, tgt.ID, "Dalila", "2")

	report, err := svcs.Roster.Promote(ctx, testutil.Admin, roster.Promotion{SourceID: src.ID, TargetID: tgt.ID})
	require.NoError(t, err)
	assert.Len(t, report.Promoted, 2)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "2", report.Skipped[0].RollNo)

	report, err = svcs.Roster.Promote(ctx, testutil.Admin, roster.Promotion{SourceID: src.ID, TargetID: tgt.ID, Move: true})
	require.NoError(t, err)
	assert.Empty(t, report.Promoted)
	assert.Len(t, report.Skipped, 3)

	detail, err := svcs.Roster.ClassDetail(ctx, testutil.Admin, src.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Students)
}

func TestExam(t *testing.T) {
	svcs := newServices(t)
	cls := svcs.CreateClass(t, "Grade 5", "A")
	eng := svcs.AddSubject(t, cls.ID, "English")
	maths := svcs.AddSubject(t, cls.ID, "Maths")
	amani := svcs.AddStudent(t, cls.ID, "Amani", "1")
	baraka := svcs.AddStudent(t, cls.ID, "Baraka", "2")
	ex := svcs.CreateExam(t, cls.ID, "Mid Term")

	entry := exam.MarkEntry{StudentID: amani.ID, ExamID: ex.ID, Scores: map[int]string{eng.ID: "40", maths.ID: "x"}}
	for i := 0; i < 2; i++ {
		report, err := svcs.Exam.UpsertMarks(ctx, testutil.Teacher, entry)
		require.NoError(t, err)
		assert.Equal(t, []int{maths.ID}, report.Defaulted)
	}
	_, err := svcs.Exam.UpsertMarks(ctx, testutil.Teacher, exam.MarkEntry{
		StudentID: baraka.ID, ExamID: ex.ID, Scores: map[int]string{eng.ID: "20", maths.ID: "20"},
	})
	require.NoError(t, err)

	sheet, err := svcs.Exam.MarkSheet(ctx, testutil.Teacher, cls.ID, ex.ID)
	require.NoError(t, err)
	assert.Len(t, sheet.Scores[amani.ID], 2)
	assert.Equal(t, 40.0, sheet.Score(amani.ID, eng.ID))

	res, err := svcs.Exam.ClassResults(ctx, testutil.Teacher, cls.ID, 0)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	// tie on total: lower roll number first
	assert.Equal(t, amani.ID, res.Results[0].Student.ID)
	assert.Equal(t, 20.0, res.Results[0].Percentage)
	assert.Equal(t, exam.GradeF, res.Results[0].Grade)
	assert.Equal(t, 2, res.Results[1].Rank)

	require.NoError(t, svcs.Exam.DeleteExam(ctx, testutil.Admin, ex.ID))
	_, err = svcs.Exam.LatestStudentResult(ctx, testutil.Teacher, amani.ID)
	assert.True(t, errors.Is(err, school.ErrExamNotFound))
}

func TestAttendance(t *testing.T) {
	svcs := newServices(t)
	cls := svcs.CreateClass(t, "Grade 5", "A")
	amani := svcs.AddStudent(t, cls.ID, "Amani", "1")
	baraka := svcs.AddStudent(t, cls.ID, "Baraka", "2")
	date := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	sh, err := svcs.Attendance.Load(ctx, testutil.Teacher, cls.ID, date)
	require.NoError(t, err)
	assert.False(t, sh.Saved)

	_, err = svcs.Attendance.Save(ctx, testutil.Teacher, cls.ID, date, map[int]school.Status{amani.ID: school.Absent})
	require.NoError(t, err)
	_, err = svcs.Attendance.Save(ctx, testutil.Teacher, cls.ID, date, map[int]school.Status{baraka.ID: school.Absent})
	require.NoError(t, err)

	sh, err = svcs.Attendance.Load(ctx, testutil.Teacher, cls.ID, date)
	require.NoError(t, err)
	assert.True(t, sh.Saved)
	assert.True(t, sh.Date.Equal(date))
	assert.Equal(t, []school.Student{baraka}, sh.Absentees())
}

func TestFee(t *testing.T) {
	svcs := newServices(t)
	g5 := svcs.CreateClass(t, "Grade 5", "A")
	g6 := svcs.CreateClass(t, "Grade 6", "A")
	tuition := svcs.AddFee(t, g5.ID, "Tuition", 300)
	transport := svcs.AddFee(t, g5.ID, "Transport", 200)
	std := svcs.AddStudent(t, g5.ID, "Amani", "1")
	svcs.AddStudent(t, g6.ID, "Baraka", "1")

	for _, p := range []fee.NewPayment{
		{StudentID: std.ID, FeeID: tuition.ID, Amount: 200, PaidOn: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{StudentID: std.ID, FeeID: transport.ID, Amount: 250, PaidOn: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Mode: "cash"},
	} {
		_, err := svcs.Fee.RecordPayment(ctx, testutil.Teacher, p)
		require.NoError(t, err)
	}

	ldg, err := svcs.Fee.StudentLedger(ctx, testutil.Teacher, std.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, ldg.Due)
	assert.Equal(t, 50.0, ldg.Balance)
	require.Len(t, ldg.Payments, 2)
	assert.Equal(t, "Transport", ldg.Payments[0].FeeName)
	assert.Equal(t, "cash", ldg.Payments[0].Mode.String)

	_, err = svcs.Fee.RecordPayment(ctx, testutil.Teacher, fee.NewPayment{StudentID: std.ID, FeeID: tuition.ID, Amount: 150})
	require.NoError(t, err)
	sum, err := svcs.Fee.ClassSummary(ctx, testutil.Teacher, g5.ID)
	require.NoError(t, err)
	require.Len(t, sum.Students, 1)
	assert.Equal(t, -100.0, sum.Students[0].Balance)

	rows, err := svcs.Fee.Dashboard(ctx, testutil.Teacher)
	require.NoError(t, err)
	assert.Equal(t, []fee.ClassFees{
		{Class: g5, FeeItems: 2, Students: 1},
		{Class: g6, FeeItems: 0, Students: 1},
	}, rows)

	_, err = svcs.Fee.RecordPayment(ctx, testutil.Teacher, fee.NewPayment{StudentID: std.ID, FeeID: tuition.ID, Amount: -1})
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))
}

func TestUser(t *testing.T) {
	svcs := newServices(t)
	created, err := svcs.User.EnsureAdmin(ctx, "root", "Kamba#2024")
	require.NoError(t, err)
	assert.True(t, created)

	id, err := svcs.User.Authenticate(ctx, "ROOT", "Kamba#2024")
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, id.Role)

	_, err = svcs.User.Create(ctx, id, user.NewUser{Username: "root", Password: "Kamba#2024", PasswordConfirm: "Kamba#2024", Role: access.RoleTeacher})
	assert.True(t, errors.Is(err, user.ErrUsernameExists), "Create() error = %v", err)

	err = svcs.User.Delete(ctx, id, id.UserID)
	assert.True(t, errors.Is(err, user.ErrLastAdmin), "Delete() error = %v", err)
	_, err = svcs.User.SetRole(ctx, id, id.UserID, access.RoleTeacher)
	assert.True(t, errors.Is(err, user.ErrLastAdmin), "SetRole() error = %v", err)

	users, err := svcs.User.QueryAll(ctx, id)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
