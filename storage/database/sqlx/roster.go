package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/daftari/core/roster"
	"github.com/trezcool/daftari/core/school"
)

// studentOwned deletes what a set of students owns; $1 selects the students.
func studentOwned(studentIDs string) []string {
	return []string{
		`DELETE FROM fee_payment WHERE student_id IN (` + studentIDs + `)`,
		`DELETE FROM attendance_record WHERE student_id IN (` + studentIDs + `)`,
		`DELETE FROM mark WHERE student_id IN (` + studentIDs + `)`,
	}
}

var (
	deleteClassStmts = append(studentOwned(`SELECT id FROM student WHERE class_id = $1`),
		`DELETE FROM fee_payment WHERE fee_id IN (SELECT id FROM fee_structure WHERE class_id = $1)`,
		`DELETE FROM attendance_record WHERE session_id IN (SELECT id FROM attendance_session WHERE class_id = $1)`,
		`DELETE FROM mark WHERE exam_id IN (SELECT id FROM exam WHERE class_id = $1)`,
		`DELETE FROM mark WHERE subject_id IN (SELECT id FROM subject WHERE class_id = $1)`,
		`DELETE FROM attendance_session WHERE class_id = $1`,
		`DELETE FROM fee_structure WHERE class_id = $1`,
		`DELETE FROM exam WHERE class_id = $1`,
		`DELETE FROM student WHERE class_id = $1`,
		`DELETE FROM subject WHERE class_id = $1`,
	)
	deleteStudentStmts      = studentOwned(`$1`)
	deleteClassStudentStmts = append(studentOwned(`SELECT id FROM student WHERE class_id = $1`),
		`DELETE FROM student WHERE class_id = $1`,
	)
)

type rosterRepository struct {
	reader
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *sqlx.DB) roster.Repository {
	return &rosterRepository{reader{db: db}}
}

func (repo *rosterRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	err := repo.db.GetContext(ctx, &cls.ID,
		`INSERT INTO class (name, section) VALUES ($1, $2) RETURNING id`, cls.Name, cls.Section)
	if err != nil {
		return school.Class{}, trapErr(err, nil, "inserting class")
	}
	return cls, nil
}

func (repo *rosterRepository) QueryClasses(ctx context.Context) ([]school.Class, error) {
	classes := make([]school.Class, 0)
	err := repo.db.SelectContext(ctx, &classes,
		`SELECT `+classColumns+` FROM class ORDER BY name COLLATE "C", section COLLATE "C"`)
	return classes, trapErr(err, nil, "querying classes")
}

func (repo *rosterRepository) UpdateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE class SET name = :name, section = :section WHERE id = :id`, cls)
	if err != nil {
		return school.Class{}, trapErr(err, nil, "updating class")
	}
	if err = mustAffect(res, school.ErrClassNotFound); err != nil {
		return school.Class{}, err
	}
	return cls, nil
}

func (repo *rosterRepository) DeleteClass(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := execAll(ctx, tx, deleteClassStmts, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM class WHERE id = $1`, id)
		if err != nil {
			return trapErr(err, nil, "deleting class")
		}
		return mustAffect(res, school.ErrClassNotFound)
	})
}

func (repo *rosterRepository) CreateSubject(ctx context.Context, subj school.Subject) (school.Subject, error) {
	err := repo.db.GetContext(ctx, &subj.ID,
		`INSERT INTO subject (class_id, name) VALUES ($1, $2) RETURNING id`, subj.ClassID, subj.Name)
	if err != nil {
		return school.Subject{}, trapErr(err, nil, "inserting subject")
	}
	return subj, nil
}

func (repo *rosterRepository) GetSubject(ctx context.Context, id int) (school.Subject, error) {
	var subj school.Subject
	err := repo.db.GetContext(ctx, &subj, `SELECT `+subjectColumns+` FROM subject WHERE id = $1`, id)
	return subj, trapErr(err, school.ErrSubjectNotFound, "getting subject")
}

func (repo *rosterRepository) UpdateSubject(ctx context.Context, subj school.Subject) (school.Subject, error) {
	err := repo.db.GetContext(ctx, &subj,
		`UPDATE subject SET name = $1 WHERE id = $2 RETURNING `+subjectColumns, subj.Name, subj.ID)
	return subj, trapErr(err, school.ErrSubjectNotFound, "updating subject")
}

func (repo *rosterRepository) DeleteSubject(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM mark WHERE subject_id = $1`, id); err != nil {
			return trapErr(err, nil, "deleting subject marks")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id)
		if err != nil {
			return trapErr(err, nil, "deleting subject")
		}
		return mustAffect(res, school.ErrSubjectNotFound)
	})
}

func (repo *rosterRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	err := repo.db.GetContext(ctx, &std.ID,
		`INSERT INTO student (class_id, name, roll_no) VALUES ($1, $2, $3) RETURNING id`,
		std.ClassID, std.Name, std.RollNo)
	if err != nil {
		return school.Student{}, trapErr(err, nil, "inserting student")
	}
	return std, nil
}

func (repo *rosterRepository) UpdateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	err := repo.db.GetContext(ctx, &std,
		`UPDATE student SET name = $1, roll_no = $2 WHERE id = $3 RETURNING `+studentColumns,
		std.Name, std.RollNo, std.ID)
	return std, trapErr(err, school.ErrStudentNotFound, "updating student")
}

func (repo *rosterRepository) DeleteStudent(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := execAll(ctx, tx, deleteStudentStmts, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id)
		if err != nil {
			return trapErr(err, nil, "deleting student")
		}
		return mustAffect(res, school.ErrStudentNotFound)
	})
}

type studentMatchRow struct {
	school.Student
	ClassName    string `db:"class_name"`
	ClassSection string `db:"class_section"`
}

func (repo *rosterRepository) SearchStudents(ctx context.Context, q string) ([]roster.StudentMatch, error) {
	var rows []studentMatchRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT s.id, s.class_id, s.name, s.roll_no, c.name AS class_name, c.section AS class_section
		FROM student s
		JOIN class c ON c.id = s.class_id
		WHERE s.name ILIKE $1 OR s.roll_no ILIKE $1
		ORDER BY c.name COLLATE "C", c.section COLLATE "C", s.roll_no COLLATE "C", s.id`,
		likePattern(q))
	if err != nil {
		return nil, trapErr(err, nil, "searching students")
	}

	matches := make([]roster.StudentMatch, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, roster.StudentMatch{
			Student: r.Student,
			Class:   school.Class{ID: r.ClassID, Name: r.ClassName, Section: r.ClassSection},
		})
	}
	return matches, nil
}

func (repo *rosterRepository) PromoteStudents(ctx context.Context, sourceID, targetID int, move bool) (roster.PromotionReport, error) {
	report := roster.PromotionReport{Moved: move}
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var sources []school.Student
		err := tx.SelectContext(ctx, &sources,
			`SELECT `+studentColumns+` FROM student WHERE class_id = $1 ORDER BY roll_no COLLATE "C", id FOR UPDATE`, sourceID)
		if err != nil {
			return trapErr(err, nil, "querying source students")
		}

		for _, std := range sources {
			promoted := school.Student{ClassID: targetID, Name: std.Name, RollNo: std.RollNo}
			err = tx.GetContext(ctx, &promoted.ID, `
				INSERT INTO student (class_id, name, roll_no) VALUES ($1, $2, $3)
				ON CONFLICT (class_id, roll_no) DO NOTHING
				RETURNING id`,
				promoted.ClassID, promoted.Name, promoted.RollNo)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				report.Skipped = append(report.Skipped, std)
			case err != nil:
				return trapErr(err, nil, "copying student")
			default:
				report.Promoted = append(report.Promoted, promoted)
			}
		}

		if move {
			return execAll(ctx, tx, deleteClassStudentStmts, sourceID)
		}
		return nil
	})
	if err != nil {
		return roster.PromotionReport{}, err
	}
	return report, nil
}

func (repo *rosterRepository) QueryClassExams(ctx context.Context, classID int) ([]school.Exam, error) {
	exams := make([]school.Exam, 0)
	err := repo.db.SelectContext(ctx, &exams,
		`SELECT `+examColumns+` FROM exam WHERE class_id = $1 ORDER BY id DESC`, classID)
	return exams, trapErr(err, nil, "querying exams")
}

func (repo *rosterRepository) CountRecords(ctx context.Context) (roster.Overview, error) {
	var ov roster.Overview
	err := queries.Raw(`
		SELECT (SELECT COUNT(*) FROM class)   AS classes,
		       (SELECT COUNT(*) FROM student) AS students,
		       (SELECT COUNT(*) FROM exam)    AS exams`,
	).Bind(ctx, repo.db, &ov)
	return ov, trapErr(err, nil, "counting records")
}
