package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/daftari/core/exam"
	"github.com/trezcool/daftari/core/school"
)

type examRepository struct {
	reader
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) exam.Repository {
	return &examRepository{reader{db: db}}
}

func (repo *examRepository) CreateExam(ctx context.Context, ex school.Exam) (school.Exam, error) {
	rows, err := repo.db.NamedQueryContext(ctx, `
		INSERT INTO exam (class_id, name, exam_type, weight)
		VALUES (:class_id, :name, :exam_type, :weight)
		RETURNING id`, ex)
	if err != nil {
		return school.Exam{}, trapErr(err, nil, "inserting exam")
	}
	defer func() { _ = rows.Close() }()

	if rows.Next() {
		if err = rows.Scan(&ex.ID); err != nil {
			return school.Exam{}, trapErr(err, nil, "inserting exam")
		}
	}
	return ex, trapErr(rows.Err(), nil, "inserting exam")
}

func (repo *examRepository) GetExam(ctx context.Context, id int) (school.Exam, error) {
	var ex school.Exam
	err := repo.db.GetContext(ctx, &ex, `SELECT `+examColumns+` FROM exam WHERE id = $1`, id)
	return ex, trapErr(err, school.ErrExamNotFound, "getting exam")
}

func (repo *examRepository) QueryExams(ctx context.Context, classID int) ([]school.Exam, error) {
	exams := make([]school.Exam, 0)
	err := repo.db.SelectContext(ctx, &exams,
		`SELECT `+examColumns+` FROM exam WHERE class_id = $1 ORDER BY id DESC`, classID)
	return exams, trapErr(err, nil, "querying exams")
}

func (repo *examRepository) DeleteExam(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM mark WHERE exam_id = $1`, id); err != nil {
			return trapErr(err, nil, "deleting exam marks")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM exam WHERE id = $1`, id)
		if err != nil {
			return trapErr(err, nil, "deleting exam")
		}
		return mustAffect(res, school.ErrExamNotFound)
	})
}

func (repo *examRepository) UpsertMarks(ctx context.Context, marks []school.Mark) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO mark (student_id, subject_id, exam_id, score)
			VALUES (:student_id, :subject_id, :exam_id, :score)
			ON CONFLICT (student_id, subject_id, exam_id) DO UPDATE SET score = EXCLUDED.score`)
		if err != nil {
			return trapErr(err, nil, "preparing mark upsert")
		}
		defer func() { _ = stmt.Close() }()

		for _, m := range marks {
			if _, err = stmt.ExecContext(ctx, m); err != nil {
				return trapErr(err, nil, "upserting mark")
			}
		}
		return nil
	})
}

func (repo *examRepository) QueryMarks(ctx context.Context, examID int, studentIDs ...int) ([]school.Mark, error) {
	query := `SELECT student_id, subject_id, exam_id, score FROM mark WHERE exam_id = ?`
	args := []interface{}{examID}
	if len(studentIDs) > 0 {
		var err error
		query, args, err = sqlx.In(query+` AND student_id IN (?)`, examID, studentIDs)
		if err != nil {
			return nil, trapErr(err, nil, "building marks query")
		}
	}

	marks := make([]school.Mark, 0)
	err := repo.db.SelectContext(ctx, &marks, repo.db.Rebind(query+` ORDER BY student_id, subject_id`), args...)
	return marks, trapErr(err, nil, "querying marks")
}
