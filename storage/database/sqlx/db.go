// Package sqlxrepos implements the engine repositories on Postgres.
// Every multi-table mutation runs in a single transaction; cascades are
// deleted explicitly, leaves first, even though the schema cascades too.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/school"
	"github.com/trezcool/daftari/core/user"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// constraintErrs maps unique constraints (and indexes) to domain errors.
var constraintErrs = map[string]error{
	"class_name_section_key":       school.ErrClassExists,
	"student_class_id_roll_no_key": school.ErrRollNoExists,
	"subject_class_id_name_key":    school.ErrSubjectExists,
	"user_username_key":            user.ErrUsernameExists,
}

// trapErr maps "no rows" to `notFound` and Postgres integrity errors to the
// core error conditions; anything else is wrapped with `msg`.
func trapErr(err error, notFound error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			if cErr, ok := constraintErrs[pqErr.Constraint]; ok {
				return cErr
			}
			return errors.Wrap(core.ErrConstraintViolation, pqErr.Message)
		case pqForeignKeyViolation:
			return errors.Wrap(core.ErrNotFound, pqErr.Message)
		case pqCheckViolation:
			return errors.Wrap(core.ErrInvalidInput, pqErr.Message)
		}
	}
	return errors.Wrap(err, msg)
}

// withTx runs fn in a transaction, committed when fn returns nil and rolled back otherwise.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "committing transaction")
	}()
	return fn(tx)
}

// execAll runs the statements in order, each with `args`.
func execAll(ctx context.Context, tx *sqlx.Tx, stmts []string, args ...interface{}) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return trapErr(err, nil, "executing cascade")
		}
	}
	return nil
}

// mustAffect returns `notFound` when `res` affected no row.
func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading rows affected")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// likePattern escapes `q` for a substring ILIKE match.
func likePattern(q string) string {
	return "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q) + "%"
}

const (
	classColumns   = `id, name, section`
	subjectColumns = `id, class_id, name`
	studentColumns = `id, class_id, name, roll_no`
	examColumns    = `id, class_id, name, exam_type, weight`
)

// reader serves the class and roster lookups every repository needs.
type reader struct {
	db *sqlx.DB
}

func (r reader) GetClass(ctx context.Context, id int) (school.Class, error) {
	var cls school.Class
	err := r.db.GetContext(ctx, &cls, `SELECT `+classColumns+` FROM class WHERE id = $1`, id)
	return cls, trapErr(err, school.ErrClassNotFound, "getting class")
}

func (r reader) GetStudent(ctx context.Context, id int) (school.Student, error) {
	var std school.Student
	err := r.db.GetContext(ctx, &std, `SELECT `+studentColumns+` FROM student WHERE id = $1`, id)
	return std, trapErr(err, school.ErrStudentNotFound, "getting student")
}

func (r reader) QueryStudents(ctx context.Context, classID int) ([]school.Student, error) {
	students := make([]school.Student, 0)
	err := r.db.SelectContext(ctx, &students,
		`SELECT `+studentColumns+` FROM student WHERE class_id = $1 ORDER BY roll_no COLLATE "C", id`, classID)
	return students, trapErr(err, nil, "querying students")
}

func (r reader) QuerySubjects(ctx context.Context, classID int) ([]school.Subject, error) {
	subjects := make([]school.Subject, 0)
	err := r.db.SelectContext(ctx, &subjects,
		`SELECT `+subjectColumns+` FROM subject WHERE class_id = $1 ORDER BY name COLLATE "C", id`, classID)
	return subjects, trapErr(err, nil, "querying subjects")
}
