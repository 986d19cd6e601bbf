package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/attendance"
	"github.com/trezcool/daftari/core/school"
)

type attendanceRepository struct {
	reader
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{reader{db: db}}
}

func (repo *attendanceRepository) GetSession(ctx context.Context, classID int, date time.Time) (school.AttendanceSession, error) {
	var sess school.AttendanceSession
	err := repo.db.GetContext(ctx, &sess,
		`SELECT id, class_id, date FROM attendance_session WHERE class_id = $1 AND date = $2`,
		classID, date.Format(core.DateLayout))
	if err != nil {
		return school.AttendanceSession{}, trapErr(err, school.ErrSessionNotFound, "getting attendance session")
	}
	sess.Date = core.Day(sess.Date)
	return sess, nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, sessionID int) ([]school.AttendanceRecord, error) {
	records := make([]school.AttendanceRecord, 0)
	err := repo.db.SelectContext(ctx, &records,
		`SELECT id, session_id, student_id, status FROM attendance_record WHERE session_id = $1 ORDER BY id`, sessionID)
	return records, trapErr(err, nil, "querying attendance records")
}

func (repo *attendanceRepository) SaveSession(
	ctx context.Context,
	classID int,
	date time.Time,
	records []school.AttendanceRecord,
) (school.AttendanceSession, error) {
	sess := school.AttendanceSession{ClassID: classID, Date: date}
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		// the no-op update makes RETURNING yield the existing row too
		err := tx.GetContext(ctx, &sess.ID, `
			INSERT INTO attendance_session (class_id, date) VALUES ($1, $2)
			ON CONFLICT (class_id, date) DO UPDATE SET date = EXCLUDED.date
			RETURNING id`,
			classID, date.Format(core.DateLayout))
		if err != nil {
			return trapErr(err, nil, "upserting attendance session")
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM attendance_record WHERE session_id = $1`, sess.ID); err != nil {
			return trapErr(err, nil, "clearing attendance records")
		}
		if len(records) == 0 {
			return nil
		}
		for i := range records {
			records[i].SessionID = sess.ID
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO attendance_record (session_id, student_id, status)
			VALUES (:session_id, :student_id, :status)`, records)
		return trapErr(err, nil, "inserting attendance records")
	})
	if err != nil {
		return school.AttendanceSession{}, err
	}
	return sess, nil
}
