package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/daftari/core/attendance"
	"github.com/trezcool/daftari/core/school"
)

type attendanceRepository struct {
	reader
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{reader{db: db}}
}

func (repo *attendanceRepository) session(classID int, date time.Time) (school.AttendanceSession, bool) {
	for _, sess := range repo.db.sessions {
		if sess.ClassID == classID && sess.Date.Equal(date) {
			return sess, true
		}
	}
	return school.AttendanceSession{}, false
}

func (repo *attendanceRepository) GetSession(_ context.Context, classID int, date time.Time) (school.AttendanceSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sess, ok := repo.session(classID, date); ok {
		return sess, nil
	}
	return school.AttendanceSession{}, school.ErrSessionNotFound
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, sessionID int) ([]school.AttendanceRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]school.AttendanceRecord, 0)
	for _, rec := range repo.db.records {
		if rec.SessionID == sessionID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (repo *attendanceRepository) SaveSession(
	_ context.Context,
	classID int,
	date time.Time,
	records []school.AttendanceRecord,
) (school.AttendanceSession, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.db.getClass(classID); err != nil {
		return school.AttendanceSession{}, err
	}
	for _, rec := range records {
		if _, err := repo.db.getStudent(rec.StudentID); err != nil {
			return school.AttendanceSession{}, err
		}
	}

	sess, ok := repo.session(classID, date)
	if !ok {
		sess = school.AttendanceSession{ID: repo.db.nextID(), ClassID: classID, Date: date}
		repo.db.sessions[sess.ID] = sess
	}
	for recID, rec := range repo.db.records {
		if rec.SessionID == sess.ID {
			delete(repo.db.records, recID)
		}
	}
	for _, rec := range records {
		rec.ID = repo.db.nextID()
		rec.SessionID = sess.ID
		repo.db.records[rec.ID] = rec
	}
	return sess, nil
}
