package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/access"
	"github.com/trezcool/daftari/core/attendance"
	"github.com/trezcool/daftari/core/exam"
	"github.com/trezcool/daftari/core/fee"
	"github.com/trezcool/daftari/core/roster"
	"github.com/trezcool/daftari/core/school"
	"github.com/trezcool/daftari/core/user"
	"github.com/trezcool/daftari/services/logger"
	"github.com/trezcool/daftari/storage/database"
	"github.com/trezcool/daftari/storage/database/inmem"
)

// TestDatabaseURLEnv names the variable holding the Postgres test database URL.
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

var (
	Admin       = access.Identity{UserID: 1, Username: "admin", Role: access.RoleAdmin}
	Teacher     = access.Identity{UserID: 2, Username: "teacher", Role: access.RoleTeacher}
	Anonymous   = access.Identity{}
	UnknownRole = access.Identity{UserID: 3, Username: "ghost", Role: "janitor"}
)

// NewLogger returns a logger discarding every entry.
func NewLogger() core.Logger {
	return logsvc.NewStdLogger(log.New(io.Discard, "", 0))
}

// Services bundles every engine service over one in-memory database.
type Services struct {
	DB         *inmemdb.DB
	Roster     *roster.Service
	Exam       *exam.Service
	Attendance *attendance.Service
	Fee        *fee.Service
	User       *user.Service

	UserRepo user.Repository
}

func NewServices(t *testing.T) *Services {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	logger := NewLogger()
	usrRepo := inmemdb.NewUserRepository(db)
	return &Services{
		DB:         db,
		Roster:     roster.NewService(inmemdb.NewRosterRepository(db), logger),
		Exam:       exam.NewService(inmemdb.NewExamRepository(db), logger),
		Attendance: attendance.NewService(inmemdb.NewAttendanceRepository(db), logger),
		Fee:        fee.NewService(inmemdb.NewFeeRepository(db), logger),
		User:       user.NewService(usrRepo, logger),
		UserRepo:   usrRepo,
	}
}

// Fixtures, created as Admin.

func (s *Services) CreateClass(t *testing.T, name, section string) school.Class {
	cls, err := s.Roster.CreateClass(context.Background(), Admin, roster.NewClass{Name: name, Section: section})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func (s *Services) AddSubject(t *testing.T, classID int, name string) school.Subject {
	subj, err := s.Roster.AddSubject(context.Background(), Admin, classID, roster.NewSubject{Name: name})
	if err != nil {
		t.Fatalf("AddSubject() failed: %v", err)
	}
	return subj
}

func (s *Services) AddStudent(t *testing.T, classID int, name, rollNo string) school.Student {
	std, err := s.Roster.AddStudent(context.Background(), Admin, classID, roster.NewStudent{Name: name, RollNo: rollNo})
	if err != nil {
		t.Fatalf("AddStudent() failed: %v", err)
	}
	return std
}

func (s *Services) CreateExam(t *testing.T, classID int, name string) school.Exam {
	ex, err := s.Exam.CreateExam(context.Background(), Admin, classID, exam.NewExam{Name: name})
	if err != nil {
		t.Fatalf("CreateExam() failed: %v", err)
	}
	return ex
}

func (s *Services) AddFee(t *testing.T, classID int, name string, amount float64) school.FeeStructure {
	fs, err := s.Fee.AddStructure(context.Background(), Admin, classID, fee.NewFeeStructure{Name: name, Amount: amount})
	if err != nil {
		t.Fatalf("AddFee() failed: %v", err)
	}
	return fs
}

func CreateUser(t *testing.T, repo user.Repository, uname, pwd string, role access.Role, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// PrepareDB opens the Postgres test database, migrates it and empties it.
// The test is skipped when TEST_DATABASE_URL is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	dbURL := os.Getenv(TestDatabaseURLEnv)
	if dbURL == "" {
		t.Skipf("%s not set", TestDatabaseURLEnv)
	}

	db, err := database.OpenURL(dbURL)
	if err != nil {
		t.Fatalf("database.OpenURL() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	ResetDB(t, db)
	return db
}

// ResetDB empties every table.
func ResetDB(t *testing.T, db *sqlx.DB) {
	_, err := db.Exec(`TRUNCATE fee_payment, fee_structure, attendance_record, attendance_session,
		mark, exam, student, subject, class, "user" RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}
