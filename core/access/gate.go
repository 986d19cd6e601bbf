// Package access gates engine operations by the caller's role.
package access

import (
	"github.com/pkg/errors"

	"github.com/trezcool/daftari/core"
)

// Role of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
)

var AllRoles = []Role{RoleAdmin, RoleTeacher}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher
}

// Identity is the caller of an engine operation.
// The zero value is an unauthenticated caller.
type Identity struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (id Identity) Authenticated() bool {
	return id.UserID != 0
}

// Operation is something a caller may be allowed to do.
type Operation string

const (
	CreateClass     Operation = "class:create"
	RenameClass     Operation = "class:rename"
	DeleteClass     Operation = "class:delete"
	AddSubject      Operation = "subject:add"
	EditSubject     Operation = "subject:edit"
	DeleteSubject   Operation = "subject:delete"
	AddStudent      Operation = "student:add"
	EditStudent     Operation = "student:edit"
	DeleteStudent   Operation = "student:delete"
	PromoteStudents Operation = "student:promote"
	CreateExam      Operation = "exam:create"
	DeleteExam      Operation = "exam:delete"
	EnterMarks      Operation = "marks:enter"
	SaveAttendance  Operation = "attendance:save"
	AddFeeStructure Operation = "fee:add"
	RecordPayment   Operation = "fee:pay"
	View            Operation = "view"
	ManageUsers     Operation = "users:manage"
)

// teacherOps are the operations granted to teachers; admins may do anything.
var teacherOps = map[Operation]bool{
	AddStudent:     true,
	EditStudent:    true,
	CreateExam:     true,
	EnterMarks:     true,
	SaveAttendance: true,
	RecordPayment:  true,
	View:           true,
}

// Allowed reports whether `role` may perform `op`.
func Allowed(role Role, op Operation) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleTeacher:
		return teacherOps[op]
	default:
		return false
	}
}

// Authorize rejects unauthenticated callers with core.ErrUnauthenticated
// and callers whose role may not perform `op` with core.ErrForbidden.
func Authorize(id Identity, op Operation) error {
	if !id.Authenticated() {
		return core.ErrUnauthenticated
	}
	if !Allowed(id.Role, op) {
		return errors.Wrapf(core.ErrForbidden, "%s may not %s", id.Role, op)
	}
	return nil
}
