package school

import "github.com/trezcool/daftari/core"

var (
	ErrClassNotFound   = core.NewNotFoundError("class")
	ErrSubjectNotFound = core.NewNotFoundError("subject")
	ErrStudentNotFound = core.NewNotFoundError("student")
	ErrExamNotFound    = core.NewNotFoundError("exam")
	ErrFeeNotFound     = core.NewNotFoundError("fee structure")
	ErrSessionNotFound = core.NewNotFoundError("attendance session")

	ErrClassExists   = core.NewConstraintError("a class with this name and section already exists")
	ErrRollNoExists  = core.NewConstraintError("roll number already exists in this class")
	ErrSubjectExists = core.NewConstraintError("a subject with this name already exists in this class")
)
