// Package fee keeps the fee lines of each class and the payments made against them.
package fee

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/access"
	"github.com/trezcool/daftari/core/school"
)

var ErrFeeOfOtherClass = core.NewInputError("fee structure does not belong to the student's class")

type (
	Repository interface {
		CreateStructure(ctx context.Context, fs school.FeeStructure) (school.FeeStructure, error)
		GetStructure(ctx context.Context, id int) (school.FeeStructure, error)
		// QueryStructures returns the fee lines of a class ordered by ID.
		QueryStructures(ctx context.Context, classID int) ([]school.FeeStructure, error)

		CreatePayment(ctx context.Context, p school.FeePayment) (school.FeePayment, error)
		// QueryPayments returns the payments of a student, latest first.
		QueryPayments(ctx context.Context, studentID int) ([]PaymentLine, error)
		// SumPaid maps the students of a class to what they paid on the fee lines of that class.
		SumPaid(ctx context.Context, classID int) (map[int]float64, error)
		// CountClassFees returns every class with its number of fee lines and students,
		// ordered by class name then section.
		CountClassFees(ctx context.Context) ([]ClassFeeCount, error)

		GetClass(ctx context.Context, id int) (school.Class, error)
		GetStudent(ctx context.Context, id int) (school.Student, error)
		QueryStudents(ctx context.Context, classID int) ([]school.Student, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Due is what every student of a class owes: the flat sum of its fee lines.
func Due(structures []school.FeeStructure) float64 {
	var due float64
	for _, fs := range structures {
		due += fs.Amount
	}
	return due
}

func (svc *Service) AddStructure(ctx context.Context, actor access.Identity, classID int, nf NewFeeStructure) (school.FeeStructure, error) {
	if err := access.Authorize(actor, access.AddFeeStructure); err != nil {
		return school.FeeStructure{}, err
	}
	if err := nf.Validate(); err != nil {
		return school.FeeStructure{}, err
	}
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return school.FeeStructure{}, err
	}
	return svc.repo.CreateStructure(ctx, nf.structure(classID))
}

func (svc *Service) Structures(ctx context.Context, actor access.Identity, classID int) ([]school.FeeStructure, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return nil, err
	}
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStructures(ctx, classID)
}

// RecordPayment appends a payment; the fee line must belong to the student's class.
func (svc *Service) RecordPayment(ctx context.Context, actor access.Identity, np NewPayment) (school.FeePayment, error) {
	if err := access.Authorize(actor, access.RecordPayment); err != nil {
		return school.FeePayment{}, err
	}
	if err := np.Validate(); err != nil {
		return school.FeePayment{}, err
	}
	std, err := svc.repo.GetStudent(ctx, np.StudentID)
	if err != nil {
		return school.FeePayment{}, err
	}
	fs, err := svc.repo.GetStructure(ctx, np.FeeID)
	if err != nil {
		return school.FeePayment{}, err
	}
	if fs.ClassID != std.ClassID {
		return school.FeePayment{}, ErrFeeOfOtherClass
	}

	p, err := svc.repo.CreatePayment(ctx, np.payment())
	if err != nil {
		return school.FeePayment{}, err
	}
	svc.logger.Info("payment recorded", map[string]interface{}{
		"payment_id": p.ID, "student_id": p.StudentID, "fee_id": p.FeeID, "amount": p.Amount,
	}, actor)
	return p, nil
}

// StudentLedger returns what a student owes and paid, with their payment history.
func (svc *Service) StudentLedger(ctx context.Context, actor access.Identity, studentID int) (Ledger, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return Ledger{}, err
	}

	var (
		ldg Ledger
		err error
	)
	if ldg.Student, err = svc.repo.GetStudent(ctx, studentID); err != nil {
		return Ledger{}, err
	}
	if ldg.Class, err = svc.repo.GetClass(ctx, ldg.Student.ClassID); err != nil {
		return Ledger{}, err
	}
	if ldg.Fees, err = svc.repo.QueryStructures(ctx, ldg.Class.ID); err != nil {
		return Ledger{}, errors.Wrap(err, "querying fee structures")
	}
	if ldg.Payments, err = svc.repo.QueryPayments(ctx, studentID); err != nil {
		return Ledger{}, errors.Wrap(err, "querying payments")
	}
	paid, err := svc.repo.SumPaid(ctx, ldg.Class.ID)
	if err != nil {
		return Ledger{}, errors.Wrap(err, "summing payments")
	}

	ldg.Due = Due(ldg.Fees)
	ldg.Paid = paid[studentID]
	ldg.Balance = ldg.Due - ldg.Paid
	return ldg, nil
}

// ClassSummary returns the fee lines of a class and the balance of each of its students.
func (svc *Service) ClassSummary(ctx context.Context, actor access.Identity, classID int) (ClassSummary, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return ClassSummary{}, err
	}

	var (
		sum ClassSummary
		err error
	)
	if sum.Class, err = svc.repo.GetClass(ctx, classID); err != nil {
		return ClassSummary{}, err
	}
	if sum.Structures, err = svc.repo.QueryStructures(ctx, classID); err != nil {
		return ClassSummary{}, errors.Wrap(err, "querying fee structures")
	}
	students, err := svc.repo.QueryStudents(ctx, classID)
	if err != nil {
		return ClassSummary{}, errors.Wrap(err, "querying students")
	}
	paid, err := svc.repo.SumPaid(ctx, classID)
	if err != nil {
		return ClassSummary{}, errors.Wrap(err, "summing payments")
	}

	sum.Due = Due(sum.Structures)
	sum.Students = make([]StudentBalance, 0, len(students))
	for _, std := range students {
		sum.Students = append(sum.Students, StudentBalance{
			Student: std,
			Due:     sum.Due,
			Paid:    paid[std.ID],
			Balance: sum.Due - paid[std.ID],
		})
	}
	return sum, nil
}

// Dashboard lists every class with its number of fee lines and students.
func (svc *Service) Dashboard(ctx context.Context, actor access.Identity) ([]ClassFees, error) {
	if err := access.Authorize(actor, access.View); err != nil {
		return nil, err
	}
	counts, err := svc.repo.CountClassFees(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting class fees")
	}
	rows := make([]ClassFees, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, ClassFees{
			Class:    school.Class{ID: c.ClassID, Name: c.Name, Section: c.Section},
			FeeItems: c.FeeItems,
			Students: c.Students,
		})
	}
	return rows, nil
}
