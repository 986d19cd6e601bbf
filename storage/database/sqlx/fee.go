package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/fee"
	"github.com/trezcool/daftari/core/school"
)

const (
	feeColumns     = `id, class_id, name, amount, due_date`
	paymentColumns = `fp.id, fp.student_id, fp.fee_id, fp.paid_amount, fp.paid_on, fp.mode`
)

type feeRepository struct {
	reader
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{reader{db: db}}
}

func (repo *feeRepository) CreateStructure(ctx context.Context, fs school.FeeStructure) (school.FeeStructure, error) {
	err := repo.db.GetContext(ctx, &fs.ID,
		`INSERT INTO fee_structure (class_id, name, amount, due_date) VALUES ($1, $2, $3, $4) RETURNING id`,
		fs.ClassID, fs.Name, fs.Amount, fs.DueDate)
	if err != nil {
		return school.FeeStructure{}, trapErr(err, nil, "inserting fee structure")
	}
	return fs, nil
}

func (repo *feeRepository) GetStructure(ctx context.Context, id int) (school.FeeStructure, error) {
	var fs school.FeeStructure
	err := repo.db.GetContext(ctx, &fs, `SELECT `+feeColumns+` FROM fee_structure WHERE id = $1`, id)
	return fs, trapErr(err, school.ErrFeeNotFound, "getting fee structure")
}

func (repo *feeRepository) QueryStructures(ctx context.Context, classID int) ([]school.FeeStructure, error) {
	fees := make([]school.FeeStructure, 0)
	err := repo.db.SelectContext(ctx, &fees,
		`SELECT `+feeColumns+` FROM fee_structure WHERE class_id = $1 ORDER BY id`, classID)
	return fees, trapErr(err, nil, "querying fee structures")
}

func (repo *feeRepository) CreatePayment(ctx context.Context, p school.FeePayment) (school.FeePayment, error) {
	err := repo.db.GetContext(ctx, &p.ID, `
		INSERT INTO fee_payment (student_id, fee_id, paid_amount, paid_on, mode)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.StudentID, p.FeeID, p.Amount, p.PaidOn.Format(core.DateLayout), p.Mode)
	if err != nil {
		return school.FeePayment{}, trapErr(err, nil, "inserting fee payment")
	}
	return p, nil
}

func (repo *feeRepository) QueryPayments(ctx context.Context, studentID int) ([]fee.PaymentLine, error) {
	lines := make([]fee.PaymentLine, 0)
	err := repo.db.SelectContext(ctx, &lines, `
		SELECT `+paymentColumns+`, fs.name AS fee_name
		FROM fee_payment fp
		JOIN fee_structure fs ON fs.id = fp.fee_id
		WHERE fp.student_id = $1
		ORDER BY fp.paid_on DESC, fp.id DESC`, studentID)
	if err != nil {
		return nil, trapErr(err, nil, "querying fee payments")
	}
	for i := range lines {
		lines[i].PaidOn = core.Day(lines[i].PaidOn)
	}
	return lines, nil
}

type studentPaid struct {
	StudentID int     `boil:"student_id"`
	Paid      float64 `boil:"paid"`
}

func (repo *feeRepository) SumPaid(ctx context.Context, classID int) (map[int]float64, error) {
	var rows []studentPaid
	err := queries.Raw(`
		SELECT fp.student_id, SUM(fp.paid_amount ORDER BY fp.id) AS paid
		FROM fee_payment fp
		JOIN fee_structure fs ON fs.id = fp.fee_id
		JOIN student s ON s.id = fp.student_id
		WHERE fs.class_id = $1 AND s.class_id = $1
		GROUP BY fp.student_id`, classID,
	).Bind(ctx, repo.db, &rows)
	if err != nil {
		return nil, trapErr(err, nil, "summing fee payments")
	}

	paid := make(map[int]float64, len(rows))
	for _, r := range rows {
		paid[r.StudentID] = r.Paid
	}
	return paid, nil
}

func (repo *feeRepository) CountClassFees(ctx context.Context) ([]fee.ClassFeeCount, error) {
	var counts []fee.ClassFeeCount
	err := queries.Raw(`
		SELECT c.id AS class_id, c.name, c.section,
		       COUNT(DISTINCT fs.id) AS fee_items,
		       COUNT(DISTINCT s.id)  AS students
		FROM class c
		LEFT JOIN fee_structure fs ON fs.class_id = c.id
		LEFT JOIN student s ON s.class_id = c.id
		GROUP BY c.id, c.name, c.section
		ORDER BY c.name COLLATE "C", c.section COLLATE "C"`,
	).Bind(ctx, repo.db, &counts)
	if err != nil {
		return nil, trapErr(err, nil, "counting class fees")
	}
	if counts == nil {
		counts = make([]fee.ClassFeeCount, 0)
	}
	return counts, nil
}
