package fee

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/school"
)

// NewFeeStructure contains information needed to add a fee line to a class.
type NewFeeStructure struct {
	Name    string    `json:"name" validate:"required"`
	Amount  float64   `json:"amount" validate:"gt=0,finite"`
	DueDate time.Time `json:"due_date"` // optional
}

func (nf *NewFeeStructure) Validate() error {
	nf.Name = core.CleanString(nf.Name)
	return core.ValidateStruct(nf, "amount")
}

func (nf NewFeeStructure) structure(classID int) school.FeeStructure {
	fs := school.FeeStructure{ClassID: classID, Name: nf.Name, Amount: nf.Amount}
	if !nf.DueDate.IsZero() {
		fs.DueDate = null.TimeFrom(core.Day(nf.DueDate))
	}
	return fs
}

// NewPayment records money paid by a student against one fee line of their class.
type NewPayment struct {
	StudentID int       `json:"student_id" validate:"required"`
	FeeID     int       `json:"fee_id" validate:"required"`
	Amount    float64   `json:"amount" validate:"gt=0,finite"`
	PaidOn    time.Time `json:"paid_on"` // today when zero
	Mode      string    `json:"mode"`    // optional, e.g. cash
}

func (np *NewPayment) Validate() error {
	np.Mode = core.CleanString(np.Mode)
	if err := core.ValidateStruct(np, "amount"); err != nil {
		return err
	}
	np.PaidOn = core.Day(np.PaidOn)
	return nil
}

func (np NewPayment) payment() school.FeePayment {
	return school.FeePayment{
		StudentID: np.StudentID,
		FeeID:     np.FeeID,
		Amount:    np.Amount,
		PaidOn:    np.PaidOn,
		Mode:      null.NewString(np.Mode, np.Mode != ""),
	}
}

// PaymentLine is a payment with the name of the fee line it pays.
type PaymentLine struct {
	school.FeePayment
	FeeName string `json:"fee_name" db:"fee_name"`
}

// Ledger is the fee account of a student. Balance is negative on overpayment.
type Ledger struct {
	Student  school.Student        `json:"student"`
	Class    school.Class          `json:"class"`
	Fees     []school.FeeStructure `json:"fees"`
	Due      float64               `json:"due"`
	Paid     float64               `json:"paid"`
	Balance  float64               `json:"balance"`
	Payments []PaymentLine         `json:"payments"` // latest first
}

// StudentBalance is one row of a ClassSummary.
type StudentBalance struct {
	Student school.Student `json:"student"`
	Due     float64        `json:"due"`
	Paid    float64        `json:"paid"`
	Balance float64        `json:"balance"`
}

// ClassSummary lists the fee lines of a class and the balance of each student.
type ClassSummary struct {
	Class      school.Class          `json:"class"`
	Structures []school.FeeStructure `json:"structures"`
	Due        float64               `json:"due"`
	Students   []StudentBalance      `json:"students"` // by roll number
}

// ClassFees is one row of the fee dashboard.
type ClassFees struct {
	Class    school.Class `json:"class"`
	FeeItems int          `json:"fee_items"`
	Students int          `json:"students"`
}

// ClassFeeCount is the raw dashboard row read from storage.
type ClassFeeCount struct {
	ClassID  int    `db:"class_id" boil:"class_id"`
	Name     string `db:"name" boil:"name"`
	Section  string `db:"section" boil:"section"`
	FeeItems int    `db:"fee_items" boil:"fee_items"`
	Students int    `db:"students" boil:"students"`
}
