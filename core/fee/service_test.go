package fee_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/fee"
	"github.com/trezcool/daftari/core/school"
	"github.com/trezcool/daftari/tests"
)

var ctx = context.Background()

func day(s string) time.Time {
	t, err := core.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDue(t *testing.T) {
	tests := []struct {
		name       string
		structures []school.FeeStructure
		want       float64
	}{
		{name: "none", want: 0},
		{name: "one", structures: []school.FeeStructure{{Amount: 500}}, want: 500},
		{name: "flat sum", structures: []school.FeeStructure{{Amount: 300}, {Amount: 150.5}, {Amount: 49.5}}, want: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fee.Due(tt.structures))
		})
	}
}

func TestService_AddStructure(t *testing.T) {
	svcs := testutil.NewServices(t)
	cls := svcs.CreateClass(t, "Grade 5", "A")

	tests := []struct {
		name        string
		nf          fee.NewFeeStructure
		classID     int
		wantDueDate bool
		wantErr     error
	}{
		{name: "valid", nf: fee.NewFeeStructure{Name: " Tuition ", Amount: 300}, classID: cls.ID},
		{name: "with due date", nf: fee.NewFeeStructure{Name: "Transport", Amount: 200, DueDate: day("2024-03-31")}, classID: cls.ID, wantDueDate: true},
		{name: "zero amount", nf: fee.NewFeeStructure{Name: "Lab", Amount: 0}, classID: cls.ID, wantErr: core.ErrInvalidAmount},
		{name: "negative amount", nf: fee.NewFeeStructure{Name: "Lab", Amount: -10}, classID: cls.ID, wantErr: core.ErrInvalidAmount},
		{name: "infinite amount", nf: fee.NewFeeStructure{Name: "Lab", Amount: math.Inf(1)}, classID: cls.ID, wantErr: core.ErrInvalidAmount},
		{name: "NaN amount", nf: fee.NewFeeStructure{Name: "Lab", Amount: math.NaN()}, classID: cls.ID, wantErr: core.ErrInvalidAmount},
		{name: "blank name", nf: fee.NewFeeStructure{Amount: 10}, classID: cls.ID, wantErr: core.ErrInvalidInput},
		{name: "unknown class", nf: fee.NewFeeStructure{Name: "Lab", Amount: 10}, classID: 999, wantErr: school.ErrClassNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := svcs.Fee.AddStructure(ctx, testutil.Admin, tt.classID, tt.nf)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "AddStructure() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, fs.ID)
			assert.Equal(t, tt.nf.Amount, fs.Amount)
			assert.Equal(t, tt.wantDueDate, fs.DueDate.Valid)
		})
	}

	_, err := svcs.Fee.AddStructure(ctx, testutil.Teacher, cls.ID, fee.NewFeeStructure{Name: "Lab", Amount: 10})
	assert.True(t, errors.Is(err, core.ErrForbidden))

	structures, err := svcs.Fee.Structures(ctx, testutil.Teacher, cls.ID)
	require.NoError(t, err)
	require.Len(t, structures, 2)
	assert.Equal(t, "Tuition", structures[0].Name)
	assert.Equal(t, "Transport", structures[1].Name)
}

func TestService_RecordPayment(t *testing.T) {
	svcs := testutil.NewServices(t)
	cls := svcs.CreateClass(t, "Grade 5", "A")
	other := svcs.CreateClass(t, "Grade 6", "A")
	std := svcs.AddStudent(t, cls.ID, "Amani", "1")
	tuition := svcs.AddFee(t, cls.ID, "Tuition", 500)
	otherFee := svcs.AddFee(t, other.ID, "Tuition", 800)

	tests := []struct {
		name    string
		np      fee.NewPayment
		wantErr error
	}{
		{name: "valid", np: fee.NewPayment{StudentID: std.ID, FeeID: tuition.ID, Amount: 200, PaidOn: day("2024-01-10"), Mode: " cash "}},
		{name: "zero", np: fee.NewPayment{StudentID: std.ID, FeeID: tuition.ID, Amount: 0}, wantErr: core.ErrInvalidAmount},
		{name: "negative", np: fee.NewPayment{StudentID: std.ID, FeeID: tuition.ID, Amount: -5}, wantErr: core.ErrInvalidAmount},
		{name: "infinite", np: fee.NewPayment{StudentID: std.ID, FeeID: tuition.ID, Amount: math.Inf(1)}, wantErr: core.ErrInvalidAmount},
		{name: "fee of another class", np: fee.NewPayment{StudentID: std.ID, FeeID: otherFee.ID, Amount: 100}, wantErr: core.ErrInvalidInput},
		{name: "unknown fee", np: fee.NewPayment{StudentID: std.ID, FeeID: 999, Amount: 100}, wantErr: school.ErrFeeNotFound},
		{name: "unknown student", np: fee.NewPayment{StudentID: 999, FeeID: tuition.ID, Amount: 100}, wantErr: school.ErrStudentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svcs.Fee.RecordPayment(ctx, testutil.Teacher, tt.np)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "RecordPayment() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, p.ID)
			assert.Equal(t, day("2024-01-10"), p.PaidOn)
			assert.Equal(t, "cash", p.Mode.String)
		})
	}

	ldg, err := svcs.Fee.StudentLedger(ctx, testutil.Teacher, std.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, ldg.Paid)
	assert.Len(t, ldg.Payments, 1)
}

func TestService_StudentLedger(t *testing.T) {
	svcs := testutil.NewServices(t)
	cls := svcs.CreateClass(t, "Grade 5", "A")
	tuition := svcs.AddFee(t, cls.ID, "Tuition", 300)
	transport := svcs.AddFee(t, cls.ID, "Transport", 200)
	std := svcs.AddStudent(t, cls.ID, "Amani", "1")
	peer := svcs.AddStudent(t, cls.ID, "Baraka", "2")

	pay := func(studentID, feeID int, amount float64, paidOn string) {
		_, err := svcs.Fee.RecordPayment(ctx, testutil.Teacher, fee.NewPayment{
			StudentID: studentID, FeeID: feeID, Amount: amount, PaidOn: day(paidOn),
		})
		require.NoError(t, err)
	}

	t.Run("nothing paid", func(t *testing.T) {
		ldg, err := svcs.Fee.StudentLedger(ctx, testutil.Teacher, std.ID)
		require.NoError(t, err)
		assert.Equal(t, 500.0, ldg.Due)
		assert.Equal(t, 0.0, ldg.Paid)
		assert.Equal(t, 500.0, ldg.Balance)
		assert.Empty(t, ldg.Payments)
		assert.Equal(t, cls, ldg.Class)
		assert.Len(t, ldg.Fees, 2)
	})

	pay(std.ID, tuition.ID, 200, "2024-01-10")
	pay(std.ID, transport.ID, 250, "2024-02-01")
	pay(peer.ID, tuition.ID, 999, "2024-02-02")

	t.Run("partly paid", func(t *testing.T) {
		ldg, err := svcs.Fee.StudentLedger(ctx, testutil.Teacher, std.ID)
		require.NoError(t, err)
		assert.Equal(t, 450.0, ldg.Paid)
		assert.Equal(t, 50.0, ldg.Balance)
		require.Len(t, ldg.Payments, 2)
		assert.Equal(t, "Transport", ldg.Payments[0].FeeName)
		assert.Equal(t, 250.0, ldg.Payments[0].Amount)
		assert.Equal(t, "Tuition", ldg.Payments[1].FeeName)
	})

	t.Run("overpaid", func(t *testing.T) {
		pay(std.ID, tuition.ID, 150, "2024-01-05")
		ldg, err := svcs.Fee.StudentLedger(ctx, testutil.Teacher, std.ID)
		require.NoError(t, err)
		assert.Equal(t, -100.0, ldg.Balance)
		assert.Equal(t, "2024-01-05", ldg.Payments[2].PaidOn.Format(core.DateLayout))
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := svcs.Fee.StudentLedger(ctx, testutil.Teacher, 999)
		assert.True(t, errors.Is(err, school.ErrStudentNotFound))
	})
}

func TestService_ClassSummary(t *testing.T) {
	svcs := testutil.NewServices(t)
	cls := svcs.CreateClass(t, "Grade 5", "A")
	tuition := svcs.AddFee(t, cls.ID, "Tuition", 500)
	std2 := svcs.AddStudent(t, cls.ID, "Baraka", "2")
	std1 := svcs.AddStudent(t, cls.ID, "Amani", "1")
	_, err := svcs.Fee.RecordPayment(ctx, testutil.Teacher, fee.NewPayment{StudentID: std2.ID, FeeID: tuition.ID, Amount: 600})
	require.NoError(t, err)

	sum, err := svcs.Fee.ClassSummary(ctx, testutil.Teacher, cls.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, sum.Due)
	assert.Equal(t, []fee.StudentBalance{
		{Student: std1, Due: 500, Paid: 0, Balance: 500},
		{Student: std2, Due: 500, Paid: 600, Balance: -100},
	}, sum.Students)

	_, err = svcs.Fee.ClassSummary(ctx, testutil.Anonymous, cls.ID)
	assert.True(t, errors.Is(err, core.ErrUnauthenticated))
}

func TestService_Dashboard(t *testing.T) {
	svcs := testutil.NewServices(t)
	g6 := svcs.CreateClass(t, "Grade 6", "A")
	g5 := svcs.CreateClass(t, "Grade 5", "A")
	svcs.AddFee(t, g5.ID, "Tuition", 500)
	svcs.AddFee(t, g5.ID, "Transport", 200)
	svcs.AddStudent(t, g5.ID, "Amani", "1")
	svcs.AddStudent(t, g6.ID, "Baraka", "1")
	svcs.AddStudent(t, g6.ID, "Chausiku", "2")

	rows, err := svcs.Fee.Dashboard(ctx, testutil.Teacher)
	require.NoError(t, err)
	assert.Equal(t, []fee.ClassFees{
		{Class: g5, FeeItems: 2, Students: 1},
		{Class: g6, FeeItems: 0, Students: 2},
	}, rows)
}

func TestService_PaidIsStable(t *testing.T) {
	svcs := testutil.NewServices(t)
	cls := svcs.CreateClass(t, "Grade 5", "A")
	tuition := svcs.AddFee(t, cls.ID, "Tuition", 0.6)
	std := svcs.AddStudent(t, cls.ID, "Amani", "1")

	amounts := []float64{0.1, 0.2, 0.3}
	var want float64
	for _, amt := range amounts {
		_, err := svcs.Fee.RecordPayment(ctx, testutil.Teacher, fee.NewPayment{StudentID: std.ID, FeeID: tuition.ID, Amount: amt})
		require.NoError(t, err)
		want += amt // payment order
	}

	for i := 0; i < 50; i++ {
		ldg, err := svcs.Fee.StudentLedger(ctx, testutil.Teacher, std.ID)
		require.NoError(t, err)
		require.Equal(t, want, ldg.Paid, "call %d", i)
		require.Equal(t, ldg.Due-want, ldg.Balance, "call %d", i)

		sum, err := svcs.Fee.ClassSummary(ctx, testutil.Teacher, cls.ID)
		require.NoError(t, err)
		require.Len(t, sum.Students, 1)
		require.Equal(t, want, sum.Students[0].Paid, "call %d", i)
	}
}
