package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/daftari/core/fee"
	"github.com/trezcool/daftari/core/school"
)

type feeRepository struct {
	reader
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{reader{db: db}}
}

func (repo *feeRepository) classFees(classID int) []school.FeeStructure {
	fees := make([]school.FeeStructure, 0)
	for _, fs := range repo.db.fees {
		if fs.ClassID == classID {
			fees = append(fees, fs)
		}
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].ID < fees[j].ID })
	return fees
}

func (repo *feeRepository) CreateStructure(_ context.Context, fs school.FeeStructure) (school.FeeStructure, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.db.getClass(fs.ClassID); err != nil {
		return school.FeeStructure{}, err
	}
	fs.ID = repo.db.nextID()
	repo.db.fees[fs.ID] = fs
	return fs, nil
}

func (repo *feeRepository) GetStructure(_ context.Context, id int) (school.FeeStructure, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if fs, ok := repo.db.fees[id]; ok {
		return fs, nil
	}
	return school.FeeStructure{}, school.ErrFeeNotFound
}

func (repo *feeRepository) QueryStructures(_ context.Context, classID int) ([]school.FeeStructure, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.classFees(classID), nil
}

func (repo *feeRepository) CreatePayment(_ context.Context, p school.FeePayment) (school.FeePayment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.db.getStudent(p.StudentID); err != nil {
		return school.FeePayment{}, err
	}
	if _, ok := repo.db.fees[p.FeeID]; !ok {
		return school.FeePayment{}, school.ErrFeeNotFound
	}
	p.ID = repo.db.nextID()
	repo.db.payments[p.ID] = p
	return p, nil
}

func (repo *feeRepository) QueryPayments(_ context.Context, studentID int) ([]fee.PaymentLine, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lines := make([]fee.PaymentLine, 0)
	for _, p := range repo.db.payments {
		if p.StudentID == studentID {
			lines = append(lines, fee.PaymentLine{FeePayment: p, FeeName: repo.db.fees[p.FeeID].Name})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].PaidOn.Equal(lines[j].PaidOn) {
			return lines[i].PaidOn.After(lines[j].PaidOn)
		}
		return lines[i].ID > lines[j].ID
	})
	return lines, nil
}

func (repo *feeRepository) SumPaid(_ context.Context, classID int) (map[int]float64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	payments := make([]school.FeePayment, 0)
	for _, p := range repo.db.payments {
		fs, ok := repo.db.fees[p.FeeID]
		if !ok || fs.ClassID != classID {
			continue
		}
		if std, ok := repo.db.students[p.StudentID]; ok && std.ClassID == classID {
			payments = append(payments, p)
		}
	}
	// float sums depend on order: add payments by id
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })

	paid := make(map[int]float64)
	for _, p := range payments {
		paid[p.StudentID] += p.Amount
	}
	return paid, nil
}

func (repo *feeRepository) CountClassFees(_ context.Context) ([]fee.ClassFeeCount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		classes = append(classes, cls)
	}
	sortClasses(classes)

	counts := make([]fee.ClassFeeCount, 0, len(classes))
	for _, cls := range classes {
		counts = append(counts, fee.ClassFeeCount{
			ClassID:  cls.ID,
			Name:     cls.Name,
			Section:  cls.Section,
			FeeItems: len(repo.classFees(cls.ID)),
			Students: len(repo.db.classStudents(cls.ID)),
		})
	}
	return counts, nil
}
