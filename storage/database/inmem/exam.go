package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/daftari/core/exam"
	"github.com/trezcool/daftari/core/school"
)

type examRepository struct {
	reader
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{reader{db: db}}
}

func (repo *examRepository) CreateExam(_ context.Context, ex school.Exam) (school.Exam, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.db.getClass(ex.ClassID); err != nil {
		return school.Exam{}, err
	}
	ex.ID = repo.db.nextID()
	repo.db.exams[ex.ID] = ex
	return ex, nil
}

func (repo *examRepository) GetExam(_ context.Context, id int) (school.Exam, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ex, ok := repo.db.exams[id]; ok {
		return ex, nil
	}
	return school.Exam{}, school.ErrExamNotFound
}

func (repo *examRepository) QueryExams(_ context.Context, classID int) ([]school.Exam, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.classExams(classID), nil
}

func (repo *examRepository) DeleteExam(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.exams[id]; !ok {
		return school.ErrExamNotFound
	}
	repo.db.deleteExam(id)
	return nil
}

func (repo *examRepository) UpsertMarks(_ context.Context, marks []school.Mark) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// check every reference first so the batch is all or nothing
	for _, m := range marks {
		if _, ok := repo.db.students[m.StudentID]; !ok {
			return school.ErrStudentNotFound
		}
		if _, ok := repo.db.subjects[m.SubjectID]; !ok {
			return school.ErrSubjectNotFound
		}
		if _, ok := repo.db.exams[m.ExamID]; !ok {
			return school.ErrExamNotFound
		}
	}
	for _, m := range marks {
		repo.db.marks[markKey{m.StudentID, m.SubjectID, m.ExamID}] = m
	}
	return nil
}

func (repo *examRepository) QueryMarks(_ context.Context, examID int, studentIDs ...int) ([]school.Mark, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var only map[int]bool
	if len(studentIDs) > 0 {
		only = make(map[int]bool, len(studentIDs))
		for _, id := range studentIDs {
			only[id] = true
		}
	}

	marks := make([]school.Mark, 0)
	for key, m := range repo.db.marks {
		if key.examID != examID || (only != nil && !only[key.studentID]) {
			continue
		}
		marks = append(marks, m)
	}
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].StudentID != marks[j].StudentID {
			return marks[i].StudentID < marks[j].StudentID
		}
		return marks[i].SubjectID < marks[j].SubjectID
	})
	return marks, nil
}
