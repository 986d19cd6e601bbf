package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/daftari/core/roster"
	"github.com/trezcool/daftari/core/school"
)

type rosterRepository struct {
	reader
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{reader{db: db}}
}

func (repo *rosterRepository) classExists(cls school.Class) bool {
	for _, c := range repo.db.classes {
		if c.Name == cls.Name && c.Section == cls.Section && c.ID != cls.ID {
			return true
		}
	}
	return false
}

func (repo *rosterRepository) CreateClass(_ context.Context, cls school.Class) (school.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.classExists(cls) {
		return school.Class{}, school.ErrClassExists
	}
	cls.ID = repo.db.nextID()
	repo.db.classes[cls.ID] = cls
	return cls, nil
}

func (repo *rosterRepository) QueryClasses(_ context.Context) ([]school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		classes = append(classes, cls)
	}
	sortClasses(classes)
	return classes, nil
}

func (repo *rosterRepository) UpdateClass(_ context.Context, cls school.Class) (school.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.db.getClass(cls.ID); err != nil {
		return school.Class{}, err
	}
	if repo.classExists(cls) {
		return school.Class{}, school.ErrClassExists
	}
	repo.db.classes[cls.ID] = cls
	return cls, nil
}

func (repo *rosterRepository) DeleteClass(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.db.getClass(id); err != nil {
		return err
	}
	repo.db.deleteClass(id)
	return nil
}

func (repo *rosterRepository) CreateSubject(_ context.Context, subj school.Subject) (school.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.db.getClass(subj.ClassID); err != nil {
		return school.Subject{}, err
	}
	if repo.db.subjectNameTaken(subj.ClassID, subj.Name, 0) {
		return school.Subject{}, school.ErrSubjectExists
	}
	subj.ID = repo.db.nextID()
	repo.db.subjects[subj.ID] = subj
	return subj, nil
}

func (repo *rosterRepository) GetSubject(_ context.Context, id int) (school.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if subj, ok := repo.db.subjects[id]; ok {
		return subj, nil
	}
	return school.Subject{}, school.ErrSubjectNotFound
}

func (repo *rosterRepository) UpdateSubject(_ context.Context, subj school.Subject) (school.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.subjects[subj.ID]
	if !ok {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	if repo.db.subjectNameTaken(orig.ClassID, subj.Name, subj.ID) {
		return school.Subject{}, school.ErrSubjectExists
	}
	orig.Name = subj.Name
	repo.db.subjects[subj.ID] = orig
	return orig, nil
}

func (repo *rosterRepository) DeleteSubject(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return school.ErrSubjectNotFound
	}
	repo.db.deleteSubject(id)
	return nil
}

func (repo *rosterRepository) CreateStudent(_ context.Context, std school.Student) (school.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.db.getClass(std.ClassID); err != nil {
		return school.Student{}, err
	}
	if repo.db.rollTaken(std.ClassID, std.RollNo, 0) {
		return school.Student{}, school.ErrRollNoExists
	}
	std.ID = repo.db.nextID()
	repo.db.students[std.ID] = std
	return std, nil
}

func (repo *rosterRepository) UpdateStudent(_ context.Context, std school.Student) (school.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, err := repo.db.getStudent(std.ID)
	if err != nil {
		return school.Student{}, err
	}
	if repo.db.rollTaken(orig.ClassID, std.RollNo, std.ID) {
		return school.Student{}, school.ErrRollNoExists
	}
	orig.Name = std.Name
	orig.RollNo = std.RollNo
	repo.db.students[std.ID] = orig
	return orig, nil
}

func (repo *rosterRepository) DeleteStudent(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.db.getStudent(id); err != nil {
		return err
	}
	repo.db.deleteStudent(id)
	return nil
}

func (repo *rosterRepository) SearchStudents(_ context.Context, q string) ([]roster.StudentMatch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	q = strings.ToLower(q)
	matches := make([]roster.StudentMatch, 0)
	for _, std := range repo.db.students {
		if strings.Contains(strings.ToLower(std.Name), q) || strings.Contains(strings.ToLower(std.RollNo), q) {
			matches = append(matches, roster.StudentMatch{Student: std, Class: repo.db.classes[std.ClassID]})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		ci, cj := matches[i].Class, matches[j].Class
		if ci.Name != cj.Name {
			return ci.Name < cj.Name
		}
		if ci.Section != cj.Section {
			return ci.Section < cj.Section
		}
		if matches[i].Student.RollNo != matches[j].Student.RollNo {
			return matches[i].Student.RollNo < matches[j].Student.RollNo
		}
		return matches[i].Student.ID < matches[j].Student.ID
	})
	return matches, nil
}

func (repo *rosterRepository) PromoteStudents(_ context.Context, sourceID, targetID int, move bool) (roster.PromotionReport, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.db.getClass(sourceID); err != nil {
		return roster.PromotionReport{}, err
	}
	if _, err := repo.db.getClass(targetID); err != nil {
		return roster.PromotionReport{}, err
	}

	report := roster.PromotionReport{Moved: move}
	sources := repo.db.classStudents(sourceID)
	for _, std := range sources {
		if repo.db.rollTaken(targetID, std.RollNo, 0) {
			report.Skipped = append(report.Skipped, std)
			continue
		}
		promoted := school.Student{ID: repo.db.nextID(), ClassID: targetID, Name: std.Name, RollNo: std.RollNo}
		repo.db.students[promoted.ID] = promoted
		report.Promoted = append(report.Promoted, promoted)
	}
	if move {
		for _, std := range sources {
			repo.db.deleteStudent(std.ID)
		}
	}
	return report, nil
}

func (repo *rosterRepository) QueryClassExams(_ context.Context, classID int) ([]school.Exam, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.classExams(classID), nil
}

func (repo *rosterRepository) CountRecords(_ context.Context) (roster.Overview, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return roster.Overview{
		Classes:  len(repo.db.classes),
		Students: len(repo.db.students),
		Exams:    len(repo.db.exams),
	}, nil
}

func sortClasses(classes []school.Class) {
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].Section < classes[j].Section
	})
}
