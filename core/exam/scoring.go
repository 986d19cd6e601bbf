package exam

import (
	"math"
	"strconv"
	"strings"

	"github.com/trezcool/daftari/core/school"
)

// Grade is the letter grade of a percentage.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeF     Grade = "F"
)

// Status tells whether a percentage passes.
type Status string

const (
	Pass Status = "PASS"
	Fail Status = "FAIL"
)

// PassPercentage is the lowest passing percentage.
const PassPercentage = 33

// gradeBands are evaluated top-down, first match wins.
var gradeBands = []struct {
	min   float64
	grade Grade
}{
	{90, GradeAPlus},
	{80, GradeA},
	{60, GradeB},
	{PassPercentage, GradeC},
}

// Classify returns the grade and pass/fail status of a percentage.
func Classify(pct float64) (Grade, Status) {
	grade := GradeF
	for _, band := range gradeBands {
		if pct >= band.min {
			grade = band.grade
			break
		}
	}
	if pct >= PassPercentage {
		return grade, Pass
	}
	return grade, Fail
}

// Percentage returns total/max as a percentage, or 0 when max is 0.
func Percentage(total, max float64) float64 {
	if max == 0 {
		return 0
	}
	return total * 100 / max
}

// ParseScore reads a submitted score. Blank or unparseable text yields 0 and ok=false.
func ParseScore(s string) (score float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	score, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, false
	}
	return score, true
}

// SubjectScore is the score of one subject in a Result; missing marks score 0.
type SubjectScore struct {
	Subject school.Subject `json:"subject"`
	Score   float64        `json:"score"`
	Entered bool           `json:"entered"`
}

// Result is the outcome of one student in one exam.
// Exam weight is not applied to Total or Percentage.
type Result struct {
	Student    school.Student `json:"student"`
	Exam       school.Exam    `json:"exam"`
	Subjects   []SubjectScore `json:"subjects"`
	Total      float64        `json:"total"`
	Max        float64        `json:"max"`
	Percentage float64        `json:"percentage"`
	Grade      Grade          `json:"grade"`
	Status     Status         `json:"status"`
}

// computeResult scores `std` over every subject of its class; `scores` maps subject IDs to marks.
func computeResult(std school.Student, ex school.Exam, subjects []school.Subject, scores map[int]float64) Result {
	res := Result{
		Student:  std,
		Exam:     ex,
		Subjects: make([]SubjectScore, 0, len(subjects)),
		Max:      float64(len(subjects) * school.MaxSubjectScore),
	}
	for _, subj := range subjects {
		score, ok := scores[subj.ID]
		res.Subjects = append(res.Subjects, SubjectScore{Subject: subj, Score: score, Entered: ok})
		res.Total += score
	}
	res.Percentage = Percentage(res.Total, res.Max)
	res.Grade, res.Status = Classify(res.Percentage)
	return res
}
