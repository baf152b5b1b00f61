package testkit

import (
	"bytes"
	"encoding/csv"
	"math"
	"math/rand"
	"strconv"

	"gradelens/domain/dataset"
)

// StudentGeneratorConfig configures the synthetic student table
type StudentGeneratorConfig struct {
	StudentCount int   `json:"student_count"`
	Seed         int64 `json:"seed"`
	// ParentEducation adds the optional Parent_Education_Level column
	ParentEducation bool `json:"parent_education"`
	// MissingParentRate is the share of blank parent education cells
	MissingParentRate float64 `json:"missing_parent_rate"`
	// ExtraColumns are appended as passthrough text columns
	ExtraColumns []string `json:"extra_columns"`
}

// DefaultStudentConfig returns sensible defaults for student data generation
func DefaultStudentConfig() StudentGeneratorConfig {
	return StudentGeneratorConfig{
		StudentCount:      500,
		Seed:              42,
		ParentEducation:   true,
		MissingParentRate: 0.1,
	}
}

var (
	departments = []string{"Engineering", "Business", "Mathematics", "CS"}
	genders     = []string{"Male", "Female"}
)

// StudentDataGenerator generates a student grading table. Total score is
// driven by study hours, attendance and stress, and the letter grade follows
// from the total, so the usual relationships show up in the analytics.
type StudentDataGenerator struct {
	config StudentGeneratorConfig
	rng    *rand.Rand
}

// NewStudentDataGenerator creates a new student data generator
func NewStudentDataGenerator(config StudentGeneratorConfig) *StudentDataGenerator {
	return &StudentDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Header returns the column names in output order
func (g *StudentDataGenerator) Header() []string {
	var header []string
	for _, c := range dataset.StudentColumns() {
		if c.Required || (c.Name == dataset.ColParentEducation && g.config.ParentEducation) {
			header = append(header, c.Name)
		}
	}
	return append(header, g.config.ExtraColumns...)
}

// Generate returns the header and StudentCount rows
func (g *StudentDataGenerator) Generate() ([]string, [][]string) {
	rows := make([][]string, g.config.StudentCount)
	for i := range rows {
		rows[i] = g.student(i)
	}
	return g.Header(), rows
}

// CSV renders the generated table as CSV
func (g *StudentDataGenerator) CSV() []byte {
	header, rows := g.Generate()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(header)
	w.WriteAll(rows)
	return buf.Bytes()
}

func (g *StudentDataGenerator) student(i int) []string {
	study := g.between(5, 30)
	sleep := g.between(4, 9)
	stress := 1 + g.rng.Intn(10)
	attendance := g.between(50, 100)

	// Study and attendance help, stress hurts
	base := 35 + study*1.1 + (attendance-50)*0.4 - float64(stress)*1.2 + g.rng.NormFloat64()*6
	total := math.Round(clamp(base, 0, 100)*100) / 100

	score := func(spread float64) string { return fmtScore(clamp(total+g.rng.NormFloat64()*spread, 0, 100)) }

	row := []string{
		departments[g.rng.Intn(len(departments))],
		genders[g.rng.Intn(len(genders))],
		strconv.Itoa(18 + g.rng.Intn(7)),
		letterGrade(total),
		score(8),
		score(8),
		score(10),
		score(10),
		fmtScore(g.between(0, 100)),
		score(10),
		fmtScore(total),
		fmtScore(attendance),
		fmtScore(study),
		fmtScore(sleep),
		strconv.Itoa(stress),
		dataset.FlagLevels[g.rng.Intn(2)],
		dataset.FlagLevels[boolIndex(g.rng.Float64() < 0.9)],
		dataset.IncomeLevels[g.rng.Intn(len(dataset.IncomeLevels))],
	}
	if g.config.ParentEducation {
		parent := ""
		if g.rng.Float64() >= g.config.MissingParentRate {
			parent = dataset.ParentEducationLevels[g.rng.Intn(len(dataset.ParentEducationLevels))]
		}
		row = append(row, parent)
	}
	for range g.config.ExtraColumns {
		row = append(row, "s"+strconv.Itoa(i+1))
	}
	return row
}

func (g *StudentDataGenerator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func letterGrade(total float64) string {
	switch {
	case total >= 90:
		return "A"
	case total >= 80:
		return "B"
	case total >= 70:
		return "C"
	case total >= 60:
		return "D"
	default:
		return "F"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func fmtScore(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}
