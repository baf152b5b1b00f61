package dataset

// Student grading table columns, spelled as in the source file.
const (
	ColDepartment      = "Department"
	ColGender          = "Gender"
	ColAge             = "Age"
	ColGrade           = "Grade"
	ColMidterm         = "Midterm_Score"
	ColFinal           = "Final_Score"
	ColAssignments     = "Assignments_Avg"
	ColQuizzes         = "Quizzes_Avg"
	ColParticipation   = "Participation_Score"
	ColProjects        = "Projects_Score"
	ColTotal           = "Total_Score"
	ColAttendance      = "Attendance (%)"
	ColStudyHours      = "Study_Hours_per_Week"
	ColSleepHours      = "Sleep_Hours_per_Night"
	ColStress          = "Stress_Level (1-10)"
	ColExtracurricular = "Extracurricular_Activities"
	ColInternet        = "Internet_Access_at_Home"
	ColIncome          = "Family_Income_Level"
	ColParentEducation = "Parent_Education_Level"

	// Derived at load time
	ColSleepCategory  = "Sleep_Category"
	ColStudyCategory  = "Study_Hours_Category"
	ColStressCategory = "Stress_Category"
	ColPassStatus     = "Pass_Status"
)

// Ordinal levels, best-to-worst for grades and low-to-high elsewhere.
var (
	GradeLevels           = []string{"A", "B", "C", "D", "F"}
	IncomeLevels          = []string{"Low", "Medium", "High"}
	ParentEducationLevels = []string{"None", "High School", "Bachelor's", "Master's", "PhD"}
	FlagLevels            = []string{"No", "Yes"}
	PassStatusLevels      = []string{"Passed", "Failed"}
)

// ScoreColumns are the academic metrics offered for comparison by grade.
var ScoreColumns = []string{
	ColAttendance, ColMidterm, ColFinal, ColAssignments,
	ColQuizzes, ColParticipation, ColProjects, ColTotal,
}

// CorrelationColumns are the academic and lifestyle metrics of the heatmap.
var CorrelationColumns = []string{
	ColAttendance, ColMidterm, ColFinal, ColAssignments,
	ColQuizzes, ColParticipation, ColProjects, ColTotal,
	ColStudyHours, ColStress, ColSleepHours,
}

// ProfileColumns are the lifestyle metrics summarized for cohorts.
var ProfileColumns = []string{ColStudyHours, ColStress, ColSleepHours, ColAttendance}

// StudentColumns returns the declared schema of the student grading table.
// Parent education is optional: files without it load with the feature off.
func StudentColumns() []Column {
	score := &Interval{Min: 0, Max: 100}
	return []Column{
		{Name: ColDepartment, Type: TypeString, Required: true},
		{Name: ColGender, Type: TypeString, Required: true},
		{Name: ColAge, Type: TypeInt, Required: true},
		{Name: ColGrade, Type: TypeCategory, Required: true, Levels: GradeLevels},
		{Name: ColMidterm, Type: TypeFloat, Required: true, Domain: score},
		{Name: ColFinal, Type: TypeFloat, Required: true, Domain: score},
		{Name: ColAssignments, Type: TypeFloat, Required: true, Domain: score},
		{Name: ColQuizzes, Type: TypeFloat, Required: true, Domain: score},
		{Name: ColParticipation, Type: TypeFloat, Required: true, Domain: score},
		{Name: ColProjects, Type: TypeFloat, Required: true, Domain: score},
		{Name: ColTotal, Type: TypeFloat, Required: true, Domain: score},
		{Name: ColAttendance, Type: TypeFloat, Required: true, Domain: score},
		{Name: ColStudyHours, Type: TypeFloat, Required: true, Domain: &Interval{Min: 0, Max: 168}},
		{Name: ColSleepHours, Type: TypeFloat, Required: true, Domain: &Interval{Min: 0, Max: 24}},
		{Name: ColStress, Type: TypeInt, Required: true, Domain: &Interval{Min: 1, Max: 10}},
		{Name: ColExtracurricular, Type: TypeCategory, Required: true, Levels: FlagLevels},
		{Name: ColInternet, Type: TypeCategory, Required: true, Levels: FlagLevels},
		{Name: ColIncome, Type: TypeCategory, Required: true, Levels: IncomeLevels},
		{Name: ColParentEducation, Type: TypeCategory, Levels: ParentEducationLevels},
	}
}

// PassStatusColumn is the derived pass/fail column.
func PassStatusColumn() Column {
	return Column{Name: ColPassStatus, Type: TypeCategory, Levels: PassStatusLevels}
}

// PassStatus derives pass/fail from the grade: F fails, anything else passes.
func PassStatus(r Row) Value {
	grade := r.Get(ColGrade)
	if grade.Null {
		return NullOf(TypeCategory)
	}
	if grade.Str == "F" {
		return Category("Failed")
	}
	return Category("Passed")
}
