package review

import "math"

// Apply merges one partial update into the record and recomputes every
// derived field. Pure function: the input record is never mutated.
//
// Updates whose target cannot be resolved are dropped silently; tool-call
// arguments routinely reference items the resolver cannot pin down, and a
// partial batch applied beats a whole batch rejected.
func Apply(record Record, update Update, sources []SourceObjective, competencies []string) Record {
	out := record.Clone()

	if len(out.Goals) == 0 {
		out.Goals = BootstrapGoals(sources)
	}
	if len(out.Competencies) == 0 {
		out.Competencies = BootstrapCompetencies(competencies)
	}

	switch update.ItemType {
	case ItemObjective:
		applyObjective(&out, update)
	case ItemKeyResult:
		applyKeyResult(&out, update)
	case ItemCompetency:
		applyCompetency(&out, update)
	case ItemAccomplishments:
		if update.Value != "" {
			out.Accomplishments = update.Value
		}
	case ItemNextQuarterPlan:
		if update.Value != "" {
			out.NextQuarterPlan = update.Value
		}
	case ItemManagerComments:
		if update.Value != "" {
			out.ManagerComments = update.Value
		}
	}

	Recompute(&out)
	return out
}

// BootstrapGoals builds zero-rated goals from the read-only source
// objectives, preserving their order.
func BootstrapGoals(sources []SourceObjective) []Objective {
	goals := make([]Objective, 0, len(sources))
	for _, src := range sources {
		goal := Objective{
			ID:     src.ID,
			Title:  src.Title,
			Weight: src.Weight,
		}
		for _, kr := range src.KeyResults {
			goal.KeyResults = append(goal.KeyResults, KeyResult{
				ID:     kr.ID,
				Name:   kr.Name,
				Target: kr.Target,
				Actual: kr.Actual,
				Unit:   kr.Unit,
			})
		}
		goals = append(goals, goal)
	}
	return goals
}

// BootstrapCompetencies returns one employee and one manager entry per
// roster name, unrated.
func BootstrapCompetencies(names []string) []CompetencyEntry {
	entries := make([]CompetencyEntry, 0, len(names)*2)
	for _, name := range names {
		entries = append(entries,
			CompetencyEntry{Name: name, Role: RoleEmployee},
			CompetencyEntry{Name: name, Role: RoleManager},
		)
	}
	return entries
}

func applyObjective(record *Record, update Update) {
	goal := findObjective(record.Goals, update.ItemID, update.ItemName)
	if goal == nil {
		return
	}
	if update.Rating != nil && *update.Rating > 0 {
		switch update.Role {
		case RoleManager:
			goal.ManagerRating = *update.Rating
		default:
			goal.EmployeeRating = *update.Rating
		}
	}
}

func applyKeyResult(record *Record, update Update) {
	kr := findKeyResult(record.Goals, update.ItemID, update.ItemName)
	if kr == nil {
		return
	}
	if update.Actual != nil {
		kr.Actual = *update.Actual
	}
	if update.Rating != nil && *update.Rating > 0 {
		switch update.Role {
		case RoleManager:
			kr.ManagerRating = *update.Rating
		default:
			kr.EmployeeRating = *update.Rating
		}
	}
	if update.Comment != nil && *update.Comment != "" {
		switch update.Role {
		case RoleManager:
			kr.ManagerFeedback = *update.Comment
		default:
			kr.EmployeeFeedback = *update.Comment
		}
	}
}

func applyCompetency(record *Record, update Update) {
	role := update.Role
	if role != RoleManager {
		role = RoleEmployee
	}
	entry := findCompetency(record.Competencies, role, update.ItemName)
	if entry == nil {
		return
	}
	if update.Rating != nil && *update.Rating > 0 {
		entry.Rating = int(*update.Rating)
	}
	if update.Comment != nil && *update.Comment != "" {
		entry.Comment = *update.Comment
	}
}

// Recompute rebuilds every derived field from the record's source ratings.
// Runs unconditionally after each apply so derived values cannot drift even
// if an intermediate state was corrupted.
func Recompute(record *Record) {
	for i := range record.Goals {
		record.Goals[i].ProgressStatus = objectiveProgress(record.Goals[i].KeyResults)
	}

	record.EmployeeAvgRating = averagePositive(collectRatings(record, RoleEmployee))
	record.ManagerAvgRating = averagePositive(collectRatings(record, RoleManager))

	if record.EmployeeAvgRating > 0 || record.ManagerAvgRating > 0 {
		record.OverallRating = record.EmployeeAvgRating*0.4 + record.ManagerAvgRating*0.6
	} else {
		record.OverallRating = 0
	}

	total := 0.0
	for _, goal := range record.Goals {
		total += float64(goal.ProgressStatus) * goal.Weight / 100
	}
	record.TotalAchievement = math.Min(total, 100)
}

// objectiveProgress is the mean of each key result's achievement, where a
// single achievement is actual/target*100 capped at 100 (0 when target <= 0),
// rounded to an integer.
func objectiveProgress(krs []KeyResult) int {
	if len(krs) == 0 {
		return 0
	}
	sum := 0.0
	for _, kr := range krs {
		sum += keyResultAchievement(kr)
	}
	return int(math.Round(sum / float64(len(krs))))
}

func keyResultAchievement(kr KeyResult) float64 {
	if kr.Target <= 0 {
		return 0
	}
	return math.Min(100, kr.Actual/kr.Target*100)
}

// collectRatings gathers every populated rating for one role across goals,
// key results and competencies. Zero and negative values mean "not yet
// provided" and are excluded.
func collectRatings(record *Record, role string) []float64 {
	var ratings []float64
	for _, goal := range record.Goals {
		rating := goal.EmployeeRating
		if role == RoleManager {
			rating = goal.ManagerRating
		}
		if rating > 0 {
			ratings = append(ratings, rating)
		}
		for _, kr := range goal.KeyResults {
			krRating := kr.EmployeeRating
			if role == RoleManager {
				krRating = kr.ManagerRating
			}
			if krRating > 0 {
				ratings = append(ratings, krRating)
			}
		}
	}
	for _, entry := range record.Competencies {
		if entry.Role == role && entry.Rating > 0 {
			ratings = append(ratings, float64(entry.Rating))
		}
	}
	return ratings
}

func averagePositive(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SyncProgress refreshes each goal's key-result actuals from the live source
// objectives without touching ratings or comments, then recomputes.
func SyncProgress(record Record, sources []SourceObjective) Record {
	out := record.Clone()
	for _, src := range sources {
		for _, srcKR := range src.KeyResults {
			if kr := findKeyResult(out.Goals, srcKR.ID, srcKR.Name); kr != nil {
				kr.Actual = srcKR.Actual
				kr.Target = srcKR.Target
			}
		}
	}
	Recompute(&out)
	return out
}
