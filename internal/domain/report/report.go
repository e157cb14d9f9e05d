// Package report assembles the printable review summary from a reconciled
// record. Its overall score deliberately differs from the live session
// figure: here OKR and competency scores are combined 60/40, each averaging
// the employee and manager sub-scores.
package report

import (
	"math"
	"time"

	"reviewcall/internal/domain/review"
)

const (
	okrWeight        = 0.6
	competencyWeight = 0.4
)

// View is the assembled report, ready for JSON or PDF rendering.
type View struct {
	EmployeeName string `json:"employeeName"`
	ManagerName  string `json:"managerName"`

	Objectives   []ObjectiveRow  `json:"objectives"`
	Competencies []CompetencyRow `json:"competencies"`

	TotalAchievement float64 `json:"totalAchievement"`
	OKRScore         float64 `json:"okrScore"`
	CompetencyScore  float64 `json:"competencyScore"`
	OverallScore     float64 `json:"overallScore"`

	Accomplishments string `json:"accomplishments"`
	NextQuarterPlan string `json:"nextQuarterPlan"`
	ManagerComments string `json:"managerComments"`

	GeneratedAt time.Time `json:"generatedAt"`
}

type ObjectiveRow struct {
	Title          string         `json:"title"`
	Weight         float64        `json:"weight"`
	Progress       int            `json:"progress"`
	EmployeeRating float64        `json:"employeeRating"`
	ManagerRating  float64        `json:"managerRating"`
	KeyResults     []KeyResultRow `json:"keyResults"`
}

type KeyResultRow struct {
	Name           string  `json:"name"`
	Target         float64 `json:"target"`
	Actual         float64 `json:"actual"`
	Unit           string  `json:"unit"`
	Achievement    int     `json:"achievement"`
	EmployeeRating float64 `json:"employeeRating"`
	ManagerRating  float64 `json:"managerRating"`
}

type CompetencyRow struct {
	Name            string `json:"name"`
	EmployeeRating  int    `json:"employeeRating"`
	ManagerRating   int    `json:"managerRating"`
	EmployeeComment string `json:"employeeComment"`
	ManagerComment  string `json:"managerComment"`
}

// Build assembles the report view from a record.
func Build(record review.Record, now time.Time) View {
	view := View{
		EmployeeName:     record.EmployeeName,
		ManagerName:      record.ManagerName,
		TotalAchievement: record.TotalAchievement,
		Accomplishments:  record.Accomplishments,
		NextQuarterPlan:  record.NextQuarterPlan,
		ManagerComments:  record.ManagerComments,
		GeneratedAt:      now.UTC(),
	}

	for _, goal := range record.Goals {
		row := ObjectiveRow{
			Title:          goal.Title,
			Weight:         goal.Weight,
			Progress:       goal.ProgressStatus,
			EmployeeRating: goal.EmployeeRating,
			ManagerRating:  goal.ManagerRating,
		}
		for _, kr := range goal.KeyResults {
			row.KeyResults = append(row.KeyResults, KeyResultRow{
				Name:           kr.Name,
				Target:         kr.Target,
				Actual:         kr.Actual,
				Unit:           kr.Unit,
				Achievement:    achievement(kr),
				EmployeeRating: kr.EmployeeRating,
				ManagerRating:  kr.ManagerRating,
			})
		}
		view.Objectives = append(view.Objectives, row)
	}
	view.Competencies = competencyRows(record.Competencies)

	view.OKRScore = okrScore(record)
	view.CompetencyScore = competencyScore(record.Competencies)
	view.OverallScore = round2(view.OKRScore*okrWeight + view.CompetencyScore*competencyWeight)
	return view
}

func achievement(kr review.KeyResult) int {
	if kr.Target <= 0 {
		return 0
	}
	return int(math.Round(math.Min(100, kr.Actual/kr.Target*100)))
}

// competencyRows merges the employee and manager entries for each competency
// name, preserving first-seen order.
func competencyRows(entries []review.CompetencyEntry) []CompetencyRow {
	var rows []CompetencyRow
	index := map[string]int{}
	for _, entry := range entries {
		i, ok := index[entry.Name]
		if !ok {
			i = len(rows)
			index[entry.Name] = i
			rows = append(rows, CompetencyRow{Name: entry.Name})
		}
		switch entry.Role {
		case review.RoleEmployee:
			rows[i].EmployeeRating = entry.Rating
			rows[i].EmployeeComment = entry.Comment
		case review.RoleManager:
			rows[i].ManagerRating = entry.Rating
			rows[i].ManagerComment = entry.Comment
		}
	}
	return rows
}

// okrScore averages the provided (>0) objective and key-result ratings per
// role, then combines the two roles equally. A role with no ratings is left
// out of the combination.
func okrScore(record review.Record) float64 {
	var employee, manager []float64
	for _, goal := range record.Goals {
		if goal.EmployeeRating > 0 {
			employee = append(employee, goal.EmployeeRating)
		}
		if goal.ManagerRating > 0 {
			manager = append(manager, goal.ManagerRating)
		}
		for _, kr := range goal.KeyResults {
			if kr.EmployeeRating > 0 {
				employee = append(employee, kr.EmployeeRating)
			}
			if kr.ManagerRating > 0 {
				manager = append(manager, kr.ManagerRating)
			}
		}
	}
	return combine(mean(employee), mean(manager))
}

func competencyScore(entries []review.CompetencyEntry) float64 {
	var employee, manager []float64
	for _, entry := range entries {
		if entry.Rating <= 0 {
			continue
		}
		switch entry.Role {
		case review.RoleEmployee:
			employee = append(employee, float64(entry.Rating))
		case review.RoleManager:
			manager = append(manager, float64(entry.Rating))
		}
	}
	return combine(mean(employee), mean(manager))
}

func combine(employee, manager float64) float64 {
	switch {
	case employee > 0 && manager > 0:
		return round2((employee + manager) / 2)
	case employee > 0:
		return round2(employee)
	case manager > 0:
		return round2(manager)
	default:
		return 0
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
