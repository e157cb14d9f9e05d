package review

import "time"

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
)

// Update item types accepted by the reconciliation engine.
const (
	ItemObjective       = "objective"
	ItemKeyResult       = "key_result"
	ItemCompetency      = "competency"
	ItemAccomplishments = "accomplishments"
	ItemNextQuarterPlan = "next_quarter_plan"
	ItemManagerComments = "manager_comments"
)

// Record is the canonical performance-review document for one employee.
// Derived fields are never authoritative; the engine recomputes them on
// every apply.
type Record struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName"`
	ManagerID    string `json:"managerId"`
	ManagerName  string `json:"managerName"`

	Goals        []Objective       `json:"goals"`
	Competencies []CompetencyEntry `json:"competencies"`

	EmployeeAvgRating float64 `json:"employeeAvgRating"`
	ManagerAvgRating  float64 `json:"managerAvgRating"`
	OverallRating     float64 `json:"overallRating"`
	TotalAchievement  float64 `json:"totalAchievement"`

	Accomplishments string `json:"accomplishments"`
	NextQuarterPlan string `json:"nextQuarterPlan"`
	ManagerComments string `json:"managerComments"`

	CreatedAt time.Time `json:"createdAt"`
}

type Objective struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Weight         float64     `json:"weight"`
	ProgressStatus int         `json:"progressStatus"`
	EmployeeRating float64     `json:"employeeRating"`
	ManagerRating  float64     `json:"managerRating"`
	KeyResults     []KeyResult `json:"keyResults"`
}

type KeyResult struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Target           float64 `json:"target"`
	Actual           float64 `json:"actual"`
	Unit             string  `json:"unit"`
	EmployeeRating   float64 `json:"employeeRating"`
	ManagerRating    float64 `json:"managerRating"`
	EmployeeFeedback string  `json:"employeeFeedback"`
	ManagerFeedback  string  `json:"managerFeedback"`
}

type CompetencyEntry struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SourceObjective is the read-only objective data fetched from the HR
// backend, used to bootstrap a record's goals and to sync live progress.
type SourceObjective struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Weight     float64           `json:"weight"`
	KeyResults []SourceKeyResult `json:"keyResults"`
}

type SourceKeyResult struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Target float64 `json:"target"`
	Actual float64 `json:"actual"`
	Unit   string  `json:"unit"`
}

// Update is one partial mutation extracted from a confirmed tool call.
// Fields not relevant to the item type are left at their zero values;
// pointer fields distinguish "not provided" from an explicit zero.
type Update struct {
	Role     string   `json:"role"`
	ItemType string   `json:"itemType"`
	ItemID   string   `json:"itemId"`
	ItemName string   `json:"itemName"`
	Rating   *float64 `json:"rating,omitempty"`
	Comment  *string  `json:"comment,omitempty"`
	Actual   *float64 `json:"actual,omitempty"`
	Value    string   `json:"value,omitempty"`
}

// Clone returns a deep copy so the engine can stay a pure function of
// (record, update) without aliasing the caller's slices.
func (r Record) Clone() Record {
	out := r
	out.Goals = make([]Objective, len(r.Goals))
	for i, goal := range r.Goals {
		copied := goal
		copied.KeyResults = append([]KeyResult(nil), goal.KeyResults...)
		out.Goals[i] = copied
	}
	out.Competencies = append([]CompetencyEntry(nil), r.Competencies...)
	return out
}
