package profile

import "time"

// InitialBalance is the minute grant every profile starts each cycle with.
const InitialBalance = 60

// DayKeys lists the weekly plan day keys in cycle order. The cycle is
// anchored on Friday, so Friday comes first.
var DayKeys = []string{
	"friday",
	"saturday",
	"sunday",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
}

// IsDayKey reports whether s is one of the seven fixed day keys.
func IsDayKey(s string) bool {
	for _, day := range DayKeys {
		if day == s {
			return true
		}
	}
	return false
}

// Task is a repeatable daily task worth a fixed number of minutes.
type Task struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Points         int    `json:"points"`
	CompletedToday bool   `json:"completedToday,omitempty"`
	IsManual       bool   `json:"isManual,omitempty"`
}

// Consequence is a configured penalty that can be applied to a profile.
type Consequence struct {
	Type   string `json:"type"`
	Label  string `json:"label"`
	Amount int    `json:"amount"`
	Icon   string `json:"icon"`
	Color  string `json:"color"`
}

// WeeklyPlan maps a day key to planned screen-time hours for that day.
type WeeklyPlan map[string]float64

// Normalize returns a copy with all seven day keys present. Unknown keys are
// dropped, missing keys default to zero hours.
func (p WeeklyPlan) Normalize() WeeklyPlan {
	out := make(WeeklyPlan, len(DayKeys))
	for _, day := range DayKeys {
		out[day] = p[day]
	}
	return out
}

// IsZero reports whether no day has planned hours. An all-zero plan means the
// profile has no session allocation and only the aggregate balance applies.
func (p WeeklyPlan) IsZero() bool {
	for _, hours := range p {
		if hours > 0 {
			return false
		}
	}
	return true
}

// Profile is a child account in the family screen-time economy.
//
// Balance is a cached value maintained by incremental increments on every
// ledger append. It is derivable by replay; see ledger.Service.Reconcile.
type Profile struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Balance            int           `json:"balance"`
	WeeklyGoalHours    float64       `json:"weeklyGoalHours"`
	WeeklyGoalProgress float64       `json:"weeklyGoalProgress"`
	Tasks              []Task        `json:"tasks"`
	Consequences       []Consequence `json:"consequences"`
	WeeklyPlan         WeeklyPlan    `json:"weeklyPlan"`
	CreatedAt          time.Time     `json:"createdAt"`
}

// FindTask returns the task with the given id, or nil.
func (p *Profile) FindTask(taskID string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == taskID {
			return &p.Tasks[i]
		}
	}
	return nil
}

// FindConsequence returns the configured consequence of the given type, or nil.
func (p *Profile) FindConsequence(consequenceType string) *Consequence {
	for i := range p.Consequences {
		if p.Consequences[i].Type == consequenceType {
			return &p.Consequences[i]
		}
	}
	return nil
}
