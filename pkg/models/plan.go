package models

// PlanEntry is one line of the user's study plan. ID is assigned when the plan
// is imported and is the only key used to apply completion updates.
type PlanEntry struct {
	ID            int64   `json:"id"`
	TrackLabel    string  `json:"track"`
	ModuleLabel   string  `json:"module"`
	WorkloadHours float64 `json:"workload_hours"`
	Objective     string  `json:"objective"`
	LessonLink    *string `json:"lesson_link"`
	Completed     bool    `json:"completed"`
}

// TrackProgress aggregates plan completion for one track label.
type TrackProgress struct {
	Track     string  `json:"track"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Percent   float64 `json:"percent"`
}

// PlanProgress is the dashboard summary of a plan.
type PlanProgress struct {
	Total          int             `json:"total"`
	Completed      int             `json:"completed"`
	Pending        int             `json:"pending"`
	Percent        float64         `json:"percent"`
	HoursTotal     float64         `json:"hours_total"`
	HoursRemaining float64         `json:"hours_remaining"`
	Tracks         []TrackProgress `json:"tracks"`
}
