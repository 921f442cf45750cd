package model

// StatusCounts maps a status label to the number of tasks in that status.
type StatusCounts map[string]int

// CategoryCounts maps a category display name to its status counts.
type CategoryCounts map[string]StatusCounts

// NewStatusCounts returns counts with every known status set to zero.
func NewStatusCounts() StatusCounts {
	counts := make(StatusCounts, len(Statuses))
	for _, s := range Statuses {
		counts[string(s)] = 0
	}
	return counts
}
