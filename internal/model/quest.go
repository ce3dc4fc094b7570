package model

// Step is one micro-win within a quest. Ordinal values within a quest are
// strictly increasing integers starting at 1, assigned at creation time and
// never reassigned.
type Step struct {
	ID        int64  `json:"id"`
	Action    string `json:"action"`
	Completed bool   `json:"is_completed"`
	Ordinal   int    `json:"order"`
}

// Quest is a user goal and its ordered breakdown into steps.
type Quest struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Goal  string `json:"goal"`
	Steps []Step `json:"steps"`
}

// FirstIncomplete returns the index of the first step whose completion flag
// is unset, or len(steps) when every step is done.
func FirstIncomplete(steps []Step) int {
	for i, s := range steps {
		if !s.Completed {
			return i
		}
	}
	return len(steps)
}

// SidebarEntry is a lightweight reference to a previously created quest,
// used for navigating back to it.
type SidebarEntry struct {
	ID    int64  `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
}
