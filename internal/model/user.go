package model

// AuthProvider identifies how an account was created.
const (
	AuthProviderEmail  = "email"
	AuthProviderGoogle = "google"
)

// User is the profile of the signed-in account as the server reports it.
type User struct {
	// ID is the server-assigned account identifier.
	ID int64 `json:"id"`

	// Email is the account's login address.
	Email string `json:"email"`

	// FullName is the optional display name.
	FullName string `json:"full_name"`

	// Preferences is an opaque free-text preference blob.
	Preferences string `json:"preferences"`

	// StruggleAreas is free text describing what the user finds hard.
	StruggleAreas string `json:"struggle_areas"`

	// GranularityLevel controls how small decomposed steps should be (1-5).
	GranularityLevel int `json:"granularity_level"`

	// AuthProvider is one of the AuthProvider* constants.
	AuthProvider string `json:"auth_provider"`

	// StreakCount is the number of consecutive days with a completed quest.
	StreakCount int `json:"streak_count"`

	// TotalCompleted is the lifetime count of completed quests.
	TotalCompleted int `json:"total_completed"`
}

// ProfilePatch holds the profile fields that can be changed after signup.
// Nil fields are left untouched by a merge.
type ProfilePatch struct {
	FullName         *string `json:"full_name,omitempty"`
	Preferences      *string `json:"preferences,omitempty"`
	StruggleAreas    *string `json:"struggle_areas,omitempty"`
	GranularityLevel *int    `json:"granularity_level,omitempty"`
	StreakCount      *int    `json:"streak_count,omitempty"`
	TotalCompleted   *int    `json:"total_completed,omitempty"`
}

// Apply merges the non-nil fields of the patch into the user.
func (p ProfilePatch) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Preferences != nil {
		u.Preferences = *p.Preferences
	}
	if p.StruggleAreas != nil {
		u.StruggleAreas = *p.StruggleAreas
	}
	if p.GranularityLevel != nil {
		u.GranularityLevel = *p.GranularityLevel
	}
	if p.StreakCount != nil {
		u.StreakCount = *p.StreakCount
	}
	if p.TotalCompleted != nil {
		u.TotalCompleted = *p.TotalCompleted
	}
}
