package entities

// MemberSettings holds per-user preferences.
type MemberSettings struct {
	MemberID     string `json:"member_id"`
	DefaultModel string `json:"default_model"`
}
