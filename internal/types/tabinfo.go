package types

// TabInfo holds metadata about an attached browser tab.
type TabInfo struct {
	TargetID string `json:"target_id"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	ShortID  string `json:"short_id"` // First 8 chars of the target ID, used in logs.
}
