package storage

// ActivityType is a coded task classification. Category reuses the report
// kind values.
type ActivityType struct {
	Category Kind   `json:"type"`
	Code     string `json:"code"`
	Desc     string `json:"desc"`
	Job      string `json:"job,omitempty"`
}

func (a ActivityType) Key() string {
	return ActivityTypeKey(a.Category, a.Code)
}

func ActivityTypeKey(category Kind, code string) string {
	return string(category) + ":" + code
}
