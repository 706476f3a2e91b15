package domain

// SpecSheet holds change-form suggestions read from a published phone spec
// sheet. Fields is keyed by smartphone form field.
type SpecSheet struct {
	Source          string         `json:"source"`
	Fields          map[string]any `json:"fields"`
	OperatingSystem string         `json:"operating_system_name,omitempty"`
	Storages        []int          `json:"storages,omitempty"`
	// Images are absolute photo URLs, candidates for the images inline.
	Images          []string       `json:"images,omitempty"`
}
