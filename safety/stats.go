package safety

// Stats counts coordinator activity since startup.
type Stats struct {
	InputChecks  int `json:"input_checks"`
	OutputChecks int `json:"output_checks"`
	Violations   int `json:"violations"`
	Blocked      int `json:"blocked"`
	Sanitized    int `json:"sanitized"`
	Warned       int `json:"warned"`
}

// TotalChecks is the number of checks across both directions.
func (s Stats) TotalChecks() int {
	return s.InputChecks + s.OutputChecks
}

// ViolationRate is the fraction of checks that found anything, 0 when no
// checks have run.
func (s Stats) ViolationRate() float64 {
	total := s.TotalChecks()
	if total == 0 {
		return 0
	}
	return float64(s.Violations) / float64(total)
}
