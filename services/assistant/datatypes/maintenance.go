package datatypes

// RolloverResponse reports the outcome of a maintenance rollover run.
// Errors carries one message per failed plan; a populated slice still means
// the run itself completed.
type RolloverResponse struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
	Details []string `json:"details"`
	Message string   `json:"message"`
}
