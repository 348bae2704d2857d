package harness

// Result is the outcome of a scenario.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Modes lists the modes that ran, eager first.
	Modes []string `json:"modes"`

	// Output is the canonical JSON of the generated collections. When
	// several modes ran it is the eager output, which the others matched.
	Output []byte `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
