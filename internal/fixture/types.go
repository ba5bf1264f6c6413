package fixture

import "time"

// Result is the outcome of one fixture case.
type Result struct {
	// Name is the fixture folder name relative to the base directory.
	Name string `json:"name"`

	// Dir is the absolute fixture directory.
	Dir string `json:"dir"`

	Pass bool `json:"pass"`

	// Err is the first failure. Nil when Pass is true.
	Err error `json:"-"`

	// Warnings lists non-fatal findings such as extraneous generated files.
	Warnings []string `json:"warnings,omitempty"`

	// Stdout is the captured standard output, when the command ran.
	Stdout string `json:"-"`

	Duration time.Duration `json:"duration"`
}

// ErrorKind returns the kind of the case failure, or "" on success or for
// unclassified errors.
func (r *Result) ErrorKind() ErrorKind {
	return KindOf(r.Err)
}

func (r *Result) addWarning(w string) {
	r.Warnings = append(r.Warnings, w)
}
