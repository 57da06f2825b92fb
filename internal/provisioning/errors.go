package provisioning

import "fmt"

// BootstrapError reports the step a bootstrap failed at.
type BootstrapError struct {
	Step  string
	Cause error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap failed at %s: %v", e.Step, e.Cause)
}

func (e *BootstrapError) Unwrap() error {
	return e.Cause
}
