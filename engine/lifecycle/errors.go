package lifecycle

import "errors"

var (
	ErrReconfigurationFailed = errors.New("lifecycle: renderer reconfiguration failed")
	ErrControllerClosed      = errors.New("lifecycle: controller closed")
)

// TeardownDiagnostics collects the errors raised while tearing down a renderer and its pool
// during a reconfiguration. Teardown is best effort; these errors never abort the reconfiguration.
type TeardownDiagnostics struct {
	Errors []error
}

// Err joins the collected errors, or returns nil if teardown was clean.
func (d TeardownDiagnostics) Err() error {
	return errors.Join(d.Errors...)
}

func (d *TeardownDiagnostics) add(err error) {
	if err != nil {
		d.Errors = append(d.Errors, err)
	}
}
