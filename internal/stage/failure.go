package stage

import "errors"

// Failure is a stage-attributed error. Its message is the cause's message,
// unchanged, so the job error shows exactly what the adapter reported.
type Failure struct {
	Stage Name
	Err   error
}

func (f *Failure) Error() string {
	if f == nil || f.Err == nil {
		return "stage failed"
	}
	return f.Err.Error()
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Tag attaches a stage to err. Errors that already carry a stage keep it.
func Tag(name Name, err error) error {
	if err == nil {
		return nil
	}
	var existing *Failure
	if errors.As(err, &existing) {
		return err
	}
	return &Failure{Stage: name, Err: err}
}

// StageOf returns the stage recorded on err, if any.
func StageOf(err error) (Name, bool) {
	var failure *Failure
	if errors.As(err, &failure) && failure.Stage != "" {
		return failure.Stage, true
	}
	return "", false
}
