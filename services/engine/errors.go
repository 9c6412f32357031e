package engine

// InputError is a fatal precondition violation, raised before any bar is
// processed. Ordinary entry/exit decisions are branches, never errors.
type InputError struct{ Msg string }

func (e InputError) Error() string { return e.Msg }
