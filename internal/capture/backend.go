package capture

// Backend is one interchangeable capture strategy. Given resolved geometry
// it produces a frame sized to Resolved.Bounds or fails with a *BackendError.
//
// Backends must leave no process-wide window state (z-order, styles,
// exclusion flags) permanently altered, whatever the outcome.
type Backend interface {
	ID() BackendID
	Capture(res Resolved) (*Frame, *BackendError)
}

// closer is implemented by session-based backends that hold driver resources.
type closer interface {
	Close() error
}
