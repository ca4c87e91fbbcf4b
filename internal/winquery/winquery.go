// Package winquery enumerates top-level windows for target selection. The
// capture engine never enumerates windows itself; callers resolve a title to
// a handle here and pass the handle in.
package winquery

// Window is one visible, titled top-level window.
type Window struct {
	Handle   uintptr
	Title    string
	Affinity uint32
}
