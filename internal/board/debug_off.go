//go:build !debug

package board

// debugChecks enables the costly sanity checks in MakeMove. Build with
// -tags debug to turn them on.
const debugChecks = false
