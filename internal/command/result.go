// internal/command/result.go
package command

// Skip names one matched unit the executor could not (or must not)
// change, with the reason a caller can act on.
type Skip struct {
	Unit   string `json:"unit"`
	Reason string `json:"reason"`
}

// Result is the executor's mandatory outcome contract. Partial
// application is expected, so a bare success flag is never returned:
// callers always see how many units matched, changed and were skipped.
type Result struct {
	Matched int    `json:"matched"`
	Updated int    `json:"updated"`
	Skipped []Skip `json:"skipped"`
}
