package hook

// Interface splits a unit of work into the phases Call runs.
type Interface interface {
	// Try does the work.
	Try() error
	// Catch receives the error of Try and returns the error Call reports.
	Catch(err error) error
	// Finally always runs, after a panic too.
	Finally()
}
