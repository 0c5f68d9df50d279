package sysinfo

import "context"

// Static serves fixed snapshots. It backs tests and wiring that needs
// a collector without touching the machine.
type Static struct {
	// Snapshots holds the canned response per category.
	Snapshots map[Category]string

	// Err, when set, is returned from every Collect call.
	Err error
}

// Collect returns the canned snapshot for a category.
func (s *Static) Collect(_ context.Context, category Category) (string, error) {
	if err := category.Validate(); err != nil {
		return "", err
	}
	if s.Err != nil {
		return "", s.Err
	}
	return s.Snapshots[category], nil
}
