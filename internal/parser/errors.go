package parser

import (
	"github.com/MrRacoon/pact/internal/diagnostic"
)

// Error wraps the diagnostics collected during a failed parse.
type Error struct {
	Diags *diagnostic.Diagnostics
}

// Error returns all collected diagnostics as one message.
func (e *Error) Error() string {
	return e.Diags.Format()
}
