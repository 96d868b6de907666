package models

import "errors"

// ErrNoCycles marks a plan whose tree has no cycles at all. Such a plan
// cannot be adapted or distributed and is rejected rather than persisted
// as an empty shell.
var ErrNoCycles = errors.New("plan has no cycles")

// CheckStructure returns ErrNoCycles for plans without cycles.
func (p *Plan) CheckStructure() error {
	if len(p.Main.Cycles) == 0 {
		return ErrNoCycles
	}
	return nil
}
