package wtinylfu

import "errors"

var (
	// ErrNoVictim is returned by ChooseVictim when neither the policy
	// nor the resident view knows of any key to evict.
	ErrNoVictim = errors.New("no resident key to evict")

	// ErrNotResident is returned when the policy cannot produce a
	// victim that is actually resident even after repair. It indicates
	// a contract violation in the surrounding container.
	ErrNotResident = errors.New("victim not resident after repair")
)
