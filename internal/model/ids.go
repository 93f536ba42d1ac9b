package model

import "github.com/google/uuid"

// assignID fills a zero primary key before insert. Primary keys are generated
// in Go rather than with gen_random_uuid() so the schema also runs on SQLite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
