package models

import "time"

// ArchivedProgram marks a program as available on demand. At most one exists
// per program; "deleting" an archive flips Status off rather than removing
// the row, so the derived playback path stays authoritative across toggles.
type ArchivedProgram struct {
	ID        int64      `json:"id,omitempty"`
	ProgramID int64      `json:"program_id"`
	Path      string     `json:"path"`
	Status    bool       `json:"status"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
