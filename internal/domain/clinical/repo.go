package clinical

import "context"

type NoteRepository interface {
	Append(ctx context.Context, n *Note) error
	// ListForPatient returns the notes newest first with the professional
	// name resolved.
	ListForPatient(ctx context.Context, patientID int64) ([]*Note, error)
}
