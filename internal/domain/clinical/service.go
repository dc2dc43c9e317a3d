package clinical

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/pkg/wallclock"
)

// AttachmentLookup returns apperr.ErrNotFound when no upload has id.
type AttachmentLookup func(ctx context.Context, id string) error

type Service struct {
	notes   NoteRepository
	uploads AttachmentLookup
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(notes NoteRepository, uploads AttachmentLookup, logger zerolog.Logger) *Service {
	return &Service{notes: notes, uploads: uploads, logger: logger, now: wallclock.Now}
}

// AppendNote records a visit for the patient. The visit timestamp is always
// the current wall-clock time.
func (s *Service) AppendNote(ctx context.Context, in NoteInput) (*Note, error) {
	if in.PatientID <= 0 {
		return nil, apperr.Validation("paciente é obrigatório")
	}
	evolution := strings.TrimSpace(in.Evolution)
	if evolution == "" {
		return nil, apperr.Validation("evolução clínica é obrigatória")
	}
	if in.ProfessionalID != nil && *in.ProfessionalID <= 0 {
		in.ProfessionalID = nil
	}

	attachments := make([]string, 0, len(in.Attachments))
	for _, id := range in.Attachments {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if s.uploads != nil {
			if err := s.uploads(ctx, id); err != nil {
				return nil, err
			}
		}
		attachments = append(attachments, id)
	}

	n := &Note{
		PatientID:      in.PatientID,
		ProfessionalID: in.ProfessionalID,
		VisitedAt:      s.now().Truncate(time.Minute),
		Evolution:      evolution,
		Diagnosis:      strings.TrimSpace(in.Diagnosis),
		Prescription:   strings.TrimSpace(in.Prescription),
		RequestedExams: strings.TrimSpace(in.RequestedExams),
		Attachments:    attachments,
	}
	if err := s.notes.Append(ctx, n); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("patient_id", n.PatientID).Int64("note_id", n.ID).Msg("clinical note appended")
	return n, nil
}

func (s *Service) ListNotes(ctx context.Context, patientID int64) ([]*Note, error) {
	if patientID <= 0 {
		return nil, apperr.Validation("paciente é obrigatório")
	}
	out, err := s.notes.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Note{}
	}
	return out, nil
}
