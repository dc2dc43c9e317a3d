package clinical

import "time"

// Note is one entry of a patient's clinical record. Notes are append-only.
type Note struct {
	ID               int64     `json:"id"`
	PatientID        int64     `json:"patient_id"`
	ProfessionalID   *int64    `json:"professional_id,omitempty"`
	ProfessionalName string    `json:"professional_name"`
	VisitedAt        time.Time `json:"visited_at"`
	Evolution        string    `json:"evolution"`
	Diagnosis        string    `json:"diagnosis"`
	Prescription     string    `json:"prescription"`
	RequestedExams   string    `json:"requested_exams"`
	Attachments      []string  `json:"attachments"`
}

type NoteInput struct {
	PatientID      int64    `json:"patient_id"`
	ProfessionalID *int64   `json:"professional_id"`
	Evolution      string   `json:"evolution"`
	Diagnosis      string   `json:"diagnosis"`
	Prescription   string   `json:"prescription"`
	RequestedExams string   `json:"requested_exams"`
	Attachments    []string `json:"attachments"`
}
