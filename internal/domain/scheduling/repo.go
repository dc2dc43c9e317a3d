package scheduling

import (
	"context"
	"time"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	Update(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	// GetForUpdate row-locks the appointment for the current transaction.
	GetForUpdate(ctx context.Context, id int64) (*Appointment, error)
	Delete(ctx context.Context, id int64) error
	// HasOverlap reports a non-cancelled appointment of professionalID other
	// than excludeID intersecting [start, end).
	HasOverlap(ctx context.Context, professionalID int64, start, end time.Time, excludeID int64) (bool, error)
	// FirstOpenForPatient returns the earliest appointment of the patient in
	// [from, to) that is neither cancelled nor finished.
	FirstOpenForPatient(ctx context.Context, patientID int64, from, to time.Time) (*Appointment, error)
	List(ctx context.Context, from, to time.Time, professionalID int64) ([]*AppointmentView, error)
	ListNotCancelled(ctx context.Context, from, to *time.Time) ([]*AppointmentView, error)
	WaitingRoom(ctx context.Context, from, to time.Time) ([]*WaitingRoomEntry, error)
	BusyIntervals(ctx context.Context, professionalID int64, from, to time.Time) ([]Interval, error)
}

// ProfessionalDirectory is the read side of professionals that scheduling
// depends on.
type ProfessionalDirectory interface {
	FirstActiveID(ctx context.Context) (int64, error)
	Availability(ctx context.Context, professionalID int64) ([]AvailabilityWindow, error)
}
