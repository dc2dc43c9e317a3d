package scheduling

import (
	"fmt"
	"time"

	"github.com/clinica/clinica/pkg/wallclock"
)

type Status string

const (
	StatusScheduled  Status = "Agendado"
	StatusConfirmed  Status = "Confirmado"
	StatusWaiting    Status = "Em Espera"
	StatusInProgress Status = "Em Atendimento"
	StatusFinished   Status = "Finalizado"
	StatusCancelled  Status = "Cancelado"
	StatusNoShow     Status = "NoShow"
)

var allStatuses = []Status{
	StatusScheduled, StatusConfirmed, StatusWaiting, StatusInProgress,
	StatusFinished, StatusCancelled, StatusNoShow,
}

func ParseStatus(s string) (Status, bool) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Terminal states only leave by reactivation to Agendado.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled || s == StatusNoShow
}

// Open reports whether check-in may still pick the appointment up.
func (s Status) Open() bool {
	return s != StatusCancelled && s != StatusFinished
}

const (
	DefaultDurationMinutes = 30
	walkInType             = "Encaixe"
	walkInNote             = "Criado via Atendimento"
	checkInAttempts        = 3
)

type Appointment struct {
	ID              int64              `json:"id"`
	PatientID       int64              `json:"patient_id"`
	ProfessionalID  int64              `json:"professional_id"`
	Start           wallclock.DateTime `json:"start"`
	End             wallclock.DateTime `json:"end"`
	DurationMinutes int                `json:"duration_minutes"`
	Status          Status             `json:"status"`
	Type            string             `json:"type"`
	CancelReason    string             `json:"cancel_reason,omitempty"`
	CancelledBy     string             `json:"cancelled_by,omitempty"`
	Notes           string             `json:"notes"`
	RoomID          *int64             `json:"room_id,omitempty"`
	RebookedFromID  *int64             `json:"rebooked_from_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// Overlaps reports whether [start, end) intersects the appointment.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.Start.Before(end) && a.End.After(start)
}

// AppointmentInput is a create (ID 0) or update request.
type AppointmentInput struct {
	ID              int64  `json:"id"`
	PatientID       int64  `json:"patient_id"`
	ProfessionalID  int64  `json:"professional_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Type            string `json:"type"`
	Notes           string `json:"notes"`
	RoomID          *int64 `json:"room_id"`
}

type AppointmentView struct {
	Appointment
	PatientName      string `json:"patient_name"`
	ProfessionalName string `json:"professional_name"`
}

type WaitingRoomEntry struct {
	Appointment
	PatientName      string `json:"patient_name"`
	PatientPhone     string `json:"patient_phone"`
	ProfessionalName string `json:"professional_name"`
	RoomName         string `json:"room_name"`
}

type CalendarEvent struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end"`
	BackgroundColor string `json:"backgroundColor"`
	BorderColor     string `json:"borderColor"`
}

var statusColors = map[string]string{
	"Agendado":       "#F59E0B",
	"Confirmado":     "#3B82F6",
	"Realizado":      "#10B981",
	"NoShow":         "#EF4444",
	"Em Espera":      "#8B5CF6",
	"Em Atendimento": "#EC4899",
}

const defaultStatusColor = "#6B7280"

func StatusColor(status string) string {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return defaultStatusColor
}

func NewCalendarEvent(v *AppointmentView) CalendarEvent {
	color := StatusColor(string(v.Status))
	return CalendarEvent{
		ID:              v.ID,
		Title:           fmt.Sprintf("%s (%s)", v.PatientName, v.Status),
		Start:           v.Start.String(),
		End:             v.End.String(),
		BackgroundColor: color,
		BorderColor:     color,
	}
}

type CheckInResult struct {
	ID      int64 `json:"id"`
	Created bool  `json:"created"`
}
