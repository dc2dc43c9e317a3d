package scheduling

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/internal/platform/auth"
	"github.com/clinica/clinica/internal/platform/db"
	"github.com/clinica/clinica/pkg/wallclock"
)

// lockNamespace keys the per-professional advisory lock that serializes the
// overlap check with the write.
const lockNamespace = "appointment-professional"

// Locker takes a transaction-scoped lock on (namespace, id).
type Locker func(ctx context.Context, namespace string, id int64) error

type Config struct {
	WalkInFallbackProfessionalID int64
}

type Service struct {
	appts  AppointmentRepository
	profs  ProfessionalDirectory
	tx     db.Transactor
	lock   Locker
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(appts AppointmentRepository, profs ProfessionalDirectory, tx db.Transactor, lock Locker, cfg Config, logger zerolog.Logger) *Service {
	if cfg.WalkInFallbackProfessionalID <= 0 {
		cfg.WalkInFallbackProfessionalID = 1
	}
	return &Service{
		appts:  appts,
		profs:  profs,
		tx:     tx,
		lock:   lock,
		cfg:    cfg,
		logger: logger,
		now:    wallclock.Now,
	}
}

// lockProfessionals locks each distinct id in ascending order.
func (s *Service) lockProfessionals(ctx context.Context, ids ...int64) error {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var prev int64
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		if err := s.lock(ctx, lockNamespace, id); err != nil {
			return err
		}
		prev = id
	}
	return nil
}

func (s *Service) checkFree(ctx context.Context, professionalID int64, start, end time.Time, excludeID int64) error {
	busy, err := s.appts.HasOverlap(ctx, professionalID, start, end, excludeID)
	if err != nil {
		return err
	}
	if busy {
		return apperr.Conflict("horário indisponível para o profissional %d entre %s e %s",
			professionalID, start.Format("15:04"), end.Format("15:04"))
	}
	return nil
}

// Save creates an appointment (in.ID == 0) or updates an existing one after
// checking the professional has no other non-cancelled appointment in the
// interval. Updates keep the stored status.
func (s *Service) Save(ctx context.Context, in AppointmentInput) (*Appointment, error) {
	if in.PatientID <= 0 || in.ProfessionalID <= 0 || strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Time) == "" {
		return nil, apperr.Validation("paciente, profissional, data e hora são obrigatórios")
	}
	if in.DurationMinutes < 0 {
		return nil, apperr.Validation("duração inválida: %d", in.DurationMinutes)
	}
	start, err := wallclock.ParseDateTime(in.Date, in.Time)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	duration := in.DurationMinutes
	if duration == 0 {
		duration = DefaultDurationMinutes
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	var saved *Appointment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var a *Appointment
		if in.ID != 0 {
			existing, err := s.appts.GetForUpdate(ctx, in.ID)
			if err != nil {
				return err
			}
			if err := s.lockProfessionals(ctx, existing.ProfessionalID, in.ProfessionalID); err != nil {
				return err
			}
			a = existing
		} else {
			if err := s.lockProfessionals(ctx, in.ProfessionalID); err != nil {
				return err
			}
			a = &Appointment{Status: StatusScheduled}
		}

		if err := s.checkFree(ctx, in.ProfessionalID, start, end, in.ID); err != nil {
			return err
		}

		a.PatientID = in.PatientID
		a.ProfessionalID = in.ProfessionalID
		a.Start = wallclock.DateTime{Time: start}
		a.End = wallclock.DateTime{Time: end}
		a.DurationMinutes = duration
		a.Type = in.Type
		a.Notes = in.Notes
		a.RoomID = in.RoomID

		if a.ID == 0 {
			if err := s.appts.Create(ctx, a); err != nil {
				return err
			}
		} else if err := s.appts.Update(ctx, a); err != nil {
			return err
		}
		saved = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("appointment_id", saved.ID).Int64("professional_id", saved.ProfessionalID).
		Str("start", saved.Start.String()).Msg("appointment saved")
	return saved, nil
}

// TransitionStatus moves an appointment to status. Terminal appointments only
// accept reactivation to Agendado, which re-checks the interval.
func (s *Service) TransitionStatus(ctx context.Context, id int64, status, reason string) (*Appointment, error) {
	next, ok := ParseStatus(status)
	if !ok {
		return nil, apperr.Validation("status inválido: %q", status)
	}

	var out *Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.appts.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out = a
		if a.Status == next {
			return nil
		}

		if a.Status.Terminal() {
			if next != StatusScheduled {
				return apperr.Validation("agendamento %s só pode ser reativado para %s", a.Status, StatusScheduled)
			}
			if err := s.lockProfessionals(ctx, a.ProfessionalID); err != nil {
				return err
			}
			if err := s.checkFree(ctx, a.ProfessionalID, a.Start.Time, a.End.Time, a.ID); err != nil {
				return err
			}
			a.CancelReason = ""
			a.CancelledBy = ""
		}

		if next == StatusCancelled {
			a.CancelReason = strings.TrimSpace(reason)
			a.CancelledBy = auth.UsernameFromContext(ctx)
		}
		a.Status = next
		return s.appts.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckIn marks the patient's first open appointment today as in progress,
// or books a 30-minute walk-in starting now when there is none. Walk-ins
// skip the overlap check.
func (s *Service) CheckIn(ctx context.Context, patientID, professionalID int64) (*CheckInResult, error) {
	if patientID <= 0 {
		return nil, apperr.Validation("paciente é obrigatório")
	}
	now := s.now()
	dayStart, dayEnd := wallclock.DayBounds(now)

	var res *CheckInResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.lockOpenForPatient(ctx, patientID, dayStart, dayEnd)
		if err == nil {
			a.Status = StatusInProgress
			if err := s.appts.Update(ctx, a); err != nil {
				return err
			}
			res = &CheckInResult{ID: a.ID}
			return nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		profID, err := s.resolveWalkInProfessional(ctx, professionalID)
		if err != nil {
			return err
		}
		if err := s.lockProfessionals(ctx, profID); err != nil {
			return err
		}
		walkIn := &Appointment{
			PatientID:       patientID,
			ProfessionalID:  profID,
			Start:           wallclock.DateTime{Time: now},
			End:             wallclock.DateTime{Time: now.Add(DefaultDurationMinutes * time.Minute)},
			DurationMinutes: DefaultDurationMinutes,
			Status:          StatusInProgress,
			Type:            walkInType,
			Notes:           walkInNote,
		}
		if err := s.appts.Create(ctx, walkIn); err != nil {
			return err
		}
		res = &CheckInResult{ID: walkIn.ID, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("patient_id", patientID).Int64("appointment_id", res.ID).
		Bool("walk_in", res.Created).Msg("patient checked in")
	return res, nil
}

// lockOpenForPatient finds the patient's first open appointment in
// [from, to) and row-locks it. A row changed by a concurrent writer between
// the search and the lock is searched for again.
func (s *Service) lockOpenForPatient(ctx context.Context, patientID int64, from, to time.Time) (*Appointment, error) {
	for attempt := 0; attempt < checkInAttempts; attempt++ {
		found, err := s.appts.FirstOpenForPatient(ctx, patientID, from, to)
		if err != nil {
			return nil, err
		}
		a, err := s.appts.GetForUpdate(ctx, found.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if a.PatientID == patientID && a.Status.Open() && !a.Start.Before(from) && a.Start.Before(to) {
			return a, nil
		}
	}
	return nil, apperr.Conflict("agendamento do paciente %d alterado durante o check-in", patientID)
}

func (s *Service) resolveWalkInProfessional(ctx context.Context, requested int64) (int64, error) {
	if requested > 0 {
		return requested, nil
	}
	id, err := s.profs.FirstActiveID(ctx)
	if err == nil {
		return id, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return s.cfg.WalkInFallbackProfessionalID, nil
	}
	return 0, err
}

// Transfer moves an appointment to another professional and time, keeping
// its duration and resetting it to Agendado.
func (s *Service) Transfer(ctx context.Context, id, professionalID int64, date, clock string) (*Appointment, error) {
	if professionalID <= 0 || strings.TrimSpace(date) == "" || strings.TrimSpace(clock) == "" {
		return nil, apperr.Validation("profissional, data e hora são obrigatórios")
	}
	start, err := wallclock.ParseDateTime(date, clock)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	var out *Appointment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.appts.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.lockProfessionals(ctx, a.ProfessionalID, professionalID); err != nil {
			return err
		}

		duration := a.DurationMinutes
		if duration <= 0 {
			duration = DefaultDurationMinutes
		}
		end := start.Add(time.Duration(duration) * time.Minute)
		if err := s.checkFree(ctx, professionalID, start, end, a.ID); err != nil {
			return err
		}

		a.ProfessionalID = professionalID
		a.Start = wallclock.DateTime{Time: start}
		a.End = wallclock.DateTime{Time: end}
		a.DurationMinutes = duration
		a.Status = StatusScheduled
		out = a
		return s.appts.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.appts.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("appointment_id", id).Msg("appointment deleted")
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

// List returns appointments starting on any day in [from, to], both
// YYYY-MM-DD and defaulting to today.
func (s *Service) List(ctx context.Context, from, to string, professionalID int64) ([]*AppointmentView, error) {
	start, end, err := s.dayRange(from, to)
	if err != nil {
		return nil, err
	}
	views, err := s.appts.List(ctx, start, end, professionalID)
	if err != nil {
		return nil, err
	}
	if views == nil {
		views = []*AppointmentView{}
	}
	return views, nil
}

func (s *Service) dayRange(from, to string) (time.Time, time.Time, error) {
	today := wallclock.StartOfDay(s.now())
	start, end := today, today
	var err error
	if from != "" {
		if start, err = wallclock.ParseDate(from); err != nil {
			return time.Time{}, time.Time{}, apperr.Validation("%s", err.Error())
		}
	}
	if to != "" {
		if end, err = wallclock.ParseDate(to); err != nil {
			return time.Time{}, time.Time{}, apperr.Validation("%s", err.Error())
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperr.Validation("fim anterior ao início")
	}
	return start, end.AddDate(0, 0, 1), nil
}

// Calendar lists non-cancelled appointments as calendar events. Both bounds
// are optional.
func (s *Service) Calendar(ctx context.Context, from, to string) ([]CalendarEvent, error) {
	var fromT, toT *time.Time
	if from != "" {
		t, err := parseCalendarBound(from)
		if err != nil {
			return nil, err
		}
		fromT = &t
	}
	if to != "" {
		t, err := parseCalendarBound(to)
		if err != nil {
			return nil, err
		}
		toT = &t
	}

	views, err := s.appts.ListNotCancelled(ctx, fromT, toT)
	if err != nil {
		return nil, err
	}
	events := make([]CalendarEvent, 0, len(views))
	for _, v := range views {
		events = append(events, NewCalendarEvent(v))
	}
	return events, nil
}

// parseCalendarBound accepts a date or the ISO date-times calendar widgets
// send, ignoring any zone suffix.
func parseCalendarBound(s string) (time.Time, error) {
	if len(s) >= len(wallclock.ISOLayout) {
		if t, err := time.Parse(wallclock.ISOLayout, s[:len(wallclock.ISOLayout)]); err == nil {
			return t, nil
		}
	}
	t, err := wallclock.ParseDate(s)
	if err != nil {
		return time.Time{}, apperr.Validation("%s", err.Error())
	}
	return t, nil
}

func (s *Service) WaitingRoom(ctx context.Context) ([]*WaitingRoomEntry, error) {
	from, to := wallclock.DayBounds(s.now())
	entries, err := s.appts.WaitingRoom(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*WaitingRoomEntry{}
	}
	return entries, nil
}

// AvailableSlots lists the free slots of duration minutes a professional has
// on date.
func (s *Service) AvailableSlots(ctx context.Context, professionalID int64, date string, duration int) ([]Slot, error) {
	if professionalID <= 0 {
		return nil, apperr.Validation("profissional é obrigatório")
	}
	if duration < 0 {
		return nil, apperr.Validation("duração inválida: %d", duration)
	}
	if duration == 0 {
		duration = DefaultDurationMinutes
	}
	day := wallclock.StartOfDay(s.now())
	if date != "" {
		var err error
		if day, err = wallclock.ParseDate(date); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
	}

	windows, err := s.profs.Availability(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	from, to := wallclock.DayBounds(day)
	busy, err := s.appts.BusyIntervals(ctx, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	return ComputeSlots(day, windows, busy, time.Duration(duration)*time.Minute), nil
}
