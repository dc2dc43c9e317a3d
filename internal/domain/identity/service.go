package identity

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinica/clinica/internal/domain/scheduling"
	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/pkg/pagination"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var maxCommission = decimal.NewFromInt(100)

type Service struct {
	patients      PatientRepository
	professionals ProfessionalRepository
	logger        zerolog.Logger
}

func NewService(patients PatientRepository, professionals ProfessionalRepository, logger zerolog.Logger) *Service {
	return &Service{patients: patients, professionals: professionals, logger: logger}
}

// -- Patient --

func normalizePatient(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperr.Validation("nome do paciente é obrigatório")
	}
	p.CPF = NormalizeCPF(p.CPF)
	if p.CPF != "" {
		if err := ValidateCPF(p.CPF); err != nil {
			return apperr.Validation("%s", err.Error())
		}
	}
	p.Email = strings.TrimSpace(p.Email)
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return apperr.Validation("e-mail inválido: %q", p.Email)
	}
	p.Guardian.CPF = NormalizeCPF(p.Guardian.CPF)
	if p.InsurancePlanID != nil && *p.InsurancePlanID <= 0 {
		p.InsurancePlanID = nil
	}
	return nil
}

// SavePatient creates the patient when p.ID is 0 and updates it otherwise.
func (s *Service) SavePatient(ctx context.Context, p *Patient) error {
	if err := normalizePatient(p); err != nil {
		return err
	}
	if p.ID == 0 {
		p.Active = true
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		s.logger.Info().Int64("patient_id", p.ID).Msg("patient created")
		return nil
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	fresh, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *fresh
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, term string, page pagination.Params) ([]*Patient, int, error) {
	patients, total, err := s.patients.Search(ctx, term, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return patients, total, nil
}

func (s *Service) SetPatientActive(ctx context.Context, id int64, active bool) error {
	return s.patients.SetActive(ctx, id, active)
}

// -- Professional --

func normalizeProfessional(p *Professional) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperr.Validation("nome do profissional é obrigatório")
	}
	p.CPF = NormalizeCPF(p.CPF)
	if p.CPF != "" {
		if err := ValidateCPF(p.CPF); err != nil {
			return apperr.Validation("%s", err.Error())
		}
	}
	if p.Color == "" {
		p.Color = defaultProfessionalColor
	}
	if !colorPattern.MatchString(p.Color) {
		return apperr.Validation("cor inválida: %q (use #RRGGBB)", p.Color)
	}
	if p.CommissionRate.IsNegative() || p.CommissionRate.GreaterThan(maxCommission) {
		return apperr.Validation("comissão deve estar entre 0 e 100")
	}
	for _, w := range p.Availability {
		if err := w.Validate(); err != nil {
			return apperr.Validation("disponibilidade: %s", err.Error())
		}
	}
	if p.Availability == nil {
		p.Availability = []scheduling.AvailabilityWindow{}
	}
	if p.SpecialtyID != nil && *p.SpecialtyID <= 0 {
		p.SpecialtyID = nil
	}
	return nil
}

// SaveProfessional creates the professional when p.ID is 0 and updates it
// otherwise.
func (s *Service) SaveProfessional(ctx context.Context, p *Professional) error {
	if err := normalizeProfessional(p); err != nil {
		return err
	}
	if p.ID == 0 {
		if err := s.professionals.Create(ctx, p); err != nil {
			return err
		}
		s.logger.Info().Int64("professional_id", p.ID).Msg("professional created")
		return nil
	}
	if err := s.professionals.Update(ctx, p); err != nil {
		return err
	}
	fresh, err := s.professionals.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *fresh
	return nil
}

func (s *Service) GetProfessional(ctx context.Context, id int64) (*Professional, error) {
	return s.professionals.GetByID(ctx, id)
}

func (s *Service) ListProfessionals(ctx context.Context, activeOnly bool) ([]*Professional, error) {
	out, err := s.professionals.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Professional{}
	}
	return out, nil
}

// ListActive returns the professionals that can be booked.
func (s *Service) ListActive(ctx context.Context) ([]*Professional, error) {
	return s.ListProfessionals(ctx, true)
}

// FirstActiveID and Availability make the service the scheduling
// ProfessionalDirectory.
func (s *Service) FirstActiveID(ctx context.Context) (int64, error) {
	return s.professionals.FirstActiveID(ctx)
}

func (s *Service) Availability(ctx context.Context, professionalID int64) ([]scheduling.AvailabilityWindow, error) {
	p, err := s.professionals.GetByID(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	return p.Availability, nil
}

var _ scheduling.ProfessionalDirectory = (*Service)(nil)
