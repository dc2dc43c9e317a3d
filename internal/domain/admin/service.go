package admin

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/domain/billing"
	"github.com/clinica/clinica/internal/platform/apperr"
)

type Service struct {
	plans    InsurancePlanRepository
	lookups  LookupRepository
	settings SettingsRepository
	lanURL   LANAddress
	logger   zerolog.Logger
}

func NewService(plans InsurancePlanRepository, lookups LookupRepository, settings SettingsRepository, lanURL LANAddress, logger zerolog.Logger) *Service {
	return &Service{plans: plans, lookups: lookups, settings: settings, lanURL: lanURL, logger: logger}
}

// -- Insurance Plans --

func (s *Service) SavePlan(ctx context.Context, p *InsurancePlan) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperr.Validation("nome do convênio é obrigatório")
	}
	if p.PaymentTermDays < 0 {
		return apperr.Validation("prazo de pagamento não pode ser negativo")
	}
	if p.PaymentTermDays == 0 {
		p.PaymentTermDays = defaultPaymentTerm
	}
	p.Email = strings.TrimSpace(p.Email)
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return apperr.Validation("e-mail inválido: %q", p.Email)
	}
	if p.ID == 0 {
		if err := s.plans.Create(ctx, p); err != nil {
			return err
		}
		s.logger.Info().Int64("plan_id", p.ID).Msg("insurance plan created")
		return nil
	}
	return s.plans.Update(ctx, p)
}

func (s *Service) GetPlan(ctx context.Context, id int64) (*InsurancePlan, error) {
	return s.plans.GetByID(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context) ([]*InsurancePlan, error) {
	out, err := s.plans.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*InsurancePlan{}
	}
	return out, nil
}

func (s *Service) DeletePlan(ctx context.Context, id int64) error {
	if err := s.plans.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("plan_id", id).Msg("insurance plan deleted")
	return nil
}

// -- Lookup Lists --

func parseKind(kind string) (LookupKind, error) {
	k, err := ParseLookupKind(kind)
	if err != nil {
		return "", apperr.Validation("%s", err.Error())
	}
	return k, nil
}

func (s *Service) ListLookup(ctx context.Context, kind string) ([]*LookupItem, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	out, err := s.lookups.List(ctx, k)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*LookupItem{}
	}
	return out, nil
}

// SaveLookup creates the item when item.ID is 0 and renames it otherwise.
func (s *Service) SaveLookup(ctx context.Context, kind string, item *LookupItem) error {
	k, err := parseKind(kind)
	if err != nil {
		return err
	}
	item.Kind = k
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return apperr.Validation("nome é obrigatório")
	}
	if item.ID == 0 {
		return s.lookups.Create(ctx, item)
	}
	return s.lookups.Update(ctx, item)
}

func (s *Service) DeleteLookup(ctx context.Context, kind string, id int64) error {
	k, err := parseKind(kind)
	if err != nil {
		return err
	}
	return s.lookups.Delete(ctx, k, id)
}

// -- Clinic Settings --

func (s *Service) GetSettings(ctx context.Context) (*ClinicSettings, error) {
	cs, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	cs.LANURL = s.lanURL()
	return cs, nil
}

func (s *Service) SaveSettings(ctx context.Context, cs *ClinicSettings) error {
	cs.Name = strings.TrimSpace(cs.Name)
	if cs.Name == "" {
		return apperr.Validation("nome da clínica é obrigatório")
	}
	cs.Address = strings.TrimSpace(cs.Address)
	cs.Phone = strings.TrimSpace(cs.Phone)
	cs.CNPJ = strings.TrimSpace(cs.CNPJ)
	if err := s.settings.Save(ctx, cs); err != nil {
		return err
	}
	cs.LANURL = s.lanURL()
	s.logger.Info().Str("clinic", cs.Name).Msg("clinic settings saved")
	return nil
}

// LANQRCode renders the LAN URL as a PNG QR code.
func (s *Service) LANQRCode(ctx context.Context) ([]byte, error) {
	png, err := encodeQR(s.lanURL())
	if err != nil {
		return nil, apperr.Storage("encode lan qr code", err)
	}
	return png, nil
}

// ReceiptHeader serves billing receipts with the clinic identification.
func (s *Service) ReceiptHeader(ctx context.Context) (billing.ClinicHeader, error) {
	cs, err := s.settings.Get(ctx)
	if err != nil {
		return billing.ClinicHeader{}, err
	}
	return billing.ClinicHeader{Name: cs.Name, Address: cs.Address, Phone: cs.Phone, CNPJ: cs.CNPJ}, nil
}
