package admin

import "context"

type InsurancePlanRepository interface {
	Create(ctx context.Context, p *InsurancePlan) error
	Update(ctx context.Context, p *InsurancePlan) error
	GetByID(ctx context.Context, id int64) (*InsurancePlan, error)
	List(ctx context.Context) ([]*InsurancePlan, error)
	Delete(ctx context.Context, id int64) error
}

type LookupRepository interface {
	List(ctx context.Context, kind LookupKind) ([]*LookupItem, error)
	Create(ctx context.Context, item *LookupItem) error
	Update(ctx context.Context, item *LookupItem) error
	Delete(ctx context.Context, kind LookupKind, id int64) error
}

// SettingsRepository reads and writes the single clinic settings row. Get
// returns the defaults when the row has never been saved.
type SettingsRepository interface {
	Get(ctx context.Context) (*ClinicSettings, error)
	Save(ctx context.Context, s *ClinicSettings) error
}
