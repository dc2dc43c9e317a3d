package identity

import "context"

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	// Search matches term against name (case-insensitive) or CPF digits. An
	// empty term lists everyone.
	Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type ProfessionalRepository interface {
	Create(ctx context.Context, p *Professional) error
	Update(ctx context.Context, p *Professional) error
	GetByID(ctx context.Context, id int64) (*Professional, error)
	List(ctx context.Context, activeOnly bool) ([]*Professional, error)
	FirstActiveID(ctx context.Context) (int64, error)
}
