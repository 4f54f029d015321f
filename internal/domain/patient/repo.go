package patient

import "context"

type Repository interface {
	// GetByPhone returns nil, nil when no patient has the phone.
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	// CreateIfAbsent inserts p unless the phone is taken and reports whether
	// a row was written.
	CreateIfAbsent(ctx context.Context, p *Patient) (bool, error)
	UpdateName(ctx context.Context, phone, name string) error
	// List returns patients newest first.
	List(ctx context.Context, limit, offset int) ([]*Patient, error)
}
