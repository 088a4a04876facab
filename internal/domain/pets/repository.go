package pets

import "context"

type Repository interface {
	Create(ctx context.Context, p Pet) error
	Update(ctx context.Context, p Pet) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Pet, error)
	// List devuelve las mascotas en orden de alta (created_at asc).
	List(ctx context.Context) ([]Pet, error)
}
