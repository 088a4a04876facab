package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"petsoft/internal/domain/pets"
)

// Timestamps como texto RFC3339Nano en UTC; el orden de List sale del rowid.
const timeLayout = time.RFC3339Nano

type PetsRepo struct {
	db *sql.DB
}

func NewPetsRepo(db *sql.DB) *PetsRepo {
	return &PetsRepo{db: db}
}

const selectPets = `
	SELECT id, name, owner_name, image_url, age, notes, created_at, updated_at
	FROM pets
`

func (r *PetsRepo) Create(ctx context.Context, p pets.Pet) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pets (id, name, owner_name, image_url, age, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID,
		p.Name,
		p.OwnerName,
		p.ImageURL,
		p.Age,
		p.Notes,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	return err
}

func (r *PetsRepo) Update(ctx context.Context, p pets.Pet) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pets
		SET name = ?, owner_name = ?, image_url = ?, age = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`,
		p.Name,
		p.OwnerName,
		p.ImageURL,
		p.Age,
		p.Notes,
		formatTime(p.UpdatedAt),
		p.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return pets.ErrNotFound
	}
	return nil
}

func (r *PetsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return pets.ErrNotFound
	}
	return nil
}

func (r *PetsRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	p, err := scanPet(r.db.QueryRowContext(ctx, selectPets+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pets.Pet{}, pets.ErrNotFound
		}
		return pets.Pet{}, err
	}
	return p, nil
}

func (r *PetsRepo) List(ctx context.Context) ([]pets.Pet, error) {
	rows, err := r.db.QueryContext(ctx, selectPets+` ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]pets.Pet, 0)
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPet(s scanner) (pets.Pet, error) {
	var (
		p                pets.Pet
		created, updated string
	)
	if err := s.Scan(&p.ID, &p.Name, &p.OwnerName, &p.ImageURL, &p.Age, &p.Notes, &created, &updated); err != nil {
		return pets.Pet{}, err
	}

	var err error
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return pets.Pet{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return pets.Pet{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
