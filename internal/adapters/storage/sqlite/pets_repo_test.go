package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"petsoft/internal/domain/pets"
)

func openTestDB(t *testing.T) *PetsRepo {
	t.Helper()

	db, err := Open("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return NewPetsRepo(db)
}

func TestPetsRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	created := time.Date(2026, 5, 1, 9, 30, 0, 123, time.UTC)
	rex := pets.Pet{
		ID:        "1",
		Name:      "Rex",
		OwnerName: "Ana",
		ImageURL:  pets.PlaceholderImageURL,
		Age:       4,
		Notes:     "allergic to chicken",
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := repo.Create(ctx, rex); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, pets.Pet{ID: "2", Name: "Fido", OwnerName: "Bo", ImageURL: "x", CreatedAt: created, UpdatedAt: created}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Rex" || got.Age != 4 || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected pet: %+v", got)
	}

	got.Name = "Max"
	got.UpdatedAt = created.Add(time.Minute)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Max" || list[1].Name != "Fido" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := repo.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "1"); !errors.Is(err, pets.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPetsRepo_MissingRows(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	if err := repo.Update(ctx, pets.Pet{ID: "nope"}); !errors.Is(err, pets.ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "nope"); !errors.Is(err, pets.ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
}
