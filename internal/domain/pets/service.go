package pets

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("pet not found")
)

const (
	maxNameLen  = 100
	maxNotesLen = 1000
	maxAge      = 99999
)

type Service struct {
	repo   Repository
	now    func() time.Time
	tracer trace.Tracer
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:   repo,
		now:    time.Now,
		tracer: otel.Tracer("petsoft/pets"),
	}
}

// Add valida y persiste una mascota nueva. El id lo asigna el servidor.
func (s *Service) Add(ctx context.Context, in Essentials) (Pet, error) {
	ctx, span := s.tracer.Start(ctx, "pets.Add")
	defer span.End()

	in, err := normalize(in)
	if err != nil {
		recordErr(span, err)
		return Pet{}, err
	}

	now := s.now()
	p := Pet{
		ID:        uuid.NewString(),
		Name:      in.Name,
		OwnerName: in.OwnerName,
		ImageURL:  in.ImageURL,
		Age:       in.Age,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	span.SetAttributes(attribute.String("pet.id", p.ID))

	if err := s.repo.Create(ctx, p); err != nil {
		recordErr(span, err)
		return Pet{}, err
	}
	return p, nil
}

// Edit aplica un patch parcial sobre la mascota y la persiste.
func (s *Service) Edit(ctx context.Context, id string, patch Patch) (Pet, error) {
	ctx, span := s.tracer.Start(ctx, "pets.Edit", trace.WithAttributes(attribute.String("pet.id", id)))
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" || patch.IsEmpty() {
		recordErr(span, ErrInvalidInput)
		return Pet{}, ErrInvalidInput
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		recordErr(span, err)
		return Pet{}, err
	}

	// Validamos el resultado completo, no solo los campos del patch.
	merged, err := normalize(current.Apply(patch).Essentials())
	if err != nil {
		recordErr(span, err)
		return Pet{}, err
	}

	updated := current.Apply(merged.Patch())
	updated.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, updated); err != nil {
		recordErr(span, err)
		return Pet{}, err
	}
	return updated, nil
}

// Delete hace el "checkout" de la mascota (se borra del store).
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "pets.Delete", trace.WithAttributes(attribute.String("pet.id", id)))
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		recordErr(span, ErrInvalidInput)
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		recordErr(span, err)
		return err
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Pet{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Pet, error) {
	return s.repo.List(ctx)
}

func normalize(in Essentials) (Essentials, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.OwnerName = strings.TrimSpace(in.OwnerName)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Notes = strings.TrimSpace(in.Notes)

	if n := utf8.RuneCountInString(in.Name); n == 0 || n > maxNameLen {
		return Essentials{}, ErrInvalidInput
	}
	if n := utf8.RuneCountInString(in.OwnerName); n == 0 || n > maxNameLen {
		return Essentials{}, ErrInvalidInput
	}
	if in.Age < 0 || in.Age > maxAge {
		return Essentials{}, ErrInvalidInput
	}
	if utf8.RuneCountInString(in.Notes) > maxNotesLen {
		return Essentials{}, ErrInvalidInput
	}

	if in.ImageURL == "" {
		in.ImageURL = PlaceholderImageURL
	} else if !validImageURL(in.ImageURL) {
		return Essentials{}, ErrInvalidInput
	}

	return in, nil
}

func validImageURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
