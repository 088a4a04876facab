// Package remote implementa el gateway de mutaciones contra la API REST de PetSoft.
package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"petsoft/internal/domain/pets"
	"petsoft/internal/petstate"
	"petsoft/internal/platform/httpclient"
)

type Gateway struct {
	client *httpclient.Client
}

func New(baseURL string, timeout time.Duration) (*Gateway, error) {
	c, err := httpclient.New(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &Gateway{client: c}, nil
}

// NewWithClient permite reutilizar un httpclient ya armado (tests).
func NewWithClient(c *httpclient.Client) *Gateway {
	return &Gateway{client: c}
}

type petBody struct {
	Name      string `json:"name"`
	OwnerName string `json:"owner_name"`
	ImageURL  string `json:"image_url"`
	Age       int    `json:"age"`
	Notes     string `json:"notes"`
}

type patchBody struct {
	Name      *string `json:"name,omitempty"`
	OwnerName *string `json:"owner_name,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
	Age       *int    `json:"age,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type petPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerName string    `json:"owner_name"`
	ImageURL  string    `json:"image_url"`
	Age       int       `json:"age"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (g *Gateway) AddPet(ctx context.Context, in pets.Essentials) (string, error) {
	var created petPayload
	err := g.client.DoJSON(ctx, http.MethodPost, "/pets", petBody{
		Name:      in.Name,
		OwnerName: in.OwnerName,
		ImageURL:  in.ImageURL,
		Age:       in.Age,
		Notes:     in.Notes,
	}, &created)
	if err != nil {
		return "", toMutationError(err)
	}
	return created.ID, nil
}

func (g *Gateway) EditPet(ctx context.Context, petID string, patch pets.Patch) error {
	err := g.client.DoJSON(ctx, http.MethodPatch, "/pets/"+url.PathEscape(petID), patchBody{
		Name:      patch.Name,
		OwnerName: patch.OwnerName,
		ImageURL:  patch.ImageURL,
		Age:       patch.Age,
		Notes:     patch.Notes,
	}, nil)
	return toMutationError(err)
}

func (g *Gateway) DeletePet(ctx context.Context, petID string) error {
	err := g.client.DoJSON(ctx, http.MethodDelete, "/pets/"+url.PathEscape(petID), nil, nil)
	return toMutationError(err)
}

// List trae el snapshot actual del servidor.
func (g *Gateway) List(ctx context.Context) ([]pets.Pet, error) {
	var items []petPayload
	if err := g.client.DoJSON(ctx, http.MethodGet, "/pets", nil, &items); err != nil {
		return nil, err
	}

	out := make([]pets.Pet, 0, len(items))
	for _, it := range items {
		out = append(out, pets.Pet{
			ID:        it.ID,
			Name:      it.Name,
			OwnerName: it.OwnerName,
			ImageURL:  it.ImageURL,
			Age:       it.Age,
			Notes:     it.Notes,
			CreatedAt: it.CreatedAt,
			UpdatedAt: it.UpdatedAt,
		})
	}
	return out, nil
}

// toMutationError aplica el contrato del gateway: {"message"} en la respuesta = falla.
func toMutationError(err error) error {
	if err == nil {
		return nil
	}
	var he *httpclient.HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return &petstate.MutationError{Message: he.Message, Err: err}
	}
	return &petstate.MutationError{Message: err.Error(), Err: err}
}
