// Package local implementa el gateway de mutaciones llamando al servicio de
// mascotas en el mismo proceso (lo que en el dashboard hace de "server action").
package local

import (
	"context"

	"petsoft/internal/domain/pets"
	"petsoft/internal/petstate"
	"petsoft/internal/platform/logger"
)

type Gateway struct {
	svc *pets.Service
	log logger.Logger
}

func New(svc *pets.Service, log logger.Logger) *Gateway {
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{svc: svc, log: log}
}

func (g *Gateway) AddPet(ctx context.Context, in pets.Essentials) (string, error) {
	p, err := g.svc.Add(ctx, in)
	if err != nil {
		return "", g.fail(pets.MsgAddFailed, "", err)
	}
	return p.ID, nil
}

func (g *Gateway) EditPet(ctx context.Context, petID string, patch pets.Patch) error {
	if _, err := g.svc.Edit(ctx, petID, patch); err != nil {
		return g.fail(pets.MsgEditFailed, petID, err)
	}
	return nil
}

func (g *Gateway) DeletePet(ctx context.Context, petID string) error {
	if err := g.svc.Delete(ctx, petID); err != nil {
		return g.fail(pets.MsgDeleteFailed, petID, err)
	}
	return nil
}

// List es el snapshot para sembrar o reconciliar un Container.
func (g *Gateway) List(ctx context.Context) ([]pets.Pet, error) {
	return g.svc.List(ctx)
}

// fail loguea la causa real; al usuario solo le llega el mensaje genérico.
func (g *Gateway) fail(msg, petID string, err error) error {
	fields := map[string]any{"error": err.Error()}
	if petID != "" {
		fields["pet_id"] = petID
	}
	g.log.Warn(msg, fields)
	return &petstate.MutationError{Message: msg, Err: err}
}
