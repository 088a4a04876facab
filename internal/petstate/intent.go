package petstate

import (
	"strings"

	"petsoft/internal/domain/pets"
)

type kind int

const (
	kindAdd kind = iota
	kindEdit
	kindDelete
)

func (k kind) String() string {
	switch k {
	case kindAdd:
		return "add"
	case kindEdit:
		return "edit"
	case kindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

type state int

const (
	statePending state = iota
	stateConfirmed
	stateFailed
)

// intent es una entrada del overlay optimista.
type intent struct {
	kind  kind
	state state

	// token es el id temporal de un alta; petID el objetivo de edit/delete.
	token string
	petID string

	// serverID es el id asignado al confirmar un alta.
	serverID string

	// settledAt es el epoch del contenedor cuando llegó el resultado (0 = en vuelo).
	settledAt uint64

	essentials pets.Essentials
	patch      pets.Patch
}

// apply devuelve una lista nueva; list no se modifica.
func (it *intent) apply(list []pets.Pet) []pets.Pet {
	switch it.kind {
	case kindAdd:
		id := it.id()
		for _, p := range list {
			// El snapshot ya trae el alta confirmada.
			if p.ID == id {
				return list
			}
		}
		p := pets.Pet{ID: id}.Apply(it.essentials.Patch())
		if strings.TrimSpace(p.ImageURL) == "" {
			p.ImageURL = pets.PlaceholderImageURL
		}
		return append(list, p)

	case kindEdit:
		out := make([]pets.Pet, len(list))
		for i, p := range list {
			if p.ID == it.petID {
				p = p.Apply(it.patch)
			}
			out[i] = p
		}
		return out

	case kindDelete:
		out := make([]pets.Pet, 0, len(list))
		for _, p := range list {
			if p.ID != it.petID {
				out = append(out, p)
			}
		}
		return out
	}
	return list
}

// id es el id con el que el alta aparece en la vista.
func (it *intent) id() string {
	if it.serverID != "" {
		return it.serverID
	}
	return it.token
}

func (it *intent) fields() map[string]any {
	f := map[string]any{"action": it.kind.String()}
	if it.token != "" {
		f["token"] = it.token
	}
	if it.serverID != "" {
		f["server_id"] = it.serverID
	}
	if it.petID != "" {
		f["pet_id"] = it.petID
	}
	return f
}
