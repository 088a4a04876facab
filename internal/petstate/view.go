package petstate

import "petsoft/internal/domain/pets"

// View es la fachada de lectura para la capa de presentación. Todo se calcula
// sobre la misma proyección, así que SelectedPet siempre coincide con
// SelectedPetID o es nil.
type View struct {
	Pets          []pets.Pet
	SelectedPetID string
	HasSelection  bool
	SelectedPet   *pets.Pet
	NumberOfPets  int

	optimistic map[string]bool
}

// IsOptimistic informa si la mascota id es un alta que el servidor todavía no
// confirmó. Esas filas no se pueden editar ni dar de baja.
func (v View) IsOptimistic(id string) bool {
	return v.optimistic[id]
}

// Search filtra la vista por nombre. NumberOfPets sigue contando todas.
func (v View) Search(query string) []pets.Pet {
	return pets.FilterByName(v.Pets, query)
}

func (c *Container) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.projectLocked()

	v := View{
		Pets:          list,
		SelectedPetID: c.selectedID,
		HasSelection:  c.hasSelected,
		NumberOfPets:  len(list),
		optimistic:    map[string]bool{},
	}

	for _, it := range c.overlay {
		if it.kind == kindAdd && it.state == statePending {
			v.optimistic[it.token] = true
		}
	}

	if c.hasSelected {
		for i := range list {
			if list[i].ID == c.selectedID {
				p := list[i]
				v.SelectedPet = &p
				break
			}
		}
	}

	return v
}
