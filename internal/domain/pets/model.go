package pets

import "time"

// PlaceholderImageURL se usa cuando el formulario no trae imagen.
const PlaceholderImageURL = "https://bytegrad.com/course-assets/react-nextjs/pet-placeholder.png"

// Pet representa una mascota hospedada en la guardería.
type Pet struct {
	ID string

	Name      string
	OwnerName string
	ImageURL  string
	Age       int

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Essentials son los campos que el usuario carga desde el formulario
// (todo menos id y timestamps).
type Essentials struct {
	Name      string
	OwnerName string
	ImageURL  string
	Age       int
	Notes     string
}

// Patch es una edición parcial: nil = no tocar.
type Patch struct {
	Name      *string
	OwnerName *string
	ImageURL  *string
	Age       *int
	Notes     *string
}

// Patch devuelve un patch con todos los campos presentes.
func (e Essentials) Patch() Patch {
	return Patch{
		Name:      &e.Name,
		OwnerName: &e.OwnerName,
		ImageURL:  &e.ImageURL,
		Age:       &e.Age,
		Notes:     &e.Notes,
	}
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.OwnerName == nil && p.ImageURL == nil && p.Age == nil && p.Notes == nil
}

// Apply hace un merge superficial: los campos presentes en el patch pisan
// los actuales. Devuelve una copia; p no se modifica.
func (p Pet) Apply(patch Patch) Pet {
	out := p
	if patch.Name != nil {
		out.Name = *patch.Name
	}
	if patch.OwnerName != nil {
		out.OwnerName = *patch.OwnerName
	}
	if patch.ImageURL != nil {
		out.ImageURL = *patch.ImageURL
	}
	if patch.Age != nil {
		out.Age = *patch.Age
	}
	if patch.Notes != nil {
		out.Notes = *patch.Notes
	}
	return out
}

// Essentials extrae los campos editables de la mascota.
func (p Pet) Essentials() Essentials {
	return Essentials{
		Name:      p.Name,
		OwnerName: p.OwnerName,
		ImageURL:  p.ImageURL,
		Age:       p.Age,
		Notes:     p.Notes,
	}
}
