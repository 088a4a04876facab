package pets

import "strings"

// FilterByName devuelve las mascotas cuyo nombre contiene query, sin distinguir
// mayúsculas. query vacío devuelve todas. list no se modifica.
func FilterByName(list []Pet, query string) []Pet {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]Pet, 0, len(list))
	for _, p := range list {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}
