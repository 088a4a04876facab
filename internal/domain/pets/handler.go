package pets

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Mensajes que ve el usuario cuando una mutación falla.
const (
	MsgAddFailed    = "Could not add pet."
	MsgEditFailed   = "Could not edit pet."
	MsgDeleteFailed = "Could not delete pet."
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/pets", func(pr chi.Router) {
		pr.Post("/", addPetHandler(svc))
		pr.Get("/", listPetsHandler(svc))

		pr.Get("/{petID}", getPetHandler(svc))
		pr.Patch("/{petID}", editPetHandler(svc))

		// Checkout = borrar la mascota
		pr.Delete("/{petID}", deletePetHandler(svc))
	})
}

// petRequest es el cuerpo para dar de alta una mascota.
type petRequest struct {
	Name      string `json:"name"`
	OwnerName string `json:"owner_name"`
	ImageURL  string `json:"image_url"` // opcional, default placeholder
	Age       int    `json:"age"`
	Notes     string `json:"notes"`
}

// patchPetRequest usa punteros para PATCH real: nil = no tocar.
type patchPetRequest struct {
	Name      *string `json:"name"`
	OwnerName *string `json:"owner_name"`
	ImageURL  *string `json:"image_url"`
	Age       *int    `json:"age"`
	Notes     *string `json:"notes"`
}

// petResponse representa una mascota devuelta por la API.
type petResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerName string    `json:"owner_name"`
	ImageURL  string    `json:"image_url"`
	Age       int       `json:"age"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// errorResponse es el contrato de falla del gateway: si viene message, falló.
type errorResponse struct {
	Message string `json:"message"`
}

// addPetHandler godoc
// @Summary Dar de alta una mascota
// @Description Crea una mascota. Si image_url viene vacío se usa la imagen placeholder.
// @Tags pets
// @Accept json
// @Produce json
// @Param payload body petRequest true "Datos de la mascota"
// @Success 201 {object} petResponse
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /pets [post]
func addPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req petRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, MsgAddFailed)
			return
		}

		p, err := svc.Add(r.Context(), Essentials{
			Name:      req.Name,
			OwnerName: req.OwnerName,
			ImageURL:  req.ImageURL,
			Age:       req.Age,
			Notes:     req.Notes,
		})
		if err != nil {
			writeMessage(w, statusFor(err), MsgAddFailed)
			return
		}

		writeJSON(w, http.StatusCreated, toPetResponse(p))
	}
}

// listPetsHandler godoc
// @Summary Listar mascotas
// @Description Devuelve todas las mascotas en orden de alta.
// @Tags pets
// @Produce json
// @Success 200 {array} petResponse
// @Failure 500 {string} string "internal error"
// @Router /pets [get]
func listPetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]petResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPetResponse(p))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// getPetHandler godoc
// @Summary Obtener una mascota
// @Tags pets
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {object} petResponse
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID} [get]
func getPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "pet not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

// editPetHandler godoc
// @Summary Editar una mascota
// @Description Merge superficial: solo se actualizan los campos presentes en el body.
// @Tags pets
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param payload body patchPetRequest true "Campos a modificar"
// @Success 200 {object} petResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /pets/{petID} [patch]
func editPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req patchPetRequest
		if err := dec.Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, MsgEditFailed)
			return
		}

		updated, err := svc.Edit(r.Context(), chi.URLParam(r, "petID"), Patch{
			Name:      req.Name,
			OwnerName: req.OwnerName,
			ImageURL:  req.ImageURL,
			Age:       req.Age,
			Notes:     req.Notes,
		})
		if err != nil {
			writeMessage(w, statusFor(err), MsgEditFailed)
			return
		}

		writeJSON(w, http.StatusOK, toPetResponse(updated))
	}
}

// deletePetHandler godoc
// @Summary Checkout de una mascota
// @Description Borra la mascota del store.
// @Tags pets
// @Param petID path string true "ID de la mascota"
// @Success 204
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /pets/{petID} [delete]
func deletePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "petID")); err != nil {
			writeMessage(w, statusFor(err), MsgDeleteFailed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func toPetResponse(p Pet) petResponse {
	return petResponse{
		ID:        p.ID,
		Name:      p.Name,
		OwnerName: p.OwnerName,
		ImageURL:  p.ImageURL,
		Age:       p.Age,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
