// Package web sirve el dashboard renderizado en el servidor. Cada navegador
// tiene su sesión con un petstate.Container; los formularios disparan
// mutaciones optimistas y redirigen al dashboard sin esperar al store.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"petsoft/internal/domain/pets"
	"petsoft/internal/petstate"
	"petsoft/internal/platform/logger"
	"petsoft/internal/session"
)

const (
	CookieName    = "petsoft_session"
	dashboardPath = "/app/dashboard"
)

//go:embed templates/*.html
var templatesFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templatesFS, "templates/dashboard.html"))

type dashboardData struct {
	petstate.View
	Flashes []string

	// Query filtra la lista por nombre (?q=); Results es la lista filtrada.
	Query   string
	Results []pets.Pet
}

func RegisterRoutes(r chi.Router, sessions *session.Manager, log logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	h := &handler{sessions: sessions, log: log}

	r.Route("/app", func(ar chi.Router) {
		ar.Get("/dashboard", h.dashboard)
		ar.Post("/pets", h.addPet)
		ar.Post("/pets/{petID}/edit", h.editPet)
		ar.Post("/pets/{petID}/checkout", h.checkoutPet)
		ar.Post("/pets/{petID}/select", h.selectPet)
		ar.Post("/refresh", h.refresh)
		ar.Post("/session/end", h.endSession)
	})
}

type handler struct {
	sessions *session.Manager
	log      logger.Logger
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.log.Error("dashboard: cannot open session", map[string]any{"error": err.Error()})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	view := s.State.View()
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	data := dashboardData{
		View:    view,
		Flashes: s.Flashes(),
		Query:   query,
		Results: view.Search(query),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		h.log.Error("dashboard: render failed", map[string]any{"error": err.Error()})
	}
}

func (h *handler) addPet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.existingSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.Warn(pets.MsgAddFailed)
		redirect(w, r)
		return
	}

	patch, err := patchFromForm(r)
	if err != nil {
		s.Warn(err.Error())
		redirect(w, r)
		return
	}

	// Alta: los campos ausentes quedan en cero; la validación real la hace el servicio.
	in := pets.Pet{}.Apply(patch).Essentials()

	_ = s.State.AddPet(in)
	redirect(w, r)
}

func (h *handler) editPet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.existingSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.Warn(pets.MsgEditFailed)
		redirect(w, r)
		return
	}

	patch, err := patchFromForm(r)
	if err != nil {
		s.Warn(err.Error())
		redirect(w, r)
		return
	}

	_ = s.State.EditPet(chi.URLParam(r, "petID"), patch)
	redirect(w, r)
}

func (h *handler) checkoutPet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.existingSession(w, r)
	if !ok {
		return
	}
	_ = s.State.DeletePet(chi.URLParam(r, "petID"))
	redirect(w, r)
}

func (h *handler) selectPet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.existingSession(w, r)
	if !ok {
		return
	}
	s.State.ChangeSelectedPetID(chi.URLParam(r, "petID"))
	redirect(w, r)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := h.existingSession(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Refresh(r.Context(), s); err != nil {
		h.log.Warn("dashboard: refresh failed", map[string]any{"error": err.Error(), "session": s.ID})
		s.Warn("Could not refresh pets.")
	}
	redirect(w, r)
}

func (h *handler) endSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		h.sessions.End(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	redirect(w, r)
}

// session devuelve la sesión del cookie o crea una nueva.
func (h *handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if c, err := r.Cookie(CookieName); err == nil {
		s, err := h.sessions.Get(c.Value)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
	}

	s, err := h.sessions.Create(r.Context())
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// existingSession: las mutaciones sin sesión vuelven al dashboard, que abre una.
func (h *handler) existingSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		redirect(w, r)
		return nil, false
	}
	s, err := h.sessions.Get(c.Value)
	if err != nil {
		redirect(w, r)
		return nil, false
	}
	return s, true
}

// patchFromForm toma solo los campos presentes en el form.
func patchFromForm(r *http.Request) (pets.Patch, error) {
	var p pets.Patch
	form := r.PostForm

	str := func(key string) *string {
		if _, ok := form[key]; !ok {
			return nil
		}
		v := form.Get(key)
		return &v
	}

	p.Name = str("name")
	p.OwnerName = str("owner_name")
	p.ImageURL = str("image_url")
	p.Notes = str("notes")

	if raw := str("age"); raw != nil {
		age, err := strconv.Atoi(strings.TrimSpace(*raw))
		if err != nil {
			return pets.Patch{}, errors.New("Age must be a number.")
		}
		p.Age = &age
	}
	return p, nil
}

// redirect vuelve al dashboard conservando la búsqueda activa (campo q del form).
func redirect(w http.ResponseWriter, r *http.Request) {
	target := dashboardPath
	if q := strings.TrimSpace(r.FormValue("q")); q != "" {
		target += "?q=" + url.QueryEscape(q)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
