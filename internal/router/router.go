package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "petsoft/docs"
	"petsoft/internal/adapters/gateway/local"
	mem "petsoft/internal/adapters/storage/memory"
	"petsoft/internal/domain/pets"
	"petsoft/internal/middleware"
	"petsoft/internal/platform/logger"
	"petsoft/internal/session"
	"petsoft/internal/web"
)

type Options struct {
	// Opcional: si no viene, servicio sobre repo in-memory.
	Service *pets.Service

	// Opcional: si no viene, sesiones con gateway local sobre Service.
	Sessions *session.Manager

	Logger logger.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	petsSvc := opts.Service
	if petsSvc == nil {
		petsSvc = pets.NewService(mem.NewPetRepo())
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewManager(session.Config{
			Gateway:  local.New(petsSvc, log),
			Snapshot: petsSvc,
			Logger:   log,
		})
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/app/dashboard", http.StatusFound)
	})

	// Rutas por módulo
	pets.RegisterRoutes(r, petsSvc)
	web.RegisterRoutes(r, sessions, log)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	return otelhttp.NewHandler(r, "petsoft",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
