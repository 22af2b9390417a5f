package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"wastejobs-backend/internal/middleware"
	"wastejobs-backend/internal/services"
	"wastejobs-backend/internal/services/directions"
	"wastejobs-backend/internal/websocket"
)

// Deps are the collaborators the HTTP surface needs. Geocoder, RouteCache
// and Hub may be nil, which leaves their routes unmounted or reporting
// "disabled".
type Deps struct {
	Jobs        JobService
	Matcher     Matcher
	Points      services.PointStore
	Geocoder    Geocoder
	RouteCache  *directions.RouteCache
	Hub         *websocket.Hub
	JWTSecret   string
	CORSOrigins []string
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Live job feed (authentication handled in handler via query param)
	if d.Hub != nil {
		r.Get("/ws", websocket.HandleWebSocket(d.Hub, d.JWTSecret))
	}

	r.Route("/api", func(r chi.Router) {
		// Public catalog and helpers
		r.Get("/waste-delivery-points", ListDeliveryPoints(d.Points))
		r.Get("/waste-delivery-points/nearest", NearestDeliveryPoint(d.Matcher))
		r.Get("/waste-delivery-points/route", DeliveryPointRoute(d.Matcher))

		if d.Geocoder != nil {
			r.Post("/geocoding/forward", Geocode(d.Geocoder))
			r.Post("/geocoding/reverse", ReverseGeocode(d.Geocoder))
		}

		r.Post("/logs/diagnostic", ReceiveDiagnosticLog())
		r.Get("/diagnostics/route-cache", RouteCacheStats(d.RouteCache))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.JWTSecret))

			r.Get("/wastejobs", ListWasteJobs(d.Jobs))
			r.Post("/wastejobs", CreateWasteJob(d.Jobs))
			r.Get("/wastejobs/nearest", NearestWasteJob(d.Matcher))
			r.Get("/wastejobs/{id}", GetWasteJob(d.Jobs))
			r.Put("/wastejobs/activate", ActivateWasteJob(d.Jobs))
			r.Put("/wastejobs/claim", ClaimWasteJob(d.Jobs))
			r.Put("/wastejobs/complete", CompleteWasteJob(d.Jobs))
		})
	})

	return r
}
