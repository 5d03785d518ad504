/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Logging:    One structured zap line per request
  4. CORS:       Cross-origin requests for the HR frontend

ROUTE GROUPS:
  /api/health           Liveness
  /api/employees/*      Employees, attendance reports, structures, slips
  /api/attendance/*     Check-in, check-out, missing checkouts
  /api/leaves           Leave records
  /api/holidays         Holiday records
  /api/payroll/*        Slip generation, tax preview
  /api/rules            Active rules
  /api/admin/*          Rules reload, day close
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. The X-Actor header is trusted as the caller
  identity; put the service behind a gateway that sets it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, origins []string, logger *zap.Logger) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.SaveEmployee)
			r.Get("/{id}", h.GetEmployee)

			r.Get("/{id}/attendance", h.GetAttendance)
			r.Post("/{id}/attendance/{date}/resolve", h.ResolveDay)
			r.Get("/{id}/leaves", h.ListLeaves)

			r.Put("/{id}/salary-structure", h.SaveStructure)
			r.Get("/{id}/salary-structure", h.GetStructure)

			r.Get("/{id}/slips", h.ListSlips)
			r.Route("/{id}/slips/{year}/{month}", func(r chi.Router) {
				r.Get("/", h.GetSlip)
				r.Post("/finalize", h.FinalizeSlip)
				r.Post("/unpublish", h.UnpublishSlip)
				r.Get("/view", h.ViewSlip)
			})
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/check-in", h.CheckIn)
			r.Post("/check-out", h.CheckOut)
			r.Get("/missing-checkouts", h.MissingCheckouts)
		})

		r.Post("/leaves", h.RecordLeave)

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.RecordHoliday)
		})

		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Post("/slips", h.GenerateSlip)
			r.Post("/tax", h.PreviewTax)
		})

		r.Get("/rules", h.GetRules)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/rules/reload", h.ReloadRules)
			r.Post("/day-close", h.RunDayClose)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// requestLogger writes one line per request once the handler returns.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			switch {
			case status >= 500:
				logger.Error("request", fields...)
			case status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
		})
	}
}
