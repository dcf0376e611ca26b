package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

// LinkService defines the interface for the core link shortening business logic.
type LinkService interface {
	// ShortenLink creates a link record for the target URL, under the
	// custom alias when one is requested or a generated base62 code
	// otherwise. expiresInDays == 0 means no expiry.
	ShortenLink(ctx context.Context, targetURL, customAlias string, expiresInDays int) (*models.Link, error)

	// ResolveCode returns the link for a code, counting the click.
	// Expired links refuse resolution.
	ResolveCode(ctx context.Context, code string) (*models.Link, error)

	// GetLinkStats returns the link's metadata without analytics side effects.
	GetLinkStats(ctx context.Context, code string) (*models.Link, error)

	// ListRecentLinks returns the newest links.
	ListRecentLinks(ctx context.Context) ([]*models.Link, error)

	// ModifyTargetURL repoints an existing code at a new target URL.
	ModifyTargetURL(ctx context.Context, code, targetURL string) (*models.Link, error)

	// DeleteLink removes the link associated with the code.
	DeleteLink(ctx context.Context, code string) error
}

// getValidate initializes a new validator instance for validating incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
func NewRouter(logger *httplog.Logger, cfg *config.Config, linkSvc LinkService) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/metrics", metrics.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		validate := getValidate()

		r.Get("/ping", handlePing)
		r.Get("/links", handleListRecentLinks(cfg, linkSvc))
		r.Get("/expand/{code}", handleExpandCode(cfg, linkSvc))

		r.Route("/shorten", func(r chi.Router) {
			r.Post("/", handleShortenLink(cfg, linkSvc, validate))

			r.Route("/{code}", func(r chi.Router) {
				r.Put("/", handleModifyLink(cfg, linkSvc, validate))
				r.Delete("/", handleDeleteLink(linkSvc))
			})
		})
	})

	// Human-readable stats page and the redirect itself live at the root,
	// mirroring the short URL shape. Static segments win over the code
	// pattern, so /api and /metrics stay reachable.
	r.Get("/stats/{code}", handleLinkStatsPage(linkSvc))
	r.Get("/{code}", handleRedirect(linkSvc))

	return r
}
