package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/service"
	"github.com/vadimbarashkov/shortlink/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// shortenRequest represents the request payload for creating a shortened link.
// The target URL is validated semantically by the service, which also
// supplies a https scheme when none is present, so only presence is checked
// here.
type shortenRequest struct {
	URL         string `json:"url" validate:"required"`
	CustomAlias string `json:"custom_alias,omitempty" validate:"omitempty,min=3,max=32"`
	ExpiryDays  *int   `json:"expiry_days,omitempty" validate:"omitempty,gt=0"`
}

// modifyRequest represents the request payload for repointing an existing code.
type modifyRequest struct {
	URL string `json:"url" validate:"required"`
}

// linkResponse represents the response payload for a link operation.
type linkResponse struct {
	ID             int64      `json:"id"`
	Code           string     `json:"code"`
	ShortURL       string     `json:"short_url"`
	URL            string     `json:"url"`
	ClickCount     int64      `json:"click_count,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// toLinkResponse converts a link model from the business layer into a response payload.
func toLinkResponse(cfg *config.Config, link *models.Link) linkResponse {
	return linkResponse{
		ID:        link.ID,
		Code:      link.Code,
		ShortURL:  cfg.ShortURL(link.Code),
		URL:       link.TargetURL,
		CreatedAt: link.CreatedAt,
		ExpiresAt: link.ExpiresAt,
	}
}

// expandResponse is the payload of the expand endpoint, carrying the full
// click analytics of a code.
type expandResponse struct {
	Code           string     `json:"code"`
	ShortURL       string     `json:"short_url"`
	TargetURL      string     `json:"target_url"`
	ClickCount     int64      `json:"click_count"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	Expired        bool       `json:"expired"`
}

// handleShortenLink handles POST requests to shorten a URL.
//
// The request must contain the target URL and may carry a custom alias and
// an expiry in days. The handler validates the input shape, delegates the
// allocation rules to the link service and returns the new short URL with
// relevant metadata.
func handleShortenLink(cfg *config.Config, svc LinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenLink"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		expiryDays := 0
		if req.ExpiryDays != nil {
			expiryDays = *req.ExpiryDays
		}

		link, err := svc.ShortenLink(r.Context(), req.URL, req.CustomAlias, expiryDays)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse("Invalid URL", "Please provide a valid http or https URL."))
			case errors.Is(err, service.ErrAliasInvalid):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse("Invalid Alias", "Custom alias must be 3-32 characters: letters, numbers, _ or - only."))
			case errors.Is(err, service.ErrInvalidExpiry):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse("Invalid Expiry", "Expiry must be a positive number of days."))
			case errors.Is(err, service.ErrAliasTaken):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.AliasTakenResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		metrics.LinksCreated.Inc()

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(cfg, link)))
	}
}

// handleRedirect handles GET requests on short URLs.
//
// A successful resolution counts the click and issues an HTTP redirect to
// the target URL. Unknown codes render a 404 and expired ones a 410 without
// touching the counters.
func handleRedirect(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		link, err := svc.ResolveCode(r.Context(), code)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrLinkNotFound):
				metrics.ResolutionMisses.WithLabelValues("not_found").Inc()

				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, database.ErrLinkExpired):
				metrics.ResolutionMisses.WithLabelValues("expired").Inc()

				render.Status(r, http.StatusGone)
				render.JSON(w, r, response.LinkExpiredResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		metrics.Redirects.Inc()

		http.Redirect(w, r, link.TargetURL, http.StatusFound)
	}
}

// handleExpandCode handles GET requests to expand a short code into its
// target URL and click analytics, without counting a click. Expired links
// still expand, flagged as such.
func handleExpandCode(cfg *config.Config, svc LinkService) http.HandlerFunc {
	const op = "api.http.handleExpandCode"
	const successMsg = "The short code was successfully expanded."

	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		link, err := svc.GetLinkStats(r.Context(), code)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := expandResponse{
			Code:           link.Code,
			ShortURL:       cfg.ShortURL(link.Code),
			TargetURL:      link.TargetURL,
			ClickCount:     link.ClickCount,
			CreatedAt:      link.CreatedAt,
			LastAccessedAt: link.LastAccessedAt,
			ExpiresAt:      link.ExpiresAt,
			Expired:        link.Expired(time.Now().UTC()),
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// handleLinkStatsPage handles GET requests for the human-readable stats page.
func handleLinkStatsPage(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleLinkStatsPage"

	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		link, err := svc.GetLinkStats(r.Context(), code)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				http.Error(w, "link not found", http.StatusNotFound)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)

		fmt.Fprintf(w, "Code:          %s\n", link.Code)
		fmt.Fprintf(w, "Target URL:    %s\n", link.TargetURL)
		fmt.Fprintf(w, "Created at:    %s\n", link.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "Clicks:        %d\n", link.ClickCount)

		if link.LastAccessedAt != nil {
			fmt.Fprintf(w, "Last accessed: %s\n", link.LastAccessedAt.Format(time.RFC3339))
		} else {
			fmt.Fprintln(w, "Last accessed: never")
		}

		if link.ExpiresAt != nil {
			fmt.Fprintf(w, "Expires at:    %s\n", link.ExpiresAt.Format(time.RFC3339))
			if link.Expired(time.Now().UTC()) {
				fmt.Fprintln(w, "Status:        expired")
			}
		} else {
			fmt.Fprintln(w, "Expires at:    never")
		}
	}
}

// handleListRecentLinks handles GET requests for the most recently created links.
func handleListRecentLinks(cfg *config.Config, svc LinkService) http.HandlerFunc {
	const op = "api.http.handleListRecentLinks"
	const successMsg = "Recent links retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		links, err := svc.ListRecentLinks(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]linkResponse, 0, len(links))
		for _, link := range links {
			item := toLinkResponse(cfg, link)
			item.ClickCount = link.ClickCount
			data = append(data, item)
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// handleModifyLink handles PUT requests to repoint an existing short code.
//
// The request must contain a valid new URL. The handler updates the link,
// returning the updated metadata.
func handleModifyLink(cfg *config.Config, svc LinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleModifyLink"
	const successMsg = "The link was successfully modified."

	return func(w http.ResponseWriter, r *http.Request) {
		var req modifyRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		code := chi.URLParam(r, "code")

		link, err := svc.ModifyTargetURL(r.Context(), code, req.URL)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse("Invalid URL", "Please provide a valid http or https URL."))
			case errors.Is(err, database.ErrLinkNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(cfg, link)))
	}
}

// handleDeleteLink handles DELETE requests to remove a link.
func handleDeleteLink(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleDeleteLink"
	const successMsg = "The link was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		err := svc.DeleteLink(r.Context(), code)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}
