package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/pkg/base62"
)

// aliasPattern bounds user-requested aliases: 3-32 characters out of
// letters, digits, hyphen and underscore.
var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

const recentLinksLimit = 10

// LinkRepository defines the interface for working with links at the business logic layer.
type LinkRepository interface {
	// Create inserts a new link under the given user-requested code.
	// Returns database.ErrCodeExists when the code is already taken.
	Create(ctx context.Context, code, targetURL string, expiresAt *time.Time) (*models.Link, error)

	// CreateWithCodeFromID inserts a new link, derives its code from the
	// assigned row id via codeFromID and persists the code, atomically.
	CreateWithCodeFromID(ctx context.Context, targetURL string, expiresAt *time.Time, codeFromID func(int64) string) (*models.Link, error)

	// GetByCode retrieves a link by its code without analytics side effects.
	GetByCode(ctx context.Context, code string) (*models.Link, error)

	// GetByTargetURL retrieves the most recent link for a target URL.
	GetByTargetURL(ctx context.Context, targetURL string) (*models.Link, error)

	// ResolveAndUpdateStats atomically bumps click stats of a non-expired
	// link and returns it. Misses are classified as database.ErrLinkNotFound
	// or database.ErrLinkExpired.
	ResolveAndUpdateStats(ctx context.Context, code string, now time.Time) (*models.Link, error)

	// ListRecent returns the newest links, up to limit.
	ListRecent(ctx context.Context, limit int) ([]*models.Link, error)

	// UpdateTargetURL repoints the code at a new target URL.
	UpdateTargetURL(ctx context.Context, code, targetURL string) (*models.Link, error)

	// UpdateExpiry replaces the expiry of an existing code.
	UpdateExpiry(ctx context.Context, code string, expiresAt *time.Time) (*models.Link, error)

	// Delete removes a link by its code.
	Delete(ctx context.Context, code string) error

	// DeleteExpired drops links whose expiry elapsed before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LinkService implements the short-code allocation and resolution rules on
// top of a LinkRepository. Generated codes are the base62 encoding of the
// row id, so uniqueness follows from id uniqueness without retry loops.
type LinkService struct {
	repo LinkRepository
	now  func() time.Time
}

// NewLinkService creates a new instance of LinkService with the provided repository.
func NewLinkService(repo LinkRepository) *LinkService {
	return &LinkService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// normalizeTargetURL trims the raw URL, supplies an https scheme when none
// is present and verifies the result is an absolute http/https URL.
func normalizeTargetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	if parsed, err := url.Parse(raw); err != nil || parsed.Scheme == "" {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if parsed.Host == "" {
		return "", ErrInvalidURL
	}

	return parsed.String(), nil
}

// ShortenLink validates the inputs and creates a link record.
//
// With a custom alias the alias is validated and inserted directly; the
// store's unique constraint decides collisions, reported as ErrAliasTaken.
// Without one, the row id assigned by the store is transcoded to base62 and
// becomes the code. When the same target URL was already shortened and no
// alias is requested, the existing non-expired link is reused, refreshing
// its expiry if a new one is supplied.
//
// expiresInDays == 0 means no expiry; negative values are rejected.
func (s *LinkService) ShortenLink(ctx context.Context, targetURL, customAlias string, expiresInDays int) (*models.Link, error) {
	const op = "service.LinkService.ShortenLink"

	targetURL, err := normalizeTargetURL(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if expiresInDays < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidExpiry)
	}

	now := s.now()

	var expiresAt *time.Time
	if expiresInDays > 0 {
		t := now.Add(time.Duration(expiresInDays) * 24 * time.Hour)
		expiresAt = &t
	}

	if customAlias != "" {
		if !aliasPattern.MatchString(customAlias) {
			return nil, fmt.Errorf("%s: %w", op, ErrAliasInvalid)
		}

		link, err := s.repo.Create(ctx, customAlias, targetURL, expiresAt)
		if err != nil {
			if errors.Is(err, database.ErrCodeExists) {
				return nil, fmt.Errorf("%s: %w", op, ErrAliasTaken)
			}

			return nil, fmt.Errorf("%s: failed to shorten link: %w", op, err)
		}

		return link, nil
	}

	if link, err := s.repo.GetByTargetURL(ctx, targetURL); err == nil && !link.Expired(now) {
		if expiresAt == nil {
			return link, nil
		}

		link, err = s.repo.UpdateExpiry(ctx, link.Code, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to refresh expiry: %w", op, err)
		}

		return link, nil
	} else if err != nil && !errors.Is(err, database.ErrLinkNotFound) {
		return nil, fmt.Errorf("%s: failed to look up target url: %w", op, err)
	}

	link, err := s.repo.CreateWithCodeFromID(ctx, targetURL, expiresAt, base62.Encode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to shorten link: %w", op, err)
	}

	return link, nil
}

// ResolveCode retrieves the target URL for a code, counting the click and
// stamping the access time. Expired links refuse resolution and keep their
// counters unchanged.
func (s *LinkService) ResolveCode(ctx context.Context, code string) (*models.Link, error) {
	const op = "service.LinkService.ResolveCode"

	link, err := s.repo.ResolveAndUpdateStats(ctx, code, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve code: %w", op, err)
	}

	return link, nil
}

// GetLinkStats retrieves the link's metadata without analytics side effects.
// Expired links still report stats.
func (s *LinkService) GetLinkStats(ctx context.Context, code string) (*models.Link, error) {
	const op = "service.LinkService.GetLinkStats"

	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link stats: %w", op, err)
	}

	return link, nil
}

// ListRecentLinks returns the newest links for the overview listing.
func (s *LinkService) ListRecentLinks(ctx context.Context) ([]*models.Link, error) {
	const op = "service.LinkService.ListRecentLinks"

	links, err := s.repo.ListRecent(ctx, recentLinksLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list recent links: %w", op, err)
	}

	return links, nil
}

// ModifyTargetURL updates the target URL associated with a given code.
func (s *LinkService) ModifyTargetURL(ctx context.Context, code, targetURL string) (*models.Link, error) {
	const op = "service.LinkService.ModifyTargetURL"

	targetURL, err := normalizeTargetURL(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	link, err := s.repo.UpdateTargetURL(ctx, code, targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify target url: %w", op, err)
	}

	return link, nil
}

// DeleteLink removes the link associated with the provided code.
func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	const op = "service.LinkService.DeleteLink"

	err := s.repo.Delete(ctx, code)
	if err != nil {
		return fmt.Errorf("%s: failed to delete link: %w", op, err)
	}

	return nil
}

// PurgeExpired drops links whose expiry has elapsed and reports the count.
func (s *LinkService) PurgeExpired(ctx context.Context) (int64, error) {
	const op = "service.LinkService.PurgeExpired"

	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: failed to purge expired links: %w", op, err)
	}

	return n, nil
}
