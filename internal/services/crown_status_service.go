package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/crownbid-backend/internal/cache"
	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure CrownStatusServiceImpl implements CrownStatusService
var _ CrownStatusService = (*CrownStatusServiceImpl)(nil)

// CrownStatusServiceImpl serves the public and admin views of the crown
type CrownStatusServiceImpl struct {
	status     repositories.CrownStatusRepository
	candidates repositories.CandidateRepository
	events     repositories.SettlementEventRepository
	crownCache cache.CrownCache
	pageSize   int
}

// NewCrownStatusService creates a new CrownStatusServiceImpl. pageSize caps
// event listings.
func NewCrownStatusService(
	status repositories.CrownStatusRepository,
	candidates repositories.CandidateRepository,
	events repositories.SettlementEventRepository,
	crownCache cache.CrownCache,
	pageSize int,
) *CrownStatusServiceImpl {
	if crownCache == nil {
		crownCache = cache.Noop{}
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &CrownStatusServiceImpl{
		status:     status,
		candidates: candidates,
		events:     events,
		crownCache: crownCache,
		pageSize:   pageSize,
	}
}

// PublicCrown reads through the cache. The view is built from the snapshot
// fields only and never joins the candidate store.
func (s *CrownStatusServiceImpl) PublicCrown(ctx context.Context) (*models.PublicCrown, error) {
	cached, ok, err := s.crownCache.Get(ctx)
	if err != nil {
		slog.Warn("PublicCrown: cache read failed, falling back to store", "error", err)
	} else if ok {
		return cached, nil
	}

	status, err := s.status.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read crown status: %w", err)
	}
	if status.ActiveUID == "" {
		return nil, nil
	}

	crown := &models.PublicCrown{
		UID:        status.ActiveUID,
		Name:       status.ChampionName,
		Bio:        status.ChampionBio,
		PhotoURL:   status.ChampionPhotoURL,
		PriceCents: status.ActivePriceCents,
		DateKey:    status.ActiveDateKey,
		Since:      status.ActiveSince,
	}
	if err := s.crownCache.Set(ctx, crown); err != nil {
		slog.Warn("PublicCrown: cache write failed", "error", err)
	}
	return crown, nil
}

// AdminView joins the status with the live profile of the titleholder
func (s *CrownStatusServiceImpl) AdminView(ctx context.Context) (*models.AdminCrownView, error) {
	status, err := s.status.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read crown status: %w", err)
	}

	view := &models.AdminCrownView{
		Status: status,
		SnapshotChampion: models.ChampionView{
			Name:     status.ChampionName,
			Bio:      status.ChampionBio,
			PhotoURL: status.ChampionPhotoURL,
		},
	}

	if status.ActiveUID != "" {
		view.User = &models.CrownUserView{UID: status.ActiveUID}
		candidate, err := s.candidates.FindByID(ctx, status.ActiveUID)
		switch {
		case err == nil:
			view.User.FullName = candidate.Name()
			view.User.Email = candidate.Email
			view.User.PhotoURL = candidate.PhotoURL
			view.User.Bio = candidate.Bio
		case errors.Is(err, repositories.ErrNotFound):
		default:
			return nil, fmt.Errorf("read titleholder profile: %w", err)
		}
		view.UserChampion = models.ChampionView{
			Name:     view.User.FullName,
			Bio:      view.User.Bio,
			PhotoURL: view.User.PhotoURL,
		}
	}

	view.ResolvedChampion = models.ChampionView{
		Name:     firstNonEmpty(view.SnapshotChampion.Name, view.UserChampion.Name),
		Bio:      firstNonEmpty(view.SnapshotChampion.Bio, view.UserChampion.Bio),
		PhotoURL: firstNonEmpty(view.SnapshotChampion.PhotoURL, view.UserChampion.PhotoURL),
	}
	return view, nil
}

// RecentEvents lists audit events, newest first
func (s *CrownStatusServiceImpl) RecentEvents(ctx context.Context, dateKey string, limit int) ([]*models.SettlementEvent, error) {
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}
	events, err := s.events.FindRecent(ctx, dateKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list settlement events: %w", err)
	}
	return events, nil
}

// maxUserListing bounds one page of the operator directory
const maxUserListing = 1000

// ListUsers lists candidates by key, including those not eligible tonight
func (s *CrownStatusServiceImpl) ListUsers(ctx context.Context, limit int) ([]*models.AdminUser, error) {
	if limit <= 0 || limit > maxUserListing {
		limit = maxUserListing
	}
	candidates, err := s.candidates.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	users := make([]*models.AdminUser, 0, len(candidates))
	for _, c := range candidates {
		users = append(users, models.AdminUserFromCandidate(c))
	}
	return users, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
