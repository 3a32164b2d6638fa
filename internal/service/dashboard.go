package service

import (
	"context"

	"botforge/internal/model"
	"botforge/internal/notify"

	"go.uber.org/zap"
)

const BusyDashboardLoad = "dashboard.load"

const popularLimit = 5

// DashboardQueries is the slice of the query layer the dashboard needs
type DashboardQueries interface {
	CountPostViews(ctx context.Context) (count int64, views int64, err error)
	CountCaseViews(ctx context.Context) (count int64, views int64, err error)
	TopPostsByViews(ctx context.Context, limit int) ([]model.Post, error)
	TopCasesByViews(ctx context.Context, limit int) ([]model.Case, error)
}

// DashboardService computes the aggregate stats view on demand. Total
// views is a fetch-time sum over both content tables, never a stored
// aggregate.
type DashboardService struct {
	queries DashboardQueries
	notify  *notify.Center
	busy    *BusyTracker
	log     *zap.Logger
}

func NewDashboardService(queries DashboardQueries, center *notify.Center, busy *BusyTracker, log *zap.Logger) *DashboardService {
	return &DashboardService{
		queries: queries,
		notify:  center,
		busy:    busy,
		log:     log,
	}
}

func (s *DashboardService) Fetch(ctx context.Context) (model.DashboardStats, error) {
	s.busy.Begin(BusyDashboardLoad)
	defer s.busy.End(BusyDashboardLoad)

	stats, err := s.fetch(ctx)
	if err != nil {
		s.log.Error("Failed to fetch dashboard stats", zap.Error(err))
		s.notify.Error("Failed to load dashboard", err.Error())
		return model.DashboardStats{}, err
	}
	return stats, nil
}

func (s *DashboardService) fetch(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats

	postCount, postViews, err := s.queries.CountPostViews(ctx)
	if err != nil {
		return stats, err
	}
	caseCount, caseViews, err := s.queries.CountCaseViews(ctx)
	if err != nil {
		return stats, err
	}

	popularPosts, err := s.queries.TopPostsByViews(ctx, popularLimit)
	if err != nil {
		return stats, err
	}
	popularCases, err := s.queries.TopCasesByViews(ctx, popularLimit)
	if err != nil {
		return stats, err
	}

	stats.TotalPosts = postCount
	stats.TotalCases = caseCount
	stats.TotalViews = postViews + caseViews
	stats.PopularPosts = popularPosts
	stats.PopularCases = popularCases
	return stats, nil
}
