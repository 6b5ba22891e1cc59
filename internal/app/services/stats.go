package services

import (
	"context"
	"errors"
	"time"

	"hotel-admin-go/internal/domain/hotel"
	"hotel-admin-go/internal/domain/query"
)

// StatsBackend is the part of the API client the stats service needs.
type StatsBackend interface {
	Stats(ctx context.Context) (hotel.Stats, error)
	GraphStats(ctx context.Context) ([]hotel.GraphPoint, error)
}

// StatsService 仪表盘统计
type StatsService struct {
	api       StatsBackend
	cache     *query.Cache
	staleTime time.Duration
}

// NewStatsService 创建统计服务. Stats are stale as soon as they are stored.
func NewStatsService(backend StatsBackend, cache *query.Cache, staleTime time.Duration) (*StatsService, error) {
	if backend == nil || cache == nil {
		return nil, errors.New("stats service requires api and cache")
	}
	return &StatsService{api: backend, cache: cache, staleTime: staleTime}, nil
}

// DashboardStats reads the counters.
func (s *StatsService) DashboardStats(ctx context.Context) (hotel.Stats, error) {
	return query.Get(ctx, s.cache, query.Key{Entity: EntityDashboardStats}, readOptions(s.staleTime, 0), s.api.Stats)
}

// GraphStats reads the monthly creation chart.
func (s *StatsService) GraphStats(ctx context.Context) ([]hotel.GraphPoint, error) {
	return query.Get(ctx, s.cache, query.Key{Entity: EntityGraphStats}, readOptions(s.staleTime, 0), s.api.GraphStats)
}
