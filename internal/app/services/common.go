package services

import (
	"strings"
	"time"

	"hotel-admin-go/internal/domain/query"
	"hotel-admin-go/internal/transport/api"
)

// Query entities. A key is the entity plus the canonical encoding of its arguments.
const (
	EntityCurrentUser    = "currentUser"
	EntityHotels         = "hotels"
	EntityHotel          = "hotel"
	EntityDashboardStats = "dashboard-stats"
	EntityGraphStats     = "graph-stats"
)

// RedirectAfterAuth is where the console lands after a login or a registration.
const RedirectAfterAuth = "/dashboard/analytics"

// DefaultListStaleTime applies to the current user and hotel listings.
const DefaultListStaleTime = 5 * time.Minute

// retryable limits read retries to failures a second attempt can fix.
func retryable(err error) bool {
	return api.IsKind(err, api.KindNetwork) || api.IsKind(err, api.KindServer)
}

func readOptions(stale time.Duration, retry int) query.Options {
	return query.Options{StaleTime: stale, Retry: retry, ShouldRetry: retryable}
}

// describe picks the backend message of err, or fallback.
func describe(err error, fallback string) string {
	if msg := strings.TrimSpace(api.MessageOf(err)); msg != "" {
		return msg
	}
	return fallback
}
