package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/access-control/internal/model"
)

// DashboardStats aggregates the simple counts shown on the admin
// dashboard. Nothing here participates in access decisions.
type DashboardStats struct {
	TotalUsers   int          `json:"total_users"`
	ActiveUsers  int          `json:"active_users"`
	PendingUsers int          `json:"pending_users"`
	TotalRoles   int          `json:"total_roles"`
	TotalModules int          `json:"total_modules"`
	RecentUsers  []model.User `json:"-"`
}

// StatsRepo runs the dashboard counting queries.
type StatsRepo struct{ DB *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{DB: db} }

// Dashboard collects user/role/module counts plus the five most recent
// signups.
func (r *StatsRepo) Dashboard(ctx context.Context) (DashboardStats, error) {
	var s DashboardStats
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM users", &s.TotalUsers},
		{"SELECT COUNT(*) FROM users WHERE active=TRUE", &s.ActiveUsers},
		{"SELECT COUNT(*) FROM users WHERE approved=FALSE", &s.PendingUsers},
		{"SELECT COUNT(*) FROM roles", &s.TotalRoles},
		{"SELECT COUNT(*) FROM modules", &s.TotalModules},
	}
	for _, c := range counts {
		if err := r.DB.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return DashboardStats{}, err
		}
	}

	recent, err := NewUserRepo(r.DB).Recent(ctx, 5)
	if err != nil {
		return DashboardStats{}, err
	}
	s.RecentUsers = recent
	return s, nil
}
