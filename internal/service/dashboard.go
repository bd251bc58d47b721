package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/target/kb-assistant-web/internal/adminapi"
	"github.com/target/kb-assistant-web/internal/domain/model"
)

// DashboardBackend is the subset of the admin API the dashboard reads.
type DashboardBackend interface {
	AdminStats(ctx context.Context) (model.AdminStats, error)
	ListRoles(ctx context.Context) (model.RoleList, error)
	ListPermissions(ctx context.Context, module string) (model.PermissionList, error)
}

var _ DashboardBackend = (*adminapi.Service)(nil)

// Dashboard is everything the admin landing page shows.
type Dashboard struct {
	Stats       model.AdminStats
	Roles       []model.Role
	Permissions []model.Permission
	Modules     []string
}

// DashboardService loads the admin landing page.
type DashboardService struct {
	backend DashboardBackend
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(backend DashboardBackend) *DashboardService {
	return &DashboardService{backend: backend}
}

// Load fetches stats, roles and permissions concurrently. The first failure is
// returned; there is no placeholder data.
func (s *DashboardService) Load(ctx context.Context) (Dashboard, error) {
	var (
		out   Dashboard
		roles model.RoleList
		perms model.PermissionList
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := s.backend.AdminStats(gctx)
		if err != nil {
			return fmt.Errorf("admin stats: %w", err)
		}
		out.Stats = st
		return nil
	})
	g.Go(func() error {
		var err error
		if roles, err = s.backend.ListRoles(gctx); err != nil {
			return fmt.Errorf("list roles: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if perms, err = s.backend.ListPermissions(gctx, ""); err != nil {
			return fmt.Errorf("list permissions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	out.Roles = roles.Roles
	out.Permissions = perms.Permissions
	out.Modules = model.PermissionModules(perms.Permissions)
	return out, nil
}
