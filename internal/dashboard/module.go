// Package dashboard serves the aggregate read model for the care team:
// patient, call and message counters plus the next calls on the wire.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"sabcare_backend/internal/calls/domain"
	callstransport "sabcare_backend/internal/calls/transport"
	apphttp "sabcare_backend/internal/http"
	"sabcare_backend/platform/httpkit"
)

const (
	upcomingWindow = 7 * 24 * time.Hour
	upcomingLimit  = 10
)

// UpcomingReader lists the next scheduled calls. Implemented by the calls
// repository.
type UpcomingReader interface {
	ListUpcoming(ctx context.Context, from, until time.Time, limit int) ([]domain.CallEvent, error)
}

// Module is the dashboard module implementing http.Module.
type Module struct {
	repo     *Repository
	upcoming UpcomingReader
}

// NewModule creates the dashboard module.
func NewModule(pool *pgxpool.Pool, upcoming UpcomingReader) *Module {
	return &Module{
		repo:     NewRepository(pool),
		upcoming: upcoming,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dashboard"
}

// RegisterRoutes mounts the dashboard routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/dashboard", m.getDashboard)
	ctx.V1.GET("/dashboard/upcoming-calls", m.getUpcomingCalls)
}

type dashboardResponse struct {
	Stats    Stats                                `json:"stats"`
	Upcoming callstransport.CallEventListResponse `json:"upcomingCalls"`
}

// getDashboard returns the counters and the next scheduled calls.
// GET /api/v1/dashboard
func (m *Module) getDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := m.repo.Collect(ctx)
	if httpkit.HandleError(c, err) {
		return
	}

	now := time.Now()
	upcoming, err := m.upcoming.ListUpcoming(ctx, now, now.Add(upcomingWindow), upcomingLimit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusOK, dashboardResponse{
		Stats:    stats,
		Upcoming: callstransport.ToListResponse(upcoming),
	})
}

// getUpcomingCalls returns the next scheduled calls on their own, for the
// dashboard's summary widget.
// GET /api/v1/dashboard/upcoming-calls
func (m *Module) getUpcomingCalls(c *gin.Context) {
	now := time.Now()
	upcoming, err := m.upcoming.ListUpcoming(c.Request.Context(), now, now.Add(upcomingWindow), upcomingLimit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, callstransport.ToListResponse(upcoming))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
