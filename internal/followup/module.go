// Package followup provides the grace-period poll bounded context module.
package followup

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"textback_backend/internal/business"
	apphttp "textback_backend/internal/http"
	"textback_backend/internal/leads"
	"textback_backend/internal/sms"
	"textback_backend/internal/ticketing"
	"textback_backend/platform/config"
	"textback_backend/platform/logger"
)

// Module is the follow-up bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// Deps are the cross-context collaborators the poll consumes.
type Deps struct {
	Compliance ComplianceGate
	Billing    BillingGate
	Sender     sms.Sender
}

// NewModule creates and initializes the follow-up module with all its dependencies.
func NewModule(pool *pgxpool.Pool, deps Deps, cfg config.FollowupConfig, log *logger.Logger) *Module {
	service := NewService(
		business.NewRepository(pool),
		leads.NewRepository(pool),
		ticketing.NewClient(cfg.GetTicketingBaseURL(), log),
		deps.Compliance,
		deps.Billing,
		deps.Sender,
		cfg.GetGraceWindow(),
		cfg.GetPollConcurrency(),
		log,
	)

	return &Module{
		handler: NewHandler(service, log),
		service: service,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "followup"
}

// Service returns the poll service for the task worker to drive.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the poll trigger on the token-guarded jobs group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Jobs.POST("/poll", m.handler.HandlePoll)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
