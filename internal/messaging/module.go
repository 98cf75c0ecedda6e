// Package messaging provides the inbound SMS bounded context module.
package messaging

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"textback_backend/internal/business"
	"textback_backend/internal/compliance"
	domainevents "textback_backend/internal/events"
	apphttp "textback_backend/internal/http"
	"textback_backend/internal/intent"
	"textback_backend/internal/leads"
	"textback_backend/internal/ledger"
	"textback_backend/internal/sms"
	"textback_backend/platform/logger"
	"textback_backend/platform/validator"
)

// Module is the inbound SMS bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// Deps are the cross-context collaborators the SMS webhook consumes.
type Deps struct {
	Ledger     *ledger.Service
	Compliance ComplianceGate
	Billing    BillingGate
	Sender     sms.Sender
	Classifier intent.Classifier
	Bus        domainevents.Bus
	Val        *validator.Validator
}

// NewModule creates and initializes the messaging module with all its dependencies.
func NewModule(pool *pgxpool.Pool, deps Deps, log *logger.Logger) *Module {
	service := NewService(
		deps.Ledger,
		business.NewRepository(pool),
		compliance.NewRepository(pool),
		leads.NewRepository(pool),
		deps.Compliance,
		deps.Billing,
		deps.Sender,
		deps.Classifier,
		deps.Bus,
		log,
	)

	return &Module{handler: NewHandler(service, deps.Val, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "messaging"
}

// RegisterRoutes mounts the SMS webhook on the signed webhook group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/sms", m.handler.HandleInbound)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
