// Package calls provides the voice bounded context module.
// This file defines the module that encapsulates voice webhook setup and
// route registration.
package calls

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"textback_backend/internal/business"
	domainevents "textback_backend/internal/events"
	apphttp "textback_backend/internal/http"
	"textback_backend/internal/intent"
	"textback_backend/internal/leads"
	"textback_backend/internal/ledger"
	"textback_backend/internal/sms"
	"textback_backend/platform/config"
	"textback_backend/platform/logger"
	"textback_backend/platform/validator"
)

// Module is the voice bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// Deps are the cross-context collaborators the voice webhooks consume.
type Deps struct {
	Ledger     *ledger.Service
	Compliance ComplianceGate
	Billing    BillingGate
	Sender     sms.Sender
	Classifier intent.Classifier
	Bus        domainevents.Bus
	Val        *validator.Validator
}

// NewModule creates and initializes the calls module with all its dependencies.
func NewModule(pool *pgxpool.Pool, deps Deps, cfg config.TelephonyConfig, log *logger.Logger) *Module {
	service := NewService(
		deps.Ledger,
		business.NewRepository(pool),
		leads.NewRepository(pool),
		deps.Compliance,
		deps.Billing,
		deps.Sender,
		deps.Classifier,
		deps.Bus,
		cfg.GetPublicBaseURL(),
		log,
	)

	return &Module{handler: NewHandler(service, deps.Val, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "calls"
}

// RegisterRoutes mounts voice webhook routes on the signed webhook group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/voice", m.handler.HandleVoice)
	ctx.Webhooks.POST("/voice/transcription", m.handler.HandleTranscription)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
