// Package billing provides the billing bounded context module.
// This file defines the module that encapsulates billing setup and route registration.
package billing

import (
	"textback_backend/internal/business"
	apphttp "textback_backend/internal/http"
	"textback_backend/internal/ledger"
	"textback_backend/platform/config"
	"textback_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the billing bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	gate    *Gate
}

// NewModule creates and initializes the billing module with all its dependencies.
func NewModule(pool *pgxpool.Pool, ledgerRepo *ledger.Repository, ledgerSvc *ledger.Service, cfg config.BillingConfig, log *logger.Logger) *Module {
	businesses := business.NewRepository(pool)
	service := NewService(businesses, ledgerRepo, log)
	handler := NewHandler(service, ledgerSvc, cfg, log)

	return &Module{
		handler: handler,
		gate:    NewGate(businesses, log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "billing"
}

// Gate returns the billing gate for other modules to consult.
func (m *Module) Gate() *Gate {
	return m.gate
}

// RegisterRoutes mounts billing routes on the provided router context.
// The billing webhook authenticates via its own payload signature, so it
// registers on V1 rather than the telephony-signed webhook group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhooks/billing", m.handler.HandleWebhook)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
