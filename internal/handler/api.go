package handler

import (
	"github.com/statlite/internal/service"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	stats     statsProvider
	admission admissionChecker
}

// NewAPI constructs a handler set with shared services.
func NewAPI(stats *service.StatsService, admission *service.AdmissionControl) *API {
	return newAPI(stats, admission)
}

func newAPI(stats statsProvider, admission admissionChecker) *API {
	return &API{
		stats:     stats,
		admission: admission,
	}
}
