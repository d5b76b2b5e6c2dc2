package controllers

import (
	"net/http"

	"github.com/rzbill/flashlog/internal/runtime"
	syslogsvc "github.com/rzbill/flashlog/internal/services/syslog"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general  *GeneralController
	syslog   *SyslogController
	counters *CountersController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, svc *syslogsvc.Service, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general:  NewGeneralController(rt),
		syslog:   NewSyslogController(svc, logger),
		counters: NewCountersController(rt),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.syslog.RegisterRoutes(mux)
	r.counters.RegisterRoutes(mux)
}
