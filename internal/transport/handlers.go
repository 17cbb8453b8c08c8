package transport

import (
	"github.com/ds124wfegd/newscover/config"
	"github.com/ds124wfegd/newscover/internal/service"
)

type CoverHandler struct {
	service  service.CoverService
	defaults config.CoverConfig
}

func NewCoverHandler(service service.CoverService, defaults config.CoverConfig) *CoverHandler {
	return &CoverHandler{service: service, defaults: defaults}
}
