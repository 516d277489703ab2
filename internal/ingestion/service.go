package ingestion

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// Service exposes on-demand ingestion runs over HTTP. At most one run is in
// flight at a time.
type Service struct {
	orch     *Orchestrator
	defaults Options
	running  sync.Mutex
}

func NewService(orch *Orchestrator, defaults Options) *Service {
	if orch == nil {
		panic("ingestion: orchestrator must not be nil")
	}
	return &Service{orch: orch, defaults: defaults}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/ingest", s.IngestHandler)
}
