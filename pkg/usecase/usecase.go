package usecase

import (
	"github.com/threadlens-lab/threadlens/pkg/domain/interfaces"
	"github.com/threadlens-lab/threadlens/pkg/service/query"
)

// UseCases bundles the application operations exposed to the controllers
type UseCases struct {
	repo         interfaces.Repository
	orchestrator *query.Orchestrator
	analyzer     interfaces.Analyzer
}

func New(repo interfaces.Repository, orchestrator *query.Orchestrator, analyzer interfaces.Analyzer) *UseCases {
	return &UseCases{
		repo:         repo,
		orchestrator: orchestrator,
		analyzer:     analyzer,
	}
}
