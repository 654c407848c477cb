package repository

import (
	"context"
	"errors"
	"opsengine/internal/domain"
)

type ScenarioRepository interface {
	Save(ctx context.Context, scenario *domain.Scenario) error
	GetByID(ctx context.Context, id string) (*domain.Scenario, error)
	GetAll(ctx context.Context) ([]*domain.Scenario, error)
}

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate entry")
	ErrInvalidScenario = errors.New("invalid scenario")
)
