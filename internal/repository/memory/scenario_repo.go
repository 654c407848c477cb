package memory

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"opsengine/internal/domain"
	"opsengine/internal/repository"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios.yaml
var defaultScenarios []byte

type scenarioFile struct {
	Scenarios []*domain.Scenario `yaml:"scenarios"`
}

// ScenarioRepository keeps the canned demo tickets in insertion order.
type ScenarioRepository struct {
	mu        sync.RWMutex
	scenarios map[string]*domain.Scenario
	order     []string
}

func NewScenarioRepository() *ScenarioRepository {
	return &ScenarioRepository{
		scenarios: make(map[string]*domain.Scenario),
	}
}

// NewDefaultScenarioRepository returns a repository seeded with the built-in
// catalogue.
func NewDefaultScenarioRepository() (*ScenarioRepository, error) {
	repo := NewScenarioRepository()
	if err := repo.Load(context.Background(), bytes.NewReader(defaultScenarios)); err != nil {
		return nil, fmt.Errorf("failed to load built-in scenarios: %w", err)
	}
	return repo, nil
}

func (r *ScenarioRepository) LoadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open scenario file: %w", err)
	}
	defer f.Close()

	return r.Load(ctx, f)
}

func (r *ScenarioRepository) Load(ctx context.Context, src io.Reader) error {
	var file scenarioFile
	if err := yaml.NewDecoder(src).Decode(&file); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrInvalidScenario, err)
	}

	for _, sc := range file.Scenarios {
		if err := r.Save(ctx, sc); err != nil {
			return err
		}
	}

	return nil
}

func (r *ScenarioRepository) Save(ctx context.Context, scenario *domain.Scenario) error {
	if scenario == nil || scenario.ID == "" {
		return fmt.Errorf("%w: missing id", repository.ErrInvalidScenario)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.scenarios[scenario.ID]; exists {
		return fmt.Errorf("%w: scenario %s", repository.ErrDuplicate, scenario.ID)
	}

	r.scenarios[scenario.ID] = scenario
	r.order = append(r.order, scenario.ID)

	return nil
}

func (r *ScenarioRepository) GetByID(ctx context.Context, id string) (*domain.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scenario, exists := r.scenarios[id]
	if !exists {
		return nil, fmt.Errorf("%w: scenario %s", repository.ErrNotFound, id)
	}
	return scenario, nil
}

func (r *ScenarioRepository) GetAll(ctx context.Context) ([]*domain.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Scenario, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.scenarios[id])
	}

	return result, nil
}
