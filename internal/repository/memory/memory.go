package memory

import (
	"opsengine/internal/repository"
)

var (
	_ repository.ScenarioRepository = (*ScenarioRepository)(nil)
)
