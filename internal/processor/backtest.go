package processor

import (
	"context"
	"log/slog"
	"opsengine/internal/domain"
)

type ProfileParser interface {
	ParseProfile(raw domain.RawProfile) (domain.CustomerProfile, error)
}

type BacktestEntry struct {
	ScenarioID      string         `json:"scenario_id"`
	Name            string         `json:"name"`
	Intent          domain.Intent  `json:"intent,omitempty"`
	Outcome         domain.Outcome `json:"outcome,omitempty"`
	ExpectedIntent  domain.Intent  `json:"expected_intent,omitempty"`
	ExpectedOutcome domain.Outcome `json:"expected_outcome,omitempty"`
	RequestedAmount int64          `json:"requested_amount,omitempty"`
	Match           bool           `json:"match"`
	Error           string         `json:"error,omitempty"`
}

type BacktestReport struct {
	Thresholds domain.RiskThresholds  `json:"thresholds"`
	Entries    []BacktestEntry        `json:"entries"`
	ByOutcome  map[domain.Outcome]int `json:"by_outcome"`
	Matched    int                    `json:"matched"`
	Total      int                    `json:"total"`
	MatchRate  float64                `json:"match_rate"`
}

// Backtester replays scenarios through the pure engine only. Nothing is
// published, dispatched or counted in metrics.
type Backtester struct {
	processor *TicketProcessor
	parser    ProfileParser
	logger    *slog.Logger
}

func NewBacktester(processor *TicketProcessor, parser ProfileParser, logger *slog.Logger) *Backtester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backtester{
		processor: processor,
		parser:    parser,
		logger:    logger,
	}
}

func (b *Backtester) Run(ctx context.Context, scenarios []*domain.Scenario, thresholds domain.RiskThresholds) BacktestReport {
	report := BacktestReport{
		Thresholds: thresholds,
		Entries:    make([]BacktestEntry, 0, len(scenarios)),
		ByOutcome:  make(map[domain.Outcome]int),
	}

	for _, sc := range scenarios {
		entry := BacktestEntry{
			ScenarioID:      sc.ID,
			Name:            sc.Name,
			ExpectedIntent:  sc.ExpectedIntent,
			ExpectedOutcome: sc.ExpectedOutcome,
		}

		profile, err := b.parser.ParseProfile(sc.Customer)
		if err != nil {
			b.logger.WarnContext(ctx, "Skipping scenario with invalid profile",
				slog.String("scenario_id", sc.ID),
				slog.String("error", err.Error()))
			entry.Error = err.Error()
			report.Entries = append(report.Entries, entry)
			report.Total++
			continue
		}

		decision := b.processor.Evaluate(domain.Ticket{ID: sc.ID, Text: sc.Ticket}, profile, thresholds)

		entry.Intent = decision.Intent
		entry.Outcome = decision.Outcome
		entry.RequestedAmount = decision.RequestedAmount
		entry.Match = matchesExpectation(sc, decision)

		report.ByOutcome[decision.Outcome]++
		report.Entries = append(report.Entries, entry)
		report.Total++
		if entry.Match {
			report.Matched++
		}
	}

	if report.Total > 0 {
		report.MatchRate = float64(report.Matched) / float64(report.Total)
	}

	b.logger.InfoContext(ctx, "Backtest complete",
		slog.Int("total", report.Total),
		slog.Int("matched", report.Matched))

	return report
}

// Empty expectations are wildcards.
func matchesExpectation(sc *domain.Scenario, d domain.Decision) bool {
	if sc.ExpectedIntent != "" && sc.ExpectedIntent != d.Intent {
		return false
	}
	if sc.ExpectedOutcome != "" && sc.ExpectedOutcome != d.Outcome {
		return false
	}
	return true
}
