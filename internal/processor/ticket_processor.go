package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"opsengine/internal/domain"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidTicket = errors.New("invalid ticket")

type MetricsRecorder interface {
	RecordTriage(intent domain.Intent, outcome domain.Outcome, requestedAmount int64, duration time.Duration)
}

type DecisionPublisher interface {
	PublishDecision(ctx context.Context, event domain.DecisionEvent) error
}

type ActionDispatcher interface {
	DispatchDecision(ctx context.Context, ticket domain.Ticket, profile domain.CustomerProfile, decision domain.Decision) error
}

// Result is one processed ticket together with the inputs it was decided on.
type Result struct {
	Ticket     domain.Ticket          `json:"ticket"`
	Profile    domain.CustomerProfile `json:"profile"`
	Thresholds domain.RiskThresholds  `json:"thresholds"`
	Decision   domain.Decision        `json:"decision"`
	DecidedAt  time.Time              `json:"decided_at"`
}

// TicketProcessor is safe for concurrent use.
type TicketProcessor struct {
	classifier Classifier
	engine     *RiskEngine
	metrics    MetricsRecorder
	publisher  DecisionPublisher
	dispatcher ActionDispatcher
	logger     *slog.Logger
}

// NewTicketProcessor wires the pure classify/decide core to its side
// channels. metrics, publisher and dispatcher may be nil.
func NewTicketProcessor(
	classifier Classifier,
	engine *RiskEngine,
	metrics MetricsRecorder,
	publisher DecisionPublisher,
	dispatcher ActionDispatcher,
	logger *slog.Logger,
) *TicketProcessor {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	if engine == nil {
		engine = NewRiskEngine(nil, DefaultReplyTemplates())
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TicketProcessor{
		classifier: classifier,
		engine:     engine,
		metrics:    metrics,
		publisher:  publisher,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Evaluate is the side-effect free classify-then-decide step.
func (p *TicketProcessor) Evaluate(ticket domain.Ticket, profile domain.CustomerProfile, thresholds domain.RiskThresholds) domain.Decision {
	intent := p.classifier.Classify(ticket.Text)
	return p.engine.Decide(intent, ticket, profile, thresholds)
}

// Process decides the ticket, then records, publishes and dispatches it.
// Publish and dispatch failures are logged and never alter the decision.
func (p *TicketProcessor) Process(
	ctx context.Context,
	ticket domain.Ticket,
	profile domain.CustomerProfile,
	thresholds domain.RiskThresholds,
) (*Result, error) {
	if ticket.ID == "" {
		return nil, fmt.Errorf("%w: missing ticket id", ErrInvalidTicket)
	}

	startTime := time.Now()
	decision := p.Evaluate(ticket, profile, thresholds)
	duration := time.Since(startTime)

	if p.metrics != nil {
		p.metrics.RecordTriage(decision.Intent, decision.Outcome, decision.RequestedAmount, duration)
	}

	p.logger.InfoContext(ctx, "Ticket triaged",
		slog.String("ticket_id", ticket.ID),
		slog.String("company", profile.CompanyName),
		slog.String("intent", string(decision.Intent)),
		slog.String("outcome", string(decision.Outcome)),
		slog.Int64("requested_amount", decision.RequestedAmount),
		slog.String("coverage_ratio", decision.CoverageRatio.String()),
		slog.Duration("duration", duration))

	result := &Result{
		Ticket:     ticket,
		Profile:    profile,
		Thresholds: thresholds,
		Decision:   decision,
		DecidedAt:  time.Now().UTC(),
	}

	p.publish(ctx, result)
	p.dispatch(ctx, result)

	return result, nil
}

func (p *TicketProcessor) publish(ctx context.Context, result *Result) {
	if p.publisher == nil {
		return
	}

	event := domain.DecisionEvent{
		EventID:         uuid.NewString(),
		TicketID:        result.Ticket.ID,
		CompanyName:     result.Profile.CompanyName,
		Intent:          result.Decision.Intent,
		Outcome:         result.Decision.Outcome,
		RequestedAmount: result.Decision.RequestedAmount,
		CoverageRatio:   result.Decision.CoverageRatio.String(),
		Action:          result.Decision.Action,
		AccountFrozen:   result.Decision.AccountFrozen,
		DecidedAt:       result.DecidedAt,
	}

	if err := p.publisher.PublishDecision(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish decision event",
			slog.String("ticket_id", result.Ticket.ID),
			slog.String("error", err.Error()))
	}
}

func (p *TicketProcessor) dispatch(ctx context.Context, result *Result) {
	if p.dispatcher == nil || !result.Decision.Outcome.Terminal() {
		return
	}

	if err := p.dispatcher.DispatchDecision(ctx, result.Ticket, result.Profile, result.Decision); err != nil {
		p.logger.ErrorContext(ctx, "Failed to dispatch automated action",
			slog.String("ticket_id", result.Ticket.ID),
			slog.String("action", string(result.Decision.Action)),
			slog.String("error", err.Error()))
	}
}
