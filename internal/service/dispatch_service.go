package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"opsengine/internal/domain"
	"sync"
	"time"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSlack Channel = "slack"
)

const (
	creditAnalystChannel = "#credit-analysts"
	complianceChannel    = "#compliance"
)

var ErrDispatcherClosed = errors.New("dispatcher is shut down")

type EmailService interface {
	SendEmail(to, subject, body string) error
}

type SlackService interface {
	SendMessage(channel, message string) error
}

type ActionRecorder interface {
	RecordAction(channel string, success bool)
}

type OutboundMessage struct {
	Channel   Channel
	Recipient string
	Subject   string
	Body      string
	Metadata  map[string]string
	CreatedAt time.Time
}

// DispatchService delivers the automated action of a decision: the customer
// reply, the analyst note, or the compliance alert.
type DispatchService struct {
	emailService EmailService
	slackService SlackService
	recorder     ActionRecorder
	queue        chan OutboundMessage
	workers      int
	shutdownChan chan struct{}
	closeOnce    sync.Once
	// mu orders sends against Shutdown: nothing enters queue once closed is set.
	mu     sync.RWMutex
	closed bool
	wg           sync.WaitGroup
	logger       *slog.Logger
}

func NewDispatchService(
	emailService EmailService,
	slackService SlackService,
	recorder ActionRecorder,
	workers int,
	queueSize int,
	logger *slog.Logger,
) *DispatchService {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	service := &DispatchService{
		emailService: emailService,
		slackService: slackService,
		recorder:     recorder,
		queue:        make(chan OutboundMessage, queueSize),
		workers:      workers,
		shutdownChan: make(chan struct{}),
		logger:       logger,
	}

	service.startWorkers()

	return service
}

func BuildMessages(ticket domain.Ticket, profile domain.CustomerProfile, decision domain.Decision) []OutboundMessage {
	now := time.Now().UTC()
	meta := map[string]string{
		"ticket_id": ticket.ID,
		"intent":    string(decision.Intent),
		"outcome":   string(decision.Outcome),
	}

	switch decision.Outcome {
	case domain.OutcomeApproved:
		return []OutboundMessage{{
			Channel:   ChannelEmail,
			Recipient: profile.CompanyName,
			Subject:   "Your card limit has been increased",
			Body:      decision.Message,
			Metadata:  meta,
			CreatedAt: now,
		}}
	case domain.OutcomeRejected:
		return []OutboundMessage{{
			Channel:   ChannelSlack,
			Recipient: creditAnalystChannel,
			Subject:   fmt.Sprintf("Manual review: %s", profile.CompanyName),
			Body:      decision.InternalNote,
			Metadata:  meta,
			CreatedAt: now,
		}}
	case domain.OutcomeEscalateAML:
		alert := fmt.Sprintf("AML escalation for %s (ticket %s). Account frozen. %s",
			profile.CompanyName, ticket.ID, auditDetail(decision))
		return []OutboundMessage{
			{
				Channel:   ChannelEmail,
				Recipient: profile.CompanyName,
				Subject:   "Your transaction is under review",
				Body:      decision.Message,
				Metadata:  meta,
				CreatedAt: now,
			},
			{
				Channel:   ChannelSlack,
				Recipient: complianceChannel,
				Subject:   "AML alert",
				Body:      alert,
				Metadata:  meta,
				CreatedAt: now,
			},
		}
	default:
		return nil
	}
}

func auditDetail(d domain.Decision) string {
	if d.Audit == nil {
		return ""
	}
	return d.Audit.Detail
}

func (s *DispatchService) DispatchDecision(
	ctx context.Context,
	ticket domain.Ticket,
	profile domain.CustomerProfile,
	decision domain.Decision,
) error {
	for _, msg := range BuildMessages(ticket, profile, decision) {
		if err := s.enqueue(ctx, msg); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "Automated action queued",
			slog.String("channel", string(msg.Channel)),
			slog.String("recipient", msg.Recipient),
			slog.String("ticket_id", ticket.ID))
	}
	return nil
}

func (s *DispatchService) enqueue(ctx context.Context, msg OutboundMessage) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrDispatcherClosed
	}

	select {
	case s.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DispatchService) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *DispatchService) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case msg := <-s.queue:
			s.deliver(msg, id)
		case <-s.shutdownChan:
			s.drain(id)
			return
		}
	}
}

// drain flushes whatever is still buffered once shutdown starts.
func (s *DispatchService) drain(workerID int) {
	for {
		select {
		case msg := <-s.queue:
			s.deliver(msg, workerID)
		default:
			return
		}
	}
}

func (s *DispatchService) deliver(msg OutboundMessage, workerID int) {
	startTime := time.Now()
	var err error

	switch msg.Channel {
	case ChannelEmail:
		err = s.emailService.SendEmail(msg.Recipient, msg.Subject, msg.Body)
	case ChannelSlack:
		err = s.slackService.SendMessage(msg.Recipient, msg.Body)
	default:
		err = fmt.Errorf("unknown channel: %s", msg.Channel)
	}

	if s.recorder != nil {
		s.recorder.RecordAction(string(msg.Channel), err == nil)
	}

	if err != nil {
		s.logger.Error("Failed to deliver automated action",
			slog.String("channel", string(msg.Channel)),
			slog.String("recipient", msg.Recipient),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID))
		return
	}

	s.logger.Info("Automated action delivered",
		slog.String("channel", string(msg.Channel)),
		slog.String("recipient", msg.Recipient),
		slog.Int("worker_id", workerID),
		slog.Duration("duration", time.Since(startTime)))
}

func (s *DispatchService) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.shutdownChan)
		s.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Dispatch service shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type MockEmailService struct {
	mu         sync.Mutex
	SentEmails []SentEmail
}

type SentEmail struct {
	To      string
	Subject string
	Body    string
}

func (m *MockEmailService) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *MockEmailService) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.SentEmails...)
}

type MockSlackService struct {
	mu       sync.Mutex
	Messages []SlackMessage
}

type SlackMessage struct {
	Channel string
	Text    string
}

func (m *MockSlackService) SendMessage(channel, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, SlackMessage{Channel: channel, Text: message})
	return nil
}

func (m *MockSlackService) Sent() []SlackMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SlackMessage(nil), m.Messages...)
}
