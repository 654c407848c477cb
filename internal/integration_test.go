package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"opsengine/internal/api"
	"opsengine/internal/domain"
	"opsengine/internal/events"
	"opsengine/internal/processor"
	"opsengine/internal/repository/memory"
	"opsengine/internal/service"
	"opsengine/pkg/metrics"
	"opsengine/pkg/validator"
)

type testEnv struct {
	email      *service.MockEmailService
	slack      *service.MockSlackService
	dispatcher *service.DispatchService
	metrics    *metrics.MetricsCollector
	router     http.Handler
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.Default()

	repo, err := memory.NewDefaultScenarioRepository()
	if err != nil {
		t.Fatalf("load catalogue failed: %v", err)
	}

	metricsCollector := metrics.NewMetricsCollector(logger)
	email := &service.MockEmailService{}
	slack := &service.MockSlackService{}
	dispatcher := service.NewDispatchService(email, slack, metricsCollector, 2, 50, logger)

	pv := validator.NewProfileValidator()
	proc := processor.NewTicketProcessor(
		processor.NewKeywordClassifier(),
		processor.NewRiskEngine(processor.NewLiteralAmountExtractor(), processor.DefaultReplyTemplates()),
		metricsCollector,
		events.NopPublisher{},
		dispatcher,
		logger,
	)
	backtester := processor.NewBacktester(proc, pv, logger)
	handler := api.NewAPIHandler(proc, backtester, repo, pv, domain.DefaultRiskThresholds(), logger)

	return &testEnv{
		email:      email,
		slack:      slack,
		dispatcher: dispatcher,
		metrics:    metricsCollector,
		router:     handler.Router([]string{"*"}),
	}
}

func (env *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := env.dispatcher.Shutdown(ctx); err != nil {
		t.Fatalf("dispatcher shutdown failed: %v", err)
	}
}

func runScenario(t *testing.T, env *testEnv, id string) (*api.TriageResponse, int) {
	t.Helper()
	r := httptest.NewRequest("POST", "/api/v1/scenarios/"+id+"/run", nil)
	w := httptest.NewRecorder()

	env.router.ServeHTTP(w, r)
	respCode := w.Result().StatusCode

	if respCode >= 200 && respCode < 300 {
		var tr api.TriageResponse
		if err := json.NewDecoder(w.Body).Decode(&tr); err != nil {
			t.Fatalf("decode success response failed: %v", err)
		}
		return &tr, respCode
	}
	return nil, respCode
}

func TestIntegration_ApprovedSendsCustomerReply(t *testing.T) {
	env := setup(t)

	resp, code := runScenario(t, env, "scenario-a")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Outcome != domain.OutcomeApproved {
		t.Fatalf("expected APPROVED, got %s", resp.Outcome)
	}
	env.drain(t)

	sent := env.email.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sent))
	}
	if sent[0].To != "TechFlow GmbH" || !strings.Contains(sent[0].Body, "€5,000") {
		t.Fatalf("unexpected email: %+v", sent[0])
	}
	if len(env.slack.Sent()) != 0 {
		t.Fatalf("expected no slack messages")
	}

	w := httptest.NewRecorder()
	env.metrics.GetHandler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	scrape := w.Body.String()
	if !strings.Contains(scrape, `tickets_triaged_total{intent="credit_limit_increase",outcome="APPROVED"} 1`) {
		t.Fatalf("triage counter missing from scrape:\n%s", scrape)
	}
	if !strings.Contains(scrape, `automated_actions_sent_total{channel="email"} 1`) {
		t.Fatalf("action counter missing from scrape")
	}
}

func TestIntegration_RejectedRoutesToAnalysts(t *testing.T) {
	env := setup(t)

	resp, code := runScenario(t, env, "scenario-b")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Outcome != domain.OutcomeRejected {
		t.Fatalf("expected REJECTED, got %s", resp.Outcome)
	}
	env.drain(t)

	msgs := env.slack.Sent()
	if len(msgs) != 1 || msgs[0].Channel != "#credit-analysts" {
		t.Fatalf("expected one analyst note, got %+v", msgs)
	}
	want := "BOT_NOTE: User requested €50,000 but cash balance is only €12,000. Manual review required."
	if msgs[0].Text != want {
		t.Fatalf("unexpected note: %q", msgs[0].Text)
	}
}

func TestIntegration_AMLFreezesAndAlertsCompliance(t *testing.T) {
	env := setup(t)

	resp, code := runScenario(t, env, "scenario-c")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if !resp.AccountFrozen || resp.Action != domain.ActionFrozenToCompliance {
		t.Fatalf("expected frozen account routed to compliance, got %+v", resp)
	}
	env.drain(t)

	if len(env.email.Sent()) != 1 {
		t.Fatalf("expected customer email")
	}
	msgs := env.slack.Sent()
	if len(msgs) != 1 || msgs[0].Channel != "#compliance" {
		t.Fatalf("expected compliance alert, got %+v", msgs)
	}
}

func TestIntegration_PendingSendsNothing(t *testing.T) {
	env := setup(t)

	for _, id := range []string{"scenario-d", "scenario-e"} {
		resp, code := runScenario(t, env, id)
		if code != 200 {
			t.Fatalf("%s: expected 200, got %d", id, code)
		}
		if resp.Outcome != domain.OutcomePending {
			t.Fatalf("%s: expected PENDING, got %s", id, resp.Outcome)
		}
	}
	env.drain(t)

	if len(env.email.Sent())+len(env.slack.Sent()) != 0 {
		t.Fatalf("pending decisions must not trigger actions")
	}
}

func TestIntegration_ConcurrentTriage(t *testing.T) {
	env := setup(t)

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"text": "Please increase my limit to 5,000", "customer": {"company": "Co %d", "cash_balance": "€145,000", "repayment_score": "99/100"}}`, i)
			r := httptest.NewRequest("POST", "/api/v1/triage", bytes.NewBufferString(body))
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, r)
			if w.Code != 200 {
				errs <- fmt.Errorf("request %d: status %d", i, w.Code)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	env.drain(t)

	if got := len(env.email.Sent()); got != n {
		t.Fatalf("expected %d approval emails, got %d", n, got)
	}
}
