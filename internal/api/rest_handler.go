package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"opsengine/internal/domain"
	"opsengine/internal/processor"
	"opsengine/internal/repository"
	"opsengine/pkg/validator"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	version = "1.0.0"

	maxBodyBytes = 64 << 10
)

type APIHandler struct {
	processor      *processor.TicketProcessor
	backtester     *processor.Backtester
	scenarios      repository.ScenarioRepository
	validator      *validator.ProfileValidator
	thresholds     domain.RiskThresholds
	logger         *slog.Logger
	requestTimeout time.Duration
}

func NewAPIHandler(
	proc *processor.TicketProcessor,
	backtester *processor.Backtester,
	scenarios repository.ScenarioRepository,
	profileValidator *validator.ProfileValidator,
	thresholds domain.RiskThresholds,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if profileValidator == nil {
		profileValidator = validator.NewProfileValidator()
	}

	return &APIHandler{
		processor:      proc,
		backtester:     backtester,
		scenarios:      scenarios,
		validator:      profileValidator,
		thresholds:     thresholds,
		logger:         logger,
		requestTimeout: 10 * time.Second,
	}
}

func (h *APIHandler) WithRequestTimeout(d time.Duration) *APIHandler {
	if d > 0 {
		h.requestTimeout = d
	}
	return h
}

// displayValue accepts either a JSON string ("€145,000") or a bare number.
type displayValue string

func (v *displayValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = displayValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*v = displayValue(n.String())
	return nil
}

type CustomerRequest struct {
	Company        string       `json:"company"`
	CashBalance    displayValue `json:"cash_balance"`
	RepaymentScore displayValue `json:"repayment_score,omitempty"`
	RiskTier       string       `json:"risk_tier,omitempty"`
}

func (c CustomerRequest) raw() domain.RawProfile {
	return domain.RawProfile{
		Company:        c.Company,
		CashBalance:    string(c.CashBalance),
		RepaymentScore: string(c.RepaymentScore),
		RiskTier:       c.RiskTier,
	}
}

// ThresholdsRequest overrides individual slider values; omitted fields keep
// the configured value.
type ThresholdsRequest struct {
	AutoApproveLimit *int64 `json:"auto_approve_limit,omitempty"`
	MinCashBalance   *int64 `json:"min_cash_balance,omitempty"`
}

func (t *ThresholdsRequest) apply(base domain.RiskThresholds) domain.RiskThresholds {
	if t == nil {
		return base
	}
	if t.AutoApproveLimit != nil {
		base.AutoApproveLimit = *t.AutoApproveLimit
	}
	if t.MinCashBalance != nil {
		base.MinCashBalance = *t.MinCashBalance
	}
	return base
}

type TriageRequest struct {
	Text       string             `json:"text" validate:"required"`
	Customer   CustomerRequest    `json:"customer"`
	Thresholds *ThresholdsRequest `json:"thresholds,omitempty"`
}

type RunScenarioRequest struct {
	Text       string             `json:"text,omitempty"`
	Thresholds *ThresholdsRequest `json:"thresholds,omitempty"`
}

type TriageResponse struct {
	TicketID        string                `json:"ticket_id"`
	ScenarioID      string                `json:"scenario_id,omitempty"`
	Company         string                `json:"company"`
	Intent          domain.Intent         `json:"intent"`
	IntentLabel     string                `json:"intent_label"`
	Outcome         domain.Outcome        `json:"outcome"`
	RequestedAmount int64                 `json:"requested_amount,omitempty"`
	CoverageRatio   string                `json:"coverage_ratio"`
	Audit           *domain.RiskAudit     `json:"audit,omitempty"`
	Action          domain.Action         `json:"action,omitempty"`
	Message         string                `json:"message,omitempty"`
	InternalNote    string                `json:"internal_note,omitempty"`
	AccountFrozen   bool                  `json:"account_frozen"`
	Thresholds      domain.RiskThresholds `json:"thresholds"`
	DecidedAt       time.Time             `json:"decided_at"`
}

func newTriageResponse(result *processor.Result) TriageResponse {
	d := result.Decision
	return TriageResponse{
		TicketID:        result.Ticket.ID,
		Company:         result.Profile.CompanyName,
		Intent:          d.Intent,
		IntentLabel:     d.Intent.Label(),
		Outcome:         d.Outcome,
		RequestedAmount: d.RequestedAmount,
		CoverageRatio:   d.CoverageRatio.String(),
		Audit:           d.Audit,
		Action:          d.Action,
		Message:         d.Message,
		InternalNote:    d.InternalNote,
		AccountFrozen:   d.AccountFrozen,
		Thresholds:      result.Thresholds,
		DecidedAt:       result.DecidedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *APIHandler) TriageHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req TriageRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.sendDecodeError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.sendError(w, "Ticket text is required", http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	profile, err := h.validator.ParseProfile(req.Customer.raw())
	if err != nil {
		h.sendError(w, "Invalid customer profile", http.StatusBadRequest, "INVALID_PROFILE", err.Error())
		return
	}

	thresholds, ok := h.resolveThresholds(w, req.Thresholds)
	if !ok {
		return
	}

	result, err := h.processor.Process(ctx, domain.NewTicket(req.Text), profile, thresholds)
	if err != nil {
		h.sendError(w, "Triage failed", http.StatusInternalServerError, "PROCESSING_ERROR", err.Error())
		return
	}

	h.sendJSON(w, newTriageResponse(result), http.StatusOK)
}

func (h *APIHandler) ListScenariosHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	scenarios, err := h.scenarios.GetAll(ctx)
	if err != nil {
		h.sendError(w, "Failed to list scenarios", http.StatusInternalServerError, "SERVER_ERROR", err.Error())
		return
	}

	h.sendJSON(w, map[string]interface{}{
		"scenarios": scenarios,
		"count":     len(scenarios),
	}, http.StatusOK)
}

func (h *APIHandler) GetScenarioHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	scenario, ok := h.lookupScenario(ctx, w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	h.sendJSON(w, scenario, http.StatusOK)
}

func (h *APIHandler) RunScenarioHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	scenario, ok := h.lookupScenario(ctx, w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req RunScenarioRequest
	if err := h.decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.sendDecodeError(w, err)
		return
	}

	profile, err := h.validator.ParseProfile(scenario.Customer)
	if err != nil {
		h.sendError(w, "Scenario has an invalid customer profile", http.StatusUnprocessableEntity, "INVALID_PROFILE", err.Error())
		return
	}

	thresholds, ok := h.resolveThresholds(w, req.Thresholds)
	if !ok {
		return
	}

	text := scenario.Ticket
	if req.Text != "" {
		text = req.Text
	}

	result, err := h.processor.Process(ctx, domain.NewTicket(text), profile, thresholds)
	if err != nil {
		h.sendError(w, "Triage failed", http.StatusInternalServerError, "PROCESSING_ERROR", err.Error())
		return
	}

	resp := newTriageResponse(result)
	resp.ScenarioID = scenario.ID
	h.sendJSON(w, resp, http.StatusOK)
}

func (h *APIHandler) BacktestHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	overrides := &ThresholdsRequest{}
	for key, target := range map[string]**int64{
		"auto_approve_limit": &overrides.AutoApproveLimit,
		"min_cash_balance":   &overrides.MinCashBalance,
	} {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.sendError(w, fmt.Sprintf("Invalid %s", key), http.StatusBadRequest, "INVALID_THRESHOLDS", err.Error())
			return
		}
		*target = &n
	}

	thresholds, ok := h.resolveThresholds(w, overrides)
	if !ok {
		return
	}

	scenarios, err := h.scenarios.GetAll(ctx)
	if err != nil {
		h.sendError(w, "Failed to list scenarios", http.StatusInternalServerError, "SERVER_ERROR", err.Error())
		return
	}

	h.sendJSON(w, h.backtester.Run(ctx, scenarios, thresholds), http.StatusOK)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version,
	}
	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) lookupScenario(ctx context.Context, w http.ResponseWriter, id string) (*domain.Scenario, bool) {
	scenario, err := h.scenarios.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.sendError(w, "Scenario not found", http.StatusNotFound, "NOT_FOUND", "")
		} else {
			h.sendError(w, "Failed to get scenario", http.StatusInternalServerError, "SERVER_ERROR", err.Error())
		}
		return nil, false
	}
	return scenario, true
}

func (h *APIHandler) resolveThresholds(w http.ResponseWriter, req *ThresholdsRequest) (domain.RiskThresholds, bool) {
	thresholds := req.apply(h.thresholds)
	if err := h.validator.ValidateThresholds(thresholds); err != nil {
		h.sendError(w, "Invalid risk thresholds", http.StatusBadRequest, "INVALID_THRESHOLDS", err.Error())
		return domain.RiskThresholds{}, false
	}
	return thresholds, true
}

func (h *APIHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func (h *APIHandler) sendDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.sendError(w, "Request body too large", http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE",
			fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
		return
	}
	h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST", err.Error())
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code, details string) {
	errorResponse := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.HealthCheckHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/triage", h.TriageHandler)
		r.Get("/backtest", h.BacktestHandler)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenariosHandler)
			r.Get("/{id}", h.GetScenarioHandler)
			r.Post("/{id}/run", h.RunScenarioHandler)
		})
	})
}

// Router builds the full HTTP surface with request logging, panic recovery
// and CORS in front of the handlers.
func (h *APIHandler) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h.RegisterRoutes(r)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		h.sendJSON(w, map[string]string{"name": "opsengine", "status": "ok"}, http.StatusOK)
	})

	return r
}

func (h *APIHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.logger.Debug("HTTP request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Duration("duration", time.Since(start)))
	})
}
