package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/talentbase/candidate-gateway/internal/store"
)

// StatusTimeout is the result status when the budget elapses while the
// record is still pending. It is a poller-side outcome only; the store never
// holds it.
const StatusTimeout = "timeout"

// DefaultErrorMessage is shown when an error report carries no message.
const DefaultErrorMessage = "the automation service reported an error"

const (
	defaultInterval = time.Second
	defaultBudget   = 30 * time.Second
)

// Status is one observation of a correlation id.
type Status struct {
	Status  string
	Message string
	Data    json.RawMessage
}

// StatusReader reads the current status of a correlation id. Implementations
// return an error only for transport or decode failures; an unknown id reads
// as pending.
type StatusReader interface {
	ReadStatus(ctx context.Context, requestID string) (Status, error)
}

// Result is the terminal outcome of one poll run.
type Result struct {
	Status  string
	Message string
	Data    json.RawMessage
}

// Poller converts the eventually-reported outcome of a dispatched action
// into a synchronous result. Each Wait call is an independent run keyed by
// its own id; concurrent runs do not interfere.
type Poller struct {
	reader   StatusReader
	interval time.Duration
	budget   time.Duration
	logger   *slog.Logger

	// Optional notifications, invoked at most once per Wait call.
	OnSuccess func(data json.RawMessage)
	OnError   func(message string)
	OnTimeout func()
}

// Config holds poller tuning. Zero values fall back to the defaults of a
// 1-second interval and a 30-second budget.
type Config struct {
	Interval time.Duration
	Budget   time.Duration
}

// New creates a poller over the given reader.
func New(reader StatusReader, cfg Config, logger *slog.Logger) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	budget := cfg.Budget
	if budget <= 0 {
		budget = defaultBudget
	}

	return &Poller{
		reader:   reader,
		interval: interval,
		budget:   budget,
		logger:   logger,
	}
}

// Wait polls until a terminal status is observed or the budget elapses.
//
// A success result is the only exit that carries the reported payload. Read
// failures are swallowed and retried until the deadline; they never abort
// the wait. Context cancellation ends the run early with a timeout result.
func (p *Poller) Wait(ctx context.Context, requestID string) Result {
	deadline := time.Now().Add(p.budget)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			p.logger.Warn("Poll run canceled",
				slog.String("request_id", requestID),
			)
			return p.timeoutResult()
		case <-time.After(p.interval):
		}

		status, err := p.reader.ReadStatus(ctx, requestID)
		if err != nil {
			// Transient read failures must not abort the wait.
			p.logger.Debug("Status read failed, retrying",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()),
			)
			continue
		}

		switch status.Status {
		case store.StatusSuccess:
			p.logger.Info("Action confirmed",
				slog.String("request_id", requestID),
			)
			if p.OnSuccess != nil {
				p.OnSuccess(status.Data)
			}
			return Result{Status: store.StatusSuccess, Message: status.Message, Data: status.Data}

		case store.StatusError:
			message := status.Message
			if message == "" {
				message = DefaultErrorMessage
			}
			p.logger.Warn("Action failed",
				slog.String("request_id", requestID),
				slog.String("message", message),
			)
			if p.OnError != nil {
				p.OnError(message)
			}
			return Result{Status: store.StatusError, Message: message}
		}
	}

	p.logger.Warn("Poll budget exhausted",
		slog.String("request_id", requestID),
		slog.Duration("budget", p.budget),
	)
	return p.timeoutResult()
}

func (p *Poller) timeoutResult() Result {
	if p.OnTimeout != nil {
		p.OnTimeout()
	}
	return Result{Status: StatusTimeout}
}
