// Package explain requests contextual explanations of selected text and
// reduces every outcome to a Result the reader can be shown.
package explain

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/metcalfc/pagepal/internal/api"
	"github.com/metcalfc/pagepal/internal/document"
	"github.com/metcalfc/pagepal/internal/selection"
)

const (
	FailureMessage = "Failed to get explanation."
	EmptyMessage   = "No explanation returned."
)

// Status is the phase of an explanation.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the outcome of an explanation request. Text is the explanation
// on success and the reason on failure.
type Result struct {
	Status Status
	Text   string
}

func Pending() Result              { return Result{Status: StatusPending} }
func Success(text string) Result   { return Result{Status: StatusSuccess, Text: text} }
func Failure(reason string) Result { return Result{Status: StatusFailure, Text: reason} }
func (r Result) Done() bool        { return r.Status != StatusPending }

// Request is everything sent to the explanation service for one selection.
type Request struct {
	Selection     selection.Extraction
	Document      document.Document
	LanguageLevel string
}

func (r Request) payload() api.ExplainRequest {
	return api.ExplainRequest{
		Text:          r.Selection.Raw,
		LanguageLevel: r.LanguageLevel,
		BookTitle:     r.Document.Title,
		BookAuthor:    r.Document.Author,
		BookLanguage:  r.Document.Language,
		ContextBefore: r.Selection.Context.Before,
		ContextAfter:  r.Selection.Context.After,
	}
}

// Explainer is the part of the API client a Requester needs.
type Explainer interface {
	Explain(ctx context.Context, req api.ExplainRequest) (*api.ExplainResponse, error)
}

// Requester sends explanation requests. It never retries.
type Requester struct {
	client  Explainer
	logger  *zap.Logger
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Option configures a Requester.
type Option func(*Requester)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Requester) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRateLimit spaces requests to at most perMinute a minute with the given
// burst. A request waits for its turn while its Result stays pending.
func WithRateLimit(perMinute float64, burst int) Option {
	return func(r *Requester) {
		if perMinute <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perMinute/60), burst)
	}
}

// WithBreaker stops calling the service for cooldown after failures
// consecutive failures. Requests made while it is open fail immediately.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(r *Requester) {
		if failures == 0 {
			return
		}
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "explain",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				r.logger.Info("explanation breaker changed state",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
}

// NewRequester creates a Requester that sends requests through client.
func NewRequester(client Explainer, opts ...Option) *Requester {
	r := &Requester{
		client: client,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Explain sends req and waits for the outcome. It always returns a finished
// Result: failures become Failure, an empty explanation becomes a Success
// carrying EmptyMessage.
func (r *Requester) Explain(ctx context.Context, req Request) Result {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			r.logger.Debug("explanation abandoned while rate limited", zap.Error(err))
			return Failure(FailureMessage)
		}
	}

	resp, err := r.call(ctx, req.payload())
	if err != nil {
		r.logger.Warn("explanation request failed",
			zap.String("document", req.Document.ID),
			zap.Int("selection_words", selection.Words(req.Selection.Text)),
			zap.Error(err))
		return Failure(FailureMessage)
	}

	if resp == nil || resp.Explanation == "" {
		r.logger.Debug("explanation response was empty", zap.String("document", req.Document.ID))
		return Success(EmptyMessage)
	}
	return Success(resp.Explanation)
}

func (r *Requester) call(ctx context.Context, payload api.ExplainRequest) (*api.ExplainResponse, error) {
	if r.breaker == nil {
		return r.client.Explain(ctx, payload)
	}
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.Explain(ctx, payload)
	})
	if err != nil {
		return nil, err
	}
	return out.(*api.ExplainResponse), nil
}
