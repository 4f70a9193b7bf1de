// Package advisor answers customer questions and classifies dosha scans
// through an OpenAI-compatible model. Upstream failures never reach the
// caller: they degrade to fixed replies.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/prakamrit/storefront/internal/catalog"
)

const (
	OpConsult = "consult"
	OpScan    = "scan"

	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeOpen     = "circuit_open"

	// MaxQueryLength bounds consult questions.
	MaxQueryLength = 2000
)

var (
	ErrNotConfigured = errors.New("ai advisor is not configured")
	ErrInvalidImage  = errors.New("invalid scan image")
)

var dataURLPrefix = regexp.MustCompile(`^data:image/(png|jpg|jpeg);base64,`)

// Chatter is the completion API the advisor depends on.
type Chatter interface {
	Chat(ctx context.Context, r ChatRequest) (string, error)
}

// Recorder observes upstream call outcomes.
type Recorder interface {
	ObserveAICall(op, outcome string)
}

// ScanResult is the dosha classification of a tongue and skin scan.
type ScanResult struct {
	Dosha          catalog.Dosha `json:"dosha"`
	Analysis       string        `json:"analysis"`
	Recommendation string        `json:"recommendation"`
	Fallback       bool          `json:"fallback,omitempty"`
}

// Advisor guards a Chatter with a circuit breaker.
type Advisor struct {
	chat     Chatter
	breaker  *gobreaker.CircuitBreaker
	logger   zerolog.Logger
	recorder Recorder
}

// Option configures an Advisor.
type Option func(*Advisor)

func WithRecorder(r Recorder) Option {
	return func(a *Advisor) { a.recorder = r }
}

// WithBreakerSettings replaces the circuit breaker settings. Name and
// OnStateChange are filled in when empty.
func WithBreakerSettings(s gobreaker.Settings) Option {
	return func(a *Advisor) { a.breaker = a.newBreaker(s) }
}

// New returns an advisor. A nil chat means no model is configured.
func New(chat Chatter, logger zerolog.Logger, opts ...Option) *Advisor {
	a := &Advisor{
		chat:   chat,
		logger: logger.With().Str("component", "advisor").Logger(),
	}
	a.breaker = a.newBreaker(gobreaker.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Advisor) newBreaker(s gobreaker.Settings) *gobreaker.CircuitBreaker {
	if s.Name == "" {
		s.Name = "ai-advisor"
	}
	if s.OnStateChange == nil {
		s.OnStateChange = func(name string, from, to gobreaker.State) {
			a.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		}
	}
	return gobreaker.NewCircuitBreaker(s)
}

// Configured reports whether a model is available.
func (a *Advisor) Configured() bool {
	return a.chat != nil
}

// Consult answers a customer question. It always returns text to show.
func (a *Advisor) Consult(ctx context.Context, query string) string {
	if !a.Configured() {
		return missingKeyReply
	}
	reply, err := a.call(ctx, OpConsult, ChatRequest{
		Messages: []Message{
			TextMessage(RoleSystem, consultSystemPrompt),
			TextMessage(RoleUser, query),
		},
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		return unavailableReply
	}
	if strings.TrimSpace(reply) == "" {
		return emptyReply
	}
	return reply
}

// Scan classifies tongue and skin images given as base64, optionally with a
// data URL prefix. Upstream or parse failures yield a Vata fallback.
func (a *Advisor) Scan(ctx context.Context, tongue, skin string) (ScanResult, error) {
	if !a.Configured() {
		return ScanResult{}, ErrNotConfigured
	}
	cleanTongue, err := CleanImage(tongue)
	if err != nil {
		return ScanResult{}, fmt.Errorf("tongue: %w", err)
	}
	cleanSkin, err := CleanImage(skin)
	if err != nil {
		return ScanResult{}, fmt.Errorf("skin: %w", err)
	}

	reply, err := a.call(ctx, OpScan, ChatRequest{
		Messages: []Message{{
			Role: RoleUser,
			Content: []Content{
				ImageContent(cleanTongue),
				ImageContent(cleanSkin),
				{Type: "text", Text: scanPrompt},
			},
		}},
		Temperature: 0.2,
		MaxTokens:   400,
		JSON:        true,
	})
	if err != nil {
		return FallbackScan(), nil
	}

	res, err := parseScan(reply)
	if err != nil {
		a.logger.Warn().Err(err).Msg("unusable scan reply")
		a.observe(OpScan, OutcomeFallback)
		return FallbackScan(), nil
	}
	return res, nil
}

// FallbackScan is returned when a scan cannot be classified.
func FallbackScan() ScanResult {
	return ScanResult{
		Dosha:          catalog.Vata,
		Analysis:       fallbackAnalysis,
		Recommendation: fallbackRecommendation,
		Fallback:       true,
	}
}

func (a *Advisor) call(ctx context.Context, op string, r ChatRequest) (string, error) {
	out, err := a.breaker.Execute(func() (interface{}, error) {
		return a.chat.Chat(ctx, r)
	})
	if err != nil {
		outcome := OutcomeFallback
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = OutcomeOpen
		}
		a.logger.Error().Err(err).Str("op", op).Msg("ai call failed")
		a.observe(op, outcome)
		return "", err
	}
	a.observe(op, OutcomeOK)
	return out.(string), nil
}

func (a *Advisor) observe(op, outcome string) {
	if a.recorder != nil {
		a.recorder.ObserveAICall(op, outcome)
	}
}

// CleanImage strips a data URL prefix and rejects empty payloads.
func CleanImage(raw string) (string, error) {
	clean := dataURLPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	if clean == "" {
		return "", ErrInvalidImage
	}
	return clean, nil
}

func parseScan(reply string) (ScanResult, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var raw struct {
		Dosha          string `json:"dosha"`
		Analysis       string `json:"analysis"`
		Recommendation string `json:"recommendation"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &raw); err != nil {
		return ScanResult{}, fmt.Errorf("decode scan reply: %w", err)
	}
	d, err := catalog.ParseDosha(raw.Dosha)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Dosha: d, Analysis: raw.Analysis, Recommendation: raw.Recommendation}, nil
}
