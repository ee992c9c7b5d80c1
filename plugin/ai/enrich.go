package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/signalwatch/plugin/ai/cache"
	"github.com/hrygo/signalwatch/store"
)

const defaultSuggestion = "Monitor activity"

// Enrichment is the triage added to an event before it is stored.
type Enrichment struct {
	Summary    string
	Severity   store.Severity
	Suggestion string
}

// Enricher classifies an event description. Enrich never fails; an enricher
// that cannot reach its backend answers with the rule-based classification.
type Enricher interface {
	Enrich(ctx context.Context, description string, terms []string) Enrichment
}

// Observer is told how each LLM enrichment was answered.
type Observer interface {
	RecordAICall()
	RecordAIFallback()
}

// NewEnricher returns an LLM-backed enricher when AI is enabled, and the rule enricher otherwise.
func NewEnricher(cfg *Config, observer Observer) (Enricher, error) {
	if cfg == nil || !cfg.Enabled {
		return RuleEnricher{}, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewLLMEnricher(provider, cfg, observer), nil
}

// ============================================================================
// Rule-based enrichment
// ============================================================================

var severityRules = []struct {
	pattern  *regexp.Regexp
	severity store.Severity
}{
	{regexp.MustCompile(`(?i)critical|breach|ransom`), store.SeverityCritical},
	{regexp.MustCompile(`(?i)high|malware|phishing`), store.SeverityHigh},
	{regexp.MustCompile(`(?i)suspicious|alert`), store.SeverityMedium},
}

var suggestions = map[store.Severity]string{
	store.SeverityCritical: "Escalate to the incident response team immediately",
	store.SeverityHigh:     "Block and open an incident ticket",
	store.SeverityMedium:   defaultSuggestion,
	store.SeverityLow:      "Log and keep monitoring",
}

// RuleEnricher classifies by keyword. A watchlist term found in the
// description raises LOW to MED.
type RuleEnricher struct{}

func (RuleEnricher) Enrich(_ context.Context, description string, terms []string) Enrichment {
	severity := store.SeverityLow
	for _, rule := range severityRules {
		if rule.pattern.MatchString(description) {
			severity = rule.severity
			break
		}
	}
	if severity == store.SeverityLow && mentionsAny(description, terms) {
		severity = store.SeverityMedium
	}

	return Enrichment{
		Summary:    summarize(description),
		Severity:   severity,
		Suggestion: suggestions[severity],
	}
}

func mentionsAny(description string, terms []string) bool {
	lower := strings.ToLower(description)
	for _, term := range terms {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" && strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func summarize(description string) string {
	return "Event detected: " + description
}

// ============================================================================
// LLM enrichment
// ============================================================================

const enrichPrompt = `You are a security assistant. Analyze the following event description:

%q

Watchlist terms: %s

1. Summarize it in natural language.
2. Classify severity as one of: LOW, MED, HIGH, CRITICAL. Take into account the watchlist terms.
3. Suggest the next action for an analyst.
Answer in JSON with keys: aiSummary, severity, aiSuggestion.`

type llmAnswer struct {
	AISummary    string `json:"aiSummary"`
	Severity     string `json:"severity"`
	AISuggestion string `json:"aiSuggestion"`
}

// LLMEnricher asks a chat model for the triage and falls back to rules on any failure.
type LLMEnricher struct {
	client   ChatClient
	sem      *semaphore.Weighted
	config   *Config
	fallback Enricher
	observer Observer
	// answers remembers model replies by prompt; nil when disabled.
	answers *cache.LRU[Enrichment]
}

// NewLLMEnricher creates an enricher backed by client. observer may be nil.
func NewLLMEnricher(client ChatClient, cfg *Config, observer Observer) *LLMEnricher {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}
	e := &LLMEnricher{
		client:   client,
		sem:      semaphore.NewWeighted(maxConcurrent),
		config:   cfg,
		fallback: RuleEnricher{},
		observer: observer,
	}
	if cfg.AnswerCacheSize >= 0 {
		e.answers = cache.NewLRU[Enrichment](cfg.AnswerCacheSize, cfg.AnswerCacheTTL)
	}
	return e
}

func (e *LLMEnricher) Enrich(ctx context.Context, description string, terms []string) Enrichment {
	key := promptKey(description, terms)
	if e.answers != nil {
		if cached, ok := e.answers.Get(key); ok {
			return cached
		}
	}

	result, err := e.ask(ctx, description, terms)
	if err != nil {
		slog.ErrorContext(ctx, "AI enrichment failed, using rule-based fallback", slog.String("error", err.Error()))
		if e.observer != nil {
			e.observer.RecordAIFallback()
		}
		return e.fallback.Enrich(ctx, description, terms)
	}
	if e.observer != nil {
		e.observer.RecordAICall()
	}
	if e.answers != nil {
		e.answers.Set(key, result, e.config.AnswerCacheTTL)
	}
	return result
}

// promptKey identifies a prompt. Term order is significant.
func promptKey(description string, terms []string) string {
	h := sha256.New()
	h.Write([]byte(description))
	for _, term := range terms {
		h.Write([]byte{0})
		h.Write([]byte(term))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (e *LLMEnricher) ask(ctx context.Context, description string, terms []string) (Enrichment, error) {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return Enrichment{}, fmt.Errorf("failed to acquire AI slot: %w", err)
	}
	defer e.sem.Release(1)

	prompt := fmt.Sprintf(enrichPrompt, description, strings.Join(terms, ", "))
	raw, err := e.client.Chat(ctx, FormatMessages("", prompt))
	if err != nil {
		return Enrichment{}, err
	}
	return parseAnswer(raw, description)
}

// parseAnswer decodes the model reply, filling absent fields with defaults.
func parseAnswer(raw, description string) (Enrichment, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var answer llmAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &answer); err != nil {
		return Enrichment{}, fmt.Errorf("failed to parse AI answer: %w", err)
	}

	result := Enrichment{
		Summary:    answer.AISummary,
		Severity:   store.SeverityLow,
		Suggestion: answer.AISuggestion,
	}
	if answer.Severity != "" {
		severity, ok := store.ParseSeverity(answer.Severity)
		if !ok {
			return Enrichment{}, fmt.Errorf("unknown severity %q", answer.Severity)
		}
		result.Severity = severity
	}
	if result.Summary == "" {
		result.Summary = summarize(description)
	}
	if result.Suggestion == "" {
		result.Suggestion = defaultSuggestion
	}
	return result, nil
}
