package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"repurpose/internal/logging"
	"repurpose/internal/pipeline"
	"repurpose/internal/services"
	"repurpose/internal/services/llm"
	"repurpose/internal/textutil"
)

// Fact-check verdicts used when the model omits one.
const (
	VerdictInconclusive    = "Inconclusive"
	defaultFactExplanation = "Could not verify claim."
)

// ResearchPayload is the research stage output.
type ResearchPayload struct {
	TrendContext string      `json:"trend_context"`
	FactChecks   []FactCheck `json:"fact_checks"`
}

// FactCheck is one verified transcript claim.
type FactCheck struct {
	Claim       string `json:"claim"`
	Verdict     string `json:"verdict"`
	Explanation string `json:"explanation"`
}

// research gathers trend context and fact checks concurrently. Either half
// may fail on its own; the stage fails only when both do.
func (b *builder) research(ctx context.Context, in pipeline.StageInput, _ func(string)) (any, error) {
	if !ready(b.deps.Research) {
		return nil, missingProvider(Research, "tavily")
	}
	logger := logging.WithContext(ctx, b.logger)
	var (
		payload            = ResearchPayload{FactChecks: []FactCheck{}}
		trendErr, factsErr error
		g                  errgroup.Group
	)
	g.Go(func() error {
		payload.TrendContext, trendErr = b.trendContext(ctx, in)
		return nil
	})
	g.Go(func() error {
		var checks []FactCheck
		checks, factsErr = b.factChecks(ctx, in)
		if checks != nil {
			payload.FactChecks = checks
		}
		return nil
	})
	_ = g.Wait()

	if trendErr != nil && factsErr != nil {
		return nil, services.Wrap(services.ErrExternalTool, Research, "research", "trend and fact-check lookups failed", errors.Join(trendErr, factsErr))
	}
	if trendErr != nil {
		logging.WarnWithContext(logger, "trend lookup failed", "research_trend_failed",
			logging.String(logging.FieldImpact, "research delivered without trend context"),
			logging.Error(trendErr),
		)
	}
	if factsErr != nil {
		logging.WarnWithContext(logger, "fact check failed", "research_facts_failed",
			logging.String(logging.FieldImpact, "research delivered without fact checks"),
			logging.Error(factsErr),
		)
	}
	return payload, nil
}

func (b *builder) trendContext(ctx context.Context, in pipeline.StageInput) (string, error) {
	topic := strings.TrimSpace(in.Analysis.BigIdea)
	query := fmt.Sprintf("trending news and current events about %s %d", topic, b.deps.Clock().Year())
	results, err := b.deps.Research.Search(ctx, query, trendResults)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	for i := range results {
		results[i].Content = textutil.Truncate(results[i].Content, trendSnippetChars, "...")
	}
	data := b.promptData(in, 0)
	data.Results = results
	req, err := b.request(promptTrendSystem, promptTrend, data)
	if err != nil {
		return "", err
	}
	summary, err := b.deps.LLM.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

func (b *builder) factChecks(ctx context.Context, in pipeline.StageInput) ([]FactCheck, error) {
	req, err := b.request(promptClaimsSystem, promptClaims, b.promptData(in, researchTranscriptChars))
	if err != nil {
		return nil, err
	}
	req.JSON = true
	raw, err := b.deps.LLM.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	claims, err := ParseClaims(raw)
	if err != nil {
		return nil, err
	}
	if len(claims) > b.deps.Settings.MaxFactChecks {
		claims = claims[:b.deps.Settings.MaxFactChecks]
	}

	tasks := make([]func(context.Context) (FactCheck, error), 0, len(claims))
	for _, claim := range claims {
		tasks = append(tasks, func(ctx context.Context) (FactCheck, error) {
			return b.verify(ctx, in, claim)
		})
	}
	checks := make([]FactCheck, 0, len(tasks))
	for _, res := range pipeline.Join(ctx, tasks) {
		if res.Err != nil {
			logging.WithContext(ctx, b.logger).Debug("claim verification dropped", logging.Error(res.Err))
			continue
		}
		checks = append(checks, res.Value)
	}
	return checks, nil
}

func (b *builder) verify(ctx context.Context, in pipeline.StageInput, claim string) (FactCheck, error) {
	results, err := b.deps.Research.Search(ctx, "is it true that "+claim, verifyResults)
	if err != nil {
		return FactCheck{}, err
	}
	data := b.promptData(in, 0)
	data.Claim = claim
	data.Results = results
	req, err := b.request(promptVerifySystem, promptVerify, data)
	if err != nil {
		return FactCheck{}, err
	}
	req.JSON = true
	raw, err := b.deps.LLM.Complete(ctx, req)
	if err != nil {
		return FactCheck{}, err
	}
	var verdict struct {
		Verdict     string `json:"verdict"`
		Explanation string `json:"explanation"`
	}
	if err := llm.DecodeLLMJSON(raw, &verdict); err != nil {
		return FactCheck{}, err
	}
	check := FactCheck{
		Claim:       claim,
		Verdict:     strings.TrimSpace(verdict.Verdict),
		Explanation: strings.TrimSpace(verdict.Explanation),
	}
	if check.Verdict == "" {
		check.Verdict = VerdictInconclusive
	}
	if check.Explanation == "" {
		check.Explanation = defaultFactExplanation
	}
	return check, nil
}

// ParseClaims reads the claims list from model JSON. When the "claims" key
// is missing, the first key (alphabetically) holding a string list is used.
func ParseClaims(raw string) ([]string, error) {
	var fields map[string]json.RawMessage
	if err := llm.DecodeLLMJSON(raw, &fields); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, Research, "parse claims", "", err)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "claims" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	if _, ok := fields["claims"]; ok {
		keys = append([]string{"claims"}, keys...)
	}
	for _, k := range keys {
		var list []string
		if err := json.Unmarshal(fields[k], &list); err != nil {
			continue
		}
		claims := make([]string, 0, len(list))
		for _, c := range list {
			if c = strings.TrimSpace(c); c != "" {
				claims = append(claims, c)
			}
		}
		return claims, nil
	}
	return []string{}, nil
}
