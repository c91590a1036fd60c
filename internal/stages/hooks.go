package stages

import (
	"context"
	"errors"
	"strings"

	"repurpose/internal/logging"
	"repurpose/internal/pipeline"
	"repurpose/internal/services"
)

// Hook is one opening line written to a named framework.
type Hook struct {
	Framework   string `json:"framework"`
	Hook        string `json:"hook"`
	Description string `json:"description"`
}

// hooks writes one hook per framework concurrently. Failed frameworks are
// dropped; the stage fails only when none succeed.
func (b *builder) hooks(ctx context.Context, in pipeline.StageInput, _ func(string)) (any, error) {
	frameworks := b.deps.Prompts.HookFrameworks()
	tasks := make([]func(context.Context) (Hook, error), 0, len(frameworks))
	for _, fw := range frameworks {
		tasks = append(tasks, func(ctx context.Context) (Hook, error) {
			data := b.promptData(in, hookTranscriptChars)
			data.Framework = fw.Name
			data.Instruction = fw.Instruction
			req, err := b.request(promptHookSystem, promptHook, data)
			if err != nil {
				return Hook{}, err
			}
			req.Temperature = writingTemperature
			text, err := b.deps.LLM.Complete(ctx, req)
			if err != nil {
				return Hook{}, err
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return Hook{}, services.Wrap(services.ErrExternalTool, Hooks, fw.Name, "empty hook", nil)
			}
			return Hook{Framework: fw.Name, Hook: text, Description: fw.Description()}, nil
		})
	}

	logger := logging.WithContext(ctx, b.logger)
	results := pipeline.Join(ctx, tasks)
	hooks := make([]Hook, 0, len(results))
	var errs []error
	for i, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
			logging.WarnWithContext(logger, "hook variant failed", "hook_variant_failed",
				logging.String("framework", frameworks[i].Name),
				logging.String(logging.FieldImpact, "variant dropped from the hook list"),
				logging.Error(res.Err),
			)
			continue
		}
		hooks = append(hooks, res.Value)
	}
	if len(hooks) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, Hooks, "generate", "every hook framework failed", errors.Join(errs...))
	}
	return hooks, nil
}
