// Package stages defines the derived content stages that run after the
// transcript analysis: the LinkedIn post, hook variants, Twitter thread, SEO
// blog post, newsletter, carousel visuals, translated narration, web research,
// and b-roll suggestions.
//
// Specs builds the stage table consumed by the pipeline orchestrator. Each
// stage is a function of the job's analysis, tone, and transcript plus the
// collaborators supplied in Deps. Prompt text lives in the embedded
// prompts.yaml catalog rather than in code.
package stages
