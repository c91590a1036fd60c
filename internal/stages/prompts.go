package stages

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"repurpose/internal/services/tavily"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompt names in the catalog.
const (
	promptAnalysis         = "analysis"
	promptLinkedIn         = "linkedin"
	promptTwitter          = "twitter"
	promptBlog             = "blog"
	promptHookSystem       = "hook_system"
	promptHook             = "hook"
	promptTrendSystem      = "trend_system"
	promptTrend            = "trend"
	promptClaimsSystem     = "claims_system"
	promptClaims           = "claims"
	promptVerifySystem     = "verify_system"
	promptVerify           = "verify"
	promptThumbnailsSystem = "thumbnails_system"
	promptThumbnails       = "thumbnails"
)

var requiredPrompts = []string{
	promptAnalysis, promptLinkedIn, promptTwitter, promptBlog, promptHookSystem, promptHook,
	promptTrendSystem, promptTrend, promptClaimsSystem, promptClaims, promptVerifySystem,
	promptVerify, promptThumbnailsSystem, promptThumbnails,
}

// HookFramework is one opening-line pattern for hook variants.
type HookFramework struct {
	Name        string `yaml:"name" json:"name"`
	Instruction string `yaml:"instruction" json:"instruction"`
}

// Description is the instruction text before its " - " elaboration.
func (f HookFramework) Description() string {
	head, _, _ := strings.Cut(f.Instruction, " - ")
	return strings.TrimSpace(head)
}

type catalogFile struct {
	System         string            `yaml:"system"`
	Prompts        map[string]string `yaml:"prompts"`
	HookFrameworks []HookFramework   `yaml:"hook_frameworks"`
}

// PromptData is the view every prompt template renders against.
type PromptData struct {
	Tone         string
	BigIdea      string
	StrongTakes  []string
	DetectedTone string
	Transcript   string
	MaxTweets    int
	Framework    string
	Instruction  string
	Claim        string
	Results      []tavily.Result
}

// Catalog holds the parsed prompt templates.
type Catalog struct {
	system     *template.Template
	prompts    map[string]*template.Template
	frameworks []HookFramework
}

var templateFuncs = template.FuncMap{"join": strings.Join}

// DefaultCatalog parses the embedded prompt catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultPrompts)
}

// ParseCatalog parses a YAML prompt catalog and checks every prompt is present.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	if strings.TrimSpace(file.System) == "" {
		return nil, fmt.Errorf("prompt catalog: system prompt missing")
	}
	system, err := template.New("system").Funcs(templateFuncs).Option("missingkey=error").Parse(file.System)
	if err != nil {
		return nil, fmt.Errorf("prompt catalog: system: %w", err)
	}
	c := &Catalog{system: system, prompts: make(map[string]*template.Template, len(file.Prompts))}
	for _, name := range requiredPrompts {
		body, ok := file.Prompts[name]
		if !ok || strings.TrimSpace(body) == "" {
			return nil, fmt.Errorf("prompt catalog: %s prompt missing", name)
		}
		tmpl, err := template.New(name).Funcs(templateFuncs).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("prompt catalog: %s: %w", name, err)
		}
		c.prompts[name] = tmpl
	}
	for _, f := range file.HookFrameworks {
		if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Instruction) == "" {
			return nil, fmt.Errorf("prompt catalog: hook framework needs name and instruction")
		}
		c.frameworks = append(c.frameworks, f)
	}
	if len(c.frameworks) == 0 {
		return nil, fmt.Errorf("prompt catalog: no hook frameworks")
	}
	return c, nil
}

// System renders the shared ghostwriter system prompt.
func (c *Catalog) System(data PromptData) (string, error) {
	return execute(c.system, data)
}

// Render renders the named prompt.
func (c *Catalog) Render(name string, data PromptData) (string, error) {
	tmpl, ok := c.prompts[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return execute(tmpl, data)
}

// HookFrameworks returns the configured hook frameworks in catalog order.
func (c *Catalog) HookFrameworks() []HookFramework {
	out := make([]HookFramework, len(c.frameworks))
	copy(out, c.frameworks)
	return out
}

func execute(tmpl *template.Template, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
