package preflight

import (
	"fmt"
	"strings"

	"repurpose/internal/config"
)

// credentialStages names the stages each optional credential gates.
var credentialStages = map[string]string{
	"pexels.api_key":     "broll",
	"deepl.api_key":      "audio",
	"elevenlabs.api_key": "audio",
	"tavily.api_key":     "research",
}

// CheckCredentials reports every provider secret. A missing required secret
// fails; a missing optional one passes with a note naming the stage it
// disables.
func CheckCredentials(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	creds := cfg.Credentials()
	results := make([]Result, 0, len(creds))
	for _, cred := range creds {
		name := "Credential " + cred.Name
		switch {
		case cred.Present:
			results = append(results, Result{Name: name, Passed: true, Optional: !cred.Required, Detail: "Configured"})
		case cred.Required:
			results = append(results, Result{Name: name, Detail: fmt.Sprintf("Missing (set %s)", cred.EnvVar)})
		default:
			detail := fmt.Sprintf("Not set; %s stage will report a configuration error", credentialStages[cred.Name])
			results = append(results, Result{Name: name, Passed: true, Optional: true, Detail: detail})
		}
	}
	return results
}

// CheckNotificationsFromConfig summarizes the ntfy configuration.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Optional: true, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Optional: true, Detail: "Disabled"}
	}
	var events []string
	if cfg.Notifications.JobCompleted {
		events = append(events, "job completed")
	}
	if cfg.Notifications.Errors {
		events = append(events, "errors")
	}
	if len(events) == 0 {
		return Result{Name: name, Passed: true, Optional: true, Detail: fmt.Sprintf("%s (all events muted)", topic)}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: fmt.Sprintf("%s (%s)", topic, strings.Join(events, ", "))}
}
