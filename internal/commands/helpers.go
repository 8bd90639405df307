package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rachealIC/infra-review-cli/internal/enrich"
)

// enhanceError wraps an error with context and suggestions for common AWS issues.
func enhanceError(action string, err error) error {
	msg := err.Error()

	var hint string
	switch {
	case strings.Contains(msg, "NoCredentialProviders") || strings.Contains(msg, "failed to retrieve credentials"):
		hint = "Configure AWS credentials: set AWS_PROFILE, AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, or run 'aws configure'"
	case strings.Contains(msg, "ExpiredToken"):
		hint = "AWS session token expired. Refresh credentials or run 'aws sso login'"
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "UnauthorizedAccess"):
		hint = "Insufficient permissions. Apply the IAM policy from 'infra-review init' to your role/user"
	case strings.Contains(msg, "RequestExpired"):
		hint = "Request expired. Check system clock synchronization"
	case strings.Contains(msg, "Throttling"):
		hint = "AWS API rate limit hit. Retry with fewer regions or increase timeout"
	case errors.Is(err, enrich.ErrNoProviders):
		hint = fmt.Sprintf("Set %s, %s or %s, or pass --no-ai", enrich.EnvClaudeKey, enrich.EnvGeminiKey, enrich.EnvOpenAIKey)
	case strings.Contains(msg, "yaml:"):
		hint = "Fix the syntax in .infra-review.yaml or run 'infra-review init --force' to regenerate it"
	}

	if hint != "" {
		return fmt.Errorf("%s: %w\n  hint: %s", action, err, hint)
	}
	return fmt.Errorf("%s: %w", action, err)
}
