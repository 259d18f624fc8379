// Package providers links in every AI provider so their init-time factory
// registrations run. Import it for side effects from any binary that builds a
// client via core.NewClient.
package providers

import (
	_ "github.com/toro-labs/toro-assistant/src/ai/anthropic"
	_ "github.com/toro-labs/toro-assistant/src/ai/openai"
)
