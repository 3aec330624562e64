package scheduler

import "embed"

//go:embed prompts/*.md
var promptsFS embed.FS
