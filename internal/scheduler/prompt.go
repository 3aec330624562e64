package scheduler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PromptVars carries the values substituted into a role's prompt template.
// Grounded on the teacher's RenderPrompt variable set, narrowed to the
// generic subprocess runtime (spec §1): no opencode/claude runtime branch,
// no solo-mode landing-instructions switch, since every agent here is the
// same kind of external subprocess reading TASK_DIR/RESULT_FILE.
type PromptVars struct {
	TaskID     string
	Role       string
	Worktree   string
	ResultFile string
	Context    string
	Feedback   string
}

// RenderPrompt reads a role's prompt template and substitutes {{...}}
// variables. When promptDir is empty, templates are read from the
// embedded filesystem compiled into the binary; when set, it overrides
// with files from that directory (development/customization), exactly
// as the teacher's prompt_dir config option works.
func RenderPrompt(promptDir, role string, vars PromptVars) (string, error) {
	filename := role + ".md"

	var data []byte
	var err error
	source := "embedded"

	if promptDir == "" {
		data, err = fs.ReadFile(promptsFS, "prompts/"+filename)
		if err != nil {
			return "", fmt.Errorf("reading embedded prompt %s: %w", filename, err)
		}
	} else {
		path := filepath.Join(promptDir, filename)
		source = path
		data, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading prompt %s: %w", path, err)
		}
	}

	rendered := string(data)
	rendered = strings.ReplaceAll(rendered, "{{task_id}}", vars.TaskID)
	rendered = strings.ReplaceAll(rendered, "{{role}}", vars.Role)
	rendered = strings.ReplaceAll(rendered, "{{worktree}}", vars.Worktree)
	rendered = strings.ReplaceAll(rendered, "{{result_file}}", vars.ResultFile)
	rendered = strings.ReplaceAll(rendered, "{{context}}", vars.Context)
	rendered = strings.ReplaceAll(rendered, "{{feedback}}", vars.Feedback)

	// Catch template typos (e.g. "{{ task_id }}" with spaces) that would
	// otherwise leave an unresolved variable in the prompt.
	if strings.Contains(rendered, "{{") {
		return "", fmt.Errorf("unresolved template variable in %s", source)
	}

	return rendered, nil
}
