package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santiagomed/architect/config"
	"github.com/santiagomed/architect/core"
	"github.com/santiagomed/architect/fs"
	"github.com/santiagomed/architect/llm"
	"github.com/santiagomed/architect/logger"
	"github.com/spf13/afero"
)

type stage struct {
	present string
	past    string
}

func stageText(step core.StepType) stage {
	switch step {
	case core.CreatePlan:
		return stage{"Planning sections.", "Planned sections."}
	case core.GenerateSections:
		return stage{"Writing sections.", "Wrote sections."}
	case core.RefineScript:
		return stage{"Reviewing script.", "Reviewed script."}
	default:
		return stage{"Done.", "Done."}
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEngine(cfg *config.Config, l logger.Logger, workers int) *core.Engine {
	return core.NewEngine(func(ctx context.Context, runID string) (llm.LlmClient, error) {
		return llm.NewClient(ctx, cfg.LlmConfig(runID), l.WithField("run_id", runID))
	}, l, workers)
}

// readPrompt returns the prompt given inline or the contents of promptFile.
func readPrompt(osFs afero.Fs, prompt, promptFile string) (string, error) {
	if prompt != "" && promptFile != "" {
		return "", fmt.Errorf("use either --prompt or --file, not both")
	}
	if promptFile != "" {
		b, err := afero.ReadFile(osFs, promptFile)
		if err != nil {
			return "", fmt.Errorf("error reading prompt file: %w", err)
		}
		prompt = string(b)
	}
	return strings.TrimSpace(prompt), nil
}

// requirePrompt is readPrompt for commands that cannot prompt interactively.
func requirePrompt(osFs afero.Fs, prompt, promptFile string) (string, error) {
	prompt, err := readPrompt(osFs, prompt, promptFile)
	if err != nil {
		return "", err
	}
	if prompt == "" {
		return "", fmt.Errorf("a prompt is required (--prompt or --file)")
	}
	return prompt, nil
}

// writeScript saves the artifact under outDir and returns its path.
func writeScript(outDir, name, script string) (string, error) {
	files, err := fs.NewOsFileSystem(outDir)
	if err != nil {
		return "", err
	}
	if err := files.WriteFile(name, script); err != nil {
		return "", err
	}
	return filepath.Join(outDir, name), nil
}

// describeFailure renders a failed run for the terminal, including the raw
// model reply when the plan could not be parsed.
func describeFailure(res core.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generation failed during %s: %v", stageText(res.Stage).present, res.Err)
	if llm.IsFailure(res.Err) {
		b.WriteString("\nThe generation service could not be reached. Check your API key and network, then try again.")
	}
	if raw := res.RawResponse(); raw != "" {
		b.WriteString("\n\nRaw model response:\n")
		b.WriteString(raw)
	}
	return b.String()
}
