package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santiagomed/architect/core"
	"github.com/santiagomed/architect/fs"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	PlanFile   = "plan.json"
	ReportFile = "REPORT.md"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown describes a run: the request, the plan, the long-term memory and
// the script itself.
func Markdown(masterPrompt string, res core.Result) string {
	var b strings.Builder
	b.WriteString("# Generated script\n\n")

	b.WriteString("## Request\n\n")
	for _, line := range strings.Split(strings.TrimSpace(masterPrompt), "\n") {
		b.WriteString("> " + line + "\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Status: **%s**\n\n", res.Status())
	if res.Err != nil {
		fmt.Fprintf(&b, "Error: `%s`\n\n", res.Err.Error())
	}

	if len(res.Plan) > 0 {
		b.WriteString("## Plan\n\n")
		for i, step := range res.Plan {
			fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, step.SectionName, step.Description)
		}
		b.WriteString("\n")
	}

	if len(res.Summaries) > 0 {
		b.WriteString("## Memory\n\n")
		for _, s := range res.Summaries {
			b.WriteString("- " + s + "\n")
		}
		b.WriteString("\n")
	}

	if script := res.Script(); script != "" {
		if res.Refined {
			b.WriteString("## Script (refined)\n\n")
		} else {
			b.WriteString("## Script\n\n")
		}
		b.WriteString("```python\n")
		b.WriteString(strings.TrimRight(script, "\n"))
		b.WriteString("\n```\n")
	}
	return b.String()
}

// HTML renders the Markdown report.
func HTML(masterPrompt string, res core.Result) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(masterPrompt, res)), &buf); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// Bundle writes the script, the plan and the report of a finished run into an
// in-memory file system ready to be zipped.
func Bundle(masterPrompt string, res core.Result, scriptName string) (*fs.FileSystem, error) {
	if res.Status() != core.StatusReady {
		return nil, fmt.Errorf("run %s is %s, not ready", res.RunID, res.Status())
	}
	files := fs.NewMemoryFileSystem()
	if err := files.WriteFile(scriptName, res.Script()); err != nil {
		return nil, err
	}

	plan, err := json.MarshalIndent(struct {
		Plan core.Plan `json:"plan"`
	}{res.Plan}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := files.WriteFile(PlanFile, string(plan)+"\n"); err != nil {
		return nil, err
	}
	if err := files.WriteFile(ReportFile, Markdown(masterPrompt, res)); err != nil {
		return nil, err
	}
	return files, nil
}
