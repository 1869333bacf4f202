package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/santiagomed/architect/core"
	"github.com/santiagomed/architect/logger"
)

type state int

const (
	Input state = iota
	Processing
	Finished
)

type genFlags struct {
	prompt     string
	promptFile string
	config     string
	outDir     string
	name       string
	window     int
	headless   bool
}

type resultMsg struct {
	res core.Result
}

var pipelineStages = []core.StepType{core.CreatePlan, core.GenerateSections, core.RefineScript}

type generateCmdModel struct {
	textArea       textarea.Model
	spinner        spinner.Model
	progress       progress.Model
	state          state
	request        *core.Request
	flags          genFlags
	completedSteps []core.StepType
	section        sectionMsg
	engine         *core.Engine
	engineCtx      context.Context
	engineCancel   context.CancelFunc
	runCancel      context.CancelFunc
	publisher      *CliStepPublisher
	logger         logger.Logger
	outPath        string
	err            error
}

func newGenerateModel(engine *core.Engine, req *core.Request, f genFlags, l logger.Logger) *generateCmdModel {
	ta := textarea.New()
	ta.Placeholder = "Describe the script you want..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(6)
	ta.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))

	ctx, cancel := context.WithCancel(context.Background())

	m := &generateCmdModel{
		textArea:     ta,
		spinner:      s,
		progress:     progress.New(progress.WithGradient("#FFBA08", "#F48C06"), progress.WithWidth(40)),
		state:        Input,
		request:      req,
		flags:        f,
		engine:       engine,
		engineCtx:    ctx,
		engineCancel: cancel,
		publisher:    NewCliStepPublisher(l),
		logger:       l,
	}
	if req.MasterPrompt != "" {
		m.state = Processing
	}
	return m
}

func (m *generateCmdModel) Init() tea.Cmd {
	if m.state == Processing {
		return tea.Batch(m.spinner.Tick, m.startGeneration())
	}
	return textarea.Blink
}

func (m *generateCmdModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 80 {
			width = 80
		}
		if width > 10 {
			m.textArea.SetWidth(width)
			m.progress.Width = width / 2
		}
		return m, nil
	case core.StepType:
		return m.handleStep(msg)
	case sectionMsg:
		m.section = msg
		return m, m.listenForNextEvent
	case error:
		m.logger.Error(fmt.Sprintf("Error received during generation: %v", msg))
		return m, nil
	case resultMsg:
		return m.handleResult(msg.res)
	case spinner.TickMsg:
		if m.state == Processing {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.state == Input {
		m.textArea, cmd = m.textArea.Update(msg)
	}
	return m, cmd
}

func (m *generateCmdModel) View() string {
	switch m.state {
	case Input:
		return fmt.Sprintf(
			"Welcome to Architect!\n\n%s\n\n%s",
			m.textArea.View(),
			helpStyle("(ctrl+d to generate, esc to quit)"),
		)
	case Processing:
		enumerator := func(l list.Items, i int) string {
			if i < len(m.completedSteps) {
				return checkMark
			}
			return m.spinner.View()
		}

		l := list.New().Enumerator(enumerator)
		for i, step := range pipelineStages {
			if i < len(m.completedSteps) {
				l.Item(stageText(step).past)
			} else if i == len(m.completedSteps) {
				l.Item(m.currentStageText(step))
			}
		}
		return fmt.Sprint(l)
	default:
		return ""
	}
}

func (m *generateCmdModel) currentStageText(step core.StepType) string {
	text := stageText(step).present
	if step != core.GenerateSections || m.section.total == 0 {
		return text
	}
	ratio := float64(m.section.index) / float64(m.section.total)
	return fmt.Sprintf("%s\n%s %d/%d %s",
		text,
		m.progress.ViewAs(ratio),
		m.section.index+1,
		m.section.total,
		lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(m.section.name),
	)
}

func (m *generateCmdModel) Shutdown() {
	if m.runCancel != nil {
		m.runCancel()
	}
	m.engineCancel()
	m.engine.Shutdown(5 * time.Second)
}

// Err is the error the run ended with, if any.
func (m *generateCmdModel) Err() error {
	return m.err
}

// handleKeyPress handles key presses for the application.
func (m *generateCmdModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case Input:
		return m.handleInputState(msg)
	default:
		return m.handleQuit(msg)
	}
}

// handleInputState handles the input state of the application on key press.
func (m *generateCmdModel) handleInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlD:
		return m.handleSubmit()
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.textArea, cmd = m.textArea.Update(msg)
	return m, cmd
}

func (m *generateCmdModel) handleSubmit() (tea.Model, tea.Cmd) {
	v := strings.TrimSpace(m.textArea.Value())

	// No input, quit.
	if v == "" {
		placeholderStyle := lipgloss.NewStyle().Faint(true)
		message := placeholderStyle.Render("No description entered. Exiting...")
		return m, tea.Sequence(tea.Printf("%s", message), tea.Quit)
	}
	m.request.MasterPrompt = v
	m.state = Processing
	placeholderStyle := lipgloss.NewStyle().Faint(true).Width(80)
	message := placeholderStyle.Render(fmt.Sprintf("> %s", v))
	return m, tea.Batch(tea.Printf("%s", message), m.spinner.Tick, m.startGeneration())
}

func (m *generateCmdModel) startGeneration() tea.Cmd {
	ctx, cancel := context.WithCancel(m.engineCtx)
	m.runCancel = cancel
	_, resultChan := m.engine.Submit(ctx, m.request, m.publisher)
	waitForResult := func() tea.Msg {
		return resultMsg{res: <-resultChan}
	}
	return tea.Batch(m.listenForNextEvent, waitForResult)
}

func (m *generateCmdModel) listenForNextEvent() tea.Msg {
	select {
	case step := <-m.publisher.stepChan:
		return step
	case s := <-m.publisher.sectionChan:
		return s
	case err := <-m.publisher.errorChan:
		return err
	}
}

func (m *generateCmdModel) handleStep(step core.StepType) (tea.Model, tea.Cmd) {
	m.logger.Debug(fmt.Sprintf("Received step: %v", step))
	if step != core.Done {
		m.completedSteps = append(m.completedSteps, step)
		return m, tea.Batch(m.spinner.Tick, m.listenForNextEvent)
	}
	return m, nil
}

func (m *generateCmdModel) handleResult(res core.Result) (tea.Model, tea.Cmd) {
	m.state = Finished
	if res.Err != nil {
		m.err = res.Err
		m.logger.Error(fmt.Sprintf("Run %s failed: %v", res.RunID, res.Err))
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))
		return m, tea.Sequence(tea.Printf("%s", errorStyle.Render(describeFailure(res))), tea.Quit)
	}

	path, err := writeScript(m.flags.outDir, m.flags.name, res.Script())
	if err != nil {
		m.err = err
		m.logger.Error(fmt.Sprintf("Failed to write script: %v", err))
		return m, tea.Sequence(tea.Printf("Error: %s", err), tea.Quit)
	}
	m.outPath = path
	m.logger.Info("Script written to " + path)

	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	finalMsg := fmt.Sprintf("%s Script generated: %s", checkMark, nameStyle.Render(path))
	if !res.Refined {
		finalMsg += helpStyle(" (review pass skipped, unreviewed script saved)")
	}
	return m, tea.Sequence(tea.Printf("%s", finalMsg), tea.Quit)
}

// handleQuit handles the quit state of the application on key press.
func (m *generateCmdModel) handleQuit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
		m.logger.Debug("User exited the application")
		if m.runCancel != nil {
			m.runCancel()
		}
		style := lipgloss.NewStyle().Faint(true)
		message := style.Render("Interrupted. Exiting application...")
		return m, tea.Sequence(tea.Printf("%s", message), tea.Quit)
	}
	return m, nil
}

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Render

// runHeadless runs one generation without a terminal UI and writes the script.
func runHeadless(ctx context.Context, engine *core.Engine, req *core.Request, f genFlags, pub *headlessPublisher) (string, error) {
	res := engine.Run(ctx, req, pub)
	if res.Err != nil {
		fmt.Fprintln(pub.out, describeFailure(res))
		return "", fmt.Errorf("generation failed: %w", res.Err)
	}
	return writeScript(f.outDir, f.name, res.Script())
}
