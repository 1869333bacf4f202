package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/santiagomed/architect/core"
	"github.com/santiagomed/architect/logger"
	"github.com/santiagomed/architect/server"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))

var rootCmd = &cobra.Command{
	Use:   "architect",
	Short: "Architect turns a description into a single-file Python script",
	Long: `Architect plans a script as an ordered list of sections, writes each section with a
rolling memory of what came before, then reviews the assembled file in one final pass.`,
}

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a script from a description",
	Run: func(cmd *cobra.Command, args []string) {
		flags, err := parseGenFlags(cmd)
		if err != nil {
			fmt.Printf("Error parsing flags: %v\n", err)
			os.Exit(1)
		}

		prompt, err := readPrompt(afero.NewOsFs(), flags.prompt, flags.promptFile)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			os.Exit(1)
		}

		cfg, err := loadConfig(flags.config)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error loading config: %v", err)))
			os.Exit(1)
		}
		if flags.name == "" {
			flags.name = cfg.OutputFile
		}

		InitLogger()
		l := GetLogger()
		l.Debug("Initializing Architect CLI")

		engine := newEngine(cfg, l, 1)
		req := cfg.Request(prompt, flags.window)

		if flags.headless {
			if prompt == "" {
				fmt.Println(errorStyle.Render("A prompt is required with --headless"))
				os.Exit(1)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			engine.Start(ctx)
			path, err := runHeadless(ctx, engine, req, flags, &headlessPublisher{out: os.Stdout})
			engine.Shutdown(5 * time.Second)
			if err != nil {
				os.Exit(1)
			}
			fmt.Printf("%s Script generated: %s\n", checkMark, path)
			return
		}

		model := newGenerateModel(engine, req, flags, l)
		engine.Start(model.engineCtx)

		p := tea.NewProgram(model)
		if _, err := p.Run(); err != nil {
			fmt.Printf("Error running program: %v\n", err)
			os.Exit(1)
		}

		model.Shutdown()
		if model.Err() != nil {
			os.Exit(1)
		}
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the section plan for a description without generating code",
	Run: func(cmd *cobra.Command, args []string) {
		prompt, _ := cmd.Flags().GetString("prompt")
		promptFile, _ := cmd.Flags().GetString("file")
		configPath, _ := cmd.Flags().GetString("config")

		prompt, err := requirePrompt(afero.NewOsFs(), prompt, promptFile)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			os.Exit(1)
		}
		cfg, err := loadConfig(configPath)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error loading config: %v", err)))
			os.Exit(1)
		}

		InitLogger()
		out, err := runPlan(cmd.Context(), cfg, prompt, GetLogger())
		if err != nil {
			fmt.Println(errorStyle.Render(describeFailure(core.Result{Stage: core.CreatePlan, Err: err})))
			os.Exit(1)
		}
		fmt.Print(out)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generation pipeline over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		l := logger.NewConsole(zerolog.InfoLevel)
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine := newEngine(cfg, l, cfg.Server.Workers)
		engine.Start(ctx)
		defer engine.Shutdown(10 * time.Second)

		srv := server.New(engine, server.Options{
			ScriptName:    cfg.OutputFile,
			DefaultWindow: cfg.MemoryWindow,
			MaxRuns:       cfg.Server.MaxRuns,
		}, l)
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to custom configuration file")

	genCmd.Flags().StringP("prompt", "p", "", "Description of the script to generate")
	genCmd.Flags().StringP("file", "f", "", "Read the description from a file")
	genCmd.Flags().IntP("window", "w", 0, "Number of recent sections kept verbatim in memory (default from config)")
	genCmd.Flags().StringP("out", "o", ".", "Directory the script is written to")
	genCmd.Flags().StringP("name", "n", "", "File name of the generated script (default from config)")
	genCmd.Flags().Bool("headless", false, "Print progress as plain lines instead of the interactive view")

	planCmd.Flags().StringP("prompt", "p", "", "Description of the script to plan")
	planCmd.Flags().StringP("file", "f", "", "Read the description from a file")

	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
}

func parseGenFlags(cmd *cobra.Command) (genFlags, error) {
	var f genFlags
	var err error
	if f.prompt, err = cmd.Flags().GetString("prompt"); err != nil {
		return genFlags{}, err
	}
	if f.promptFile, err = cmd.Flags().GetString("file"); err != nil {
		return genFlags{}, err
	}
	if f.config, err = cmd.Flags().GetString("config"); err != nil {
		return genFlags{}, err
	}
	if f.window, err = cmd.Flags().GetInt("window"); err != nil {
		return genFlags{}, err
	}
	if f.outDir, err = cmd.Flags().GetString("out"); err != nil {
		return genFlags{}, err
	}
	if f.name, err = cmd.Flags().GetString("name"); err != nil {
		return genFlags{}, err
	}
	if f.headless, err = cmd.Flags().GetBool("headless"); err != nil {
		return genFlags{}, err
	}
	return f, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
