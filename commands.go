package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/video-stream/subtrans/internal/api"
	"github.com/video-stream/subtrans/internal/auth"
	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/history"
	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/metrics"
	"github.com/video-stream/subtrans/internal/orchestrator"
	"github.com/video-stream/subtrans/internal/retry"
	"github.com/video-stream/subtrans/internal/storage"
	"github.com/video-stream/subtrans/internal/subtitle"
	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

type rootOptions struct {
	verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "subtrans",
		Short:         "Translate subtitle files through LLM and machine-translation providers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCommand(opts),
		newTranslateCommand(opts),
		newHistoryCommand(opts),
		newModelsCommand(opts),
	)
	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the translation job queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, false, opts.verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.database.EnsureAdmin(a.cfg.AdminUsername, a.cfg.AdminPassword); err != nil {
				return fmt.Errorf("ensure admin user: %w", err)
			}
			a.logger.Info().Str("username", a.cfg.AdminUsername).Msg("admin user ensured")

			defaults, err := a.defaultSettings()
			if err != nil {
				return err
			}

			svc := orchestrator.New(a.translator, a.history, orchestrator.WithCooldown(a.cooldown))
			runner := orchestrator.NewJobRunner(svc, a.database, a.database, a.cfg.SubtitlePath, metrics.Observe)

			queue := job.NewJobQueue(a.database.DB())
			queue.RegisterHandler(job.JobTranslate, runner.HandleJob)
			queue.Start()
			defer queue.Stop()

			router := api.NewRouter(api.Deps{
				Config:     a.cfg,
				Database:   a.database,
				JWT:        auth.NewJWTService(a.cfg.JWTSecret),
				Queue:      queue,
				History:    a.history,
				Translator: a.translator,
				Defaults:   defaults,
				OnKeys:     a.reloadKeys,
			})

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.cfg.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info().Str("addr", srv.Addr).Str("subtitle_path", a.cfg.SubtitlePath).Msg("starting server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

type translateOptions struct {
	to           string
	provider     string
	model        string
	fallback     []string
	preset       string
	settingsPath string
	outDir       string
}

// parseTargets turns "provider[:model]" values into targets. nil keeps the
// default chain and a single "none" disables fallback.
func parseTargets(values []string, changed bool) []orchestrator.Target {
	if !changed {
		return nil
	}
	targets := []orchestrator.Target{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == "none" {
			continue
		}
		name, model, _ := strings.Cut(v, ":")
		targets = append(targets, orchestrator.Target{Provider: name, Model: model})
	}
	return targets
}

// loadInputs reads and parses every subtitle under paths. Files that fail to
// load are reported to warn and skipped; it errors only when none load.
func loadInputs(paths []string, warn io.Writer) ([]orchestrator.FileInput, error) {
	files, err := storage.CollectSubtitleFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no subtitle files found")
	}

	inputs := make([]orchestrator.FileInput, 0, len(files))
	for _, path := range files {
		in, err := loadInput(path)
		if err != nil {
			fmt.Fprintf(warn, "skipping %s: %v\n", path, err)
			continue
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: %d file(s) rejected", subtitle.ErrNoUsableFiles, len(files))
	}
	return inputs, nil
}

func loadInput(path string) (orchestrator.FileInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return orchestrator.FileInput{}, err
	}
	content, err := subtitle.Decode(raw)
	if err != nil {
		return orchestrator.FileInput{}, err
	}
	doc, err := subtitle.ParseFile(path, content)
	if err != nil {
		return orchestrator.FileInput{}, err
	}
	return orchestrator.FileInput{Name: path, Format: doc.Format, Cues: doc.Cues, Styles: doc.Styles}, nil
}

func newTranslateCommand(opts *rootOptions) *cobra.Command {
	topts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate [flags] <file|dir>...",
		Short: "Translate subtitle files and record them in the history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, true, opts.verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			lock := flock.New(a.cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another translate run is already in progress")
			}
			defer lock.Unlock()

			settings, err := a.defaultSettings()
			if err != nil {
				return err
			}
			if topts.settingsPath != "" {
				if settings, err = config.LoadSettingsFile(topts.settingsPath, settings); err != nil {
					return err
				}
			}
			if settings.PromptTemplate, err = orchestrator.ResolveTemplate(a.database, topts.preset, settings.PromptTemplate); err != nil {
				return err
			}

			inputs, err := loadInputs(args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			total := 0
			for _, in := range inputs {
				total += len(in.Cues)
			}

			out := cmd.ErrOrStderr()
			var bar *progressbar.ProgressBar
			if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(out),
					progressbar.OptionSetDescription("starting"),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWidth(30),
					progressbar.OptionClearOnFinish(),
				)
			}

			observer := func(e retry.Event) {
				switch ev := e.(type) {
				case orchestrator.CueTranslated:
					if bar != nil {
						bar.Add(1)
					}
				case orchestrator.StatusChanged:
					if bar != nil {
						bar.Describe(ev.Status)
					} else if !strings.HasPrefix(ev.Status, "translating") {
						fmt.Fprintln(out, ev.Status)
					}
				case orchestrator.FileCompleted:
					if bar == nil {
						fmt.Fprintf(out, "finished %s (%d cues)\n", ev.File, ev.Cues)
					}
				case retry.RetryScheduled:
					if bar == nil {
						fmt.Fprintf(out, "%s attempt %d failed, retrying in %s\n", ev.Provider, ev.Attempt, ev.Delay)
					}
				}
			}

			svc := orchestrator.New(a.translator, a.history, orchestrator.WithCooldown(a.cooldown))
			batch, runErr := svc.Run(ctx, orchestrator.Request{
				Files:    inputs,
				Language: topts.to,
				Primary:  orchestrator.Target{Provider: topts.provider, Model: topts.model},
				Fallback: parseTargets(topts.fallback, cmd.Flags().Changed("fallback")),
				Settings: settings,
			}, observer)
			if bar != nil {
				bar.Finish()
			}

			for _, f := range batch.Completed() {
				dir := topts.outDir
				if dir == "" {
					dir = filepath.Dir(f.Name)
				}
				path, err := storage.WriteArtifact(dir, storage.ArtifactName(f.Name), f.Output)
				if err != nil {
					return fmt.Errorf("save %s: %w", f.Name, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return runErr
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&topts.to, "to", "t", "", "Target language code (e.g. fa, de)")
	flags.StringVarP(&topts.provider, "provider", "p", translate.ProviderGemini, "Primary provider")
	flags.StringVarP(&topts.model, "model", "m", "", "Model for the primary provider (provider default when empty)")
	flags.StringSliceVar(&topts.fallback, "fallback", nil, "Fallback chain as provider[:model],... (\"none\" disables)")
	flags.StringVar(&topts.preset, "preset", "", "Built-in preset name or saved preset id")
	flags.StringVar(&topts.settingsPath, "settings", "", "TOML file overriding translation settings")
	flags.StringVarP(&topts.outDir, "out", "o", "", "Output directory (defaults to each source file's directory)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var lang string
	var oldest bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), true, opts.verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			entries := a.history.List(history.Query{Language: lang, NewestFirst: !oldest})
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No translations yet.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Timestamp.Local().Format("2006-01-02 15:04"),
					e.Language,
					filepath.Base(e.SourceFileName),
					strings.ToUpper(string(e.FileType)),
					strconv.Itoa(len(e.TranslatedCues)),
					e.ID,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Time", "Lang", "File", "Type", "Cues", "ID"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Only show this target language")
	cmd.Flags().BoolVar(&oldest, "oldest", false, "Oldest first")
	return cmd
}

func newModelsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "models <provider>",
		Short:     "List the models a provider offers",
		Args:      cobra.ExactArgs(1),
		ValidArgs: translate.KnownProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, true, opts.verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			models, err := a.translator.ListModels(ctx, args[0])
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No models available for %s (is an API key configured?)\n", args[0])
				return nil
			}
			rows := make([][]string, 0, len(models))
			for _, m := range models {
				rows = append(rows, []string{m.ID, m.DisplayName})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name"}, rows, nil))
			return nil
		},
	}
}
