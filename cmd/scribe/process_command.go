package main

import (
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"scribe/internal/broadcast"
	"scribe/internal/daemon"
	"scribe/internal/jobs"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var engineFlag string
	var llmFlag string
	var noExtract bool

	cmd := &cobra.Command{
		Use:   "process <url>",
		Short: "Process a single video and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			logger, err := ctx.newLogger(true)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}

			store := jobs.NewStore()
			broadcaster := broadcast.New(cfg.Jobs.SubscriberQueue, logger)
			orchestrator := daemon.NewOrchestrator(cfg, store, broadcaster, nil, logger)

			extractEnabled := cfg.Extraction.Enabled && !noExtract
			job := jobs.NewJob(args[0], engineFlag, extractEnabled)
			job.LLM = llmFlag
			if err := store.Create(job); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sub := broadcaster.Subscribe(job.ID)
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				lastMessage := ""
				for snapshot := range sub.Events() {
					if snapshot.Message == lastMessage {
						continue
					}
					lastMessage = snapshot.Message
					fmt.Fprintf(out, "[%3d%%] %s\n", snapshot.Progress, snapshot.Message)
				}
			}()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			orchestrator.Run(runCtx, job.ID)

			broadcaster.Unsubscribe(sub)
			wg.Wait()

			final, ok := store.Get(job.ID)
			if !ok {
				return errors.New("job record lost")
			}
			if final.Status == jobs.StatusError {
				return errors.New(final.Error)
			}
			fmt.Fprintf(out, "Transcript: %s\n", final.TranscriptPath)
			if final.SummaryPath != "" {
				fmt.Fprintf(out, "Summary: %s\n", final.SummaryPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&engineFlag, "engine", "", "Transcription engine (auto, captions, whisper)")
	cmd.Flags().StringVar(&llmFlag, "llm", "", "Override the summarization model for this run")
	cmd.Flags().BoolVar(&noExtract, "no-extract", false, "Skip summary extraction")
	return cmd
}
