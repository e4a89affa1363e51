package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/api"
	"scribe/internal/broadcast"
	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/download"
	"scribe/internal/extract"
	"scribe/internal/history"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/output"
	"scribe/internal/pipeline"
	"scribe/internal/transcribe"
)

// NewOrchestrator wires the pipeline collaborators from config. The
// archiver may be nil for one-shot runs that keep no history.
func NewOrchestrator(cfg *config.Config, store *jobs.Store, broadcaster *broadcast.Broadcaster, archiver pipeline.Archiver, logger *slog.Logger) *pipeline.Orchestrator {
	downloader := download.NewService(cfg.Tools.YtDlp, cfg.AudioDir())
	engine := transcribe.NewWhisperEngine(
		cfg.Transcription.WhisperBinary,
		cfg.Transcription.WhisperModel,
		cfg.Transcription.CaptionLanguage,
	)
	chunker := transcribe.NewChunker(
		engine,
		cfg.Tools.FFmpeg,
		float64(cfg.Transcription.ChunkSeconds),
		float64(cfg.Transcription.OverlapSeconds),
		cfg.Transcription.DedupBufferSeconds,
		logger,
	)
	chunker.WithMinChunkSeconds(float64(cfg.Transcription.MinChunkSeconds))
	summarizer := extract.NewClient(extract.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return pipeline.New(pipeline.Options{
		Store:           store,
		Broadcaster:     broadcaster,
		Downloader:      downloader,
		Transcriber:     chunker,
		Summarizer:      summarizer,
		Writer:          output.NewWriter(cfg.Paths.OutputDir),
		Archiver:        archiver,
		Engine:          cfg.Transcription.Engine,
		CaptionLanguage: cfg.Transcription.CaptionLanguage,
		FFprobeBinary:   cfg.Tools.FFprobe,
		WorkDir:         cfg.AudioDir(),
		ExtractEnabled:  cfg.Extraction.Enabled,
		Logger:          logger,
	})
}

// Daemon coordinates the background services and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store       *jobs.Store
	broadcaster *broadcast.Broadcaster
	history     *history.Store
	pool        *pipeline.Pool
	api         *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	sweepWG sync.WaitGroup
}

// New constructs a daemon and all of its collaborators from config.
func New(cfg *config.Config, logger *slog.Logger, version string) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store := jobs.NewStore()
	queueSize := cfg.Jobs.SubscriberQueue
	if queueSize <= 0 {
		queueSize = broadcast.DefaultQueueSize
	}
	broadcaster := broadcast.New(queueSize, logger)

	hist, err := history.Open(filepath.Join(cfg.Paths.LogDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	orchestrator := NewOrchestrator(cfg, store, broadcaster, hist, logger)
	pool := pipeline.NewPool(orchestrator, cfg.Jobs.Workers, logger)

	apiServer := api.NewServer(api.Options{
		Bind:        cfg.Paths.APIBind,
		Store:       store,
		Broadcaster: broadcaster,
		History:     hist,
		Submitter:   pool,
		Config:      cfg,
		Version:     version,
		Keepalive:   time.Duration(cfg.Jobs.KeepaliveSeconds) * time.Second,
		Logger:      logger,
	})

	lockPath := filepath.Join(cfg.Paths.LogDir, "scribed.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       store,
		broadcaster: broadcaster,
		history:     hist,
		pool:        pool,
		api:         apiServer,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the worker pool, the
// retention sweeper, and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe daemon instance is already running")
	}

	for _, status := range deps.MissingRequired(deps.CheckBinaries(deps.ForConfig(d.cfg))) {
		d.logger.Warn("required dependency unavailable",
			logging.String("name", status.Name),
			logging.String("detail", status.Detail))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.pool.Start(runCtx)
	if err := d.api.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		d.pool.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.sweepWG.Add(1)
	go func() {
		defer d.sweepWG.Done()
		d.runSweeper(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("scribe daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.Addr()))
	return nil
}

// Stop shuts everything down and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	d.pool.Stop()
	d.sweepWG.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scribe daemon stopped")
}

// Close stops the daemon and releases the history database.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Addr returns the API listen address once started.
func (d *Daemon) Addr() string {
	return d.api.Addr()
}
