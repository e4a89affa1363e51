package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scribe/internal/broadcast"
	"scribe/internal/captions"
	"scribe/internal/download"
	"scribe/internal/extract"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/output"
	"scribe/internal/transcript"
)

// Engine selection values.
const (
	EngineAuto     = "auto"
	EngineCaptions = "captions"
	EngineWhisper  = "whisper"
)

// Downloader is the video-fetch collaborator.
type Downloader interface {
	FetchMetadata(ctx context.Context, url string) (download.Metadata, error)
	FetchAudio(ctx context.Context, url, baseName string) (string, error)
	FetchCaptions(ctx context.Context, url, baseName, language string) (string, error)
	Discard(path string) error
}

// Transcriber turns downloaded audio into segments, reporting chunk
// progress as it goes.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, durationSeconds float64, workDir string, onProgress func(done, total int)) ([]transcript.Segment, error)
}

// Summarizer produces a markdown summary of the full transcript text.
type Summarizer interface {
	Summarize(ctx context.Context, req extract.SummaryRequest) (string, error)
}

// DocumentWriter saves the generated markdown documents.
type DocumentWriter interface {
	FilenameBase(title string) string
	SaveTranscript(meta output.Meta, transcriptText, filenameBase string) (string, error)
	SaveSummary(meta output.Meta, summary, filenameBase string) (string, error)
}

// Archiver records terminal jobs for the history surface.
type Archiver interface {
	Record(ctx context.Context, job jobs.Job) error
}

// Options wires an orchestrator's collaborators and policy.
type Options struct {
	Store       *jobs.Store
	Broadcaster *broadcast.Broadcaster
	Downloader  Downloader
	Transcriber Transcriber
	Summarizer  Summarizer
	Writer      DocumentWriter
	Archiver    Archiver

	// Engine is the default strategy when a job does not choose one.
	Engine          string
	CaptionLanguage string
	FFprobeBinary   string
	WorkDir         string
	ExtractEnabled  bool
	Logger          *slog.Logger
}

// Orchestrator runs one job's pipeline to completion.
type Orchestrator struct {
	store       *jobs.Store
	broadcaster *broadcast.Broadcaster
	downloader  Downloader
	transcriber Transcriber
	summarizer  Summarizer
	writer      DocumentWriter
	archiver    Archiver

	engine          string
	captionLanguage string
	ffprobeBinary   string
	workDir         string
	extractEnabled  bool
	logger          *slog.Logger

	parseCaptions func(path string) ([]transcript.Segment, error)
	probeDuration func(ctx context.Context, binary, path string) (float64, error)
}

// New creates an orchestrator from the given options.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	engine := opts.Engine
	if engine == "" {
		engine = EngineAuto
	}
	language := opts.CaptionLanguage
	if language == "" {
		language = "en"
	}
	return &Orchestrator{
		store:           opts.Store,
		broadcaster:     opts.Broadcaster,
		downloader:      opts.Downloader,
		transcriber:     opts.Transcriber,
		summarizer:      opts.Summarizer,
		writer:          opts.Writer,
		archiver:        opts.Archiver,
		engine:          engine,
		captionLanguage: language,
		ffprobeBinary:   opts.FFprobeBinary,
		workDir:         opts.WorkDir,
		extractEnabled:  opts.ExtractEnabled,
		logger:          logger,
		parseCaptions:   captions.ParseFile,
		probeDuration:   probeAudioDuration,
	}
}

func probeAudioDuration(ctx context.Context, binary, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, binary, path)
	if err != nil {
		return 0, err
	}
	return result.DurationSeconds(), nil
}

// chunkProgress maps chunk completion into the 25-70% band.
func chunkProgress(done, total int) int {
	if total <= 0 {
		return 25
	}
	return 25 + int(float64(done)/float64(total)*45)
}

// Run executes the pipeline for the given job id. All failures are
// converted into one terminal error snapshot; Run itself never returns
// an error because there is no caller that could handle one.
func (o *Orchestrator) Run(ctx context.Context, jobID string) {
	job, ok := o.store.Get(jobID)
	if !ok {
		o.logger.Warn("job vanished before start", logging.String(logging.FieldJobID, jobID))
		return
	}
	log := o.logger.With(logging.String(logging.FieldJobID, jobID))

	engine := job.Engine
	if engine == "" {
		engine = o.engine
	}

	if _, err := o.apply(jobID, jobs.Update{
		Status:   jobs.Set(jobs.StatusDownloading),
		Phase:    jobs.Set(jobs.PhaseDownload),
		Progress: jobs.Set(5),
		Message:  jobs.Set("Fetching video metadata"),
	}); err != nil {
		log.Error("start transition failed", logging.Error(err))
		return
	}

	meta, err := o.downloader.FetchMetadata(ctx, job.URL)
	if err != nil {
		o.fail(ctx, jobID, "Failed to fetch video metadata", err)
		return
	}
	jobMeta := jobs.Metadata{
		VideoID:         meta.VideoID,
		Title:           meta.Title,
		Author:          meta.Author,
		UploadDate:      meta.UploadDate,
		DurationSeconds: meta.DurationSeconds,
		Description:     meta.Description,
		URL:             meta.URL,
	}
	if jobMeta.Title == "" {
		jobMeta.Title = output.FallbackTitle(meta.VideoID)
	}
	if _, err := o.apply(jobID, jobs.Update{
		Progress: jobs.Set(10),
		Metadata: &jobMeta,
		Message:  jobs.Set("Metadata found: " + jobMeta.Title),
	}); err != nil {
		log.Error("metadata transition failed", logging.Error(err))
		return
	}

	baseName := output.Sanitize(jobMeta.Title)
	segments, source, err := o.produceTranscript(ctx, jobID, job.URL, baseName, engine, jobMeta, log)
	if err != nil {
		o.fail(ctx, jobID, "Transcription failed", err)
		return
	}
	if len(segments) == 0 {
		o.fail(ctx, jobID, "Transcription failed", errors.New("no segments produced"))
		return
	}
	jobMeta.Source = source

	outMeta := output.Meta{
		Title:           jobMeta.Title,
		Author:          jobMeta.Author,
		UploadDate:      jobMeta.UploadDate,
		URL:             jobMeta.URL,
		DurationSeconds: jobMeta.DurationSeconds,
		Description:     jobMeta.Description,
	}
	filenameBase := o.writer.FilenameBase(jobMeta.Title)
	transcriptPath, err := o.writer.SaveTranscript(outMeta, transcript.Render(segments, true), filenameBase)
	if err != nil {
		o.fail(ctx, jobID, "Failed to save transcript", err)
		return
	}
	if _, err := o.apply(jobID, jobs.Update{
		Progress:       jobs.Set(75),
		Metadata:       &jobMeta,
		TranscriptPath: jobs.Set(transcriptPath),
		Message:        jobs.Set("Transcript saved"),
	}); err != nil {
		log.Error("transcript transition failed", logging.Error(err))
		return
	}

	extractWanted := o.extractEnabled && job.ExtractEnabled
	if extractWanted {
		if _, err := o.apply(jobID, jobs.Update{
			Status:   jobs.Set(jobs.StatusExtracting),
			Phase:    jobs.Set(jobs.PhaseExtract),
			Progress: jobs.Set(80),
			Message:  jobs.Set("Extracting key information"),
		}); err != nil {
			log.Error("extract transition failed", logging.Error(err))
			return
		}
		summary, err := o.summarizer.Summarize(ctx, extract.SummaryRequest{
			Title:           jobMeta.Title,
			Author:          jobMeta.Author,
			DurationSeconds: jobMeta.DurationSeconds,
			Transcript:      transcript.FullText(segments),
			Model:           job.LLM,
		})
		if err != nil {
			// The transcript is already on disk; its path stays on the
			// failed job record.
			o.fail(ctx, jobID, "Extraction failed", err)
			return
		}
		summaryPath, err := o.writer.SaveSummary(outMeta, summary, filenameBase)
		if err != nil {
			o.fail(ctx, jobID, "Failed to save summary", err)
			return
		}
		if _, err := o.apply(jobID, jobs.Update{
			Progress:    jobs.Set(95),
			SummaryPath: jobs.Set(summaryPath),
			Message:     jobs.Set("Summary saved"),
		}); err != nil {
			log.Error("summary transition failed", logging.Error(err))
			return
		}
	}

	snap, err := o.apply(jobID, jobs.Update{
		Status:   jobs.Set(jobs.StatusComplete),
		Phase:    jobs.Set(jobs.PhaseComplete),
		Progress: jobs.Set(100),
		Message:  jobs.Set("Processing complete"),
	})
	if err != nil {
		log.Error("complete transition failed", logging.Error(err))
		return
	}
	o.archive(ctx, snap)
	log.Info("job complete",
		logging.String("source", source),
		logging.String("transcript", transcriptPath))
}

// produceTranscript selects the transcription strategy and returns the
// final segments plus the source label ("captions" or the fallback
// engine name).
func (o *Orchestrator) produceTranscript(ctx context.Context, jobID, url, baseName, engine string, meta jobs.Metadata, log *slog.Logger) ([]transcript.Segment, string, error) {
	if engine == EngineAuto || engine == EngineCaptions {
		if _, err := o.apply(jobID, jobs.Update{
			Status:   jobs.Set(jobs.StatusTranscribing),
			Phase:    jobs.Set(jobs.PhaseTranscribe),
			Progress: jobs.Set(15),
			Message:  jobs.Set("Checking for captions"),
		}); err != nil {
			return nil, "", err
		}
		captionPath, err := o.downloader.FetchCaptions(ctx, url, baseName, o.captionLanguage)
		switch {
		case err == nil:
			defer o.discard(captionPath, log)
			segments, parseErr := o.parseCaptions(captionPath)
			if parseErr != nil {
				return nil, "", fmt.Errorf("parse captions: %w", parseErr)
			}
			if _, err := o.apply(jobID, jobs.Update{
				Progress: jobs.Set(70),
				Message:  jobs.Set(fmt.Sprintf("Captions extracted (%d segments)", len(segments))),
			}); err != nil {
				return nil, "", err
			}
			return segments, "captions", nil
		case errors.Is(err, download.ErrCaptionsUnavailable) && engine == EngineAuto:
			log.Info("captions unavailable, falling back to audio transcription")
		default:
			return nil, "", fmt.Errorf("fetch captions: %w", err)
		}
	}

	// Audio path: explicit whisper engine or the auto fallback.
	if _, err := o.apply(jobID, jobs.Update{
		Status:   jobs.Set(jobs.StatusDownloading),
		Phase:    jobs.Set(jobs.PhaseDownload),
		Progress: jobs.Set(15),
		Message:  jobs.Set("Downloading audio"),
	}); err != nil {
		return nil, "", err
	}
	audioPath, err := o.downloader.FetchAudio(ctx, url, baseName)
	if err != nil {
		return nil, "", fmt.Errorf("fetch audio: %w", err)
	}
	defer o.discard(audioPath, log)

	if _, err := o.apply(jobID, jobs.Update{
		Status:   jobs.Set(jobs.StatusTranscribing),
		Phase:    jobs.Set(jobs.PhaseTranscribe),
		Progress: jobs.Set(25),
		Message:  jobs.Set("Transcribing audio"),
	}); err != nil {
		return nil, "", err
	}

	duration := meta.DurationSeconds
	if duration <= 0 {
		probed, probeErr := o.probeDuration(ctx, o.ffprobeBinary, audioPath)
		if probeErr != nil {
			return nil, "", fmt.Errorf("probe audio duration: %w", probeErr)
		}
		duration = probed
	}

	segments, err := o.transcriber.Transcribe(ctx, audioPath, duration, o.workDir, func(done, total int) {
		if _, applyErr := o.apply(jobID, jobs.Update{
			Progress: jobs.Set(chunkProgress(done, total)),
			Message:  jobs.Set(fmt.Sprintf("Transcribed chunk %d of %d", done, total)),
		}); applyErr != nil {
			log.Warn("chunk progress update failed", logging.Error(applyErr))
		}
	})
	if err != nil {
		return nil, "", fmt.Errorf("transcribe audio: %w", err)
	}
	if _, err := o.apply(jobID, jobs.Update{
		Progress: jobs.Set(70),
		Message:  jobs.Set(fmt.Sprintf("Transcription complete (%d segments)", len(segments))),
	}); err != nil {
		return nil, "", err
	}
	return segments, EngineWhisper, nil
}

// apply merges an update and publishes the exact snapshot the store
// committed, so observers and the registry never disagree.
func (o *Orchestrator) apply(jobID string, update jobs.Update) (jobs.Job, error) {
	snap, err := o.store.Update(jobID, update)
	if err != nil {
		return snap, err
	}
	o.broadcaster.Publish(jobID, snap)
	return snap, nil
}

// fail converts a collaborator error into the single terminal error
// snapshot for the job.
func (o *Orchestrator) fail(ctx context.Context, jobID, message string, cause error) {
	o.logger.Error(message,
		logging.String(logging.FieldJobID, jobID),
		logging.Error(cause))
	snap, err := o.apply(jobID, jobs.Update{
		Status:  jobs.Set(jobs.StatusError),
		Phase:   jobs.Set(jobs.PhaseError),
		Message: jobs.Set(message),
		Error:   jobs.Set(fmt.Sprintf("%s: %v", message, cause)),
	})
	if err != nil {
		o.logger.Error("error transition failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
		return
	}
	o.archive(ctx, snap)
}

func (o *Orchestrator) archive(ctx context.Context, snap jobs.Job) {
	if o.archiver == nil {
		return
	}
	if err := o.archiver.Record(ctx, snap); err != nil {
		o.logger.Warn("failed to archive job",
			logging.String(logging.FieldJobID, snap.ID),
			logging.Error(err))
	}
}

func (o *Orchestrator) discard(path string, log *slog.Logger) {
	if err := o.downloader.Discard(path); err != nil {
		log.Warn("failed to remove temporary file",
			logging.String("path", path),
			logging.Error(err))
	}
}
