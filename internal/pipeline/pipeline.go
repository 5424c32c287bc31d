// Package pipeline drives one storyboard through every production stage:
// image sourcing, image download, narration, avatar clips, scene composites,
// final composition and the optional upload. A Pipeline is single use; it
// moves from uninitialized to done (or failed) exactly once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maauso/newsvideo-api/internal/asset"
	"github.com/maauso/newsvideo-api/internal/compositor"
	"github.com/maauso/newsvideo-api/internal/media"
	"github.com/maauso/newsvideo-api/internal/processor"
	"github.com/maauso/newsvideo-api/internal/run/id"
	"github.com/maauso/newsvideo-api/internal/storage"
	"github.com/maauso/newsvideo-api/internal/storyboard"
)

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Stage names published to the Recorder.
const (
	StageSourcing = "image_sourcing"
	StageImages   = "images"
	StageAudio    = "audio"
	StageAvatars  = "avatars"
	StageScenes   = "scenes"
	StageFinal    = "final"
	StageUpload   = "upload"
)

const (
	defaultImageTimeout = 300 * time.Second
	defaultAudioTimeout = 180 * time.Second
)

var (
	// ErrNotInitialized is returned by Execute when Initialize has not
	// succeeded or the pipeline is running or already ran.
	ErrNotInitialized = errors.New("pipeline: not initialized")
	// ErrNoBaseDir is returned when the pipeline has no output base directory.
	ErrNoBaseDir = errors.New("pipeline: base directory is required")
)

// Result is the outcome of Execute.
type Result struct {
	Status         string `json:"status"`
	RunID          string `json:"random_id"`
	ErrorMessage   string `json:"error_message,omitempty"`
	FinalVideoPath string `json:"-"`
	VideoURL       string `json:"video_url,omitempty"`
}

// Succeeded reports whether the run produced a final video.
func (r Result) Succeeded() bool { return r.Status == StatusSuccess }

// Recorder receives lifecycle events for a run.
type Recorder interface {
	RecordStart(ctx context.Context, runID, title string, scenes int)
	RecordProgress(ctx context.Context, runID, stage string, progress int)
	RecordResult(ctx context.Context, res Result)
}

// Uploader publishes a local file and returns its public URL.
type Uploader interface {
	UploadFile(ctx context.Context, localPath, key string) (string, error)
}

// Stages holds the processors the pipeline runs. Sourcing, Characters and
// Uploader are optional.
type Stages struct {
	Sourcing   processor.Processor[[]string, map[int]string]
	Images     processor.Processor[processor.ImageBatch, []processor.Artifact]
	Audio      processor.Processor[processor.AudioBatch, []processor.Artifact]
	Characters processor.Processor[processor.CharacterInput, string]
	Scenes     processor.Processor[compositor.SceneInput, []processor.Artifact]
	Final      processor.Processor[compositor.FinalInput, string]
	Uploader   Uploader
}

// Config holds run-level settings.
type Config struct {
	// BaseDir is the parent of every run directory.
	BaseDir  string
	Branding media.Branding
	// Upload publishes the final video through Stages.Uploader.
	Upload       bool
	ImageTimeout time.Duration
	AudioTimeout time.Duration
}

// Pipeline runs one storyboard.
type Pipeline struct {
	stages   Stages
	cfg      Config
	recorder Recorder
	logger   *slog.Logger

	mu        sync.RWMutex
	state     State
	executing bool
	runID     string
	title   string
	scenes  []storyboard.Scene
	assets  *asset.Manager
	initErr error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder publishes state and progress to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// New creates an uninitialized pipeline.
func New(stages Stages, cfg Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = defaultImageTimeout
	}
	if cfg.AudioTimeout <= 0 {
		cfg.AudioTimeout = defaultAudioTimeout
	}
	p := &Pipeline{
		stages: stages,
		cfg:    cfg,
		logger: logger,
		state:  StateUninitialized,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize validates the storyboard, allocates a run id and creates the run
// directory. It returns false if the storyboard is unusable or the pipeline
// was already initialized; InitError tells why.
func (p *Pipeline) Initialize(sb storyboard.Storyboard) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateUninitialized {
		p.initErr = fmt.Errorf("%w: state %s", ErrInvalidTransition, p.state)
		return false
	}
	if err := sb.Validate(); err != nil {
		p.initErr = err
		p.logger.Warn("storyboard rejected", slog.String("error", err.Error()))
		return false
	}
	if p.cfg.BaseDir == "" {
		p.initErr = ErrNoBaseDir
		return false
	}

	runID := id.Generate()
	assets, err := asset.NewManager(p.cfg.BaseDir, runID)
	if err != nil {
		p.initErr = err
		p.logger.Error("failed to create run directory",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return false
	}

	sb.Normalize()
	p.scenes = append([]storyboard.Scene(nil), sb.Scenes...)
	p.title = sb.Title
	p.runID = runID
	p.assets = assets
	p.initErr = nil
	p.state = StateInitialized

	p.logger.Info("pipeline initialized",
		slog.String("run_id", runID),
		slog.String("title", sb.Title),
		slog.Int("scenes", len(p.scenes)),
	)
	return true
}

// InitError returns the reason the last Initialize call failed.
func (p *Pipeline) InitError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initErr
}

// RunID returns the run id allocated by Initialize.
func (p *Pipeline) RunID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.runID
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Assets returns the run's asset manager, nil before Initialize.
func (p *Pipeline) Assets() *asset.Manager {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.assets
}

// Scenes returns a copy of the scenes with the placements filled so far.
func (p *Pipeline) Scenes() []storyboard.Scene {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]storyboard.Scene(nil), p.scenes...)
}

// Execute runs every stage. A pipeline executes at most once; the error is
// non-nil only when it is not initialized or another call already claimed
// it. Run failures are reported in the Result.
func (p *Pipeline) Execute(ctx context.Context) (res Result, err error) {
	if !p.claim() {
		return Result{}, ErrNotInitialized
	}

	start := time.Now()
	res = Result{RunID: p.runID}
	if p.recorder != nil {
		p.recorder.RecordStart(ctx, p.runID, p.title, len(p.scenes))
	}

	defer func() {
		if r := recover(); r != nil {
			res = p.fail(ctx, res, fmt.Errorf("pipeline: panic: %v", r))
		}
		p.logger.Info("pipeline finished",
			slog.String("run_id", res.RunID),
			slog.String("status", res.Status),
			slog.Duration("elapsed", time.Since(start)),
		)
	}()

	if err := p.processScenes(ctx); err != nil {
		return p.fail(ctx, res, err), nil
	}
	if err := p.transition(ctx, StateScenesProcessed); err != nil {
		return p.fail(ctx, res, err), nil
	}

	final, err := p.finalComposition(ctx)
	if err != nil {
		return p.fail(ctx, res, err), nil
	}
	res.FinalVideoPath = final
	if err := p.transition(ctx, StateComposed); err != nil {
		return p.fail(ctx, res, err), nil
	}

	res.VideoURL = p.upload(ctx, final)

	if err := p.transition(ctx, StateDone); err != nil {
		return p.fail(ctx, res, err), nil
	}
	if err := p.assets.Cleanup(); err != nil {
		p.logger.Warn("failed to clean run temp dir",
			slog.String("run_id", p.runID),
			slog.String("error", err.Error()),
		)
	}

	res.Status = StatusSuccess
	if p.recorder != nil {
		p.recorder.RecordResult(ctx, res)
	}
	return res, nil
}

// processScenes runs the per-scene stages. Only resource errors abort; a
// scene that fails is logged and simply missing from later stages.
func (p *Pipeline) processScenes(ctx context.Context) error {
	if err := p.sourceImages(ctx); err != nil {
		return err
	}
	if err := p.downloadImages(ctx); err != nil {
		return err
	}
	audios, err := p.synthesizeAudio(ctx)
	if err != nil {
		return err
	}
	avatars := p.renderAvatars(ctx, audios)
	return p.composeScenes(ctx, avatars)
}

func (p *Pipeline) sourceImages(ctx context.Context) error {
	if p.stages.Sourcing == nil {
		return nil
	}
	prompts := make([]string, len(p.scenes))
	pending := 0
	for i, sc := range p.scenes {
		if strings.TrimSpace(sc.ImageURL) == "" && strings.TrimSpace(sc.ImagePrompt) != "" {
			prompts[i] = sc.ImagePrompt
			pending++
		}
	}
	if pending == 0 {
		return nil
	}
	p.progress(ctx, StageSourcing, 10)

	sctx, cancel := context.WithTimeout(ctx, p.cfg.ImageTimeout)
	defer cancel()
	urls, err := processor.Execute(sctx, p.stages.Sourcing, processor.NewTracker(StageSourcing), prompts)
	if err != nil {
		return fmt.Errorf("image sourcing: %w", err)
	}
	for i, url := range urls {
		p.scenes[i].ImageURL = url
	}
	return nil
}

func (p *Pipeline) downloadImages(ctx context.Context) error {
	p.progress(ctx, StageImages, 20)

	batch := processor.ImageBatch{
		Refs:      storyboard.Storyboard{Scenes: p.scenes}.ImageRefs(),
		OutputDir: p.assets.Root(),
		Title:     p.title,
	}
	sctx, cancel := context.WithTimeout(ctx, p.cfg.ImageTimeout)
	defer cancel()
	images, err := processor.Execute(sctx, p.stages.Images, processor.NewTracker(StageImages), batch)
	if err != nil {
		return fmt.Errorf("images: %w", err)
	}
	p.register(asset.TypeImage, images)
	return nil
}

func (p *Pipeline) synthesizeAudio(ctx context.Context) (map[int]string, error) {
	p.progress(ctx, StageAudio, 35)

	batch := processor.AudioBatch{
		Narrations: storyboard.Storyboard{Scenes: p.scenes}.Narrations(),
		OutputDir:  p.assets.Root(),
		Title:      p.title,
	}
	sctx, cancel := context.WithTimeout(ctx, p.cfg.AudioTimeout)
	defer cancel()
	audios, err := processor.Execute(sctx, p.stages.Audio, processor.NewTracker(StageAudio), batch)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	if len(audios) != len(p.scenes) {
		p.logger.Warn("narration missing for some scenes",
			slog.String("run_id", p.runID),
			slog.Int("expected", len(p.scenes)),
			slog.Int("produced", len(audios)),
		)
	}
	p.register(asset.TypeAudio, audios)
	return processor.ByIndex(audios), nil
}

// renderAvatars generates one presenter clip per scene that asks for it,
// sequentially. Scenes without audio are skipped.
func (p *Pipeline) renderAvatars(ctx context.Context, audios map[int]string) map[int]string {
	avatars := make(map[int]string)
	if p.stages.Characters == nil {
		return avatars
	}
	p.progress(ctx, StageAvatars, 55)

	for _, sc := range p.scenes {
		if !sc.NeedAvatar {
			continue
		}
		audio, ok := audios[sc.Index]
		if !ok {
			p.logger.Warn("skipping avatar for scene without audio",
				slog.String("run_id", p.runID),
				slog.Int("scene", sc.Index),
			)
			continue
		}
		in := processor.CharacterInput{
			SceneIndex: sc.Index,
			AudioPath:  audio,
			OutputDir:  p.assets.Dir(asset.CharactersDir),
		}
		path, err := processor.Execute(ctx, p.stages.Characters, processor.NewTracker(StageAvatars), in)
		if err != nil {
			p.logger.Warn("avatar generation failed",
				slog.String("run_id", p.runID),
				slog.Int("scene", sc.Index),
				slog.String("error", err.Error()),
			)
			continue
		}
		avatars[sc.Index] = path
		p.register(asset.TypeCharacter, []processor.Artifact{{Index: sc.Index, Path: path}})
	}
	return avatars
}

func (p *Pipeline) composeScenes(ctx context.Context, avatars map[int]string) error {
	p.progress(ctx, StageScenes, 70)

	in := compositor.SceneInput{
		OutputDir:   p.assets.Root(),
		ScenesDir:   p.assets.Dir(asset.ScenesDir),
		ScenePath:   p.assets.ScenePath,
		Title:       p.title,
		Scenes:      p.scenes,
		AvatarPaths: avatars,
	}
	scenes, err := processor.Execute(ctx, p.stages.Scenes, processor.NewTracker(StageScenes), in)
	if err != nil {
		return fmt.Errorf("scenes: %w", err)
	}
	p.register(asset.TypeScene, scenes)
	return nil
}

func (p *Pipeline) finalComposition(ctx context.Context) (string, error) {
	in := compositor.FinalInput{
		RunID:       p.runID,
		OutputDir:   p.assets.Root(),
		TempDir:     p.assets.Dir(asset.TempDir),
		SceneVideos: entriesToArtifacts(p.assets.List(asset.TypeScene)),
		SceneCount:  len(p.scenes),
		Branding:    p.cfg.Branding,
	}
	final, err := processor.Execute(ctx, p.stages.Final, processor.NewTracker(StageFinal), in)
	if err != nil {
		return "", fmt.Errorf("final composition: %w", err)
	}
	p.register(asset.TypeFinal, []processor.Artifact{{Index: 0, Path: final}})
	return final, nil
}

// upload publishes the final video. A failed upload leaves the local file as
// the result and is not fatal.
func (p *Pipeline) upload(ctx context.Context, final string) string {
	if !p.cfg.Upload || p.stages.Uploader == nil {
		return ""
	}
	p.progress(ctx, StageUpload, 97)

	url, err := p.stages.Uploader.UploadFile(ctx, final, storage.RunKey(p.runID, compositor.FinalVideoName))
	if err != nil {
		p.logger.Error("final video upload failed",
			slog.String("run_id", p.runID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	p.logger.Info("final video uploaded",
		slog.String("run_id", p.runID),
		slog.String("url", url),
	)
	return url
}

func (p *Pipeline) register(t asset.Type, artifacts []processor.Artifact) {
	for _, a := range artifacts {
		if err := p.assets.Register(t, a.Index, a.Path); err != nil {
			p.logger.Warn("asset not registered",
				slog.String("run_id", p.runID),
				slog.String("type", string(t)),
				slog.Int("index", a.Index),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (p *Pipeline) claim() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateInitialized || p.executing {
		return false
	}
	p.executing = true
	return true
}

func (p *Pipeline) transition(ctx context.Context, to State) error {
	p.mu.Lock()
	if !canTransition(p.state, to) {
		from := p.state
		p.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	p.state = to
	p.mu.Unlock()

	p.progress(ctx, string(to), progress[to])
	return nil
}

func (p *Pipeline) progress(ctx context.Context, stage string, pct int) {
	p.logger.Debug("pipeline progress",
		slog.String("run_id", p.runID),
		slog.String("stage", stage),
		slog.Int("progress", pct),
	)
	if p.recorder != nil {
		p.recorder.RecordProgress(ctx, p.runID, stage, pct)
	}
}

func (p *Pipeline) fail(ctx context.Context, res Result, err error) Result {
	p.mu.Lock()
	if !p.state.IsTerminal() {
		p.state = StateFailed
	}
	p.mu.Unlock()

	res.Status = StatusError
	res.ErrorMessage = err.Error()
	res.VideoURL = ""
	p.logger.Error("pipeline failed",
		slog.String("run_id", p.runID),
		slog.String("error", err.Error()),
	)
	if p.recorder != nil {
		p.recorder.RecordResult(ctx, res)
	}
	return res
}

func entriesToArtifacts(entries []asset.Entry) []processor.Artifact {
	out := make([]processor.Artifact, len(entries))
	for i, e := range entries {
		out[i] = processor.Artifact{Index: e.Index, Path: e.Path}
	}
	return out
}
