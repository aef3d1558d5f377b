package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/content-digest/pkg/errors"
	"github.com/yanqian/content-digest/pkg/metrics"
	"github.com/yanqian/content-digest/pkg/util"
)

const (
	statusExtracting = "Extracting content..."
	statusGenerating = "Generating summary..."

	defaultRecentLimit = 10
	maxRecentLimit     = 50
	persistTimeout     = 5 * time.Second
)

var wordEnd = regexp.MustCompile(`\S+`)

// Service exposes the digest pipeline.
type Service interface {
	Summarize(ctx context.Context, req Request) (Result, error)
	// StreamSummary validates req before returning; later failures arrive
	// as a terminal error event. The channel closes after complete or error.
	StreamSummary(ctx context.Context, req Request) (<-chan StreamEvent, error)
	Get(ctx context.Context, id string) (Result, error)
	Recent(ctx context.Context, limit int) ([]Result, error)
}

type service struct {
	cfg        Config
	validator  Validator
	normalizer *Normalizer
	generator  TextGenerator
	history    HistoryRepository
	snapshots  SnapshotStore
	tokens     TokenCounter
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewService is a wire provider for the digest domain. history, snapshots
// and tokens are optional.
func NewService(
	cfg Config,
	normalizer *Normalizer,
	generator TextGenerator,
	history HistoryRepository,
	snapshots SnapshotStore,
	tokens TokenCounter,
	logger *slog.Logger,
) Service {
	cfg = cfg.withDefaults()
	return &service{
		cfg:        cfg,
		validator:  NewValidator(cfg),
		normalizer: normalizer,
		generator:  generator,
		history:    history,
		snapshots:  snapshots,
		tokens:     tokens,
		logger:     logger.With("component", "digest.service"),
		now:        util.NowUTC,
		newID:      uuid.NewString,
	}
}

func (s *service) Summarize(ctx context.Context, req Request) (Result, error) {
	style, err := s.prepare(req)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, req, style, func(StreamEvent) bool { return true })
}

func (s *service) StreamSummary(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	style, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamEvent)
	go func() {
		defer close(out)

		emit := func(ev StreamEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		result, err := s.run(ctx, req, style, emit)
		if err != nil {
			emit(errorEvent(err))
			return
		}
		if !s.streamResult(ctx, result, emit) {
			s.logger.Info("stream abandoned by client", "mode", req.Mode)
			return
		}
		emit(StreamEvent{Type: EventComplete, Stage: StageDone, Metadata: &result})
	}()
	return out, nil
}

func (s *service) Get(ctx context.Context, id string) (Result, error) {
	if s.history == nil {
		return Result{}, newError(CodeHistoryUnavailable, "summary history is not enabled", nil)
	}
	result, ok, err := s.history.Get(ctx, id)
	if err != nil {
		return Result{}, newError(CodeHistoryUnavailable, "failed to load summary", err)
	}
	if !ok {
		return Result{}, newError(CodeNotFound, "summary not found", nil)
	}
	return result, nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]Result, error) {
	if s.history == nil {
		return nil, newError(CodeHistoryUnavailable, "summary history is not enabled", nil)
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	results, err := s.history.ListRecent(ctx, limit)
	if err != nil {
		return nil, newError(CodeHistoryUnavailable, "failed to list summaries", err)
	}
	return results, nil
}

// prepare validates req and resolves the output style.
func (s *service) prepare(req Request) (OutputStyle, error) {
	if err := s.validator.Validate(req); err != nil {
		return "", stageError(StageValidating, err)
	}
	if req.Style != "" {
		return req.Style, nil
	}
	return s.cfg.Style, nil
}

// run executes the stages after validation. notify receives status events
// and returns false once nobody is listening.
func (s *service) run(ctx context.Context, req Request, style OutputStyle, notify func(StreamEvent) bool) (Result, error) {
	start := time.Now()

	notify(StreamEvent{Type: EventStatus, Stage: StageNormalizing, Message: statusExtracting})
	normalized, err := s.normalizer.Normalize(ctx, req.Content, req.InputType)
	if err != nil {
		return Result{}, s.fail(req, stageError(StageNormalizing, err))
	}

	if !req.Mode.Valid() {
		s.logger.Warn("unknown mode, using business template", "mode", req.Mode)
	}
	prompt := BuildPrompt(normalized.Text, req.Mode, style, normalized.SourceLabel)

	notify(StreamEvent{Type: EventStatus, Stage: StageCalling, Message: statusGenerating})
	resp, err := s.generate(ctx, prompt, style)
	if err != nil {
		return Result{}, s.fail(req, stageError(StageCalling, err))
	}

	summary, err := ParseResponse(resp.Text, style, s.cfg.MaxKeyPoints)
	if err != nil {
		return Result{}, s.fail(req, stageError(StageParsing, err))
	}

	result := Result{
		Summary:   summary,
		Metrics:   ComputeMetrics(normalized.Text, SummaryText(summary)),
		Mode:      req.Mode,
		InputType: req.InputType,
		Style:     style,
		Audience:  Audience(req.Mode),
		SourceInfo: SourceInfo{
			Label:     normalized.SourceLabel,
			Title:     normalized.Title,
			Domain:    normalized.Domain,
			URL:       normalized.URL,
			VideoID:   normalized.VideoID,
			Language:  normalized.Language,
			Truncated: normalized.Truncated,
		},
		TokenUsage: s.usage(prompt, resp),
	}
	result.ProcessingTime = util.ElapsedMillis(start)
	result.Timestamp = util.Timestamp(s.now())
	s.persist(ctx, &result, normalized)

	s.logger.Info("digest completed",
		"id", result.ID,
		"mode", req.Mode,
		"input_type", req.InputType,
		"style", style,
		"original_words", result.OriginalWordCount,
		"summary_words", result.SummaryWordCount,
		"processing_ms", result.ProcessingTime,
	)
	return result, nil
}

func (s *service) generate(ctx context.Context, prompt string, style OutputStyle) (GenerateResponse, error) {
	if s.generator == nil {
		return GenerateResponse{}, newError(CodeNotConfigured, "the AI service is not configured; please contact support", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()

	resp, err := s.generator.Generate(callCtx, GenerateRequest{
		Model:           s.cfg.Model,
		Prompt:          prompt,
		Temperature:     s.cfg.Temperature,
		TopK:            s.cfg.TopK,
		TopP:            s.cfg.TopP,
		MaxOutputTokens: s.cfg.maxTokens(style),
	})
	if err != nil {
		return GenerateResponse{}, classifyCallError(ctx, callCtx, err)
	}
	s.logger.Debug("generation finished", "finish_reason", resp.FinishReason, "chars", len(resp.Text))
	return resp, nil
}

func classifyCallError(parent, bounded context.Context, err error) error {
	if parent.Err() != nil {
		return newError(CodeCancelled, "request was cancelled", err)
	}
	if errors.Is(bounded.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return newError(CodeTimeout, "the AI service took too long to respond; try shorter content", err)
	}
	if apperrors.CodeOf(err) != "" {
		return err
	}
	return newError(CodeProviderError, "the AI service request failed", err)
}

func (s *service) usage(prompt string, resp GenerateResponse) *metrics.TokenUsage {
	if !resp.Usage.IsZero() {
		usage := resp.Usage
		return &usage
	}
	if s.tokens == nil {
		return nil
	}
	usage := metrics.NewTokenUsage(s.tokens.Count(prompt), s.tokens.Count(resp.Text))
	usage.Estimated = true
	return &usage
}

// persist archives the source and records the result. Failures are logged.
func (s *service) persist(ctx context.Context, result *Result, normalized NormalizedContent) {
	if s.history == nil && s.snapshots == nil {
		return
	}
	result.ID = s.newID()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if s.snapshots != nil {
		key := fmt.Sprintf("sources/%s.txt", result.ID)
		if err := s.snapshots.Put(ctx, key, []byte(normalized.Text), "text/plain; charset=utf-8"); err != nil {
			s.logger.Warn("source snapshot failed", "id", result.ID, "error", err)
		} else {
			result.SourceInfo.SnapshotKey = key
		}
	}
	if s.history != nil {
		if err := s.history.Save(ctx, *result); err != nil {
			s.logger.Warn("history save failed", "id", result.ID, "error", err)
		}
	}
}

func (s *service) fail(req Request, err error) error {
	s.logger.Warn("digest failed",
		"mode", req.Mode,
		"input_type", req.InputType,
		"code", apperrors.CodeOf(err),
		"stage", apperrors.StageOf(err),
		"error", err,
	)
	return err
}

// streamResult replays the finished summary as cumulative word chunks.
func (s *service) streamResult(ctx context.Context, result Result, emit func(StreamEvent) bool) bool {
	if !emit(StreamEvent{Type: EventTLDRStart}) {
		return false
	}
	if !s.streamText(ctx, result.Summary.TLDR, EventTLDRChunk, nil, emit) {
		return false
	}
	if len(result.Summary.KeyPoints) == 0 {
		return true
	}
	if !emit(StreamEvent{Type: EventKeyPointsStart}) {
		return false
	}
	for i, point := range result.Summary.KeyPoints {
		index := i
		if !s.streamText(ctx, point, EventKeyPointChunk, &index, emit) {
			return false
		}
	}
	return true
}

func (s *service) streamText(ctx context.Context, text string, typ EventType, index *int, emit func(StreamEvent) bool) bool {
	ends := wordEnd.FindAllStringIndex(text, -1)
	for i, loc := range ends {
		if i > 0 && !s.pause(ctx) {
			return false
		}
		ev := StreamEvent{
			Type:       typ,
			Text:       text[:loc[1]],
			Index:      index,
			IsComplete: i == len(ends)-1,
		}
		if !emit(ev) {
			return false
		}
	}
	return true
}

func (s *service) pause(ctx context.Context) bool {
	if s.cfg.StreamChunkDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(s.cfg.StreamChunkDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func errorEvent(err error) StreamEvent {
	code := apperrors.CodeOf(err)
	message := apperrors.MessageOf(err)
	if message == "" {
		message = "unexpected failure"
	}
	return StreamEvent{
		Type:    EventError,
		Message: message,
		Code:    code,
		Stage:   Stage(apperrors.StageOf(err)),
	}
}
