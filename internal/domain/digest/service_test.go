package digest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/content-digest/pkg/errors"
	"github.com/yanqian/content-digest/pkg/metrics"
)

const structuredReply = "**TL;DR:** Go is fast.\n\n**Key Points:**\n• Simple syntax\n• Great tooling"

var uploadText = strings.Repeat(articleText+" ", 3)

type fixedCounter struct{ n int }

func (f fixedCounter) Count(string) int { return f.n }

type serviceDeps struct {
	cfg       Config
	generator TextGenerator
	history   HistoryRepository
	snapshots SnapshotStore
	tokens    TokenCounter
}

func newTestService(t *testing.T, deps serviceDeps) *service {
	t.Helper()
	normalizer := NewNormalizer(deps.cfg, &stubFetcher{}, &stubTranscripts{}, nil, newTestLogger())
	svc := NewService(deps.cfg, normalizer, deps.generator, deps.history, deps.snapshots, deps.tokens, newTestLogger()).(*service)
	svc.newID = func() string { return "fixed-id" }
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc
}

func uploadRequest() Request {
	return Request{Content: uploadText, Mode: ModeCode, InputType: InputUpload}
}

func TestSummarizeUpload(t *testing.T) {
	gen := &stubGenerator{resp: GenerateResponse{
		Text:  structuredReply,
		Usage: metrics.TokenUsage{PromptTokens: 120, CompletionTokens: 20, TotalTokens: 140},
	}}
	history := &stubHistory{}
	snapshots := &stubSnapshots{}
	svc := newTestService(t, serviceDeps{generator: gen, history: history, snapshots: snapshots})

	got, err := svc.Summarize(context.Background(), uploadRequest())
	require.NoError(t, err)

	require.Equal(t, "fixed-id", got.ID)
	require.Equal(t, "Go is fast.", got.Summary.TLDR)
	require.Equal(t, []string{"Simple syntax", "Great tooling"}, got.Summary.KeyPoints)
	require.Equal(t, WordCount(uploadText), got.OriginalWordCount)
	require.Equal(t, 7, got.SummaryWordCount)
	require.Equal(t, ModeCode, got.Mode)
	require.Equal(t, InputUpload, got.InputType)
	require.Equal(t, StyleStructured, got.Style)
	require.Equal(t, "Developers", got.Audience)
	require.Equal(t, labelDirectInput, got.SourceInfo.Label)
	require.Equal(t, "sources/fixed-id.txt", got.SourceInfo.SnapshotKey)
	require.Equal(t, "2026-01-02T03:04:05Z", got.Timestamp)
	require.GreaterOrEqual(t, got.ProcessingTime, int64(0))
	require.Equal(t, &metrics.TokenUsage{PromptTokens: 120, CompletionTokens: 20, TotalTokens: 140}, got.TokenUsage)

	require.Equal(t, 1, gen.calls)
	require.Equal(t, "gemini-1.5-flash", gen.lastReq.Model)
	require.Equal(t, 1024, gen.lastReq.MaxOutputTokens)
	require.InDelta(t, 0.3, gen.lastReq.Temperature, 1e-6)
	require.Equal(t, 40, gen.lastReq.TopK)
	require.Contains(t, gen.lastReq.Prompt, "Source: "+labelDirectInput)
	require.Contains(t, gen.lastReq.Prompt, "Developers")

	require.Len(t, history.saved, 1)
	require.Equal(t, "fixed-id", history.saved[0].ID)
	require.Equal(t, "2026-01-02T03:04:05Z", history.saved[0].Timestamp)
	require.Equal(t, []string{"sources/fixed-id.txt"}, snapshots.keys)
}

func TestSummarizeParagraphStyle(t *testing.T) {
	gen := &stubGenerator{resp: GenerateResponse{Text: "  First paragraph.\n\nSecond paragraph.  "}}
	svc := newTestService(t, serviceDeps{generator: gen})

	req := uploadRequest()
	req.Style = StyleParagraph
	got, err := svc.Summarize(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, "First paragraph.\n\nSecond paragraph.", got.Summary.TLDR)
	require.Empty(t, got.Summary.KeyPoints)
	require.Equal(t, StyleParagraph, got.Style)
	require.Equal(t, 2048, gen.lastReq.MaxOutputTokens)
	require.Empty(t, got.ID)
	require.Nil(t, got.TokenUsage)
}

func TestSummarizeConfiguredStyle(t *testing.T) {
	gen := &stubGenerator{resp: GenerateResponse{Text: "Prose only."}}
	svc := newTestService(t, serviceDeps{cfg: Config{Style: StyleParagraph}, generator: gen})

	got, err := svc.Summarize(context.Background(), uploadRequest())
	require.NoError(t, err)
	require.Equal(t, StyleParagraph, got.Style)
	require.Equal(t, "Prose only.", got.Summary.TLDR)
}

func TestSummarizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		deps   serviceDeps
		req    Request
		code   string
		stage  Stage
		called bool
	}{
		{
			name:  "validation",
			deps:  serviceDeps{generator: &stubGenerator{}},
			req:   Request{Mode: ModeBusiness, InputType: InputUpload},
			code:  CodeMissingField,
			stage: StageValidating,
		},
		{
			name:  "unknown mode",
			deps:  serviceDeps{generator: &stubGenerator{}},
			req:   Request{Content: uploadText, Mode: "pirate", InputType: InputUpload},
			code:  CodeInvalidMode,
			stage: StageValidating,
		},
		{
			name:  "normalization",
			deps:  serviceDeps{generator: &stubGenerator{}},
			req:   Request{Content: "ftp://example.com", Mode: ModeBusiness, InputType: InputURL},
			code:  CodeInvalidURL,
			stage: StageNormalizing,
		},
		{
			name:  "not configured",
			deps:  serviceDeps{},
			req:   uploadRequest(),
			code:  CodeNotConfigured,
			stage: StageCalling,
		},
		{
			name:   "provider code kept",
			deps:   serviceDeps{generator: &stubGenerator{err: apperrors.Wrap(CodeQuotaExceeded, "quota", nil)}},
			req:    uploadRequest(),
			code:   CodeQuotaExceeded,
			stage:  StageCalling,
			called: true,
		},
		{
			name:   "uncoded provider failure",
			deps:   serviceDeps{generator: &stubGenerator{err: errors.New("boom")}},
			req:    uploadRequest(),
			code:   CodeProviderError,
			stage:  StageCalling,
			called: true,
		},
		{
			name:   "empty response",
			deps:   serviceDeps{generator: &stubGenerator{resp: GenerateResponse{Text: "   "}}},
			req:    uploadRequest(),
			code:   CodeEmptyResponse,
			stage:  StageParsing,
			called: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newTestService(t, tt.deps)
			_, err := svc.Summarize(context.Background(), tt.req)
			require.Error(t, err)
			require.Equal(t, tt.code, apperrors.CodeOf(err))
			require.Equal(t, string(tt.stage), apperrors.StageOf(err))
			if gen, ok := tt.deps.generator.(*stubGenerator); ok {
				require.Equal(t, tt.called, gen.calls > 0)
			}
		})
	}
}

func TestSummarizeTimeout(t *testing.T) {
	gen := &stubGenerator{block: true}
	svc := newTestService(t, serviceDeps{cfg: Config{GenerateTimeout: 20 * time.Millisecond}, generator: gen})

	_, err := svc.Summarize(context.Background(), uploadRequest())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, CodeTimeout))
	require.Equal(t, string(StageCalling), apperrors.StageOf(err))
}

func TestSummarizeCancelled(t *testing.T) {
	gen := &stubGenerator{block: true}
	svc := newTestService(t, serviceDeps{generator: gen})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := svc.Summarize(ctx, uploadRequest())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, CodeCancelled))
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestSummarizeEstimatesTokens(t *testing.T) {
	gen := &stubGenerator{resp: GenerateResponse{Text: structuredReply}}
	svc := newTestService(t, serviceDeps{generator: gen, tokens: fixedCounter{n: 7}})

	got, err := svc.Summarize(context.Background(), uploadRequest())
	require.NoError(t, err)
	require.Equal(t, &metrics.TokenUsage{PromptTokens: 7, CompletionTokens: 7, TotalTokens: 14, Estimated: true}, got.TokenUsage)
}

func TestSummarizeHistoryFailureIsNotFatal(t *testing.T) {
	gen := &stubGenerator{resp: GenerateResponse{Text: structuredReply}}
	history := &stubHistory{saveErr: errors.New("db down")}
	svc := newTestService(t, serviceDeps{generator: gen, history: history})

	got, err := svc.Summarize(context.Background(), uploadRequest())
	require.NoError(t, err)
	require.Equal(t, "fixed-id", got.ID)
}

func collect(t *testing.T, ch <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}
}

func eventTypes(events []StreamEvent) []EventType {
	types := make([]EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func TestStreamSummary(t *testing.T) {
	gen := &stubGenerator{resp: GenerateResponse{Text: structuredReply}}
	svc := newTestService(t, serviceDeps{generator: gen})

	ch, err := svc.StreamSummary(context.Background(), uploadRequest())
	require.NoError(t, err)
	events := collect(t, ch)

	require.Equal(t, []EventType{
		EventStatus, EventStatus,
		EventTLDRStart, EventTLDRChunk, EventTLDRChunk, EventTLDRChunk,
		EventKeyPointsStart, EventKeyPointChunk, EventKeyPointChunk, EventKeyPointChunk, EventKeyPointChunk,
		EventComplete,
	}, eventTypes(events))

	require.Equal(t, StageNormalizing, events[0].Stage)
	require.Equal(t, StageCalling, events[1].Stage)

	require.Equal(t, "Go", events[3].Text)
	require.Equal(t, "Go is", events[4].Text)
	require.Equal(t, "Go is fast.", events[5].Text)
	require.False(t, events[4].IsComplete)
	require.True(t, events[5].IsComplete)

	require.Equal(t, "Simple", events[7].Text)
	require.Equal(t, 0, *events[7].Index)
	require.Equal(t, "Simple syntax", events[8].Text)
	require.True(t, events[8].IsComplete)
	require.Equal(t, "Great tooling", events[10].Text)
	require.Equal(t, 1, *events[10].Index)

	final := events[len(events)-1]
	require.NotNil(t, final.Metadata)
	require.Equal(t, "Go is fast.", final.Metadata.Summary.TLDR)
	require.Equal(t, "Developers", final.Metadata.Audience)
}

func TestStreamSummaryNonASCIIReplyCompletes(t *testing.T) {
	reply := strings.Repeat("Ⱥ", 40) + "\n**TL;DR:** Résumé prêt.\n**Key Points:**\n• Première idée"
	gen := &stubGenerator{resp: GenerateResponse{Text: reply}}
	svc := newTestService(t, serviceDeps{generator: gen})

	ch, err := svc.StreamSummary(context.Background(), uploadRequest())
	require.NoError(t, err)
	events := collect(t, ch)

	final := events[len(events)-1]
	require.Equal(t, EventComplete, final.Type)
	require.Equal(t, "Résumé prêt.", final.Metadata.Summary.TLDR)
	require.Equal(t, []string{"Première idée"}, final.Metadata.Summary.KeyPoints)
}

func TestStreamSummaryParagraphSkipsKeyPoints(t *testing.T) {
	gen := &stubGenerator{resp: GenerateResponse{Text: "One two."}}
	svc := newTestService(t, serviceDeps{generator: gen})

	req := uploadRequest()
	req.Style = StyleParagraph
	ch, err := svc.StreamSummary(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, []EventType{
		EventStatus, EventStatus, EventTLDRStart, EventTLDRChunk, EventTLDRChunk, EventComplete,
	}, eventTypes(collect(t, ch)))
}

func TestStreamSummaryValidationFailsBeforeStream(t *testing.T) {
	svc := newTestService(t, serviceDeps{generator: &stubGenerator{}})

	ch, err := svc.StreamSummary(context.Background(), Request{Content: "x", Mode: ModeBusiness})
	require.Error(t, err)
	require.Nil(t, ch)
	require.True(t, apperrors.IsCode(err, CodeInvalidInputType))
}

func TestStreamSummaryErrorEvent(t *testing.T) {
	gen := &stubGenerator{err: apperrors.Wrap(CodeSafetyBlocked, "content was blocked by safety filters", nil)}
	svc := newTestService(t, serviceDeps{generator: gen})

	ch, err := svc.StreamSummary(context.Background(), uploadRequest())
	require.NoError(t, err)
	events := collect(t, ch)

	require.Equal(t, []EventType{EventStatus, EventStatus, EventError}, eventTypes(events))
	last := events[len(events)-1]
	require.Equal(t, CodeSafetyBlocked, last.Code)
	require.Equal(t, StageCalling, last.Stage)
	require.Equal(t, "content was blocked by safety filters", last.Message)
}

func TestStreamSummaryStopsWhenClientLeaves(t *testing.T) {
	gen := &stubGenerator{resp: GenerateResponse{Text: structuredReply}}
	svc := newTestService(t, serviceDeps{cfg: Config{StreamChunkDelay: time.Hour}, generator: gen})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := svc.StreamSummary(ctx, uploadRequest())
	require.NoError(t, err)

	for ev := range ch {
		if ev.Type == EventTLDRChunk {
			cancel()
		}
	}
	cancel()
}

func TestGetAndRecent(t *testing.T) {
	gen := &stubGenerator{resp: GenerateResponse{Text: structuredReply}}
	history := &stubHistory{}
	svc := newTestService(t, serviceDeps{generator: gen, history: history})

	saved, err := svc.Summarize(context.Background(), uploadRequest())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	require.Equal(t, saved.Summary, got.Summary)

	_, err = svc.Get(context.Background(), "missing")
	require.True(t, apperrors.IsCode(err, CodeNotFound))

	recent, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestHistoryDisabled(t *testing.T) {
	svc := newTestService(t, serviceDeps{generator: &stubGenerator{}})

	_, err := svc.Get(context.Background(), "id")
	require.True(t, apperrors.IsCode(err, CodeHistoryUnavailable))
	_, err = svc.Recent(context.Background(), 5)
	require.True(t, apperrors.IsCode(err, CodeHistoryUnavailable))
}
