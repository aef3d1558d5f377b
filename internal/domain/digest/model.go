package digest

import "github.com/yanqian/content-digest/pkg/metrics"

// Mode selects the audience a digest is written for.
type Mode string

const (
	ModeBusiness Mode = "business"
	ModeStudent  Mode = "student"
	ModeCode     Mode = "code"
	ModeGenZ     Mode = "genZ"
)

// Modes lists every recognized mode in display order.
var Modes = []Mode{ModeBusiness, ModeStudent, ModeCode, ModeGenZ}

// Valid reports whether m is one of the recognized modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeBusiness, ModeStudent, ModeCode, ModeGenZ:
		return true
	}
	return false
}

// InputType selects how raw content is normalized.
type InputType string

const (
	InputURL     InputType = "url"
	InputYouTube InputType = "youtube"
	InputUpload  InputType = "upload"
)

// Valid reports whether t is a supported input type.
func (t InputType) Valid() bool {
	switch t {
	case InputURL, InputYouTube, InputUpload:
		return true
	}
	return false
}

// OutputStyle selects the response convention requested from the model.
type OutputStyle string

const (
	// StyleStructured asks for **TL;DR:** / **Key Points:** markers.
	StyleStructured OutputStyle = "structured"
	// StyleParagraph asks for flowing prose that is displayed as-is.
	StyleParagraph OutputStyle = "paragraph"
)

// Valid reports whether s is a supported output style.
func (s OutputStyle) Valid() bool {
	return s == StyleStructured || s == StyleParagraph
}

// Stage names a step of the pipeline.
type Stage string

const (
	StageValidating       Stage = "validating"
	StageNormalizing      Stage = "normalizing"
	StagePrompting        Stage = "prompting"
	StageCalling          Stage = "calling"
	StageParsing          Stage = "parsing"
	StageComputingMetrics Stage = "computing_metrics"
	StageDone             Stage = "done"
)

// Request represents the incoming summarization payload.
type Request struct {
	Content   string      `json:"content"`
	Mode      Mode        `json:"mode"`
	InputType InputType   `json:"inputType"`
	Style     OutputStyle `json:"style,omitempty"`
}

// NormalizedContent is clean text plus provenance.
type NormalizedContent struct {
	Text        string
	SourceLabel string
	Title       string
	Domain      string
	URL         string
	VideoID     string
	Language    string
	Truncated   bool
}

// Summary is the parsed model output.
type Summary struct {
	TLDR      string   `json:"tldr"`
	KeyPoints []string `json:"keyPoints"`
}

// Metrics holds derived word counts.
type Metrics struct {
	OriginalWordCount   int `json:"originalWordCount"`
	SummaryWordCount    int `json:"summaryWordCount"`
	ReductionPercentage int `json:"reductionPercentage"`
}

// SourceInfo describes where the summarized text came from.
type SourceInfo struct {
	Label       string `json:"label"`
	Title       string `json:"title,omitempty"`
	Domain      string `json:"domain,omitempty"`
	URL         string `json:"url,omitempty"`
	VideoID     string `json:"videoId,omitempty"`
	Language    string `json:"language,omitempty"`
	Truncated   bool   `json:"truncated,omitempty"`
	SnapshotKey string `json:"snapshotKey,omitempty"`
}

// Result is the final pipeline output.
type Result struct {
	ID      string  `json:"id,omitempty"`
	Summary Summary `json:"summary"`
	Metrics
	Mode           Mode                `json:"mode"`
	InputType      InputType           `json:"inputType"`
	Style          OutputStyle         `json:"style"`
	Audience       string              `json:"audience"`
	SourceInfo     SourceInfo          `json:"sourceInfo"`
	ProcessingTime int64               `json:"processingTime"`
	Timestamp      string              `json:"timestamp"`
	TokenUsage     *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// EventType tags a StreamEvent.
type EventType string

const (
	EventStatus         EventType = "status"
	EventTLDRStart      EventType = "tldr_start"
	EventTLDRChunk      EventType = "tldr_chunk"
	EventKeyPointsStart EventType = "keypoints_start"
	EventKeyPointChunk  EventType = "keypoint_chunk"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
)

// StreamEvent is one frame of the streaming variant.
type StreamEvent struct {
	Type       EventType `json:"type"`
	Message    string    `json:"message,omitempty"`
	Stage      Stage     `json:"stage,omitempty"`
	Code       string    `json:"code,omitempty"`
	Text       string    `json:"text,omitempty"`
	Index      *int      `json:"index,omitempty"`
	IsComplete bool      `json:"isComplete,omitempty"`
	Metadata   *Result   `json:"metadata,omitempty"`
}
