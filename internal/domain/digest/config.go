package digest

import "time"

// Config configures the digest pipeline.
type Config struct {
	Style            OutputStyle
	StrictValidation bool
	MaxUploadChars   int
	MinUploadChars   int
	MinContentChars  int
	MaxContentChars  int
	MaxKeyPoints     int
	FetchTimeout     time.Duration
	GenerateTimeout  time.Duration
	StreamChunkDelay time.Duration

	Model               string
	Temperature         float32
	TopK                int
	TopP                float32
	StructuredMaxTokens int
	ParagraphMaxTokens  int
}

// DefaultConfig returns the reference limits.
func DefaultConfig() Config {
	return Config{
		Style:               StyleStructured,
		MaxUploadChars:      30000,
		MinUploadChars:      100,
		MinContentChars:     50,
		MaxContentChars:     50000,
		MaxKeyPoints:        5,
		FetchTimeout:        10 * time.Second,
		GenerateTimeout:     30 * time.Second,
		StreamChunkDelay:    50 * time.Millisecond,
		Model:               "gemini-1.5-flash",
		Temperature:         0.3,
		TopK:                40,
		TopP:                0.95,
		StructuredMaxTokens: 1024,
		ParagraphMaxTokens:  2048,
	}
}

// withDefaults fills zero values so partially populated configs stay usable.
// Without a model the sampling settings are taken as a set, since a zero
// temperature is only meaningful for an explicitly configured model.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Model == "" {
		c.Model = def.Model
		c.Temperature = def.Temperature
		c.TopK = def.TopK
		c.TopP = def.TopP
	}
	if c.Temperature < 0 {
		c.Temperature = def.Temperature
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.TopP <= 0 || c.TopP > 1 {
		c.TopP = def.TopP
	}
	if !c.Style.Valid() {
		c.Style = def.Style
	}
	if c.MaxUploadChars <= 0 {
		c.MaxUploadChars = def.MaxUploadChars
	}
	if c.MinUploadChars <= 0 {
		c.MinUploadChars = def.MinUploadChars
	}
	if c.MinContentChars <= 0 {
		c.MinContentChars = def.MinContentChars
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = def.MaxContentChars
	}
	if c.MaxKeyPoints <= 0 {
		c.MaxKeyPoints = def.MaxKeyPoints
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = def.FetchTimeout
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = def.GenerateTimeout
	}
	if c.StructuredMaxTokens <= 0 {
		c.StructuredMaxTokens = def.StructuredMaxTokens
	}
	if c.ParagraphMaxTokens <= 0 {
		c.ParagraphMaxTokens = def.ParagraphMaxTokens
	}
	return c
}

func (c Config) maxTokens(style OutputStyle) int {
	if style == StyleParagraph {
		return c.ParagraphMaxTokens
	}
	return c.StructuredMaxTokens
}
