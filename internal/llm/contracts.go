package llm

import "context"

// GenerateOptions tunes a single model call. Zero values mean "use the client default".
type GenerateOptions struct {
	Temperature *float32
	MaxTokens   int
}

type Option func(*GenerateOptions)

func WithTemperature(t float32) Option {
	return func(o *GenerateOptions) { o.Temperature = &t }
}

func WithMaxTokens(n int) Option {
	return func(o *GenerateOptions) { o.MaxTokens = n }
}

// Apply folds opts over a zero GenerateOptions.
func Apply(opts ...Option) GenerateOptions {
	var o GenerateOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// VisionModel reads an instruction plus one inline binary and answers with free text.
type VisionModel interface {
	GenerateWithMedia(ctx context.Context, instruction string, data []byte, mimeType string, opts ...Option) (string, error)
}

// TextModel answers a text-only prompt with free text.
type TextModel interface {
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)
}
