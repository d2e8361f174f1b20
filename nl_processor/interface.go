package nl_processor

import "context"

// LLMClient produces a completion for a prompt. Generate reports which
// underlying model answered, since clients may fall through a list of
// candidates.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (text string, model string, err error)
}

// Result is a rendered parameter string ready to append to the command
// prefix, plus the LLM model that produced it.
type Result struct {
	ParamsText string
	ModelName  string
}

// Options tune a single Process call.
type Options struct {
	AutoAddQualityWords bool
	QualityWords        string
}

// Processor turns a natural language description into validated generation
// command parameters.
type Processor interface {
	Process(ctx context.Context, userInput string, opts Options) (*Result, error)
}
