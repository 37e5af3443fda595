// Package answer runs the model conversation that produces an answer,
// including the tool loop around course content search.
package answer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/search"
)

// ErrToolLoopExceeded indicates the model kept requesting tools past the
// configured round limit.
var ErrToolLoopExceeded = errors.New("tool loop exceeded maximum rounds")

// fallbackMessage is returned when the model produces an empty final turn.
const fallbackMessage = "I could not produce an answer. Please try rephrasing your question."

// systemPrompt instructs the model on when to search and how to answer.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content, with access to a search tool for course information.

Tool usage:
- Use the search tool only for questions about specific course content or detailed educational materials
- One search per question maximum
- Synthesize search results into accurate, fact-based responses
- If the search yields no results, state this clearly without offering alternatives

Response protocol:
- General knowledge questions: answer from existing knowledge without searching
- Course-specific questions: search first, then answer
- No meta-commentary: provide direct answers only. Do not mention the search process, reasoning, or that you used a tool.

All responses must be brief, concise and focused, educational, clear, and example-supported when helpful.`

// Engine drives the model's tool loop.
//
// Each round the model either returns a final text answer or requests tool
// calls. The engine executes the requests itself (generation is configured
// to hand tool requests back rather than auto-run them), feeds the outputs
// back as a tool turn, and generates again. A model that never stops
// requesting tools is cut off after MaxRounds with ErrToolLoopExceeded.
type Engine struct {
	g         *genkit.Genkit
	tool      *search.Tool
	toolRef   ai.Tool
	modelName string
	maxRounds int
	limiter   *rate.Limiter
	logger    log.Logger
}

// Config holds the engine dependencies.
type Config struct {
	Genkit    *genkit.Genkit
	Tool      *search.Tool // executes search requests
	ToolRef   ai.Tool      // registered schema handed to generate calls
	ModelName string       // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	MaxRounds int          // tool rounds before giving up (default 5)

	// RateLimiter throttles model calls. Nil gets a default of
	// 10 requests/sec sustained with a burst of 30.
	RateLimiter *rate.Limiter

	Logger log.Logger
}

// Result is a finished answer with the citations gathered along the way.
type Result struct {
	Text      string
	Citations []search.Citation
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Genkit == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if cfg.Tool == nil || cfg.ToolRef == nil {
		return nil, fmt.Errorf("search tool is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 5
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Engine{
		g:         cfg.Genkit,
		tool:      cfg.Tool,
		toolRef:   cfg.ToolRef,
		modelName: cfg.ModelName,
		maxRounds: maxRounds,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// Answer generates a response to question given prior conversation turns.
// history must not include the current question; it is appended internally.
func (e *Engine) Answer(ctx context.Context, question string, history []*ai.Message) (*Result, error) {
	messages := make([]*ai.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(question)))

	var citations []search.Citation

	for round := 0; round < e.maxRounds; round++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := genkit.Generate(ctx, e.g,
			ai.WithModelName(e.modelName),
			ai.WithSystem(systemPrompt),
			ai.WithMessages(messages...),
			ai.WithTools(e.toolRef),
			ai.WithReturnToolRequests(true),
		)
		if err != nil {
			return nil, fmt.Errorf("generating answer: %w", err)
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			text := resp.Text()
			if strings.TrimSpace(text) == "" {
				e.logger.Warn("model returned empty final response")
				text = fallbackMessage
			}
			e.logger.Debug("answer generated",
				"rounds", round+1,
				"citations", len(citations))
			return &Result{Text: text, Citations: citations}, nil
		}

		// Keep the model's tool-requesting turn in the transcript, then
		// answer every request in one tool turn.
		messages = append(messages, resp.Message)

		parts := make([]*ai.Part, 0, len(requests))
		for _, tr := range requests {
			output, cites, err := e.executeRequest(ctx, tr)
			if err != nil {
				return nil, err
			}
			citations = append(citations, cites...)
			parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   tr.Name,
				Ref:    tr.Ref,
				Output: output,
			}))
		}
		messages = append(messages, &ai.Message{Role: ai.RoleTool, Content: parts})
	}

	e.logger.Warn("tool loop exceeded", "max_rounds", e.maxRounds)
	return nil, fmt.Errorf("%w (%d)", ErrToolLoopExceeded, e.maxRounds)
}

// executeRequest runs a single tool request. Unknown tool names are answered
// with an explanatory output so the model can recover; search infrastructure
// failures abort the turn.
func (e *Engine) executeRequest(ctx context.Context, tr *ai.ToolRequest) (string, []search.Citation, error) {
	if tr.Name != search.ToolName {
		e.logger.Warn("model requested unknown tool", "tool", tr.Name)
		return fmt.Sprintf("tool %q is not available", tr.Name), nil, nil
	}

	input, err := decodeInput(tr.Input)
	if err != nil {
		return "", nil, fmt.Errorf("decoding tool input: %w", err)
	}

	text, citations, err := e.tool.Execute(ctx, input)
	if err != nil {
		return "", nil, fmt.Errorf("executing %s: %w", search.ToolName, err)
	}
	return text, citations, nil
}

// decodeInput converts the model-supplied input (a map from JSON) into the
// tool's typed input via a JSON round trip.
func decodeInput(raw any) (search.Input, error) {
	var input search.Input
	if raw == nil {
		return input, fmt.Errorf("tool input is empty")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return input, fmt.Errorf("marshal tool input: %w", err)
	}
	if err := json.Unmarshal(data, &input); err != nil {
		return input, fmt.Errorf("unmarshal tool input: %w", err)
	}
	return input, nil
}
