package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

const (
	// PromptDocuments bounds the documents placed in a generation prompt.
	PromptDocuments = 8
	// PromptExcerptLength bounds each document excerpt in a prompt.
	PromptExcerptLength = 600
	// PromptHistoryTurns is how many earlier turns a prompt carries.
	PromptHistoryTurns = 5

	casualMaxWords = 3
	titleMaxTokens = 20
	titleTemp      = 0.5
)

// NotFoundNote is the warning a model appends when the documents do not
// answer the question.
const NotFoundNote = "Note: This information was not found in your uploaded documents."

// ErrEmptyGeneration is returned when the model answers with no text.
var ErrEmptyGeneration = errors.New("model returned an empty response")

const answerSystemPrompt = `You are Locket, an assistant that answers questions about the user's documents.

Rules:
1. When documents are provided, answer from them and name the document you used.
2. Add the line "` + NotFoundNote + `" only when no documents are provided or the provided documents do not answer the question.
3. When the documents do answer the question, do not add that line.
4. Reply to greetings and small talk naturally without mentioning documents.

Be direct and helpful.`

const titleSystemPrompt = "Write a short descriptive title of three to six words for a chat that starts with the user's message. Reply with the title only."

var casualPhrases = []string{
	"hi", "hello", "hey", "sup", "yo", "howdy", "greetings",
	"how are you", "how's it going", "what's up", "good morning",
	"good afternoon", "good evening", "thanks", "thank you",
}

// PromptDocument is one ranked document offered to the model.
type PromptDocument struct {
	Filename string
	Score    float64
	Excerpt  string
}

// Generator writes chat answers and titles with a language model.
type Generator struct {
	model       llms.Model
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithTemperature sets the sampling temperature of answers.
func WithTemperature(t float64) GeneratorOption {
	return func(g *Generator) { g.temperature = t }
}

// WithMaxTokens bounds the length of answers.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithTimeout bounds each model call. Zero leaves only the caller's deadline.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

// NewGenerator wraps model.
func NewGenerator(model llms.Model, opts ...GeneratorOption) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	g := &Generator{model: model, temperature: 0.7, maxTokens: 2000}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Answer asks the model to answer query from docs with the tail of history
// as context. Casual messages are sent without documents.
func (g *Generator) Answer(ctx context.Context, query string, history []Turn, docs []PromptDocument) (string, error) {
	return g.generate(ctx, answerMessages(query, history, docs),
		llms.WithTemperature(g.temperature), llms.WithMaxTokens(g.maxTokens))
}

// Title asks the model for a short chat title for message.
func (g *Generator) Title(ctx context.Context, message string) (string, error) {
	text, err := g.generate(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, titleSystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, message),
	}, llms.WithTemperature(titleTemp), llms.WithMaxTokens(titleMaxTokens))
	if err != nil {
		return "", err
	}
	text = strings.Trim(text, "\"'` \n")
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

func (g *Generator) generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyGeneration
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

// answerMessages builds the system prompt, the last PromptHistoryTurns
// turns and the user message. The user message lists at most
// PromptDocuments documents under "[Document: name | Relevance: N%]"
// headers unless the query is casual or docs is empty.
func answerMessages(query string, history []Turn, docs []PromptDocument) []llms.MessageContent {
	messages := []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeSystem, answerSystemPrompt)}
	if len(history) > PromptHistoryTurns {
		history = history[len(history)-PromptHistoryTurns:]
	}
	for _, t := range history {
		messages = append(messages, llms.TextParts(roleType(t.Role), t.Content))
	}

	user := query
	if !isCasual(query) && len(docs) > 0 {
		if len(docs) > PromptDocuments {
			docs = docs[:PromptDocuments]
		}
		blocks := make([]string, len(docs))
		for i, d := range docs {
			blocks[i] = fmt.Sprintf("[Document: %s | Relevance: %d%%]\n%s", d.Filename, Percent(d.Score), truncateRunes(d.Excerpt, PromptExcerptLength))
		}
		user = fmt.Sprintf("Question: %s\n\nDOCUMENTS PROVIDED (use these to answer):\n%s\n\n"+
			"Answer from these documents. Add the not-found note only if they do not contain the answer.",
			query, strings.Join(blocks, "\n\n"))
	}
	return append(messages, llms.TextParts(schema.ChatMessageTypeHuman, user))
}

// isCasual reports whether query is small talk or too short to need
// documents.
func isCasual(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, p := range casualPhrases {
		if q == p || strings.HasPrefix(q, p+" ") {
			return true
		}
	}
	return len(strings.Fields(q)) <= casualMaxWords
}

func roleType(r Role) schema.ChatMessageType {
	if r == RoleAssistant {
		return schema.ChatMessageTypeAI
	}
	return schema.ChatMessageTypeHuman
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
