package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ettle/strcase"
)

// SystemPrompt frames every chat reply.
const SystemPrompt = `You are EDA, a helpful and friendly Economic Decision Assistant for e-commerce sellers.
Your goal is to provide clear, concise, and actionable advice.
Use simple language and avoid jargon.
When asked about a specific topic like 'Sales Forecast', explain the concept and why it's important for their business.
Keep your responses under 150 words.
The user's chat history is provided. Your response should follow the last message from the user.`

// Static replies used when the model call fails.
const (
	ChatFallback    = "Sorry, I'm having trouble connecting to my brain right now. Please try again later."
	LessonFallback  = "I am unable to generate a lesson at this moment. The key takeaway is to analyze your data and make informed decisions."
	InsightFallback = "Could not generate an insight for this product. Consider comparing its performance to other items in your portfolio."
)

const defaultMaxHistory = 50

var (
	// ErrEmptyMessage rejects a blank chat message.
	ErrEmptyMessage = errors.New("assistant: message is required")
	// ErrUnknownTopic rejects a lesson topic outside Topics().
	ErrUnknownTopic = errors.New("assistant: unknown lesson topic")
)

// Message is one entry of a chat transcript.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Topic is an analytics concept a micro-lesson can cover.
type Topic string

const (
	TopicSalesForecast         Topic = "Sales Forecast"
	TopicOptimalPricing        Topic = "Optimal Pricing"
	TopicInventoryAnalysis     Topic = "Inventory Analysis"
	TopicPortfolioOptimization Topic = "Portfolio Optimization"
	TopicCampaignSuggestion    Topic = "Campaign Suggestion"
	TopicCompetitorWatch       Topic = "Competitor Watch"
)

// Topics lists the lesson topics in menu order.
func Topics() []Topic {
	return []Topic{
		TopicSalesForecast,
		TopicOptimalPricing,
		TopicInventoryAnalysis,
		TopicPortfolioOptimization,
		TopicCampaignSuggestion,
		TopicCompetitorWatch,
	}
}

// Slug is the URL form of the topic, e.g. "sales-forecast".
func (t Topic) Slug() string {
	return strcase.ToKebab(string(t))
}

// ParseTopic accepts a topic name or its slug.
func ParseTopic(value string) (Topic, error) {
	key := strcase.ToKebab(strings.TrimSpace(value))
	for _, topic := range Topics() {
		if topic.Slug() == key {
			return topic, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTopic, value)
}

// PortfolioItem is the product summary a product insight is generated for.
type PortfolioItem struct {
	Name         string  `json:"name"`
	SalesVolume  float64 `json:"sales_volume"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
}

// Options configures an Assistant.
type Options struct {
	Generator  Generator
	Logger     *slog.Logger
	MaxHistory int
	Now        func() time.Time
}

// Assistant keeps one chat transcript per session and proxies prompts to the
// configured Generator.
type Assistant struct {
	gen        Generator
	logger     *slog.Logger
	maxHistory int
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string][]Message
}

// New builds an Assistant. A nil generator behaves like Offline.
func New(opts Options) *Assistant {
	if opts.Generator == nil {
		opts.Generator = Offline{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = defaultMaxHistory
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Assistant{
		gen:        opts.Generator,
		logger:     opts.Logger,
		maxHistory: opts.MaxHistory,
		now:        opts.Now,
		sessions:   map[string][]Message{},
	}
}

// Chat appends text to the session transcript, asks the model for a reply and
// appends it. A failed call appends and returns ChatFallback.
func (a *Assistant) Chat(ctx context.Context, sessionID, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	a.mu.Lock()
	history := append([]Message(nil), a.sessions[sessionID]...)
	a.appendLocked(sessionID, Message{Role: RoleUser, Text: text, At: a.now()})
	a.mu.Unlock()

	reply, err := a.gen.Generate(ctx, Request{System: SystemPrompt, History: history, Prompt: text})
	if err != nil {
		a.logger.WarnContext(ctx, "assistant chat failed", "session", sessionID, "error", err)
		reply = ChatFallback
	}
	msg := Message{Role: RoleModel, Text: reply, At: a.now()}
	a.mu.Lock()
	a.appendLocked(sessionID, msg)
	a.mu.Unlock()
	return msg, nil
}

func (a *Assistant) appendLocked(sessionID string, msg Message) {
	transcript := append(a.sessions[sessionID], msg)
	if over := len(transcript) - a.maxHistory; over > 0 {
		transcript = append([]Message(nil), transcript[over:]...)
	}
	a.sessions[sessionID] = transcript
}

// History returns a copy of the session transcript.
func (a *Assistant) History(sessionID string) []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Message(nil), a.sessions[sessionID]...)
}

// Reset drops the session transcript.
func (a *Assistant) Reset(sessionID string) {
	a.mu.Lock()
	delete(a.sessions, sessionID)
	a.mu.Unlock()
}

// MicroLesson returns a short markdown lesson on topic, or LessonFallback.
func (a *Assistant) MicroLesson(ctx context.Context, topic Topic) string {
	prompt := fmt.Sprintf(`Generate a short, practical micro-lesson for an e-commerce seller on the topic of %q.
The lesson should be structured with:
1.  A simple definition of the concept.
2.  Why it is important for their business.
3.  A bulleted list of 2-3 actionable tips they can implement right away.
Format the response in Markdown. Use headings, bold text, and bullet points.
For example, for 'Campaign Suggestion', a tip could be 'Time your campaigns around paydays.'`, string(topic))

	out, err := a.gen.Generate(ctx, Request{Prompt: prompt})
	if err != nil {
		a.logger.WarnContext(ctx, "assistant lesson failed", "topic", string(topic), "error", err)
		return LessonFallback
	}
	return out
}

// ProductInsight returns a one or two sentence tip for item, or InsightFallback.
func (a *Assistant) ProductInsight(ctx context.Context, item PortfolioItem) string {
	prompt := fmt.Sprintf(`I am an e-commerce seller analyzing a product from my portfolio.
- Product Name: %s
- Sales Volume: %s units
- Total Profit: $%s
- Profit Margin: %.1f%%

Based on these metrics, provide a concise and actionable business insight for me.
For example, if sales are high but margin is low, suggest a price review or bundling. If margin is high but sales are low, suggest a marketing push.
Keep the insight to 1-2 sentences. Be direct and encouraging.`,
		item.Name,
		humanize.Commaf(item.SalesVolume),
		humanize.Commaf(item.Profit),
		item.ProfitMargin*100,
	)

	out, err := a.gen.Generate(ctx, Request{Prompt: prompt})
	if err != nil {
		a.logger.WarnContext(ctx, "assistant product insight failed", "product", item.Name, "error", err)
		return InsightFallback
	}
	return out
}
