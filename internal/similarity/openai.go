package similarity

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/chronicle-kg/chronicle/internal/cache"
	"github.com/chronicle-kg/chronicle/internal/model"
	"github.com/chronicle-kg/chronicle/internal/worker"
)

const limiterService = "similarity"

const entailmentSystemPrompt = `You are a precise natural language inference engine for news claims.
Given two claims, decide their relationship:
- ENTAILMENT: the claims assert the same fact or one follows from the other
- CONTRADICTION: the claims cannot both be true
- NEUTRAL: the claims are about different facts or neither supports nor denies the other

Respond with ONLY a JSON object: {"label": "ENTAILMENT|CONTRADICTION|NEUTRAL", "confidence": 0.0-1.0}`

// OpenAIService implements Service on the OpenAI API: embeddings cosine
// for Similarity, a chat-completion NLI verdict for ClassifyEntailment.
// Results are memoized per unordered text pair.
type OpenAIService struct {
	client         *openai.Client
	model          string
	embeddingModel string
	timeout        time.Duration
	cache          cache.Cache
	cacheTTL       time.Duration
	limiter        *worker.Limiter
	log            *logrus.Entry
}

// NewOpenAIService creates the OpenAI-backed service. cache may be nil to
// disable memoization; limiter may be nil to disable rate limiting.
func NewOpenAIService(cfg model.SimilarityConfig, resultCache cache.Cache, cacheTTL time.Duration, limiter *worker.Limiter) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("similarity: OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIService{
		client:         openai.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		timeout:        timeout,
		cache:          resultCache,
		cacheTTL:       cacheTTL,
		limiter:        limiter,
		log:            logrus.WithField("component", "similarity.openai"),
	}, nil
}

// Similarity implements Service
func (s *OpenAIService) Similarity(ctx context.Context, a, b string) (float64, error) {
	key := cache.PairKey("sim", a, b)
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			if v, err := strconv.ParseFloat(string(raw), 64); err == nil {
				return v, nil
			}
		}
	}

	if err := s.wait(ctx); err != nil {
		return 0, &Error{Op: "similarity", Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
		Input: []string{a, b},
		Model: openai.EmbeddingModel(s.embeddingModel),
	})
	if err != nil {
		return 0, &Error{Op: "similarity", Err: err}
	}
	if len(resp.Data) != 2 {
		return 0, &Error{Op: "similarity", Err: fmt.Errorf("expected 2 embeddings, got %d", len(resp.Data))}
	}

	score := cosine(resp.Data[0].Embedding, resp.Data[1].Embedding)
	s.store(key, []byte(strconv.FormatFloat(score, 'f', -1, 64)))
	return score, nil
}

// ClassifyEntailment implements Service
func (s *OpenAIService) ClassifyEntailment(ctx context.Context, a, b string) (Verdict, error) {
	key := cache.PairKey("nli", a, b)
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			var verdict Verdict
			if err := json.Unmarshal(raw, &verdict); err == nil {
				return verdict, nil
			}
		}
	}

	if err := s.wait(ctx); err != nil {
		return Verdict{}, &Error{Op: "entailment", Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: entailmentSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Claim A: %s\nClaim B: %s", a, b)},
		},
		Temperature: 0,
		MaxTokens:   100,
	})
	if err != nil {
		return Verdict{}, &Error{Op: "entailment", Err: err}
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, &Error{Op: "entailment", Err: fmt.Errorf("empty response")}
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return Verdict{}, &Error{Op: "entailment", Err: err}
	}

	if raw, err := json.Marshal(verdict); err == nil {
		s.store(key, raw)
	}
	return verdict, nil
}

func (s *OpenAIService) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx, limiterService)
}

func (s *OpenAIService) store(key string, value []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(key, value, s.cacheTTL); err != nil {
		s.log.WithError(err).Debug("cache set failed")
	}
}

// parseVerdict extracts the JSON verdict from a model response, tolerating
// code fences and surrounding prose
func parseVerdict(content string) (Verdict, error) {
	payload := extractJSONObject(content)
	if payload == "" {
		return Verdict{}, fmt.Errorf("no JSON object in response: %q", truncate(content, 120))
	}

	label := Label(strings.ToUpper(gjson.Get(payload, "label").String()))
	switch label {
	case LabelEntailment, LabelContradiction, LabelNeutral:
	default:
		return Verdict{}, fmt.Errorf("unknown entailment label %q", label)
	}

	confidence := gjson.Get(payload, "confidence").Float()
	if confidence < 0 || confidence > 1 {
		return Verdict{}, fmt.Errorf("confidence %v out of range", confidence)
	}

	return Verdict{Label: label, Confidence: confidence}, nil
}

// extractJSONObject returns the outermost {...} in a response, which may
// be wrapped in markdown fences or explanatory text
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Cosine of real embeddings can dip fractionally outside [0,1]
	return clamp01(score)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
