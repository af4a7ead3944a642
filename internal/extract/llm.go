package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/chronicle-kg/chronicle/internal/model"
	"github.com/chronicle-kg/chronicle/internal/worker"
)

const limiterService = "extraction"

const analysisSystemPrompt = "You are an expert news analyst. Extract structured information from articles."

const analysisPromptTemplate = `Analyze the following article and extract:

1. **Entities**: People, organizations, locations, concepts, and events mentioned
2. **Claims**: Factual statements that can be verified, with the entities each claim is about

Article:
%s

Respond with valid JSON only:
{
  "entities": [
    {"name": "Entity Name", "type": "PERSON|ORGANIZATION|LOCATION|CONCEPT|EVENT", "confidence": 0.0-1.0}
  ],
  "claims": [
    {"text": "The claim", "confidence": 0.0-1.0, "entity_refs": ["Entity Name"]}
  ]
}`

// LLMExtractor implements Extractor on the OpenAI chat API
type LLMExtractor struct {
	client              *openai.Client
	model               string
	timeout             time.Duration
	maxChars            int
	minEntityConfidence float64
	minClaimConfidence  float64
	limiter             *worker.Limiter
	log                 *logrus.Entry
}

// NewLLMExtractor creates the OpenAI-backed extractor. limiter may be nil
// to disable rate limiting.
func NewLLMExtractor(cfg model.ExtractionConfig, limiter *worker.Limiter) (*LLMExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extraction: OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 6000
	}

	return &LLMExtractor{
		client:              openai.NewClientWithConfig(clientConfig),
		model:               cfg.Model,
		timeout:             timeout,
		maxChars:            maxChars,
		minEntityConfidence: cfg.MinEntityConfidence,
		minClaimConfidence:  cfg.MinClaimConfidence,
		limiter:             limiter,
		log:                 logrus.WithField("component", "extract.llm"),
	}, nil
}

// Extract implements Extractor
func (e *LLMExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	if len(text) > e.maxChars {
		text = text[:e.maxChars] + "..."
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, limiterService); err != nil {
			return nil, &ExtractionError{Op: "rate limit", Err: err}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(analysisPromptTemplate, text)},
		},
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, &ExtractionError{Op: "api call", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ExtractionError{Op: "api call", Err: fmt.Errorf("empty response")}
	}

	extraction, err := e.parse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, &ExtractionError{Op: "parse", Err: err}
	}

	e.log.WithFields(logrus.Fields{
		"entities": len(extraction.Entities),
		"claims":   len(extraction.Claims),
	}).Debug("extraction complete")
	return extraction, nil
}

// parse reads the model's JSON, tolerating code fences and surrounding
// prose, and drops candidates below the configured confidence floors
func (e *LLMExtractor) parse(content string) (*Extraction, error) {
	payload := extractJSONObject(content)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("malformed JSON in response")
	}

	extraction := &Extraction{}

	gjson.Get(payload, "entities").ForEach(func(_, item gjson.Result) bool {
		name := strings.TrimSpace(item.Get("name").String())
		confidence := item.Get("confidence").Float()
		if name == "" || confidence < e.minEntityConfidence {
			return true
		}
		typ := model.EntityType(strings.ToUpper(item.Get("type").String()))
		if !model.ValidEntityType(typ) {
			typ = model.EntityConcept
		}
		extraction.Entities = append(extraction.Entities, model.CandidateEntity{
			Name:       name,
			Type:       typ,
			Confidence: confidence,
		})
		return true
	})

	gjson.Get(payload, "claims").ForEach(func(_, item gjson.Result) bool {
		text := strings.TrimSpace(item.Get("text").String())
		confidence := item.Get("confidence").Float()
		if text == "" || confidence < e.minClaimConfidence {
			return true
		}
		var refs []string
		item.Get("entity_refs").ForEach(func(_, ref gjson.Result) bool {
			if r := strings.TrimSpace(ref.String()); r != "" {
				refs = append(refs, r)
			}
			return true
		})
		extraction.Claims = append(extraction.Claims, model.CandidateClaim{
			Text:       text,
			Confidence: confidence,
			EntityRefs: refs,
		})
		return true
	})

	return extraction, nil
}

// extractJSONObject returns the outermost {...} in a response
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
