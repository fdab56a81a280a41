package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
	"github.com/kirillkom/curriculum-organizer/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"

	providerName      = "gemini"
	jsonResponseType  = "application/json"
	generateOperation = "gemini.generate"
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
	Limiter  *rate.Limiter
}

func New(baseURL, apiKey, model string, options Options) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
		limiter:    options.Limiter,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Classifier asks the model to place one inbox file within the course taxonomy.
type Classifier struct {
	client   *Client
	taxonomy string
	layout   domain.ArchiveLayout
}

func NewClassifier(client *Client, taxonomyDescription string, layout domain.ArchiveLayout) *Classifier {
	return &Classifier{client: client, taxonomy: taxonomyDescription, layout: layout}
}

// BreakerState reports the circuit breaker state guarding generate calls.
func (c *Classifier) BreakerState() string {
	if c.client.executor == nil {
		return "disabled"
	}
	return c.client.executor.State(generateOperation)
}

func (c *Classifier) Classify(ctx context.Context, req domain.ClassificationRequest) (domain.ClassificationResult, error) {
	respText, err := c.client.generateJSON(ctx, buildClassificationPrompt(c.taxonomy, c.layout, req))
	if err != nil {
		return domain.ClassificationResult{}, err
	}

	result, err := decodeClassification(respText)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	result.Provider = providerName
	result.Model = c.client.model
	return result, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func (r generateResponse) text() (string, error) {
	if len(r.Candidates) == 0 {
		reason := "no candidates"
		if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + r.PromptFeedback.BlockReason
		}
		return "", domain.WrapError(domain.ErrGatewayMalformed, "read generate response", errors.New(reason))
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", domain.WrapError(
			domain.ErrGatewayMalformed,
			"read generate response",
			fmt.Errorf("empty response (finish_reason=%q)", r.Candidates[0].FinishReason),
		)
	}
	return text, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: jsonResponseType,
			Temperature:      0,
		},
	}

	var response generateResponse
	call := func(callCtx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(callCtx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
		}
		response = generateResponse{}
		return c.postJSON(callCtx, c.generatePath(), reqBody, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, generateOperation, call, classifyGeminiError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", asUnavailable(err)
	}
	return response.text()
}

func (c *Client) generatePath() string {
	return "/" + path.Join("v1beta", "models", c.model) + ":generateContent"
}

type rawClassification struct {
	TargetDir   string          `json:"target_dir"`
	NewFilename string          `json:"new_filename"`
	Metadata    json.RawMessage `json:"metadata"`
}

// decodeClassification validates the model output before anything trusts it.
func decodeClassification(raw string) (domain.ClassificationResult, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrGatewayMalformed, "parse classification", errors.New("empty response"))
	}

	var parsed rawClassification
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrGatewayMalformed, "parse classification json", err)
	}

	result := domain.ClassificationResult{
		TargetDir:   strings.TrimSpace(parsed.TargetDir),
		NewFilename: strings.TrimSpace(parsed.NewFilename),
	}
	if result.TargetDir == "" {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrGatewayMalformed, "validate classification", errors.New("missing target_dir"))
	}
	if result.NewFilename == "" {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrGatewayMalformed, "validate classification", errors.New("missing new_filename"))
	}
	if strings.ContainsAny(result.NewFilename, `/\`) {
		return domain.ClassificationResult{}, domain.WrapError(
			domain.ErrGatewayMalformed,
			"validate classification",
			fmt.Errorf("new_filename %q is a path", result.NewFilename),
		)
	}

	if len(parsed.Metadata) > 0 {
		if err := json.Unmarshal(parsed.Metadata, &result.Metadata); err != nil {
			return domain.ClassificationResult{}, domain.WrapError(domain.ErrGatewayMalformed, "parse classification metadata", err)
		}
	}
	if result.Metadata.Status == "" {
		result.Metadata.Status = domain.StatusClassified
	}
	if result.Metadata.MissingInfo == nil {
		result.Metadata.MissingInfo = []string{}
	}
	return result, nil
}

func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
