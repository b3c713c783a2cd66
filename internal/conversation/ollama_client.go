package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaLLMClient implements LLMClient against a local Ollama server's
// /api/chat endpoint. Used for self-hosted open models when neither cloud
// provider is configured.
type OllamaLLMClient struct {
	baseURL    string
	modelID    string
	httpClient *http.Client
}

// NewOllamaLLMClient builds a client for the server at baseURL. The model id
// is fixed per client, like Gemini, so provider fallback never sends another
// provider's model name here.
func NewOllamaLLMClient(baseURL, modelID string, httpClient *http.Client) *OllamaLLMClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "http://localhost:11434"
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "llama3.1"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &OllamaLLMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		modelID:    modelID,
		httpClient: httpClient,
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []ChatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int32  `json:"prompt_eval_count"`
	EvalCount       int32  `json:"eval_count"`
	Error           string `json:"error"`
}

func (c *OllamaLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	messages := make([]ChatMessage, 0, len(req.Messages)+len(req.System))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		messages = append(messages, ChatMessage{Role: ChatRoleSystem, Content: block})
	}
	for _, msg := range req.Messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		messages = append(messages, msg)
	}

	options := map[string]any{}
	if req.Temperature >= 0 {
		options["temperature"] = req.Temperature
	}
	if req.TopP > 0 {
		options["top_p"] = req.TopP
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    c.modelID,
		Messages: messages,
		Stream:   false,
		Options:  options,
	})
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: ollama request marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: ollama request build: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: ollama request failed: %w", err)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: ollama response read: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return LLMResponse{}, fmt.Errorf("conversation: ollama returned status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded ollamaChatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: ollama response parse: %w", err)
	}
	if decoded.Error != "" {
		return LLMResponse{}, fmt.Errorf("conversation: ollama error: %s", decoded.Error)
	}
	if strings.TrimSpace(decoded.Message.Content) == "" {
		return LLMResponse{}, errors.New("conversation: ollama response contained no text")
	}

	return LLMResponse{
		Text:       strings.TrimSpace(decoded.Message.Content),
		StopReason: decoded.DoneReason,
		Usage: TokenUsage{
			InputTokens:  decoded.PromptEvalCount,
			OutputTokens: decoded.EvalCount,
			TotalTokens:  decoded.PromptEvalCount + decoded.EvalCount,
		},
	}, nil
}
