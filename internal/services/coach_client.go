package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vitacore/internal/models"
)

// CoachClient talks to an OpenAI-compatible chat completions endpoint and
// implements ConversationalTool. Each turn the model must answer with a
// single JSON object: {"question": "..."} to continue the interview, or
// {"isComplete": true, "report": {...}} once it has enough to score the
// activity.
type CoachClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewCoachClient creates a coach client for the configured endpoint
func NewCoachClient(baseURL, apiKey, model string) *CoachClient {
	return &CoachClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

const coachSystemPrompt = `You are a health coach collecting outcome data after a patient finishes a scheduled activity.
Ask one short question at a time about how the activity went (effort, symptoms, adherence, how it felt).
After at most four questions, produce the final report.

Respond with EXACTLY one JSON object and nothing else, in one of two shapes:
{"question": "<your next question>"}
or
{"isComplete": true, "report": {"summary": "<one sentence>", "insights": ["..."], "effectiveness": <1-10>, "recommendations": ["..."]}}`

type coachChatRequest struct {
	Model       string              `json:"model"`
	Messages    []map[string]string `json:"messages"`
	Stream      bool                `json:"stream"`
	Temperature float64             `json:"temperature"`
}

// coachTurn is the JSON protocol the model answers with
type coachTurn struct {
	Question   string                   `json:"question"`
	IsComplete bool                     `json:"isComplete"`
	Report     *models.CompletionReport `json:"report"`
}

// StartSession asks the coach for its opening question
func (c *CoachClient) StartSession(ctx context.Context, sess *models.CompletionSession) (string, error) {
	messages := c.buildMessages(sess)
	messages = append(messages, map[string]string{
		"role":    "user",
		"content": fmt.Sprintf("The patient just finished the %s activity %q. Greet them briefly and ask your first question.", sess.ActivityType, sess.ActivityID),
	})

	turn, err := c.complete(ctx, messages)
	if err != nil {
		return "", err
	}
	if turn.Question == "" {
		return "", fmt.Errorf("coach returned no opening question")
	}
	return turn.Question, nil
}

// ProcessInput sends the full transcript plus the latest patient message
// and returns the next question or the final report.
func (c *CoachClient) ProcessInput(ctx context.Context, sess *models.CompletionSession, message string) (*ToolReply, error) {
	messages := c.buildMessages(sess)

	turn, err := c.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	if turn.IsComplete && turn.Report != nil {
		return &ToolReply{
			Message:    "Thanks, your activity report is ready.",
			IsComplete: true,
			Report:     turn.Report,
		}, nil
	}
	if turn.Question == "" {
		return nil, fmt.Errorf("coach returned neither a question nor a report")
	}
	return &ToolReply{Message: turn.Question}, nil
}

// buildMessages converts the session transcript into chat messages with the
// coach system prompt and activity context up front.
func (c *CoachClient) buildMessages(sess *models.CompletionSession) []map[string]string {
	messages := []map[string]string{
		{"role": "system", "content": coachSystemPrompt},
		{"role": "system", "content": fmt.Sprintf("Activity context: type=%s id=%s", sess.ActivityType, sess.ActivityID)},
	}
	for _, turn := range sess.Transcript {
		messages = append(messages, map[string]string{
			"role":    turn.Role,
			"content": turn.Content,
		})
	}
	return messages
}

// complete performs one non-streaming chat completion and decodes the
// coach's JSON turn out of the response content.
func (c *CoachClient) complete(ctx context.Context, messages []map[string]string) (*coachTurn, error) {
	reqBody, err := json.Marshal(coachChatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      false,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coach request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("coach API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode coach response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in coach response")
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	return parseCoachTurn(content)
}

// parseCoachTurn extracts the protocol object from the model content,
// tolerating a fenced code block around the JSON.
func parseCoachTurn(content string) (*coachTurn, error) {
	raw := content
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
	}

	var turn coachTurn
	if err := json.Unmarshal([]byte(raw), &turn); err != nil {
		// A model that ignored the protocol still asked something useful;
		// treat the whole content as the next question.
		return &coachTurn{Question: content}, nil
	}
	return &turn, nil
}
