package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/daretna/daretna/internal/models"
)

// Ensure RemoteLLMScorer implements Scorer
var _ Scorer = (*RemoteLLMScorer)(nil)

// RemoteLLMScorer asks a chat-completion model to score a user and falls
// back to the deterministic heuristic on any error. The engine never knows
// which path produced the score.
type RemoteLLMScorer struct {
	client   *openai.Client
	model    string
	fallback *HeuristicScorer
}

// NewRemoteLLMScorer creates a scorer backed by the OpenAI API.
// model defaults to gpt-4o-mini when empty.
func NewRemoteLLMScorer(apiKey, model string) (*RemoteLLMScorer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key not set")
	}
	if model == "" {
		model = openai.GPT4oMini
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	return &RemoteLLMScorer{
		client:   openai.NewClient(apiKey),
		model:    model,
		fallback: NewHeuristicScorer(),
	}, nil
}

const scoringSystemPrompt = `You are a risk analyst for rotating-savings groups.
Given a member's payment history, reply with a single JSON object:
{"score": <0-100 integer>, "explanation": "<one sentence>"}`

// Score asks the model for a score; any failure falls back to the heuristic.
func (r *RemoteLLMScorer) Score(ctx context.Context, user *models.User) (TrustScore, error) {
	prompt := fmt.Sprintf(
		"On-time payments: %d. Late payments: %d. Total contributed: %.2f. Profile complete: %t.",
		user.History.OnTime, user.History.Late, user.History.TotalAmount, user.ProfileComplete(),
	)

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scoringSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		slog.Warn("LLM scoring failed, using heuristic fallback", "error", err)
		return r.fallback.Score(ctx, user)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("LLM scoring returned no choices, using heuristic fallback")
		return r.fallback.Score(ctx, user)
	}

	score, err := parseScoreReply(resp.Choices[0].Message.Content)
	if err != nil {
		slog.Warn("LLM scoring reply unparseable, using heuristic fallback", "error", err)
		return r.fallback.Score(ctx, user)
	}
	return score, nil
}

func parseScoreReply(content string) (TrustScore, error) {
	// Models sometimes wrap JSON in a code fence.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var reply struct {
		Score       int    `json:"score"`
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &reply); err != nil {
		return TrustScore{}, fmt.Errorf("failed to parse scoring reply: %w", err)
	}
	if reply.Score < 0 {
		reply.Score = 0
	}
	if reply.Score > 100 {
		reply.Score = 100
	}

	suggested := float64(reply.Score) * 100
	if suggested > maxSuggestedAmount {
		suggested = maxSuggestedAmount
	}

	return TrustScore{
		Value:           reply.Score,
		Tier:            TierFor(reply.Score),
		Explanation:     reply.Explanation,
		SuggestedAmount: suggested,
	}, nil
}
