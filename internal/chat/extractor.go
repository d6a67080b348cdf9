package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"

	"github.com/gmr0780/bahamas-town-hall/internal/llm"
)

// ExtractedAnswer is a single survey answer the model pulled out of the
// user's latest message.
type ExtractedAnswer struct {
	QuestionID uint   `json:"question_id"`
	Value      string `json:"value"`
}

// ModelResult is the structured output of one conversational turn.
type ModelResult struct {
	Reply          string
	QuickReplies   []string
	Demographics   *DemographicPatch
	Answer         *ExtractedAnswer
	AskingFollowup bool
}

// ModelClient runs one turn of the interview against the extraction model.
// Converse returns the assistant's reply plus whatever structured data was
// extracted; Complete runs a plain text completion for the summary path.
type ModelClient interface {
	Converse(ctx context.Context, system string, history []llm.Message) (*ModelResult, error)
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const (
	fallbackOpeningReply = "I'm here to help! Let's get started with the survey."
	fallbackReply        = "Let's continue with the survey! What do you think?"
)

// surveyUpdateTool is the tool schema the model is forced to call on every
// turn. The reply rides along with the extraction so a single model call
// produces both.
var surveyUpdateTool = llm.Tool{
	Name:        "survey_update",
	Description: "Report the conversational reply and any data extracted from the user's latest message.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"reply": map[string]interface{}{
				"type":        "string",
				"description": "Your conversational reply to the user. Short, warm, 1-3 sentences.",
			},
			"quick_replies": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Optional tap-to-answer suggestions for the user's next message.",
			},
			"extracted_demographics": map[string]interface{}{
				"type":        "object",
				"description": "Demographic fields stated by the user in their latest message. Omit fields that were not mentioned.",
				"properties": map[string]interface{}{
					"first_name":       map[string]interface{}{"type": "string"},
					"last_name":        map[string]interface{}{"type": "string"},
					"email":            map[string]interface{}{"type": "string"},
					"phone":            map[string]interface{}{"type": "string"},
					"lives_in_bahamas": map[string]interface{}{"type": "boolean"},
					"island":           map[string]interface{}{"type": "string"},
					"country":          map[string]interface{}{"type": "string"},
					"age_group":        map[string]interface{}{"type": "string"},
					"sector":           map[string]interface{}{"type": "string"},
				},
			},
			"extracted_answer": map[string]interface{}{
				"type":        "object",
				"description": "The user's answer to the current survey question, if they gave one. For checkbox questions, value is a JSON array string.",
				"properties": map[string]interface{}{
					"question_id": map[string]interface{}{"type": "integer"},
					"value":       map[string]interface{}{"type": "string"},
				},
				"required": []string{"question_id", "value"},
			},
			"is_asking_followup": map[string]interface{}{
				"type":        "boolean",
				"description": "True when your reply asks a follow-up about the current question rather than moving to the next one.",
			},
		},
		"required": []string{"reply"},
	},
}

// surveyUpdateInput mirrors the tool's input schema for decoding.
type surveyUpdateInput struct {
	Reply        string   `json:"reply"`
	QuickReplies []string `json:"quick_replies"`
	Demographics *struct {
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		Email          string `json:"email"`
		Phone          string `json:"phone"`
		LivesInBahamas *bool  `json:"lives_in_bahamas"`
		Island         string `json:"island"`
		Country        string `json:"country"`
		AgeGroup       string `json:"age_group"`
		Sector         string `json:"sector"`
	} `json:"extracted_demographics"`
	Answer *struct {
		QuestionID uint   `json:"question_id"`
		Value      string `json:"value"`
	} `json:"extracted_answer"`
	AskingFollowup bool `json:"is_asking_followup"`
}

// Extractor drives the interview through the Anthropic Messages API with a
// forced tool call per turn.
type Extractor struct {
	client *llm.Client
}

// NewExtractor wraps an Anthropic client as a ModelClient.
func NewExtractor(client *llm.Client) *Extractor {
	return &Extractor{client: client}
}

// Converse runs one turn, forcing the survey_update tool, and decodes its
// input into a ModelResult. Malformed tool JSON is passed through a repair
// step before decoding; if that still fails, the turn degrades to a plain
// reply so the chat keeps moving.
func (e *Extractor) Converse(ctx context.Context, system string, history []llm.Message) (*ModelResult, error) {
	resp, err := e.client.CreateMessage(ctx, llm.Request{
		System:    system,
		Messages:  history,
		Tools:     []llm.Tool{surveyUpdateTool},
		ForceTool: true,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: model call: %w", err)
	}

	raw := resp.FirstToolUse()
	if raw == nil {
		reply := resp.FirstText()
		if reply == "" {
			reply = fallbackReply
		}
		return &ModelResult{Reply: reply}, nil
	}

	input, err := decodeToolInput(raw)
	if err != nil {
		reply := resp.FirstText()
		if reply == "" {
			reply = fallbackReply
		}
		return &ModelResult{Reply: reply}, nil
	}

	result := &ModelResult{
		Reply:          input.Reply,
		QuickReplies:   input.QuickReplies,
		AskingFollowup: input.AskingFollowup,
	}
	if result.Reply == "" {
		if len(history) <= 1 {
			result.Reply = fallbackOpeningReply
		} else {
			result.Reply = fallbackReply
		}
	}
	if d := input.Demographics; d != nil {
		result.Demographics = &DemographicPatch{
			FirstName:      d.FirstName,
			LastName:       d.LastName,
			Email:          d.Email,
			Phone:          d.Phone,
			LivesInBahamas: d.LivesInBahamas,
			Island:         d.Island,
			Country:        d.Country,
			AgeGroup:       d.AgeGroup,
			Sector:         d.Sector,
		}
	}
	if a := input.Answer; a != nil && a.Value != "" {
		result.Answer = &ExtractedAnswer{QuestionID: a.QuestionID, Value: a.Value}
	}
	return result, nil
}

// Complete runs a plain completion with no tools. Used for the summary.
func (e *Extractor) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := e.client.CreateMessage(ctx, llm.Request{
		System:   system,
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("chat: model call: %w", err)
	}
	return resp.FirstText(), nil
}

// decodeToolInput parses tool input JSON, repairing truncated or malformed
// output before giving up. Long model outputs occasionally arrive clipped.
func decodeToolInput(raw json.RawMessage) (*surveyUpdateInput, error) {
	var input surveyUpdateInput
	if err := json.Unmarshal(raw, &input); err == nil {
		return &input, nil
	}
	repaired, err := jsonrepair.JSONRepair(string(raw))
	if err != nil {
		return nil, fmt.Errorf("chat: tool input unparseable: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &input); err != nil {
		return nil, fmt.Errorf("chat: tool input unparseable after repair: %w", err)
	}
	return &input, nil
}
