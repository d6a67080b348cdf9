package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
	"github.com/gmr0780/bahamas-town-hall/internal/store"
)

// Summary is the personalized wrap-up shown after a submission.
type Summary struct {
	PersonalityTitle       string `json:"personality_title"`
	PersonalityEmoji       string `json:"personality_emoji"`
	PersonalityDescription string `json:"personality_description"`
	Summary                string `json:"summary"`
}

// SummarySource provides the submitted data the summary is built from.
type SummarySource interface {
	GetCitizen(ctx context.Context, id uint) (*models.Citizen, error)
	CitizenAnswers(ctx context.Context, citizenID uint) ([]store.AnswerDetail, error)
	SummaryStats(ctx context.Context) (*store.SummaryStats, error)
}

// Summarizer generates a playful "tech personality" card for a submitted
// citizen by combining their answers with community-wide aggregates.
type Summarizer struct {
	source SummarySource
	model  ModelClient
}

// NewSummarizer builds a Summarizer.
func NewSummarizer(source SummarySource, model ModelClient) *Summarizer {
	return &Summarizer{source: source, model: model}
}

const summarySystemPrompt = `You are Bahamas AI, writing a fun personalized summary for someone who just completed the Bahamas Technology Town Hall survey. Respond with ONLY a JSON object, no other text, in this exact shape:
{"personality_title": "...", "personality_emoji": "...", "personality_description": "...", "summary": "..."}
- personality_title: a playful 2-4 word "tech personality" name based on their answers (e.g. "Digital Trailblazer", "Cautious Connector")
- personality_emoji: one emoji matching the personality
- personality_description: 1-2 warm sentences about what their answers say about them
- summary: 2-3 sentences relating their views to the wider community responses so far`

// Generate produces the summary for one citizen. The model is asked for raw
// JSON; malformed output goes through a repair pass, and if that also fails a
// generic summary is returned rather than an error.
func (sm *Summarizer) Generate(ctx context.Context, citizenID uint) (*Summary, error) {
	citizen, err := sm.source.GetCitizen(ctx, citizenID)
	if err != nil {
		return nil, err
	}
	answers, err := sm.source.CitizenAnswers(ctx, citizenID)
	if err != nil {
		return nil, err
	}
	stats, err := sm.source.SummaryStats(ctx)
	if err != nil {
		return nil, err
	}

	text, err := sm.model.Complete(ctx, summarySystemPrompt, summaryPrompt(citizen, answers, stats))
	if err != nil {
		return nil, err
	}

	if s := parseSummary(text); s != nil {
		return s, nil
	}
	return &Summary{
		PersonalityTitle:       "Community Voice",
		PersonalityEmoji:       "🇧🇸",
		PersonalityDescription: fmt.Sprintf("%s, thank you for sharing your perspective on technology in The Bahamas.", citizen.Name),
		Summary:                "Your feedback has been recorded and will help shape the national technology conversation.",
	}, nil
}

// summaryPrompt renders the citizen's profile, answers, and community
// aggregates into the user message for the summary call.
func summaryPrompt(c *models.Citizen, answers []store.AnswerDetail, stats *store.SummaryStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PARTICIPANT:\nName: %s\nIsland: %s\nAge group: %s\nSector: %s\n", c.Name, c.Island, c.AgeGroup, c.Sector)

	b.WriteString("\nTHEIR ANSWERS:\n")
	for _, a := range answers {
		fmt.Fprintf(&b, "- %s: %s\n", a.Label, a.Value)
	}

	fmt.Fprintf(&b, "\nCOMMUNITY SO FAR (%d responses):\n", stats.TotalResponses)
	for _, g := range stats.TopIslands {
		fmt.Fprintf(&b, "- %s: %d participants\n", g.Label, g.Count)
	}
	for _, a := range stats.CommonAnswers {
		fmt.Fprintf(&b, "- %q to %q: %d people\n", a.Value, a.Label, a.Count)
	}
	return b.String()
}

// parseSummary decodes the model's JSON, stripping code fences and repairing
// malformed output. Returns nil when nothing usable can be recovered.
func parseSummary(text string) *Summary {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var s Summary
	if err := json.Unmarshal([]byte(cleaned), &s); err == nil && s.PersonalityTitle != "" {
		return &s
	}
	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(repaired), &s); err != nil || s.PersonalityTitle == "" {
		return nil
	}
	return &s
}
