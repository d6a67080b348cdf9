package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
)

// OpeningUserTurn is the synthetic first message used to elicit a greeting
// when a session is created.
const OpeningUserTurn = "Hi, I'd like to take the survey."

// BuildSystemPrompt renders the full interview state into the system prompt
// for one model call. It is a pure function of the session: the model holds
// no memory beyond the transcript it is re-sent each turn, so everything it
// needs to behave correctly must be described here.
func BuildSystemPrompt(s *Session) string {
	current := currentQuestion(s)

	questionDesc := "N/A (collecting demographics)"
	if current != nil {
		questionDesc = describeQuestion(current)
	} else if s.Phase == PhaseSurvey {
		questionDesc = "All questions answered!"
	}

	remaining := len(s.Questions)
	if s.Phase == PhaseSurvey {
		remaining = len(s.Questions) - s.CurrentQuestion
	}

	missing := "ALL COLLECTED"
	if m := s.Demographics.Missing(); len(m) > 0 {
		missing = strings.Join(m, ", ")
	}

	var b strings.Builder
	b.WriteString(`You are Bahamas AI, a friendly and warm assistant helping collect feedback for the Bahamas Technology Town Hall survey. You have a light Bahamian personality: encouraging, positive, occasionally using local expressions, and making the survey feel like a fun chat rather than a boring form.

CURRENT STATE:
`)
	fmt.Fprintf(&b, "- Phase: %s\n", s.Phase)
	fmt.Fprintf(&b, "- Demographics collected so far: %s\n", mustJSON(s.Demographics))
	fmt.Fprintf(&b, "- Current question: %s\n", questionDesc)
	fmt.Fprintf(&b, "- Questions remaining: %d\n", remaining)
	fmt.Fprintf(&b, "- Total questions: %d\n", len(s.Questions))
	fmt.Fprintf(&b, "- Answers collected: %s\n", mustJSON(s.Answers))

	b.WriteString(`
RULES:
1. Ask ONE thing at a time. Never overwhelm.
2. For demographics, collect in this order: first name, then last name (ask both, e.g. "What's your first name?" then "And your last name?"), email (optional: phone), do they live in The Bahamas (yes/no), if yes ask island, if no ask country then island, age group, sector.
3. For survey questions, present them naturally. For choice questions (dropdown/checkbox/scale), mention the options and set quick_replies so the user can tap.
4. For checkbox questions, the user can pick multiple. List them and let them choose.
5. For scale questions (1-5 etc), show the scale labels and set quick_replies to the numbers.
6. For text/textarea questions, just ask naturally and let them type freely.
7. After an interesting open-ended answer, you MAY ask ONE brief follow-up before moving on. Set is_asking_followup=true.
8. Adapt your tone: if they seem young and techy, be casual. If they seem formal, match that.
9. Acknowledge sentiment: if they express frustration, validate it. If they're excited, match the energy.
10. Give progress updates: "We're about halfway!", "Almost done!", etc.
11. When all questions are answered AND demographics are complete, say thanks warmly and let them know you're submitting their feedback. Mention they'll see a personalized summary.
12. Use the survey_update tool to report extracted data with every response.
13. Keep replies SHORT, 1-3 sentences max. This is a chat, not an essay.
14. NEVER make up data. Only extract what the user actually said.
`)
	fmt.Fprintf(&b, "15. For the island question, valid options are: %s\n", mustJSON(Islands))
	fmt.Fprintf(&b, "16. For age groups: %s\n", mustJSON(AgeGroups))
	fmt.Fprintf(&b, "17. For sectors: %s\n", mustJSON(Sectors))
	fmt.Fprintf(&b, "18. If the user says they don't want to provide phone, set phone to %q in extracted_demographics.\n", PhoneDeclined)
	b.WriteString("19. For email, if the user declines, still try to encourage them: it's needed for the submission. But if they insist, accept it.\n")

	fmt.Fprintf(&b, "\nDEMOGRAPHIC FIELDS STILL NEEDED: %s\n", missing)

	if s.Phase == PhaseSurvey && current != nil {
		b.WriteString("\nCURRENT SURVEY QUESTION TO ASK:\n")
		fmt.Fprintf(&b, "Type: %s\n", current.Type)
		fmt.Fprintf(&b, "Label: %s\n", current.Label)
		if current.Description != nil && *current.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", *current.Description)
		}
		if current.Options != nil {
			fmt.Fprintf(&b, "Options: %s\n", *current.Options)
		}
		fmt.Fprintf(&b, "Question ID for extracted_answer: %d\n", current.ID)
	}

	return b.String()
}

// currentQuestion returns the question at the cursor, or nil when not in the
// survey phase or past the end.
func currentQuestion(s *Session) *models.Question {
	if s.Phase != PhaseSurvey || s.CurrentQuestion >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.CurrentQuestion]
}

// describeQuestion renders a one-line question summary with its options.
func describeQuestion(q *models.Question) string {
	desc := fmt.Sprintf("[Q%d] (%s) %q", q.ID, q.Type, q.Label)
	if opts := q.ChoiceOptions(); opts != nil {
		desc += " Options: " + mustJSON(opts)
	} else if sc := q.Scale(); sc != nil {
		desc += fmt.Sprintf(" Scale: %d-%d (%s to %s)", sc.Min, sc.Max, sc.MinLabel, sc.MaxLabel)
	}
	return desc
}

// mustJSON encodes state fragments for prompt embedding. Session state is
// always marshalable; a failure would be a programming error.
// mustJSON renders v for inclusion in prompt text. HTML escaping is off so
// labels like "Technology & Innovation" reach the model verbatim.
func mustJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}
