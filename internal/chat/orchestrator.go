package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/gmr0780/bahamas-town-hall/internal/llm"
	"github.com/gmr0780/bahamas-town-hall/internal/models"
	"github.com/gmr0780/bahamas-town-hall/internal/store"
)

var (
	// ErrEmptyMessage means the user sent a blank or whitespace-only message.
	ErrEmptyMessage = errors.New("chat: message is empty")
	// ErrSurveyClosed means submissions are currently disabled.
	ErrSurveyClosed = errors.New("chat: survey is closed")
)

// ConflictError carries a turn result alongside a duplicate-email failure so
// the handler can return the model's reply with a conflict status while the
// session stays open for a corrected email.
type ConflictError struct {
	Result *TurnResult
}

func (e *ConflictError) Error() string { return "chat: email already used" }

// Catalog supplies the active question list for new sessions.
type Catalog interface {
	ActiveQuestions(ctx context.Context) ([]models.Question, error)
}

// SubmissionSink commits a finished interview.
type SubmissionSink interface {
	SubmitSurvey(ctx context.Context, sub store.Submission) (uint, error)
}

// SurveyStatus reports whether the survey accepts new responses.
type SurveyStatus interface {
	SurveyOpen(ctx context.Context) (bool, error)
}

// Verifier checks an anti-bot token before a session is created.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Mailer sends the post-submission thank-you email.
type Mailer interface {
	SendThankYou(name, email string) error
}

// Notifier announces a completed submission to the team.
type Notifier interface {
	SubmissionReceived(name, island, sector string, citizenID uint) error
}

// TurnResult is what one conversational turn returns to the client.
type TurnResult struct {
	SessionID    string   `json:"session_id"`
	Reply        string   `json:"reply"`
	QuickReplies []string `json:"quick_replies,omitempty"`
	Progress     int      `json:"progress"`
	Complete     bool     `json:"complete"`
	CitizenID    uint     `json:"citizen_id,omitempty"`
}

// Orchestrator runs the interview: it owns phase transitions, answer
// bookkeeping, and the final atomic commit. All model I/O goes through the
// ModelClient; all persistence through the injected sinks.
type Orchestrator struct {
	sessions SessionStore
	model    ModelClient
	catalog  Catalog
	sink     SubmissionSink
	status   SurveyStatus
	verifier Verifier
	mailer   Mailer
	notifier Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OrchestratorOpts bundles the orchestrator's collaborators. Mailer and
// Notifier are optional; the others are required.
type OrchestratorOpts struct {
	Sessions SessionStore
	Model    ModelClient
	Catalog  Catalog
	Sink     SubmissionSink
	Status   SurveyStatus
	Verifier Verifier
	Mailer   Mailer
	Notifier Notifier
}

// NewOrchestrator builds an Orchestrator from its collaborators.
func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	return &Orchestrator{
		sessions: opts.Sessions,
		model:    opts.Model,
		catalog:  opts.Catalog,
		sink:     opts.Sink,
		status:   opts.Status,
		verifier: opts.Verifier,
		mailer:   opts.Mailer,
		notifier: opts.Notifier,
		locks:    make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing turns for one session id.
// Concurrent messages for the same session run one at a time; different
// sessions proceed in parallel.
func (o *Orchestrator) sessionLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[id]
	if !ok {
		l = &sync.Mutex{}
		o.locks[id] = l
	}
	return l
}

func (o *Orchestrator) releaseLock(id string) {
	o.mu.Lock()
	delete(o.locks, id)
	o.mu.Unlock()
}

// Sweep evicts expired sessions from the store and drops any turn locks
// whose session no longer exists.
func (o *Orchestrator) Sweep(ctx context.Context) (int, error) {
	n, err := o.sessions.Sweep(ctx)
	if err != nil {
		return n, err
	}
	o.mu.Lock()
	ids := make([]string, 0, len(o.locks))
	for id := range o.locks {
		ids = append(ids, id)
	}
	o.mu.Unlock()
	for _, id := range ids {
		if _, err := o.sessions.Get(ctx, id); errors.Is(err, ErrSessionNotFound) {
			o.releaseLock(id)
		}
	}
	return n, nil
}

// Start verifies the caller, snapshots the question catalog, and runs the
// opening turn so the assistant greets first.
func (o *Orchestrator) Start(ctx context.Context, token, remoteIP string) (*TurnResult, error) {
	open, err := o.status.SurveyOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat: survey status: %w", err)
	}
	if !open {
		return nil, ErrSurveyClosed
	}
	if o.verifier != nil {
		if err := o.verifier.Verify(ctx, token, remoteIP); err != nil {
			return nil, err
		}
	}

	questions, err := o.catalog.ActiveQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat: load questions: %w", err)
	}

	s := NewSession(questions)
	s.Messages = append(s.Messages, Turn{Role: "user", Content: OpeningUserTurn})

	result, err := o.model.Converse(ctx, BuildSystemPrompt(s), history(s))
	if err != nil {
		return nil, err
	}
	s.Messages = append(s.Messages, Turn{Role: "assistant", Content: result.Reply})

	if err := o.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("chat: save session: %w", err)
	}
	return &TurnResult{
		SessionID:    s.ID,
		Reply:        result.Reply,
		QuickReplies: result.QuickReplies,
		Progress:     progress(s),
	}, nil
}

// Message runs one turn of an existing interview. On a completed session it
// replays the closing state without a model call. When the final commit hits
// a duplicate email the turn returns a *ConflictError wrapping the result
// and the session stays open so the user can supply a different address.
func (o *Orchestrator) Message(ctx context.Context, sessionID, message string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			o.releaseLock(sessionID)
		}
		return nil, err
	}

	if s.Phase == PhaseComplete {
		return &TurnResult{
			SessionID: s.ID,
			Reply:     "Your feedback has already been submitted. Thank you!",
			Progress:  100,
			Complete:  true,
		}, nil
	}

	s.Messages = append(s.Messages, Turn{Role: "user", Content: message})

	result, err := o.model.Converse(ctx, BuildSystemPrompt(s), history(s))
	if err != nil {
		return nil, err
	}
	s.Messages = append(s.Messages, Turn{Role: "assistant", Content: result.Reply})

	o.applyExtraction(s, result)

	turn := &TurnResult{
		SessionID:    s.ID,
		Reply:        result.Reply,
		QuickReplies: result.QuickReplies,
		Progress:     progress(s),
	}

	if !result.AskingFollowup && s.Phase == PhaseSurvey && s.CurrentQuestion >= len(s.Questions) && s.Demographics.Complete() {
		citizenID, err := o.commit(ctx, s)
		if err != nil {
			if putErr := o.sessions.Put(ctx, s); putErr != nil {
				log.Printf("chat: save session %s: %v", s.ID, putErr)
			}
			if errors.Is(err, store.ErrDuplicateEmail) {
				turn.Reply = "It looks like that email has already been used to submit feedback. If you'd like, share a different email address and I'll submit with that one."
				turn.QuickReplies = nil
				return nil, &ConflictError{Result: turn}
			}
			return nil, err
		}
		s.Phase = PhaseComplete
		turn.Complete = true
		turn.CitizenID = citizenID
		turn.Progress = 100
		o.afterCommit(s, citizenID)
	}

	if err := o.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("chat: save session: %w", err)
	}
	if turn.Complete {
		o.releaseLock(s.ID)
	}
	return turn, nil
}

// applyExtraction folds one turn's extracted data into the session:
// demographic merge, answer bookkeeping, cursor movement, and the
// demographics -> survey transition. Answers are stored in any phase; only
// the cursor is phase-bound, and it never moves while a follow-up is pending.
func (o *Orchestrator) applyExtraction(s *Session, result *ModelResult) {
	s.Demographics.Merge(result.Demographics)

	// Answers are accepted only for questions in the session's snapshot.
	if a := result.Answer; a != nil && s.QuestionByID(a.QuestionID) != nil {
		s.Answers[a.QuestionID] = a.Value
		if s.Phase == PhaseSurvey && !result.AskingFollowup {
			if current := currentQuestion(s); current != nil && current.ID == a.QuestionID {
				s.CurrentQuestion++
			}
		}
	}

	if s.Phase == PhaseDemographics && s.Demographics.Complete() {
		s.Phase = PhaseSurvey
	}

	// Skip forward past questions already answered out of order. Held while
	// a follow-up is pending so the current question stays in place.
	if s.Phase == PhaseSurvey && !result.AskingFollowup {
		for s.CurrentQuestion < len(s.Questions) {
			if _, done := s.Answers[s.Questions[s.CurrentQuestion].ID]; !done {
				break
			}
			s.CurrentQuestion++
		}
	}
}

// commit finalizes the interview into the database. A declined phone is
// stored as NULL.
func (o *Orchestrator) commit(ctx context.Context, s *Session) (uint, error) {
	d := &s.Demographics

	phone := d.Phone
	if phone != nil && *phone == PhoneDeclined {
		phone = nil
	}
	var country *string
	if d.Country != "" {
		c := d.Country
		country = &c
	}
	lives := d.LivesInBahamas != nil && *d.LivesInBahamas

	answers := make(map[uint]string, len(s.Answers))
	for id, v := range s.Answers {
		answers[id] = v
	}

	return o.sink.SubmitSurvey(ctx, store.Submission{
		Name:           strings.TrimSpace(d.FirstName + " " + d.LastName),
		Email:          d.Email,
		Phone:          phone,
		LivesInBahamas: lives,
		Island:         d.Island,
		Country:        country,
		AgeGroup:       d.AgeGroup,
		Sector:         d.Sector,
		Answers:        answers,
	})
}

// afterCommit fires the thank-you email and team notification without
// holding up the response. Failures are logged, never surfaced.
func (o *Orchestrator) afterCommit(s *Session, citizenID uint) {
	d := s.Demographics
	if o.mailer != nil {
		go func() {
			if err := o.mailer.SendThankYou(d.FirstName, d.Email); err != nil {
				log.Printf("chat: thank-you email to %s: %v", d.Email, err)
			}
		}()
	}
	if o.notifier != nil {
		go func() {
			name := strings.TrimSpace(d.FirstName + " " + d.LastName)
			if err := o.notifier.SubmissionReceived(name, d.Island, d.Sector, citizenID); err != nil {
				log.Printf("chat: submission notification: %v", err)
			}
		}()
	}
}

// history converts the session transcript into model messages.
func history(s *Session) []llm.Message {
	msgs := make([]llm.Message, 0, len(s.Messages))
	for _, t := range s.Messages {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}

// progress is the percentage of total interview slots filled: demographic
// slots plus one slot per question.
func progress(s *Session) int {
	total := demographicSlots + len(s.Questions)
	if total == 0 {
		return 100
	}
	if s.Phase == PhaseComplete {
		return 100
	}
	filled := s.Demographics.CollectedCount() + len(s.Answers)
	pct := int(math.Round(100 * float64(filled) / float64(total)))
	if pct > 100 {
		pct = 100
	}
	return pct
}
