// Package conversation implements the orchestration engine behind the
// Luisa sales assistant: intent triage, slot-filling dialogue, handoff
// policy and the optional LLM planning layer.
package conversation

import "time"

// Mode controls whether the assistant or a human advisor owns the
// conversation.
type Mode string

const (
	ModeAIActive    Mode = "ai_active"
	ModeHumanActive Mode = "human_active"
)

// Stage is the current position in the sales dialogue.
type Stage string

const (
	StageDiscovery       Stage = "discovery"
	StagePricing         Stage = "pricing"
	StageVisit           Stage = "visit"
	StageShipping        Stage = "shipping"
	StagePhotos          Stage = "photos"
	StageSupport         Stage = "support"
	StageHandoffSchedule Stage = "handoff_schedule"
	StageTriage          Stage = "triage"
)

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentBuyMachine       Intent = "buy_machine"
	IntentSpareParts       Intent = "spare_parts"
	IntentTechSupport      Intent = "tech_support"
	IntentBusinessAdvice   Intent = "business_advice"
	IntentSellMachine      Intent = "sell_machine"
	IntentFAQHoursLocation Intent = "faq_hours_location"
	IntentOther            Intent = "other"

	// IntentTriage marks a conversation waiting on a triage menu answer.
	IntentTriage Intent = "triage"
)

// Team receives a handoff.
type Team string

const (
	TeamCommercial Team = "commercial"
	TeamTechnical  Team = "technical"
)

// Priority of a handoff.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Slots holds everything the dialogue has learned about the purchase. The
// field set is closed on purpose: adding a slot means adding a field.
type Slots struct {
	ProductType     string `json:"product_type,omitempty"`
	UseCase         string `json:"use_case,omitempty"`
	Qty             string `json:"qty,omitempty"`
	City            string `json:"city,omitempty"`
	VisitOrDelivery string `json:"visit_or_delivery,omitempty"`
	Budget          string `json:"budget,omitempty"`
	Brand           string `json:"brand,omitempty"`
}

// Merge copies every non-empty field of u into s.
func (s *Slots) Merge(u Slots) {
	if u.ProductType != "" {
		s.ProductType = u.ProductType
	}
	if u.UseCase != "" {
		s.UseCase = u.UseCase
	}
	if u.Qty != "" {
		s.Qty = u.Qty
	}
	if u.City != "" {
		s.City = u.City
	}
	if u.VisitOrDelivery != "" {
		s.VisitOrDelivery = u.VisitOrDelivery
	}
	if u.Budget != "" {
		s.Budget = u.Budget
	}
	if u.Brand != "" {
		s.Brand = u.Brand
	}
}

// State is the per-conversation dialogue state, keyed by the customer's
// normalized phone number.
type State struct {
	ConversationID string    `json:"conversation_id"`
	Mode           Mode      `json:"mode"`
	ModeUpdatedAt  time.Time `json:"mode_updated_at"`
	Stage          Stage     `json:"stage"`
	Slots          Slots     `json:"slots"`
	LastIntent     Intent    `json:"last_intent,omitempty"`
	LastQuestion   string    `json:"last_question,omitempty"`
	AskedQuestions []string  `json:"asked_questions,omitempty"`
	TriageRetries  int       `json:"triage_retries,omitempty"`
	LLMCallCount   int       `json:"llm_call_count"`
	LLMWindowStart time.Time `json:"llm_window_start,omitempty"`
	HandoffAt      time.Time `json:"handoff_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewState returns the initial state for a conversation.
func NewState(conversationID string) *State {
	return &State{
		ConversationID: conversationID,
		Mode:           ModeAIActive,
		Stage:          StageDiscovery,
	}
}

// Asked reports whether a question slot was already asked.
func (s *State) Asked(question string) bool {
	for _, q := range s.AskedQuestions {
		if q == question {
			return true
		}
	}
	return false
}

// MarkAsked records a question so it is not repeated.
func (s *State) MarkAsked(question string) {
	if question == "" || s.Asked(question) {
		return
	}
	s.AskedQuestions = append(s.AskedQuestions, question)
}

// EffectiveMode applies the human-takeover TTL: human_active older than ttl
// reverts to ai_active. Reversion happens lazily on read.
func (s *State) EffectiveMode(now time.Time, ttl time.Duration) Mode {
	if s.Mode == ModeHumanActive && ttl > 0 && now.Sub(s.ModeUpdatedAt) > ttl {
		return ModeAIActive
	}
	return s.Mode
}

// Direction of a stored message.
const (
	DirectionInbound  = "in"
	DirectionOutbound = "out"
)

// Message is a persisted inbound or outbound message.
type Message struct {
	ID                string    `json:"id"`
	ConversationID    string    `json:"conversation_id"`
	Direction         string    `json:"direction"`
	Body              string    `json:"body"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// HandoffDecision is the outcome of the escalation policy.
type HandoffDecision struct {
	ShouldHandoff bool     `json:"should_handoff"`
	Team          Team     `json:"team,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	Priority      Priority `json:"priority,omitempty"`
}

// Context is what the extractor infers from recent history.
type Context struct {
	MachineType  string `json:"machine_type,omitempty"`
	UseCase      string `json:"use_case,omitempty"`
	MultipleUses bool   `json:"multiple_uses,omitempty"`
	Volume       string `json:"volume,omitempty"`
	City         string `json:"city,omitempty"`
	Brand        string `json:"brand,omitempty"`
	Model        string `json:"model,omitempty"`
	Budget       string `json:"budget,omitempty"`
	FunnelStage  string `json:"funnel_stage,omitempty"`
	UseCaseCount int    `json:"use_case_count,omitempty"`
	Turns        int    `json:"turns,omitempty"`
}
