package conversation

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/elsastre/luisa/pkg/logging"
)

// Brain orchestrates decide, plan and speak. The model is consulted only
// where it earns its cost; everything else stays on rules, and every
// accepted message always gets a non-empty reply.
type Brain struct {
	planner    *Planner
	classifier *Classifier
	humanizer  *Humanizer

	maxCalls     int
	budgetWindow time.Duration
	cacheTTL     time.Duration

	mu        sync.Mutex
	planCache map[string]planCacheEntry

	logger *logging.Logger
	now    func() time.Time
}

type planCacheEntry struct {
	out      *PlannerOutput
	storedAt time.Time
}

type BrainConfig struct {
	Planner      *Planner
	Classifier   *Classifier
	Humanizer    *Humanizer
	MaxCalls     int
	BudgetWindow time.Duration
	PlanCacheTTL time.Duration
	Logger       *logging.Logger
}

func NewBrain(cfg BrainConfig) *Brain {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxCalls <= 0 {
		cfg.MaxCalls = 4
	}
	if cfg.BudgetWindow <= 0 {
		cfg.BudgetWindow = 24 * time.Hour
	}
	if cfg.PlanCacheTTL <= 0 {
		cfg.PlanCacheTTL = 5 * time.Minute
	}
	return &Brain{
		planner:      cfg.Planner,
		classifier:   cfg.Classifier,
		humanizer:    cfg.Humanizer,
		maxCalls:     cfg.MaxCalls,
		budgetWindow: cfg.BudgetWindow,
		cacheTTL:     cfg.PlanCacheTTL,
		planCache:    make(map[string]planCacheEntry),
		logger:       logger,
		now:          time.Now,
	}
}

var indecisiveKeywords = []string{"no sé", "no se", "cual", "cuál", "recomiéndame", "recomiendame", "indeciso"}

var priceObjectionKeywords = []string{"muy caro", "caro", "costoso", "no tengo", "no alcanza", "otro lado", "más barato", "mas barato"}

var browsingKeywords = []string{"solo averiguando", "solo estoy viendo", "solo info"}

var complexTechKeywords = []string{"se revienta", "ruido", "no prende", "falla", "problema"}

// callsInWindow returns the spent budget, treating an expired window as
// fresh.
func (b *Brain) callsInWindow(state *State) int {
	if state.LLMWindowStart.IsZero() || b.now().Sub(state.LLMWindowStart) > b.budgetWindow {
		return 0
	}
	return state.LLMCallCount
}

func (b *Brain) recordLLMCall(state *State) {
	now := b.now()
	if state.LLMWindowStart.IsZero() || now.Sub(state.LLMWindowStart) > b.budgetWindow {
		state.LLMWindowStart = now
		state.LLMCallCount = 0
	}
	state.LLMCallCount++
}

// ShouldUseLLM gates model access: the conversation must still have budget
// and the message must be one where rules alone fall short. Ambiguity is
// deliberately not a trigger; an ambiguous first contact gets the numbered
// triage menu from the playbook instead of a model call.
func (b *Brain) ShouldUseLLM(text string, intent Intent, state *State) (bool, string) {
	if b.planner == nil {
		return false, "llm_disabled"
	}
	if b.callsInWindow(state) >= b.maxCalls {
		return false, "max_calls_reached"
	}

	lower := strings.ToLower(text)

	for _, kw := range indecisiveKeywords {
		if strings.Contains(lower, kw) {
			return true, "user_indecisive"
		}
	}
	for _, kw := range priceObjectionKeywords {
		if strings.Contains(lower, kw) {
			return true, "objection_price"
		}
	}
	for _, kw := range browsingKeywords {
		if strings.Contains(lower, kw) {
			return true, "objection_browsing"
		}
	}
	if intent == IntentTechSupport {
		for _, kw := range complexTechKeywords {
			if strings.Contains(lower, kw) {
				return true, "tech_support_complex"
			}
		}
	}
	return false, "rules_sufficient"
}

// DecideIntent runs deterministic triage first and only consults the
// classifier for ambiguous messages with budget left.
func (b *Brain) DecideIntent(ctx context.Context, text string, state *State, history []Message) (Intent, float64, bool) {
	tri := ClassifyTriageIntent(text)
	if !tri.Ambiguous && tri.Confidence >= triageConfidenceThreshold {
		return tri.Intent, tri.Confidence, false
	}

	if tri.Ambiguous && b.classifier != nil && b.callsInWindow(state) < b.maxCalls {
		out, err := b.classifier.Classify(ctx, text, history)
		if err != nil {
			b.logger.Warn("classifier failed, keeping triage result", "error", err.Error())
		} else {
			b.recordLLMCall(state)
			return out.Intent, out.Confidence, out.IsAmbiguous
		}
	}

	return tri.Intent, tri.Confidence, tri.Ambiguous
}

func planCacheKey(phone string, history []Message, text string) string {
	texts := []string{text}
	if len(history) > 0 {
		texts = texts[:0]
		start := len(history) - 2
		if start < 0 {
			start = 0
		}
		for _, m := range history[start:] {
			texts = append(texts, m.Body)
		}
	}
	sum := md5.Sum([]byte(strings.Join(texts, "|")))
	return fmt.Sprintf("sb:%s:%s", phone, hex.EncodeToString(sum[:])[:8])
}

// Plan returns a cached or fresh sales plan, or nil when the model is not
// worth calling. The second return reports whether the model was actually
// called; cache hits spend no budget and must not be traced as calls.
func (b *Brain) Plan(ctx context.Context, phone, text string, intent Intent, state *State, history []Message, shouldUse bool) (*PlannerOutput, bool) {
	if !shouldUse || b.planner == nil {
		return nil, false
	}

	key := planCacheKey(phone, history, text)

	b.mu.Lock()
	if entry, ok := b.planCache[key]; ok {
		if b.now().Sub(entry.storedAt) <= b.cacheTTL {
			b.mu.Unlock()
			b.logger.Info("plan cache hit", "key", key)
			return entry.out, false
		}
		delete(b.planCache, key)
	}
	b.mu.Unlock()

	out, err := b.planner.Plan(ctx, text, intent, state, history)
	if err != nil {
		b.logger.Warn("planner failed, falling back to rules", "error", err.Error())
		return nil, false
	}

	b.mu.Lock()
	b.planCache[key] = planCacheEntry{out: out, storedAt: b.now()}
	b.mu.Unlock()
	b.recordLLMCall(state)
	return out, true
}

// Speak assembles the final reply from the plan when there is one, the
// playbook result otherwise, and a guaranteed question as last resort.
func (b *Brain) Speak(ctx context.Context, plan *PlannerOutput, playbook *PlaybookResult, state *State) PlaybookResult {
	if plan != nil {
		reply := plan.RecommendedReplyBase
		if plan.NextBestQuestion != "" {
			reply = reply + "\n\n" + plan.NextBestQuestion
		}

		var updates Slots
		if plan.Confidence >= 0.7 {
			updates = plan.Slots
		}

		path := "salesbrain_planner"
		if rewritten, ok := b.humanizer.Rewrite(ctx, reply); ok {
			reply = rewritten
			path += "->humanized"
		}

		return PlaybookResult{
			Reply:        reply,
			NextStage:    state.Stage,
			Question:     plan.NextBestQuestion,
			SlotUpdates:  updates,
			DecisionPath: path,
		}
	}

	if playbook != nil && playbook.Reply != "" {
		result := *playbook
		if rewritten, ok := b.humanizer.Rewrite(ctx, result.Reply); ok {
			result.Reply = rewritten
			result.DecisionPath += "->humanized"
		}
		return result
	}

	return PlaybookResult{
		Reply:        "¿Buscas máquina familiar (para casa) o industrial (para producción)?",
		NextStage:    StageDiscovery,
		Question:     "product_type",
		DecisionPath: "fallback",
	}
}

// ensureNextStepQuestion appends the highest-priority missing-slot question
// when the assembled reply carries none, so no turn leaves the customer
// without a next step. Replies that already ask something are left alone.
func ensureNextStepQuestion(result *PlaybookResult, intent Intent, state *State) {
	if strings.Contains(result.Reply, "?") {
		return
	}
	token := PickOneQuestion(intent, state)
	if token == "" || state.Asked(token) {
		return
	}
	text, ok := QuestionText[token]
	if !ok {
		return
	}
	result.Reply = strings.TrimSpace(result.Reply) + "\n\n" + text
	if result.Question == "" {
		result.Question = token
	}
}

// Process runs decide, plan and speak for one inbound message.
func (b *Brain) Process(ctx context.Context, phone, text string, state *State, history []Message, convCtx Context) PlaybookResult {
	intent, _, _ := b.DecideIntent(ctx, text, state, history)

	shouldUse, reason := b.ShouldUseLLM(text, intent, state)

	if obj := HandleObjection(text, state); obj != nil {
		result := b.Speak(ctx, nil, obj, state)
		ensureNextStepQuestion(&result, intent, state)
		result.DecisionPath += fmt.Sprintf("->llm_called=false->reason=%s", reason)
		return result
	}

	plan, called := b.Plan(ctx, phone, text, intent, state, history, shouldUse)

	var playbook *PlaybookResult
	if plan == nil {
		r := NextAction(text, intent, state, convCtx)
		playbook = &r
	}

	result := b.Speak(ctx, plan, playbook, state)
	ensureNextStepQuestion(&result, intent, state)
	result.DecisionPath += fmt.Sprintf("->llm_called=%t->reason=%s", called, reason)
	return result
}
