package conversation

import (
	"context"
	"strings"
	"time"

	observemetrics "github.com/elsastre/luisa/internal/observability/metrics"
	"github.com/elsastre/luisa/internal/rules"
	"github.com/elsastre/luisa/pkg/logging"
)

// TeamNotifier pushes an internal handoff alert to the advisors of a team.
type TeamNotifier interface {
	NotifyTeam(ctx context.Context, team Team, body string) error
}

// SendOutcome reports how a gateway delivery went.
type SendOutcome struct {
	Success   bool
	LatencyMS float64
	ErrorCode string
}

// MessageSender delivers a reply to the customer. With a nil sender the
// engine only produces the reply; chat-channel turns skip the send either
// way.
type MessageSender interface {
	Send(ctx context.Context, to, body string) (SendOutcome, error)
}

// Channels a message can arrive on. Chat turns stay synchronous and are
// never pushed back out through the gateway.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelChat     = "chat"
)

// InboundMessage is one accepted customer message handed to the engine.
type InboundMessage struct {
	ConversationID    string
	ContactName       string
	Body              string
	ProviderMessageID string
	Channel           string
}

// EngineResult is what the engine answered with.
type EngineResult struct {
	Reply  string `json:"reply"`
	Stage  Stage  `json:"stage"`
	Intent Intent `json:"intent"`
}

// Engine runs the full pipeline for one inbound message: state load, human
// takeover check, handoff cascade, brain, persistence and delivery.
type Engine struct {
	states          *StateStore
	store           *Store
	brain           *Brain
	cache           *ReplyCache
	notifier        TeamNotifier
	sender          MessageSender
	metrics         *observemetrics.ConversationMetrics
	logger          *logging.Logger
	humanTTL        time.Duration
	handoffCooldown time.Duration
	now             func() time.Time
}

// EngineConfig wires the engine dependencies. States, Store and Brain are
// required; everything else is optional.
type EngineConfig struct {
	States          *StateStore
	Store           *Store
	Brain           *Brain
	Cache           *ReplyCache
	Notifier        TeamNotifier
	Sender          MessageSender
	Metrics         *observemetrics.ConversationMetrics
	Logger          *logging.Logger
	HumanModeTTL    time.Duration
	HandoffCooldown time.Duration
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.HumanModeTTL <= 0 {
		cfg.HumanModeTTL = 12 * time.Hour
	}
	if cfg.HandoffCooldown <= 0 {
		cfg.HandoffCooldown = 30 * time.Minute
	}
	return &Engine{
		states:          cfg.States,
		store:           cfg.Store,
		brain:           cfg.Brain,
		cache:           cfg.Cache,
		notifier:        cfg.Notifier,
		sender:          cfg.Sender,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		humanTTL:        cfg.HumanModeTTL,
		handoffCooldown: cfg.HandoffCooldown,
		now:             time.Now,
	}
}

// Process answers one inbound message. Every accepted message yields a
// non-empty reply; partial persistence failures are logged, not fatal.
func (e *Engine) Process(ctx context.Context, in InboundMessage) (EngineResult, error) {
	channel := in.Channel
	if channel == "" {
		channel = ChannelWhatsApp
	}
	var sink TraceSink
	if e.store != nil {
		sink = e.store
	}
	tracer := NewTracer(sink, e.logger, in.ConversationID, channel, in.ConversationID)
	tracer.Trace.RawText = in.Body
	tracer.Trace.NormalizedText = rules.Normalize(in.Body)
	defer tracer.Finish(ctx)

	started := e.now()
	defer func() {
		e.metrics.ObserveProcessed(string(tracer.Trace.Intent), e.now().Sub(started).Seconds())
	}()

	// A broken state read must not leave the customer without an answer;
	// the conversation restarts from a fresh state instead.
	state, err := e.states.Load(ctx, in.ConversationID)
	if err != nil {
		tracer.RecordError(err)
		e.logger.Error("failed to load state, starting fresh", "error", err, "conversation_id", in.ConversationID)
		state = NewState(in.ConversationID)
	}
	now := e.now().UTC()
	if state.Mode == ModeHumanActive && state.EffectiveMode(now, e.humanTTL) == ModeAIActive {
		state.Mode = ModeAIActive
		state.ModeUpdatedAt = now
	}

	e.saveMessage(ctx, Message{
		ConversationID:    in.ConversationID,
		Direction:         DirectionInbound,
		Body:              in.Body,
		ProviderMessageID: in.ProviderMessageID,
	})

	if state.Mode == ModeHumanActive {
		reply := rules.SelectVariant(in.ConversationID, rules.HumanActiveVariants)
		tracer.Trace.DecisionPath = "human_active"
		return e.respond(ctx, tracer, state, in, reply)
	}

	tri := ClassifyTriageIntent(in.Body)
	tracer.Trace.Intent = tri.Intent

	// Confident FAQ queries are served from the reply cache without
	// touching the dialogue machine.
	if e.cache != nil && tri.Intent == IntentFAQHoursLocation && !tri.Ambiguous {
		if cached, ok := e.cache.Get(in.Body); ok {
			tracer.Trace.CacheHit = true
			tracer.Trace.DecisionPath = "cache_hit"
			state.LastIntent = tri.Intent
			return e.respond(ctx, tracer, state, in, cached)
		}
	}

	var history []Message
	if e.store != nil {
		history, err = e.store.ListRecentMessages(ctx, in.ConversationID, 12)
		if err != nil {
			e.logger.Error("failed to load history", "error", err, "conversation_id", in.ConversationID)
			history = nil
		}
	}
	convCtx := ExtractContext(history)

	if decision := ShouldHandoff(in.Body, convCtx); decision.ShouldHandoff {
		return e.handoff(ctx, tracer, state, in, convCtx, decision, now)
	}

	result := e.brain.Process(ctx, in.ConversationID, in.Body, state, history, convCtx)

	if result.NextStage != "" {
		state.Stage = result.NextStage
	}
	state.Slots.Merge(result.SlotUpdates)
	if result.Question != "" {
		state.LastQuestion = result.Question
		state.MarkAsked(result.Question)
	}
	if !tri.Ambiguous && tri.Confidence >= triageConfidenceThreshold {
		state.LastIntent = tri.Intent
	}

	tracer.Trace.DecisionPath = result.DecisionPath
	tracer.Trace.LLMCalled = strings.Contains(result.DecisionPath, "llm_called=true")
	if tracer.Trace.LLMCalled {
		e.metrics.ObserveLLMCall()
	}

	if e.cache != nil && tri.Intent == IntentFAQHoursLocation && !tri.Ambiguous {
		e.cache.Set(in.Body, result.Reply)
	}
	return e.respond(ctx, tracer, state, in, result.Reply)
}

// handoff escalates to a human team. A handoff inside the cooldown window
// still updates the records but does not re-alert the team.
func (e *Engine) handoff(ctx context.Context, tracer *Tracer, state *State, in InboundMessage, convCtx Context, decision HandoffDecision, now time.Time) (EngineResult, error) {
	inCooldown := !state.HandoffAt.IsZero() && now.Sub(state.HandoffAt) < e.handoffCooldown

	bullets := SummaryBullets(in.Body, convCtx)
	record := HandoffRecord{
		ConversationID:    in.ConversationID,
		Team:              decision.Team,
		Priority:          decision.Priority,
		Reason:            decision.Reason,
		CustomerPhoneHash: HashPhone(in.ConversationID),
		Summary:           strings.Join(bullets, "\n"),
	}
	if e.store != nil {
		if err := e.store.SaveHandoff(ctx, record); err != nil {
			e.logger.Error("failed to persist handoff", "error", err, "conversation_id", in.ConversationID)
		}
	}

	if !inCooldown {
		next := NextStepSuggestion(decision.Team, in.Body, convCtx)
		body := BuildInternalNotification(decision.Team, in.ConversationID, in.ContactName, bullets, next)
		if e.store != nil {
			if err := e.store.SaveNotification(ctx, NotificationRecord{
				ConversationID: in.ConversationID,
				Team:           decision.Team,
				Body:           body,
			}); err != nil {
				e.logger.Error("failed to persist notification", "error", err, "conversation_id", in.ConversationID)
			}
		}
		if e.notifier != nil {
			if err := e.notifier.NotifyTeam(ctx, decision.Team, body); err != nil {
				e.logger.Error("team notification failed", "error", err, "team", string(decision.Team))
			}
		}
	}

	state.Mode = ModeHumanActive
	state.ModeUpdatedAt = now
	state.HandoffAt = now
	state.Stage = StageHandoffSchedule

	tracer.Trace.RoutedTeam = decision.Team
	e.metrics.ObserveHandoff(string(decision.Team))
	path := "handoff:" + decision.Reason
	if inCooldown {
		path += "->cooldown"
	}
	tracer.Trace.DecisionPath = path

	reply := HandoffCustomerMessage(in.Body, decision.Reason, decision.Priority, convCtx.City)
	return e.respond(ctx, tracer, state, in, reply)
}

// respond persists the outbound message, pushes it through the gateway
// when one is configured, and saves the dialogue state.
func (e *Engine) respond(ctx context.Context, tracer *Tracer, state *State, in InboundMessage, reply string) (EngineResult, error) {
	tracer.Trace.ResponseText = reply

	e.saveMessage(ctx, Message{
		ConversationID: in.ConversationID,
		Direction:      DirectionOutbound,
		Body:           reply,
	})

	if e.sender != nil && in.Channel != ChannelChat {
		outcome, err := e.sender.Send(ctx, in.ConversationID, reply)
		success := err == nil && outcome.Success
		tracer.Trace.SendSuccess = &success
		tracer.Trace.SendLatencyMS = outcome.LatencyMS
		tracer.Trace.SendErrorCode = outcome.ErrorCode
		status := "sent"
		if !success {
			status = "failed"
		}
		e.metrics.ObserveOutbound(status)
		if err != nil {
			e.logger.Error("outbound send failed", "error", err, "conversation_id", in.ConversationID)
		}
	}

	if err := e.states.Save(ctx, state); err != nil {
		e.logger.Error("failed to persist state", "error", err, "conversation_id", in.ConversationID)
	}
	return EngineResult{Reply: reply, Stage: state.Stage, Intent: state.LastIntent}, nil
}

func (e *Engine) saveMessage(ctx context.Context, msg Message) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveMessage(ctx, msg); err != nil {
		e.logger.Error("failed to persist message", "error", err, "conversation_id", msg.ConversationID)
	}
}
