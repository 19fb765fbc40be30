package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"line-chat-agent/internal/domain"
	"line-chat-agent/internal/integrations/paramstore"
)

const (
	defaultHistoryLimit = 20

	// The platform caps one text message at 5,000 characters; anything
	// beyond is silently truncated before delivery.
	maxReplyRunes = 5000

	// Single-tenant deployment.
	tenantID = 0

	defaultPersona = "あなたは親切で賢いAIアシスタントです。"
	fallbackText   = "ごめんなさい、ただいま少しトラブルが発生しています。"
)

// Outcome is the terminal state of one dispatched event.
type Outcome string

const (
	OutcomeReplied         Outcome = "replied"
	OutcomeSkipped         Outcome = "skipped"
	OutcomeFallbackReplied Outcome = "fallback_replied"
	OutcomeSilentFailed    Outcome = "silent_failed"
)

// PlatformClient is the slice of the messaging platform the dispatcher needs.
type PlatformClient interface {
	BotDisplayName(ctx context.Context) (string, error)
	Profile(ctx context.Context, userID string) (string, error)
	GroupMemberProfile(ctx context.Context, groupID, userID string) (string, error)
	RoomMemberProfile(ctx context.Context, roomID, userID string) (string, error)
	ReplyText(ctx context.Context, replyToken, text string) error
}

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

// ConversationStore is the degrade-gracefully persistence contract: writes
// never fail from the dispatcher's point of view, and a failed history read
// is an empty history.
type ConversationStore interface {
	SaveUser(ctx context.Context, rec domain.UserRecord)
	SaveTurn(ctx context.Context, turn domain.Turn)
	History(ctx context.Context, conversationID string, limit int) []domain.Turn
}

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// DispatchService orchestrates one inbound event end to end: preprocess,
// history, generation, persistence, reply.
type DispatchService struct {
	platform     PlatformClient
	llm          LLMClient
	store        ConversationStore
	params       ParamGetter
	paramPrefix  string
	model        string
	historyLimit int
	log          *slog.Logger

	personaOnce sync.Once
	persona     string
}

func NewDispatchService(platform PlatformClient, llm LLMClient, store ConversationStore, params ParamGetter, paramPrefix, model string, historyLimit int, log *slog.Logger) (*DispatchService, error) {
	if platform == nil {
		return nil, errors.New("usecase: platform client must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: conversation store must not be nil")
	}
	if params == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	if log == nil {
		log = slog.Default()
	}
	return &DispatchService{
		platform:     platform,
		llm:          llm,
		store:        store,
		params:       params,
		paramPrefix:  paramPrefix,
		model:        model,
		historyLimit: historyLimit,
		log:          log,
	}, nil
}

// Dispatch runs one inbound event through the full reply flow and returns
// its terminal outcome. All failure handling is internal: provider errors
// become the fixed apology, store errors degrade, delivery errors are
// logged and final.
func (s *DispatchService) Dispatch(ctx context.Context, ev domain.MessageEvent) Outcome {
	start := time.Now()
	defer func() {
		s.log.Info("dispatch finished", "conversation_id", ev.ConversationID(), "elapsed", time.Since(start))
	}()

	s.log.Info("handle message",
		"user_id", ev.UserID,
		"source_type", ev.SourceType,
		"group_id", ev.GroupID,
		"room_id", ev.RoomID,
	)

	pre, err := s.preprocess(ctx, ev)
	if err != nil {
		s.log.Error("preprocess failed", "err", err)
		s.sendFallback(ctx, ev.ReplyToken)
		return OutcomeFallbackReplied
	}
	if pre.Skip {
		s.log.Info("bot not mentioned in group chat, skipping")
		return OutcomeSkipped
	}

	convID := ev.ConversationID()
	s.store.SaveUser(ctx, domain.NewUserRecord(ev.UserID, pre.DisplayName, tenantID))
	history := s.store.History(ctx, convID, s.historyLimit)

	messages := buildPromptMessages(s.personaPrompt(ctx), pre.Text, history)
	answer, err := s.llm.Chat(ctx, s.model, messages)
	if err != nil {
		s.log.Error("completion failed", "err", newError(ErrorProvider, "completion_error", err))
		s.sendFallback(ctx, ev.ReplyToken)
		return OutcomeFallbackReplied
	}
	answer = strings.TrimSpace(answer)

	s.store.SaveTurn(ctx, domain.NewTurn(ev, pre.DisplayName, pre.Text, answer, tenantID))

	if err := s.platform.ReplyText(ctx, ev.ReplyToken, truncateRunes(answer, maxReplyRunes)); err != nil {
		// The reply token is spent; there is nothing further to attempt.
		s.log.Error("reply delivery failed", "err", newError(ErrorDelivery, "reply_error", err))
		return OutcomeSilentFailed
	}
	return OutcomeReplied
}

// personaPrompt loads the persona override from the parameter store once per
// process, defaulting to the built-in persona when unset or unavailable.
func (s *DispatchService) personaPrompt(ctx context.Context) string {
	s.personaOnce.Do(func() {
		s.persona = paramstore.GetParameterOr(ctx, s.params, s.paramPrefix+"/persona", defaultPersona)
	})
	return s.persona
}

// sendFallback delivers the fixed apology. A delivery failure here is logged
// the same way as on the primary path; the outcome stays fallback_replied.
func (s *DispatchService) sendFallback(ctx context.Context, replyToken string) {
	if err := s.platform.ReplyText(ctx, replyToken, fallbackText); err != nil {
		s.log.Error("fallback delivery failed", "err", err)
	}
}

// truncateRunes caps s at n characters. The platform limit counts
// characters, not bytes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
