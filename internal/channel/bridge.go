package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/open-dingtalk/dingtalk-stream-sdk-go/chatbot"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/dedup"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/dingtalk"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/domain"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/history"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/metrics"
)

// bridge turns accepted stream events into dispatcher invocations. One
// bridge per account connection; the dedup cache and dispatcher are
// shared across accounts.
type bridge struct {
	cred       domain.AccountCredential
	dedup      *dedup.Cache
	dispatcher domain.Dispatcher
	replier    *dingtalk.WebhookReplier
	store      *history.Store // nil when history is disabled
	logger     *slog.Logger
}

// handle is the chatbot callback. The frame is acknowledged as soon as
// it returns; all dispatch work continues on a detached goroutine so a
// slow or failing dispatcher never blocks the protocol handshake.
func (b *bridge) handle(ctx context.Context, data *chatbot.BotCallbackDataModel) ([]byte, error) {
	metrics.InboundEvents.Inc()

	if b.dedup.Seen(dedupID(data)) {
		metrics.DedupHits.Inc()
		b.logger.Debug("duplicate event suppressed", "account", b.cred.AccountID, "msg_id", data.MsgId)
		return []byte(""), nil
	}

	text := strings.TrimSpace(data.Text.Content)
	if data.Msgtype != "text" || text == "" {
		metrics.DroppedEvents.Inc()
		b.logger.Debug("event dropped",
			"account", b.cred.AccountID,
			"msgtype", data.Msgtype,
			"empty", text == "",
		)
		return []byte(""), nil
	}

	msg := domain.MessageContext{
		AccountID:        b.cred.AccountID,
		SessionKey:       sessionKey(b.cred.AccountID, data.ConversationId),
		ConversationID:   data.ConversationId,
		ConversationType: data.ConversationType,
		IsGroup:          data.ConversationType == domain.ConversationTypeGroup,
		SenderStaffID:    data.SenderStaffId,
		SenderNick:       data.SenderNick,
		Content:          text,
		MsgID:            data.MsgId,
		CreatedAt:        time.UnixMilli(data.CreateAt),
		SessionWebhook:   data.SessionWebhook,
	}

	go b.dispatch(msg)

	return []byte(""), nil
}

// dispatch invokes the host dispatcher with a deliver callback routing
// replies to the per-event session webhook. History writes happen here
// too, never on the acknowledgment path: the store's single SQLite
// connection can stall under contention. Errors end here, in the log;
// they must never reach the transport acknowledgment path.
func (b *bridge) dispatch(msg domain.MessageContext) {
	metrics.DispatchesTotal.Inc()

	b.recordHistory(history.DirectionInbound, msg.ConversationID, msg.SenderStaffID, msg.Content)

	deliver := func(reply domain.Reply) {
		if reply.Text == "" || msg.SessionWebhook == "" {
			return
		}
		if err := b.replier.Reply(context.Background(), msg.SessionWebhook, reply.Text); err != nil {
			b.logger.Error("reply delivery failed",
				"account", b.cred.AccountID,
				"conversation", msg.ConversationID,
				"err", err,
			)
			return
		}
		b.recordHistory(history.DirectionOutbound, msg.ConversationID, "", reply.Text)
	}

	if err := b.dispatcher.Dispatch(context.Background(), msg, deliver); err != nil {
		metrics.DispatchErrors.Inc()
		b.logger.Error("dispatch failed",
			"account", b.cred.AccountID,
			"session", msg.SessionKey,
			"err", err,
		)
	}
}

func (b *bridge) recordHistory(direction, conversationID, senderID, content string) {
	if b.store == nil {
		return
	}
	err := b.store.Record(context.Background(), history.Message{
		AccountID:      b.cred.AccountID,
		Direction:      direction,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	})
	if err != nil {
		b.logger.Warn("history record failed", "err", err)
	}
}

// dedupID derives the suppression key: the platform message id, or a
// conversation+timestamp+sender composite when absent. The composite
// can collide for distinct messages in the same millisecond; accepted
// approximation.
func dedupID(data *chatbot.BotCallbackDataModel) string {
	if data.MsgId != "" {
		return data.MsgId
	}
	return fmt.Sprintf("%s:%d:%s", data.ConversationId, data.CreateAt, data.SenderStaffId)
}

// sessionKey scopes a conversation by channel and account.
func sessionKey(accountID, conversationID string) string {
	return "dingtalk:" + accountID + ":" + conversationID
}
