package domain

import "time"

// Conversation type discriminator value used by the platform for group chats.
const ConversationTypeGroup = "2"

// MessageContext is the normalized view of one inbound event. It is
// constructed per event, passed by value to the dispatcher, and never
// retained by the channel.
type MessageContext struct {
	AccountID        string    `json:"accountId"`
	SessionKey       string    `json:"sessionKey"` // dingtalk:<account>:<conversation>
	ConversationID   string    `json:"conversationId"`
	ConversationType string    `json:"conversationType"`
	IsGroup          bool      `json:"isGroup"`
	SenderStaffID    string    `json:"senderStaffId"`
	SenderNick       string    `json:"senderNick"`
	Content          string    `json:"content"`
	MsgID            string    `json:"msgId"`
	CreatedAt        time.Time `json:"createdAt"`
	// SessionWebhook is the per-event reply URL supplied by the transport.
	SessionWebhook string `json:"-"`
}

// Reply is one dispatcher-produced reply. An empty Text means there is
// nothing to deliver.
type Reply struct {
	Text string `json:"text,omitempty"`
}
