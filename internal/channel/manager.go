// Package channel owns the account-scoped DingTalk stream connections
// and bridges inbound events into the host dispatch pipeline.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/dedup"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/dingtalk"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/domain"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/history"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/markdown"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/metrics"
)

// Incoming carries the routing metadata of the message being replied
// to in a host-initiated send.
type Incoming struct {
	ConversationType   string `json:"conversationType"`
	OpenConversationID string `json:"openConversationId"`
	SenderStaffID      string `json:"senderStaffId"`
}

// SendTextRequest is the host-facing send operation input.
type SendTextRequest struct {
	AccountID string   `json:"accountId"`
	Text      string   `json:"text"`
	Incoming  Incoming `json:"incoming"`
}

// SendResult is the structured outcome of a host-initiated send. Send
// failures degrade to {ok:false, error} instead of an error return
// because host code expects a result object.
type SendResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Accounts   map[string]domain.AccountCredential
	Dispatcher domain.Dispatcher
	Sender     *dingtalk.Sender
	Replier    *dingtalk.WebhookReplier
	History    *history.Store // optional
	Logger     *slog.Logger
	// Transport defaults to the Stream SDK factory.
	Transport TransportFactory
	// DedupWindow defaults to dedup.DefaultWindow.
	DedupWindow time.Duration
}

// Manager owns one streaming connection per account and exposes the
// host-facing lifecycle and send operations. It is the sole owner of
// the accountID -> connection map.
type Manager struct {
	accounts   map[string]domain.AccountCredential
	dispatcher domain.Dispatcher
	sender     *dingtalk.Sender
	replier    *dingtalk.WebhookReplier
	store      *history.Store
	logger     *slog.Logger
	transport  TransportFactory
	dedup      *dedup.Cache

	mu       sync.Mutex
	conns    map[string]Transport
	starting map[string]struct{}
}

// NewManager creates a manager. Dispatcher is required.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("channel manager requires a dispatcher")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Transport == nil {
		cfg.Transport = NewStreamTransportFactory(cfg.Logger)
	}
	return &Manager{
		accounts:   cfg.Accounts,
		dispatcher: cfg.Dispatcher,
		sender:     cfg.Sender,
		replier:    cfg.Replier,
		store:      cfg.History,
		logger:     cfg.Logger,
		transport:  cfg.Transport,
		dedup:      dedup.NewCache(cfg.DedupWindow),
		conns:      map[string]Transport{},
		starting:   map[string]struct{}{},
	}, nil
}

// StartAccount validates the account's credentials, opens a stream
// connection bound to them with the inbound bridge registered, and
// records it. A ConfigError is fatal to the start: no connection is
// recorded. Starting an already-running account is a no-op success.
func (m *Manager) StartAccount(ctx context.Context, accountID string) error {
	cred, ok := m.accounts[accountID]
	if !ok {
		return &domain.ConfigError{Reason: fmt.Sprintf("unknown account %q", accountID)}
	}
	if !cred.Complete() {
		return &domain.ConfigError{Reason: fmt.Sprintf("account %q: missing clientId or clientSecret", accountID)}
	}

	// Reserve the account before opening so a concurrent start cannot
	// open a second connection; the reservation is released on record
	// or on open failure.
	m.mu.Lock()
	if _, running := m.conns[accountID]; running {
		m.mu.Unlock()
		m.logger.Debug("account already running", "account", accountID)
		return nil
	}
	if _, pending := m.starting[accountID]; pending {
		m.mu.Unlock()
		m.logger.Debug("account start already in progress", "account", accountID)
		return nil
	}
	m.starting[accountID] = struct{}{}
	m.mu.Unlock()

	b := &bridge{
		cred:       cred,
		dedup:      m.dedup,
		dispatcher: m.dispatcher,
		replier:    m.replier,
		store:      m.store,
		logger:     m.logger,
	}
	conn := m.transport(cred, b.handle)

	m.logger.Info("account connecting", "account", accountID)
	if err := conn.Open(ctx); err != nil {
		m.mu.Lock()
		delete(m.starting, accountID)
		m.mu.Unlock()
		return fmt.Errorf("start account %s: %w", accountID, err)
	}

	m.mu.Lock()
	delete(m.starting, accountID)
	m.conns[accountID] = conn
	m.mu.Unlock()

	metrics.ActiveAccounts.Inc()
	m.logger.Info("account connected", "account", accountID)
	return nil
}

// StopAccount closes and forgets the account's connection. Idempotent:
// stopping an account with no active connection is a no-op success.
// In-flight dispatch work for already-received events is not cancelled.
func (m *Manager) StopAccount(accountID string) {
	m.mu.Lock()
	conn, ok := m.conns[accountID]
	if ok {
		delete(m.conns, accountID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	conn.Close()
	metrics.ActiveAccounts.Dec()
	m.logger.Info("account stopped", "account", accountID)
}

// StopAll stops every running account.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.StopAccount(id)
	}
}

// Status reports whether a connection is currently recorded for the
// account. A liveness proxy, not a deep health check.
func (m *Manager) Status(accountID string) (bool, string) {
	m.mu.Lock()
	_, running := m.conns[accountID]
	m.mu.Unlock()

	if running {
		return true, fmt.Sprintf("account %s running", accountID)
	}
	return false, fmt.Sprintf("account %s not running", accountID)
}

// SendText delivers a host-initiated reply, routing group vs. direct
// from the incoming conversation type. Content formatting follows the
// markdown detector.
func (m *Manager) SendText(ctx context.Context, req SendTextRequest) SendResult {
	cred, ok := m.accounts[req.AccountID]
	if !ok {
		return SendResult{Error: fmt.Sprintf("unknown account %q", req.AccountID)}
	}
	if req.Text == "" {
		return SendResult{Error: "empty text"}
	}

	var err error
	if req.Incoming.ConversationType == domain.ConversationTypeGroup {
		err = m.sender.SendGroup(ctx, cred, req.Incoming.OpenConversationID, req.Text, markdown.Format(""))
	} else {
		if cred.RobotCode == "" {
			return SendResult{Error: "Missing robotCode"}
		}
		err = m.sender.SendDirect(ctx, cred, req.Incoming.SenderStaffID, req.Text, markdown.Format(""))
	}
	if err != nil {
		m.logger.Error("send failed", "account", req.AccountID, "err", err)
		return SendResult{Error: err.Error()}
	}

	m.recordSend(req, cred)
	return SendResult{OK: true}
}

func (m *Manager) recordSend(req SendTextRequest, cred domain.AccountCredential) {
	if m.store == nil {
		return
	}
	conversationID := req.Incoming.OpenConversationID
	if conversationID == "" {
		conversationID = req.Incoming.SenderStaffID
	}
	err := m.store.Record(context.Background(), history.Message{
		AccountID:      cred.AccountID,
		Direction:      history.DirectionOutbound,
		ConversationID: conversationID,
		Content:        req.Text,
	})
	if err != nil {
		m.logger.Warn("history record failed", "err", err)
	}
}
