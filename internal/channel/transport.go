package channel

import (
	"context"
	"log/slog"

	"github.com/open-dingtalk/dingtalk-stream-sdk-go/chatbot"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/client"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/domain"
)

// Transport is one long-lived streaming connection. Open returns once
// the connection is established; the SDK maintains it (including
// reconnects) in the background until Close.
type Transport interface {
	Open(ctx context.Context) error
	Close()
}

// TransportFactory builds a transport bound to an account's
// credentials that delivers inbound chatbot events to handler. Tests
// inject a fake; production uses NewStreamTransportFactory.
type TransportFactory func(cred domain.AccountCredential, handler chatbot.IChatBotMessageHandler) Transport

// NewStreamTransportFactory returns the factory backed by the DingTalk
// Stream SDK.
func NewStreamTransportFactory(logger *slog.Logger) TransportFactory {
	return func(cred domain.AccountCredential, handler chatbot.IChatBotMessageHandler) Transport {
		return &sdkTransport{cred: cred, handler: handler, logger: logger}
	}
}

type sdkTransport struct {
	cred    domain.AccountCredential
	handler chatbot.IChatBotMessageHandler
	logger  *slog.Logger
	cli     *client.StreamClient
}

func (t *sdkTransport) Open(ctx context.Context) error {
	cli := client.NewStreamClient(
		client.WithAppCredential(client.NewAppCredentialConfig(t.cred.ClientID, t.cred.ClientSecret)),
	)
	cli.RegisterChatBotCallbackRouter(t.handler)

	if err := cli.Start(ctx); err != nil {
		// Surfaced as a transport failure; reconnection after a
		// successful open is the SDK's own concern.
		terr := &domain.TransportError{AccountID: t.cred.AccountID, Err: err}
		t.logger.Error("stream connection failed", "account", t.cred.AccountID, "err", err)
		return terr
	}

	t.cli = cli
	t.logger.Info("stream connected", "account", t.cred.AccountID)
	return nil
}

func (t *sdkTransport) Close() {
	if t.cli != nil {
		t.cli.Close()
		t.logger.Info("stream disconnected", "account", t.cred.AccountID)
	}
}
