package handler

import (
	"context"

	"github.com/go-account-chat/internal/application/relay"
	"github.com/go-account-chat/internal/transport/http/middleware"
	"github.com/igm/sockjs-go/v3/sockjs"
	"github.com/sirupsen/logrus"
)

// ChatPrefix is where the SockJS endpoint is mounted.
const ChatPrefix = "/customer-service/socket"

// NewChatHandler returns the SockJS endpoint of the customer service chat.
// Sessions live until the connection closes or ctx ends; the request that
// opened them only supplies the authenticated account.
func NewChatHandler(ctx context.Context, hub *relay.Hub, log logrus.FieldLogger) *sockjs.Handler {
	return sockjs.NewHandler(ChatPrefix, sockjs.DefaultOptions, func(s sockjs.Session) {
		defer func() { _ = s.Close(1000, "bye") }()
		a, ok := middleware.AccountFromContext(s.Request().Context())
		if !ok {
			return
		}
		relay.Pipe(ctx, hub, s, a.Name, log.WithField("session_id", s.ID()))
	})
}
