package relay

import (
	"context"
	"encoding/json"

	"github.com/go-account-chat/internal/domain"
	"github.com/sirupsen/logrus"
)

// Conn is a bidirectional text-frame connection such as a SockJS session.
type Conn interface {
	Recv() (string, error)
	Send(string) error
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type messageData struct {
	Message string `json:"message"`
}

// Pipe bridges one connection to the hub until the connection fails or ctx is
// cancelled. name is the authenticated sender; anything the client claims
// about its own name is ignored. The caller closes conn once Pipe returns.
func Pipe(ctx context.Context, hub *Hub, conn Conn, name string, log logrus.FieldLogger) {
	client := hub.Subscribe(name)
	log = log.WithField("chat_user", name)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for ev := range client.Events() {
			b, err := json.Marshal(ev)
			if err != nil {
				log.WithError(err).Error("encode chat event")
				continue
			}
			if err := conn.Send(string(b)); err != nil {
				log.WithError(err).Debug("chat send failed")
				return
			}
		}
	}()

	frames := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			msg, err := conn.Recv()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- msg:
			case <-stop:
				return
			}
		}
	}()

	joined := false
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-writerDone:
			break loop
		case err := <-readErr:
			log.WithError(err).Debug("chat connection closed")
			break loop
		case msg := <-frames:
			joined = handleFrame(hub, client, msg, joined, log)
		}
	}

	if joined {
		hub.Broadcast(client, domain.ChatEvent{Event: domain.EventHandleUserDisconnection, Data: name})
	}
	hub.Unsubscribe(client)
	<-writerDone
}

func handleFrame(hub *Hub, client *Client, msg string, joined bool, log logrus.FieldLogger) bool {
	var in inbound
	if err := json.Unmarshal([]byte(msg), &in); err != nil {
		log.WithError(err).Debug("malformed chat frame")
		return joined
	}
	switch in.Event {
	case domain.EventUserConnection:
		hub.Broadcast(client, domain.ChatEvent{Event: domain.EventHandleUserConnection, Data: client.Name()})
		return true
	case domain.EventSendMessage:
		var data messageData
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &data); err != nil {
				log.WithError(err).Debug("malformed chat message")
				return joined
			}
		}
		hub.Broadcast(client, domain.ChatEvent{
			Event: domain.EventHandleSendMessage,
			Data:  domain.ChatMessage{Name: client.Name(), Message: data.Message},
		})
	case domain.EventUserDisconnection:
		hub.Broadcast(client, domain.ChatEvent{Event: domain.EventHandleUserDisconnection, Data: client.Name()})
		return false
	default:
		log.WithField("event", in.Event).Debug("unknown chat event")
	}
	return joined
}
