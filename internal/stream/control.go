package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/session"
)

// Controller delivers control requests to whoever owns the session.
type Controller interface {
	Control(ctx context.Context, req ControlRequest) (ControlReply, error)
}

// NATSController sends requests on SubjectControl and waits for the reply.
type NATSController struct {
	nc *nats.Conn
}

func NewNATSController(nc *nats.Conn) *NATSController {
	return &NATSController{nc: nc}
}

func (c *NATSController) Control(ctx context.Context, req ControlRequest) (ControlReply, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return ControlReply{}, err
	}
	msg, err := c.nc.RequestWithContext(ctx, SubjectControl, data)
	if err != nil {
		return ControlReply{}, fmt.Errorf("control %s: %w", req.Command, err)
	}
	var reply ControlReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return ControlReply{}, fmt.Errorf("control %s: decode reply: %w", req.Command, err)
	}
	return reply, nil
}

// LocalController applies requests directly to an in-process session.
type LocalController struct {
	Session *session.Session
}

func (c LocalController) Control(_ context.Context, req ControlRequest) (ControlReply, error) {
	return req.Handle(c.Session), nil
}

// ServeControl answers control requests for s on SubjectControl.
func ServeControl(nc *nats.Conn, s *session.Session, log *slog.Logger) (*nats.Subscription, error) {
	return nc.Subscribe(SubjectControl, func(msg *nats.Msg) {
		var req ControlRequest
		var reply ControlReply
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			reply = ControlReply{Error: fmt.Sprintf("bad request: %v", err)}
		} else {
			reply = req.Handle(s)
			log.Info("control request", "command", req.Command, "ok", reply.OK)
		}
		if err := msg.Respond(Marshal(reply)); err != nil {
			log.Warn("control reply failed", "error", err)
		}
	})
}
