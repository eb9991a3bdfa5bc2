package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/hub"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/stream"
)

const (
	controlTimeout = 2 * time.Second

	// staleAfter is how long the processor may stay silent before clients
	// are told the stream is disconnected.
	staleAfter = 3 * time.Second
)

type API struct {
	hub    *hub.Hub
	ctl    stream.Controller
	log    *slog.Logger
	last   atomic.Pointer[[]byte]
	lastAt atomic.Int64
	seen   atomic.Int64
}

// New builds the API and its websocket hub; client commands on the hub are
// relayed through ctl.
func New(ctl stream.Controller, log *slog.Logger) *API {
	a := &API{ctl: ctl, log: log}
	a.hub = hub.New(log, a.Command, a.greeting)
	return a
}

func (a *API) Hub() *hub.Hub { return a.hub }

// Publish remembers the newest params message for /api/status and sends
// it to websocket clients.
func (a *API) Publish(params []byte) {
	a.last.Store(&params)
	a.lastAt.Store(time.Now().UnixMilli())
	a.seen.Add(1)
	a.hub.BroadcastText(params)
}

// Connected reports whether a params message arrived within staleAfter.
func (a *API) Connected() bool {
	at := a.lastAt.Load()
	return at > 0 && time.Since(time.UnixMilli(at)) < staleAfter
}

func (a *API) greeting() []byte {
	return stream.Marshal(stream.NewStatus(a.Connected(), time.Now().UnixMilli()))
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok\n"))
}

func (a *API) Metrics(w http.ResponseWriter, r *http.Request) {
	st := a.hub.Stats()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "ws_clients %d\n", st.Clients)
	fmt.Fprintf(w, "ws_binary_messages %d\n", st.BinaryMessages)
	fmt.Fprintf(w, "ws_text_messages %d\n", st.TextMessages)
	fmt.Fprintf(w, "ws_dropped_clients %d\n", st.Dropped)
	fmt.Fprintf(w, "params_received %d\n", a.seen.Load())
	connected := 0
	if a.Connected() {
		connected = 1
	}
	fmt.Fprintf(w, "processor_connected %d\n", connected)
}

// Status returns the latest params message verbatim.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	p := a.last.Load()
	if p == nil {
		writeJSON(w, http.StatusServiceUnavailable, stream.NewError("no data received yet"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(*p)
}

func (a *API) Session(w http.ResponseWriter, r *http.Request) {
	a.control(w, r, stream.ControlRequest{Command: stream.CommandStatus})
}

// History returns the retained sliding-window burden trend.
func (a *API) History(w http.ResponseWriter, r *http.Request) {
	a.control(w, r, stream.ControlRequest{Command: stream.CommandHistory})
}

func (a *API) Reset(w http.ResponseWriter, r *http.Request) {
	a.control(w, r, stream.ControlRequest{Command: stream.CommandReset})
}

func (a *API) control(w http.ResponseWriter, r *http.Request, req stream.ControlRequest) {
	ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
	defer cancel()

	reply, err := a.ctl.Control(ctx, req)
	if err != nil {
		a.log.Error("control request failed", "command", req.Command, "error", err)
		writeJSON(w, http.StatusBadGateway, stream.NewError("%v", err))
		return
	}
	status := http.StatusOK
	if !reply.OK {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, reply)
}

// Command is the websocket handler for client JSON commands such as
// {"command":"reset"}.
func (a *API) Command(msg []byte) []byte {
	var req stream.ControlRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return stream.Marshal(stream.NewError("bad command: %v", err))
	}
	switch req.Command {
	case stream.CommandReset, stream.CommandStatus, stream.CommandHistory:
	default:
		return stream.Marshal(stream.NewError("unsupported command %q", req.Command))
	}

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()
	reply, err := a.ctl.Control(ctx, req)
	if err != nil {
		a.log.Error("ws command failed", "command", req.Command, "error", err)
		return stream.Marshal(stream.NewError("%s failed: %v", req.Command, err))
	}
	return stream.Marshal(reply)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(stream.Marshal(v))
}
