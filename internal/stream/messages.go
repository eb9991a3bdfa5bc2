package stream

import (
	"encoding/json"
	"fmt"

	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/analysis"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/burden"
	"github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/session"
)

const (
	TypeParams = "params"
	TypeBeat   = "beat"
	TypeBurden = "burden"
	TypeStatus = "status"
	TypeError  = "error"
)

// ParamsMessage is published on SubjectParams after every processed frame
// and forwarded verbatim to websocket clients.
type ParamsMessage struct {
	Type      string                   `json:"type"`
	SessionID string                   `json:"session_id"`
	Ts        int64                    `json:"ts"`
	Detection analysis.DetectionResult `json:"detection"`
	Burden    session.Burden           `json:"burden"`
}

type BeatMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id"`
	Beat      analysis.Beat `json:"beat"`
}

// BurdenMessage carries one trend point, published on SubjectBurden at
// every processor tick.
type BurdenMessage struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	Point     burden.DataPoint `json:"point"`
}

type StatusMessage struct {
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
	Ts        int64  `json:"ts"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewParams(sessionID string, ts int64, det analysis.DetectionResult, b session.Burden) ParamsMessage {
	return ParamsMessage{Type: TypeParams, SessionID: sessionID, Ts: ts, Detection: det, Burden: b}
}

func NewBeat(sessionID string, b analysis.Beat) BeatMessage {
	return BeatMessage{Type: TypeBeat, SessionID: sessionID, Beat: b}
}

func NewBurden(sessionID string, dp burden.DataPoint) BurdenMessage {
	return BurdenMessage{Type: TypeBurden, SessionID: sessionID, Point: dp}
}

func NewStatus(connected bool, ts int64) StatusMessage {
	return StatusMessage{Type: TypeStatus, Connected: connected, Ts: ts}
}

func NewError(format string, args ...any) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: fmt.Sprintf(format, args...)}
}

// Control commands carried on SubjectControl.
const (
	CommandReset   = "reset"
	CommandStatus  = "status"
	CommandSetRate = "set_rate"
	CommandHistory = "history"
)

type ControlRequest struct {
	Command    string  `json:"command"`
	SampleRate float64 `json:"sample_rate,omitempty"`
}

type ControlReply struct {
	OK      bool               `json:"ok"`
	Error   string             `json:"error,omitempty"`
	Status  *session.Status    `json:"status,omitempty"`
	History []burden.DataPoint `json:"history,omitempty"`
}

// Handle applies req to s and builds the reply.
func (req ControlRequest) Handle(s *session.Session) ControlReply {
	switch req.Command {
	case CommandReset:
		s.Reset()
	case CommandStatus:
	case CommandHistory:
		st := s.Status()
		return ControlReply{OK: true, Status: &st, History: s.History()}
	case CommandSetRate:
		if err := s.SetSamplingRate(req.SampleRate); err != nil {
			return ControlReply{Error: err.Error()}
		}
	default:
		return ControlReply{Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
	st := s.Status()
	return ControlReply{OK: true, Status: &st}
}

// Marshal encodes v, which is always one of the message types above.
func Marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(NewError("encode %T: %v", v, err))
	}
	return b
}
