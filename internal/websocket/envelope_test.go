package websocket

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEnvelopeValidate(t *testing.T) {
	roomID := uuid.New()
	userID := uuid.New()

	payload, err := json.Marshal(map[string]string{"content": "hi"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	decision, err := json.Marshal(JoinDecisionPayload{
		UserID: userID,
		ChatID: roomID,
		Action: "approved",
	})
	if err != nil {
		t.Fatalf("marshal decision: %v", err)
	}

	cases := []struct {
		name    string
		env     Envelope
		wantErr error
	}{
		{name: "ping", env: Envelope{Type: EventPing}},
		{name: "pong", env: Envelope{Type: EventPong}},
		{name: "join room", env: Envelope{Type: EventJoinRoom, RoomID: &roomID}},
		{name: "join room without roomId", env: Envelope{Type: EventJoinRoom}, wantErr: ErrInvalidEnvelope},
		{name: "leave room without roomId", env: Envelope{Type: EventLeaveRoom}, wantErr: ErrInvalidEnvelope},
		{name: "send message", env: Envelope{Type: EventSendMessage, RoomID: &roomID, Payload: payload}},
		{name: "send message broadcast", env: Envelope{Type: EventSendMessage, Payload: payload}},
		{name: "send message without payload", env: Envelope{Type: EventSendMessage, RoomID: &roomID}, wantErr: ErrInvalidEnvelope},
		{name: "receive message without payload", env: Envelope{Type: EventReceiveMessage}, wantErr: ErrInvalidEnvelope},
		{name: "join decision", env: Envelope{Type: EventJoinRequestHandled, Payload: decision}},
		{name: "join decision without payload", env: Envelope{Type: EventJoinRequestHandled}, wantErr: ErrInvalidEnvelope},
		{name: "join decision with bad json", env: Envelope{Type: EventJoinRequestHandled, Payload: json.RawMessage(`{`)}, wantErr: ErrInvalidEnvelope},
		{name: "unknown type", env: Envelope{Type: "shout"}, wantErr: ErrUnknownEventType},
		{name: "empty type", env: Envelope{Type: ""}, wantErr: ErrUnknownEventType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.env.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestEnvelopeIncompleteJoinDecision(t *testing.T) {
	incomplete, err := json.Marshal(JoinDecisionPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	env := Envelope{Type: EventJoinRequestHandled, Payload: incomplete, Timestamp: time.Now()}
	if err := env.Validate(); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("Validate() = %v, want ErrInvalidEnvelope", err)
	}
}

func TestEnvelopeJSONShape(t *testing.T) {
	roomID := uuid.New()
	env := Envelope{
		Type:      EventReceiveMessage,
		RoomID:    &roomID,
		UserID:    uuid.New(),
		Payload:   json.RawMessage(`{"content":"hi"}`),
		Timestamp: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(&env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"type", "roomId", "userId", "payload", "timestamp"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("envelope json lacks %q", key)
		}
	}

	// roomId опускается в широковещательном конверте.
	broadcast := Envelope{Type: EventReceiveMessage, Payload: env.Payload}
	data, err = json.Marshal(&broadcast)
	if err != nil {
		t.Fatalf("marshal broadcast: %v", err)
	}
	raw = nil
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if _, ok := raw["roomId"]; ok {
		t.Error("broadcast envelope must omit roomId")
	}
}
