package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"brainwave/internal/domain"
)

func TestDecodeKnownKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		want    Inbound
	}{
		{"status", `{"type":"status","status":"connected"}`, Inbound{Kind: KindStatus, Status: "connected"}},
		{"text append", `{"type":"text","content":" world","isNewResponse":false}`, Inbound{Kind: KindText, Content: " world"}},
		{"text replace", `{"type":"text","content":"hi","isNewResponse":true}`, Inbound{Kind: KindText, Content: "hi", IsNewResponse: true}},
		{"text default append", `{"type":"text","content":"x"}`, Inbound{Kind: KindText, Content: "x"}},
		{"error", `{"type":"error","content":"quota exceeded"}`, Inbound{Kind: KindError, Content: "quota exceeded"}},
		{"unknown", `{"type":"pong","content":1}`, Inbound{Kind: "pong"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode([]byte(tc.payload))
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected message: %+v", got)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{
		`not json`,
		`[1,2]`,
		`{"content":"x"}`,
		`{"type":7}`,
		`{"type":"text"}`,
		`{"type":"text","content":3}`,
		`{"type":"status"}`,
	} {
		if _, err := Decode([]byte(payload)); !errors.Is(err, domain.ErrProtocol) {
			t.Fatalf("expected protocol error for %s, got %v", payload, err)
		}
	}
}

func TestInboundDelta(t *testing.T) {
	t.Parallel()

	delta := Inbound{Kind: KindText, Content: "a", IsNewResponse: true}.Delta()
	if delta.Content != "a" || !delta.IsReplace {
		t.Fatalf("unexpected delta: %+v", delta)
	}
}

func TestControlMessagesEncode(t *testing.T) {
	t.Parallel()

	start, _ := json.Marshal(StartRecording())
	stop, _ := json.Marshal(StopRecording())
	if string(start) != `{"type":"start_recording"}` || string(stop) != `{"type":"stop_recording"}` {
		t.Fatalf("unexpected control encoding: %s %s", start, stop)
	}
}
