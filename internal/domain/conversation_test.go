package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalizeConversationID(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "valid", in: "abc123", want: "abc123"},
		{name: "trimmed", in: "  conv_1700_x9  ", want: "conv_1700_x9"},
		{name: "too short", in: "ab", wantErr: ErrConversationIDTooShort},
		{name: "short after trim", in: "  ab  ", wantErr: ErrConversationIDTooShort},
		{name: "no alnum", in: "---", wantErr: ErrConversationIDNoAlnum},
		{name: "space inside", in: "ab cd", wantErr: ErrConversationIDBadCharset},
		{name: "unicode", in: "ñandú", wantErr: ErrConversationIDBadCharset},
		{name: "too long", in: strings.Repeat("a", MaxConversationIDLength+1), wantErr: ErrConversationIDTooLong},
		{name: "symbols allowed", in: "a=b@c,d.e;f_g-h", want: "a=b@c,d.e;f_g-h"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeConversationID(tc.in)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestChannelNames(t *testing.T) {
	if got := PrivateChannel("chat", "abc123"); got != "private-chat-abc123" {
		t.Fatalf("unexpected private channel %q", got)
	}
	if got := PublicChannel("chat", "abc123"); got != "chat-abc123" {
		t.Fatalf("unexpected public channel %q", got)
	}
}

func TestNewAssistantReply(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	ev := NewAssistantReply("hi", at)
	if ev.Role != RoleAssistant || ev.Text != "hi" || ev.Timestamp != 1700000000000 {
		t.Fatalf("unexpected event %+v", ev)
	}
}
