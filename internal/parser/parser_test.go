package parser

import (
	"testing"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func mention(name, key, openID string) *larkim.MentionEvent {
	return &larkim.MentionEvent{
		Name: ptr(name),
		Key:  ptr(key),
		Id:   &larkim.UserId{OpenId: ptr(openID)},
	}
}

func TestParseContent(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		messageType string
		want        string
	}{
		{"text json", `{"text":"Hello world"}`, "text", "Hello world"},
		{"invalid json passes through", "not json", "text", "not json"},
		{"missing text field passes through", `{"other":"x"}`, "text", `{"other":"x"}`},
		{"numeric text coerced", `{"text":42}`, "text", "42"},
		{"non-text type untouched", `{"image_key":"img_1"}`, "image", `{"image_key":"img_1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseContent(tt.content, tt.messageType))
		})
	}
}

func TestIsBotMentioned(t *testing.T) {
	m := mention("Bot", "@_user_1", "ou_bot")

	assert.False(t, IsBotMentioned(nil, "ou_bot"))
	assert.False(t, IsBotMentioned([]*larkim.MentionEvent{}, "ou_bot"))
	// Unknown identity: any mention counts.
	assert.True(t, IsBotMentioned([]*larkim.MentionEvent{m}, ""))
	assert.True(t, IsBotMentioned([]*larkim.MentionEvent{m}, "ou_bot"))
	assert.False(t, IsBotMentioned([]*larkim.MentionEvent{m}, "ou_other"))
}

func TestStripMentions(t *testing.T) {
	t.Run("name and key removed", func(t *testing.T) {
		got := StripMentions("@Alice hello", []*larkim.MentionEvent{
			mention("Alice", "@_user_123", "ou_123"),
		})
		assert.Equal(t, "hello", got)
	})

	t.Run("regex metacharacters in name", func(t *testing.T) {
		got := StripMentions("@Bot.v2 run it", []*larkim.MentionEvent{
			mention("Bot.v2", "@_user_1", "ou_1"),
		})
		assert.Equal(t, "run it", got)
	})

	t.Run("multiple mentions in list order", func(t *testing.T) {
		got := StripMentions("@A @B ship it", []*larkim.MentionEvent{
			mention("A", "@_user_a", "ou_a"),
			mention("B", "@_user_b", "ou_b"),
		})
		assert.Equal(t, "ship it", got)
	})

	t.Run("no mentions", func(t *testing.T) {
		assert.Equal(t, "plain", StripMentions("  plain  ", nil))
	})
}

func TestParseMessageEvent(t *testing.T) {
	event := &larkim.P2MessageReceiveV1{
		Event: &larkim.P2MessageReceiveV1Data{
			Sender: &larkim.EventSender{
				SenderType: ptr("user"),
				SenderId: &larkim.UserId{
					OpenId: ptr("ou_sender"),
					UserId: ptr("u_sender"),
				},
			},
			Message: &larkim.EventMessage{
				MessageId:   ptr("om_1"),
				ChatId:      ptr("oc_1"),
				ChatType:    ptr("group"),
				MessageType: ptr("text"),
				Content:     ptr(`{"text":"@Bot do the thing"}`),
				RootId:      ptr("om_root"),
				ParentId:    ptr("om_parent"),
				Mentions: []*larkim.MentionEvent{
					mention("Bot", "@_user_1", "ou_bot"),
				},
			},
		},
	}

	msg := ParseMessageEvent(event, "ou_bot")
	assert.Equal(t, "oc_1", msg.ChatID)
	assert.Equal(t, "om_1", msg.MessageID)
	// Platform user id wins over open id.
	assert.Equal(t, "u_sender", msg.SenderID)
	assert.Equal(t, "ou_sender", msg.SenderOpenID)
	assert.Equal(t, ChatTypeGroup, msg.ChatType)
	assert.True(t, msg.MentionedBot)
	assert.Equal(t, "do the thing", msg.Content)
	assert.Equal(t, "om_root", msg.RootID)
	assert.Equal(t, "om_parent", msg.ParentID)
	assert.Equal(t, "text", msg.ContentType)
}

func TestParseMessageEventOpenIDFallback(t *testing.T) {
	event := &larkim.P2MessageReceiveV1{
		Event: &larkim.P2MessageReceiveV1Data{
			Sender: &larkim.EventSender{
				SenderId: &larkim.UserId{OpenId: ptr("ou_only")},
			},
			Message: &larkim.EventMessage{
				MessageId:   ptr("om_2"),
				ChatId:      ptr("oc_2"),
				ChatType:    ptr("p2p"),
				MessageType: ptr("text"),
				Content:     ptr(`{"text":"hi"}`),
			},
		},
	}

	msg := ParseMessageEvent(event, "")
	assert.Equal(t, "ou_only", msg.SenderID)
	assert.False(t, msg.MentionedBot)
	assert.Equal(t, "hi", msg.Content)
}
