// Package parser normalizes raw Feishu message events into a
// host-agnostic representation. Everything here is pure: decode
// failures degrade to pass-through and are never surfaced.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// Chat types as delivered by im.message.receive_v1.
const (
	ChatTypeP2P   = "p2p"
	ChatTypeGroup = "group"
)

// ParsedMessage is the normalized form of one inbound message event.
// Content carries the decoded text with bot mentions stripped.
type ParsedMessage struct {
	ChatID       string
	MessageID    string
	SenderID     string
	SenderOpenID string
	SenderType   string
	ChatType     string
	MentionedBot bool
	RootID       string
	ParentID     string
	Content      string
	ContentType  string
}

// ParseContent extracts the plain text from a message content payload.
// Text messages carry JSON like {"text":"hello"}; anything that fails
// to decode, or any non-text message type, passes through unchanged.
func ParseContent(content, messageType string) string {
	if messageType != "text" {
		return content
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return content
	}
	raw, ok := payload["text"]
	if !ok {
		return content
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

// IsBotMentioned reports whether the mention list targets the bot.
// When botOpenID is unknown any non-empty mention list counts as a
// match, so an unresolved identity never causes a missed address.
func IsBotMentioned(mentions []*larkim.MentionEvent, botOpenID string) bool {
	if len(mentions) == 0 {
		return false
	}
	if botOpenID == "" {
		return true
	}
	for _, m := range mentions {
		if m == nil || m.Id == nil {
			continue
		}
		if deref(m.Id.OpenId) == botOpenID {
			return true
		}
	}
	return false
}

// StripMentions removes "@Name" and raw mention key tokens from text,
// applying mentions in list order and trimming after each pass.
// Mention names are quoted so regex metacharacters in display names
// stay literal.
func StripMentions(text string, mentions []*larkim.MentionEvent) string {
	for _, m := range mentions {
		if m == nil {
			continue
		}
		if name := deref(m.Name); name != "" {
			re := regexp.MustCompile("@" + regexp.QuoteMeta(name) + `\s*`)
			text = strings.TrimSpace(re.ReplaceAllString(text, ""))
		}
		if key := deref(m.Key); key != "" {
			text = strings.TrimSpace(strings.ReplaceAll(text, key, ""))
		}
	}
	return strings.TrimSpace(text)
}

// ParseMessageEvent normalizes a receive_v1 event. The mention flag is
// computed before stripping, and sender identity prefers the platform
// user id over the open id.
func ParseMessageEvent(event *larkim.P2MessageReceiveV1, botOpenID string) *ParsedMessage {
	msg := event.Event.Message

	senderID := ""
	senderOpenID := ""
	senderType := ""
	if event.Event.Sender != nil {
		senderType = deref(event.Event.Sender.SenderType)
		if event.Event.Sender.SenderId != nil {
			senderOpenID = deref(event.Event.Sender.SenderId.OpenId)
			senderID = deref(event.Event.Sender.SenderId.UserId)
			if senderID == "" {
				senderID = senderOpenID
			}
		}
	}

	messageType := deref(msg.MessageType)
	content := ParseContent(deref(msg.Content), messageType)
	mentioned := IsBotMentioned(msg.Mentions, botOpenID)
	content = StripMentions(content, msg.Mentions)

	return &ParsedMessage{
		ChatID:       deref(msg.ChatId),
		MessageID:    deref(msg.MessageId),
		SenderID:     senderID,
		SenderOpenID: senderOpenID,
		SenderType:   senderType,
		ChatType:     deref(msg.ChatType),
		MentionedBot: mentioned,
		RootID:       deref(msg.RootId),
		ParentID:     deref(msg.ParentId),
		Content:      content,
		ContentType:  messageType,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
