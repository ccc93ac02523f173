// Package channel composes the parser and policy layers into the
// per-event admission decision a host makes before dispatching a
// message to the bot.
package channel

import (
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/openclaw/feishu-channel/internal/conf"
	"github.com/openclaw/feishu-channel/internal/parser"
	"github.com/openclaw/feishu-channel/internal/policy"
)

// Verdict is the outcome of admitting one inbound message event.
// Message is populated whenever the event parsed, even on denial, so
// callers can log who was turned away.
type Verdict struct {
	Message *parser.ParsedMessage
	Allowed bool
	Reason  string
}

// Evaluate parses a message event and runs it through the access
// policy. botOpenID may be empty when the identity probe failed, which
// shifts mention detection to its conservative fallback.
func Evaluate(cfg *conf.Config, event *larkim.P2MessageReceiveV1, botOpenID string) Verdict {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return Verdict{Reason: "event has no message payload"}
	}

	msg := parser.ParseMessageEvent(event, botOpenID)

	// The bot's own outbound messages echo back as events; admitting
	// them would loop.
	if msg.SenderType == "app" {
		return Verdict{Message: msg, Reason: "message sent by the bot itself"}
	}

	switch msg.ChatType {
	case parser.ChatTypeP2P:
		res := policy.CheckDMPolicy(cfg, msg.SenderID, "")
		if !res.Allowed {
			return Verdict{Message: msg, Reason: res.Reason}
		}
	case parser.ChatTypeGroup:
		res := policy.CheckGroupPolicy(cfg, msg.ChatID, msg.SenderID, "")
		if !res.Allowed {
			return Verdict{Message: msg, Reason: res.Reason}
		}
		if policy.ShouldRequireMention(cfg, msg.ChatType, msg.ChatID) && !msg.MentionedBot {
			return Verdict{Message: msg, Reason: "bot not mentioned"}
		}
	default:
		return Verdict{Message: msg, Reason: fmt.Sprintf("unknown chat type %q", msg.ChatType)}
	}

	return Verdict{Message: msg, Allowed: true}
}
