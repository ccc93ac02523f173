// Package policy decides whether inbound messages may reach the bot.
// Every function is pure and total: misconfiguration produces a denied
// Result with a reason, never an error.
package policy

import (
	"fmt"
	"strings"

	"github.com/openclaw/feishu-channel/internal/conf"
	"github.com/openclaw/feishu-channel/internal/parser"
)

// Wildcard entry admits any sender.
const Wildcard = "*"

// Result is the outcome of a policy check. Reason is set only on
// denial and is meant for logs, not control flow.
type Result struct {
	Allowed bool
	Reason  string
}

// Match sources, most specific dispatch first.
const (
	MatchWildcard = "wildcard"
	MatchID       = "id"
	MatchName     = "name"
)

// AllowlistMatch carries the matched entry and how it matched, for
// audit logging.
type AllowlistMatch struct {
	Allowed     bool
	MatchKey    string
	MatchSource string
}

// MatchAllowlist checks senderID and senderName against entries.
// Entries are trimmed and lowercased; empties drop out. A wildcard
// anywhere in the list short-circuits before identity checks.
func MatchAllowlist(entries []string, senderID, senderName string) AllowlistMatch {
	normalized := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			normalized = append(normalized, e)
		}
	}
	if len(normalized) == 0 {
		return AllowlistMatch{}
	}

	for _, e := range normalized {
		if e == Wildcard {
			return AllowlistMatch{Allowed: true, MatchKey: Wildcard, MatchSource: MatchWildcard}
		}
	}

	id := strings.ToLower(strings.TrimSpace(senderID))
	if id != "" {
		for _, e := range normalized {
			if e == id {
				return AllowlistMatch{Allowed: true, MatchKey: e, MatchSource: MatchID}
			}
		}
	}

	name := strings.ToLower(strings.TrimSpace(senderName))
	if name != "" {
		for _, e := range normalized {
			if e == name {
				return AllowlistMatch{Allowed: true, MatchKey: e, MatchSource: MatchName}
			}
		}
	}

	return AllowlistMatch{}
}

// CheckDMPolicy gates direct messages. The pairing handshake itself
// happens outside this layer, so "pairing" admits here.
func CheckDMPolicy(cfg *conf.Config, senderID, senderName string) Result {
	p := cfg.DMPolicy
	if p == "" {
		p = "pairing"
	}
	switch p {
	case "open", "pairing":
		return Result{Allowed: true}
	case "allowlist":
		m := MatchAllowlist(cfg.AllowFrom, senderID, senderName)
		if m.Allowed {
			return Result{Allowed: true}
		}
		return Result{Reason: fmt.Sprintf("sender %s not in dm allowlist", senderID)}
	default:
		return Result{Reason: fmt.Sprintf("unknown dm policy %q", p)}
	}
}

// ResolveGroupConfig finds the override for groupID. An exact-case key
// wins; otherwise the first case-insensitive match is used. Returns nil
// when nothing matches.
func ResolveGroupConfig(cfg *conf.Config, groupID string) *conf.GroupConfig {
	if groupID == "" || len(cfg.Groups) == 0 {
		return nil
	}
	if gc, ok := cfg.Groups[groupID]; ok {
		return &gc
	}
	target := strings.ToLower(groupID)
	for key, gc := range cfg.Groups {
		if strings.ToLower(key) == target {
			gc := gc
			return &gc
		}
	}
	return nil
}

// CheckGroupPolicy gates group messages. Under "allowlist" a
// group-specific allow_from replaces the global list entirely when
// present (nil means inherit, empty means deny), and an empty
// effective list denies.
func CheckGroupPolicy(cfg *conf.Config, groupID, senderID, senderName string) Result {
	p := cfg.GroupPolicy
	if p == "" {
		p = "allowlist"
	}
	switch p {
	case "disabled":
		return Result{Reason: "group messages are disabled"}
	case "open":
		return Result{Allowed: true}
	case "allowlist":
		entries := []string(cfg.GroupAllowFrom)
		if gc := ResolveGroupConfig(cfg, groupID); gc != nil && gc.AllowFrom != nil {
			entries = gc.AllowFrom
		}
		if len(entries) == 0 {
			return Result{Reason: fmt.Sprintf("no group allowlist configured for %s", groupID)}
		}
		m := MatchAllowlist(entries, senderID, senderName)
		if m.Allowed {
			return Result{Allowed: true}
		}
		return Result{Reason: fmt.Sprintf("sender %s not in group allowlist", senderID)}
	default:
		return Result{Reason: fmt.Sprintf("unknown group policy %q", p)}
	}
}

// ShouldRequireMention resolves the mention requirement for a chat.
// DMs never require one. Groups use the group override when explicitly
// set, else the global setting, else true.
func ShouldRequireMention(cfg *conf.Config, chatType, groupID string) bool {
	if chatType == parser.ChatTypeP2P {
		return false
	}
	if gc := ResolveGroupConfig(cfg, groupID); gc != nil && gc.RequireMention != nil {
		return *gc.RequireMention
	}
	if cfg.RequireMention != nil {
		return *cfg.RequireMention
	}
	return true
}

// ResolveGroupToolPolicy returns the group's tool allow/deny lists
// untouched; merging with any global default is the host's concern.
func ResolveGroupToolPolicy(cfg *conf.Config, groupID string) *conf.ToolPolicy {
	gc := ResolveGroupConfig(cfg, groupID)
	if gc == nil {
		return nil
	}
	return gc.Tools
}
