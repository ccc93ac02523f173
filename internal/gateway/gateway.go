// Package gateway owns the live event-push connection to the platform:
// identity probing, handler dispatch with per-event error boundaries,
// redelivery suppression and clean shutdown.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/rs/zerolog"

	"github.com/openclaw/feishu-channel/internal/conf"
	"github.com/openclaw/feishu-channel/internal/feishu"
)

const (
	messageDedupCacheSize = 2048
	messageDedupTTL       = 10 * time.Minute
)

// State is the gateway lifecycle phase.
type State string

const (
	StateIdle         State = "idle"
	StateProbing      State = "probing"
	StateConnected    State = "connected"
	StateShuttingDown State = "shutting_down"
)

// Prober resolves the bot's identity before connecting.
type Prober interface {
	Probe(ctx context.Context) *feishu.ProbeResult
}

// Handlers are the host callbacks the gateway invokes. All are
// optional; errors are caught and logged, never fed back to the
// transport.
type Handlers struct {
	OnMessageReceived func(ctx context.Context, event *larkim.P2MessageReceiveV1) error
	OnBotAdded        func(ctx context.Context, event *larkim.P2ChatMemberBotAddedV1) error
	OnBotRemoved      func(ctx context.Context, event *larkim.P2ChatMemberBotDeletedV1) error
}

// Options configures a Gateway.
type Options struct {
	Config   *conf.Config
	Handlers Handlers
	Prober   Prober
	Logger   zerolog.Logger
}

type transport interface {
	Start(ctx context.Context) error
}

// Gateway is one owned connection to the platform. Instances are
// independent; callers must serialize Start/Stop on a single instance.
type Gateway struct {
	cfg      *conf.Config
	handlers Handlers
	prober   Prober
	log      zerolog.Logger

	mu        sync.Mutex
	state     State
	botOpenID string

	dedupMu    sync.Mutex
	dedupCache *lru.Cache[string, time.Time]
	now        func() time.Time

	// newTransport builds the event-push connection; replaced in tests.
	newTransport func(handler *dispatcher.EventDispatcher) transport
}

// New creates a gateway in the idle state.
func New(opts Options) (*Gateway, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("gateway requires a config")
	}
	dedupCache, err := lru.New[string, time.Time](messageDedupCacheSize)
	if err != nil {
		return nil, fmt.Errorf("message deduper init: %w", err)
	}
	g := &Gateway{
		cfg:        opts.Config,
		handlers:   opts.Handlers,
		prober:     opts.Prober,
		log:        opts.Logger.With().Str("component", "gateway").Logger(),
		state:      StateIdle,
		dedupCache: dedupCache,
		now:        time.Now,
	}
	g.newTransport = func(handler *dispatcher.EventDispatcher) transport {
		return larkws.NewClient(g.cfg.AppID, g.cfg.AppSecret,
			larkws.WithEventHandler(handler),
			larkws.WithLogLevel(larkcore.LogLevelInfo),
			larkws.WithDomain(g.cfg.BaseURL()),
		)
	}
	return g, nil
}

// Start probes the bot identity and opens the event-push connection.
// It blocks until ctx is cancelled, which is a clean shutdown and
// returns nil. A connection establishment failure rolls state back and
// returns the error.
func (g *Gateway) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		g.reset()
		return nil
	}

	g.setState(StateProbing)

	// Identity resolution is best-effort: without it mention detection
	// falls back to treating any mention as addressed to the bot.
	if g.prober != nil {
		if res := g.prober.Probe(ctx); res != nil && res.OK {
			g.mu.Lock()
			g.botOpenID = res.BotOpenID
			g.mu.Unlock()
			g.log.Info().Str("bot_open_id", res.BotOpenID).Str("bot_name", res.BotName).Msg("bot identity resolved")
		} else {
			g.log.Warn().Msg("identity probe failed, continuing without bot open id")
		}
	}

	if g.cfg.ConnectionMode != "websocket" {
		// Webhook transport lives outside this gateway. The probed
		// identity stays cached for BotOpenID callers.
		g.log.Info().Str("mode", g.cfg.ConnectionMode).Msg("connection mode is not websocket, gateway not started")
		g.setState(StateIdle)
		return nil
	}

	ws := g.newTransport(g.buildDispatcher(ctx))
	g.setState(StateConnected)
	g.log.Info().Str("app_id", g.cfg.AppID).Msg("gateway connecting")

	errCh := make(chan error, 1)
	go func() { errCh <- ws.Start(ctx) }()

	select {
	case <-ctx.Done():
		g.setState(StateShuttingDown)
		g.reset()
		return nil
	case err := <-errCh:
		g.reset()
		if err == nil || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("websocket connection: %w", err)
	}
}

// Stop clears the cached identity and connection state. Safe to call
// repeatedly; the connection itself is torn down by cancelling the
// context passed to Start.
func (g *Gateway) Stop() {
	g.reset()
}

// BotOpenID returns the cached bot identity, empty until a successful
// probe.
func (g *Gateway) BotOpenID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.botOpenID
}

// State returns the current lifecycle phase.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gateway) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

func (g *Gateway) reset() {
	g.mu.Lock()
	g.state = StateIdle
	g.botOpenID = ""
	g.mu.Unlock()
}

// buildDispatcher registers the event handlers. Read receipts are
// registered and dropped on purpose. Handlers run in their own
// goroutine so the SDK can ACK promptly, and each invocation carries
// its own error boundary so one bad event never kills the connection.
func (g *Gateway) buildDispatcher(ctx context.Context) *dispatcher.EventDispatcher {
	return dispatcher.NewEventDispatcher(g.cfg.VerificationToken, g.cfg.EncryptKey).
		OnP2MessageReceiveV1(func(_ context.Context, event *larkim.P2MessageReceiveV1) error {
			messageID := ""
			if event.Event != nil && event.Event.Message != nil && event.Event.Message.MessageId != nil {
				messageID = *event.Event.Message.MessageId
			}
			if g.isDuplicateMessage(messageID) {
				g.log.Debug().Str("message_id", messageID).Msg("duplicate message dropped")
				return nil
			}
			if g.handlers.OnMessageReceived != nil {
				g.invoke(ctx, "message_received", func() error {
					return g.handlers.OnMessageReceived(ctx, event)
				})
			}
			return nil
		}).
		OnP2MessageReadV1(func(_ context.Context, _ *larkim.P2MessageReadV1) error {
			return nil
		}).
		OnP2ChatMemberBotAddedV1(func(_ context.Context, event *larkim.P2ChatMemberBotAddedV1) error {
			if g.handlers.OnBotAdded != nil {
				g.invoke(ctx, "bot_added", func() error {
					return g.handlers.OnBotAdded(ctx, event)
				})
			}
			return nil
		}).
		OnP2ChatMemberBotDeletedV1(func(_ context.Context, event *larkim.P2ChatMemberBotDeletedV1) error {
			if g.handlers.OnBotRemoved != nil {
				g.invoke(ctx, "bot_removed", func() error {
					return g.handlers.OnBotRemoved(ctx, event)
				})
			}
			return nil
		})
}

func (g *Gateway) invoke(_ context.Context, event string, fn func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.log.Error().Str("event", event).Interface("panic", r).Msg("handler panicked")
			}
		}()
		if err := fn(); err != nil {
			g.log.Error().Err(err).Str("event", event).Msg("handler failed")
		}
	}()
}

// isDuplicateMessage records messageID and reports whether it was seen
// within the dedup window. The platform redelivers events when the ACK
// is slow.
func (g *Gateway) isDuplicateMessage(messageID string) bool {
	if messageID == "" {
		return false
	}
	g.dedupMu.Lock()
	defer g.dedupMu.Unlock()

	now := g.now()
	if ts, ok := g.dedupCache.Get(messageID); ok {
		if now.Sub(ts) <= messageDedupTTL {
			return true
		}
		g.dedupCache.Remove(messageID)
	}
	g.dedupCache.Add(messageID, now)
	return false
}
