package cli

import (
	"context"
	"os/signal"
	"syscall"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/spf13/cobra"

	"github.com/openclaw/feishu-channel/internal/channel"
	"github.com/openclaw/feishu-channel/internal/feishu"
	"github.com/openclaw/feishu-channel/internal/gateway"
	"github.com/openclaw/feishu-channel/internal/store"
)

var echoMode bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the platform and process inbound events",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		client := feishu.NewClient(cfg.AppID, cfg.AppSecret, cfg.BaseURL(), log)

		registry, err := store.Open(cfg.RegistryPath)
		if err != nil {
			return err
		}
		defer registry.Close()

		var g *gateway.Gateway
		g, err = gateway.New(gateway.Options{
			Config: cfg,
			Prober: client,
			Logger: log,
			Handlers: gateway.Handlers{
				OnMessageReceived: func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
					verdict := channel.Evaluate(cfg, event, g.BotOpenID())
					if verdict.Message == nil {
						log.Warn().Str("reason", verdict.Reason).Msg("unparseable message event")
						return nil
					}
					if !verdict.Allowed {
						log.Info().
							Str("chat_id", verdict.Message.ChatID).
							Str("sender_id", verdict.Message.SenderID).
							Str("reason", verdict.Reason).
							Msg("message denied")
						return nil
					}
					log.Info().
						Str("chat_id", verdict.Message.ChatID).
						Str("sender_id", verdict.Message.SenderID).
						Str("chat_type", verdict.Message.ChatType).
						Bool("mentioned", verdict.Message.MentionedBot).
						Msg("message admitted")
					if echoMode {
						_, err := client.ReplyText(ctx, verdict.Message.MessageID, verdict.Message.Content)
						return err
					}
					return nil
				},
				OnBotAdded: func(ctx context.Context, event *larkim.P2ChatMemberBotAddedV1) error {
					if event.Event == nil {
						return nil
					}
					chatID := strOrEmpty(event.Event.ChatId)
					name := strOrEmpty(event.Event.Name)
					log.Info().Str("chat_id", chatID).Str("name", name).Msg("bot added to chat")
					return registry.MarkAdded(chatID, name)
				},
				OnBotRemoved: func(ctx context.Context, event *larkim.P2ChatMemberBotDeletedV1) error {
					if event.Event == nil {
						return nil
					}
					chatID := strOrEmpty(event.Event.ChatId)
					log.Info().Str("chat_id", chatID).Msg("bot removed from chat")
					return registry.MarkRemoved(chatID)
				},
			},
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		defer g.Stop()

		return g.Start(ctx)
	},
}

func init() {
	runCmd.Flags().BoolVar(&echoMode, "echo", false, "reply to every admitted message with its own text (manual testing)")
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
