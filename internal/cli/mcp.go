package cli

import (
	"github.com/spf13/cobra"

	"github.com/openclaw/feishu-channel/internal/feishu"
	"github.com/openclaw/feishu-channel/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the outbound operations as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		client := feishu.NewClient(cfg.AppID, cfg.AppSecret, cfg.BaseURL(), log)
		server := mcpserver.NewServer(client)

		log.Info().Msg("mcp server listening on stdio")
		return server.Run(cmd.Context())
	},
}
