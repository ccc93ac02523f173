package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openclaw/feishu-channel/internal/feishu"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check connectivity and resolve the bot identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		client := feishu.NewClient(cfg.AppID, cfg.AppSecret, cfg.BaseURL(), log)
		result := client.Probe(cmd.Context())

		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(os.Stdout, string(out))

		if !result.OK {
			return fmt.Errorf("probe failed: %s", result.Error)
		}
		return nil
	},
}
