package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openclaw/feishu-channel/internal/store"
)

var chatsAll bool

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List chats the bot is a member of",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := store.Open(cfg.RegistryPath)
		if err != nil {
			return err
		}
		defer registry.Close()

		var chats []*store.Chat
		if chatsAll {
			chats, err = registry.All()
		} else {
			chats, err = registry.Active()
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHAT ID\tNAME\tACTIVE\tADDED")
		for _, c := range chats {
			fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", c.ChatID, c.Name, c.Active, c.AddedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	chatsCmd.Flags().BoolVar(&chatsAll, "all", false, "include chats the bot has been removed from")
}
