package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openclaw/feishu-channel/internal/feishu"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message to a chat",
}

var sendTextCmd = &cobra.Command{
	Use:   "text <chat-id> <text>",
	Short: "Send a plain text message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := sendClient()
		if err != nil {
			return err
		}
		messageID, err := client.SendText(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		log.Info().Str("message_id", messageID).Msg("text sent")
		return nil
	},
}

var sendCardCmd = &cobra.Command{
	Use:   "card <chat-id> <card-json>",
	Short: "Send an interactive card from raw card JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var card map[string]any
		if err := json.Unmarshal([]byte(args[1]), &card); err != nil {
			return fmt.Errorf("card is not valid JSON: %w", err)
		}
		client, err := sendClient()
		if err != nil {
			return err
		}
		messageID, err := client.SendCard(cmd.Context(), args[0], card)
		if err != nil {
			return err
		}
		log.Info().Str("message_id", messageID).Msg("card sent")
		return nil
	},
}

var sendImageCmd = &cobra.Command{
	Use:   "image <chat-id> <path>",
	Short: "Upload a local image and send it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := sendClient()
		if err != nil {
			return err
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		imageKey, err := client.UploadImage(cmd.Context(), f)
		if err != nil {
			return err
		}
		messageID, err := client.SendImage(cmd.Context(), args[0], imageKey)
		if err != nil {
			return err
		}
		log.Info().Str("message_id", messageID).Str("image_key", imageKey).Msg("image sent")
		return nil
	},
}

var sendFileCmd = &cobra.Command{
	Use:   "file <chat-id> <path>",
	Short: "Upload a local file and send it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := sendClient()
		if err != nil {
			return err
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		fileKey, err := client.UploadFile(cmd.Context(), filepath.Base(args[1]), f)
		if err != nil {
			return err
		}
		messageID, err := client.SendFile(cmd.Context(), args[0], fileKey)
		if err != nil {
			return err
		}
		log.Info().Str("message_id", messageID).Str("file_key", fileKey).Msg("file sent")
		return nil
	},
}

func sendClient() (*feishu.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return feishu.NewClient(cfg.AppID, cfg.AppSecret, cfg.BaseURL(), log), nil
}

func init() {
	sendCmd.AddCommand(sendTextCmd)
	sendCmd.AddCommand(sendCardCmd)
	sendCmd.AddCommand(sendImageCmd)
	sendCmd.AddCommand(sendFileCmd)
}
