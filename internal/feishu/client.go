// Package feishu wraps the Lark open-platform SDK with the outbound
// operations the channel exposes: sending, editing, reactions and
// uploads, plus the identity probe.
package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/rs/zerolog"
)

// File types the upload endpoint accepts. Anything else goes up as a
// generic stream.
var uploadFileTypes = map[string]bool{
	"opus":   true,
	"mp4":    true,
	"pdf":    true,
	"doc":    true,
	"xls":    true,
	"ppt":    true,
	"stream": true,
}

// Client is the outbound Feishu API client.
type Client struct {
	appID     string
	appSecret string
	baseURL   string
	httpc     *http.Client
	lark      *lark.Client
	log       zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client used by the probe.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// NewClient creates a client for the given app credentials. baseURL
// selects the feishu or lark endpoint.
func NewClient(appID, appSecret, baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		appID:     appID,
		appSecret: appSecret,
		baseURL:   baseURL,
		httpc:     http.DefaultClient,
		log:       log.With().Str("component", "feishu").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lark = lark.NewClient(appID, appSecret, lark.WithOpenBaseUrl(c.baseURL))
	return c
}

// AppID returns the configured application id.
func (c *Client) AppID() string { return c.appID }

func textContent(text string) string {
	b, _ := json.Marshal(map[string]string{"text": text})
	return string(b)
}

func (c *Client) create(ctx context.Context, receiveID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.lark.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send %s message: %w", msgType, err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("send %s message: code %d: %s", msgType, resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	c.log.Debug().Str("chat_id", receiveID).Str("msg_type", msgType).Str("message_id", messageID).Msg("message sent")
	return messageID, nil
}

// SendText sends a plain text message and returns the new message id.
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	return c.create(ctx, chatID, larkim.MsgTypeText, textContent(text))
}

// SendCard sends an interactive card. The card is caller-provided JSON
// structure and is passed through without validation.
func (c *Client) SendCard(ctx context.Context, chatID string, card map[string]any) (string, error) {
	content, err := json.Marshal(card)
	if err != nil {
		return "", fmt.Errorf("encode card: %w", err)
	}
	return c.create(ctx, chatID, larkim.MsgTypeInteractive, string(content))
}

// SendImage sends a previously uploaded image by key.
func (c *Client) SendImage(ctx context.Context, chatID, imageKey string) (string, error) {
	b, _ := json.Marshal(map[string]string{"image_key": imageKey})
	return c.create(ctx, chatID, larkim.MsgTypeImage, string(b))
}

// SendFile sends a previously uploaded file by key.
func (c *Client) SendFile(ctx context.Context, chatID, fileKey string) (string, error) {
	b, _ := json.Marshal(map[string]string{"file_key": fileKey})
	return c.create(ctx, chatID, larkim.MsgTypeFile, string(b))
}

// ReplyText replies to a message in its thread.
func (c *Client) ReplyText(ctx context.Context, messageID, text string) (string, error) {
	req := larkim.NewReplyMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewReplyMessageReqBodyBuilder().
			MsgType(larkim.MsgTypeText).
			Content(textContent(text)).
			Build()).
		Build()

	resp, err := c.lark.Im.Message.Reply(ctx, req)
	if err != nil {
		return "", fmt.Errorf("reply to %s: %w", messageID, err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("reply to %s: code %d: %s", messageID, resp.Code, resp.Msg)
	}

	replyID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		replyID = *resp.Data.MessageId
	}
	return replyID, nil
}

// UpdateText edits the text content of an existing message.
func (c *Client) UpdateText(ctx context.Context, messageID, text string) error {
	req := larkim.NewUpdateMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewUpdateMessageReqBodyBuilder().
			MsgType(larkim.MsgTypeText).
			Content(textContent(text)).
			Build()).
		Build()

	resp, err := c.lark.Im.Message.Update(ctx, req)
	if err != nil {
		return fmt.Errorf("update message %s: %w", messageID, err)
	}
	if !resp.Success() {
		return fmt.Errorf("update message %s: code %d: %s", messageID, resp.Code, resp.Msg)
	}
	return nil
}

// AddReaction adds an emoji reaction and returns the reaction id.
func (c *Client) AddReaction(ctx context.Context, messageID, emojiType string) (string, error) {
	req := larkim.NewCreateMessageReactionReqBuilder().
		MessageId(messageID).
		Body(larkim.NewCreateMessageReactionReqBodyBuilder().
			ReactionType(larkim.NewEmojiBuilder().EmojiType(emojiType).Build()).
			Build()).
		Build()

	resp, err := c.lark.Im.MessageReaction.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("add reaction: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("add reaction: code %d: %s", resp.Code, resp.Msg)
	}

	reactionID := ""
	if resp.Data != nil && resp.Data.ReactionId != nil {
		reactionID = *resp.Data.ReactionId
	}
	return reactionID, nil
}

// RemoveReaction removes a reaction previously added by AddReaction.
func (c *Client) RemoveReaction(ctx context.Context, messageID, reactionID string) error {
	req := larkim.NewDeleteMessageReactionReqBuilder().
		MessageId(messageID).
		ReactionId(reactionID).
		Build()

	resp, err := c.lark.Im.MessageReaction.Delete(ctx, req)
	if err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("remove reaction: code %d: %s", resp.Code, resp.Msg)
	}
	return nil
}

// UploadImage uploads image bytes and returns the image key.
func (c *Client) UploadImage(ctx context.Context, r io.Reader) (string, error) {
	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType("message").
			Image(r).
			Build()).
		Build()

	resp, err := c.lark.Im.Image.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("upload image: code %d: %s", resp.Code, resp.Msg)
	}
	if resp.Data == nil || resp.Data.ImageKey == nil {
		return "", fmt.Errorf("upload image: empty image key")
	}
	return *resp.Data.ImageKey, nil
}

// UploadFile uploads file bytes under fileName and returns the file
// key. The platform file type is derived from the extension.
func (c *Client) UploadFile(ctx context.Context, fileName string, r io.Reader) (string, error) {
	req := larkim.NewCreateFileReqBuilder().
		Body(larkim.NewCreateFileReqBodyBuilder().
			FileType(FileTypeForName(fileName)).
			FileName(fileName).
			File(r).
			Build()).
		Build()

	resp, err := c.lark.Im.File.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("upload file: code %d: %s", resp.Code, resp.Msg)
	}
	if resp.Data == nil || resp.Data.FileKey == nil {
		return "", fmt.Errorf("upload file: empty file key")
	}
	return *resp.Data.FileKey, nil
}

// FileTypeForName maps a file name to the platform's upload file_type.
// Spreadsheet and document variants collapse to their base type and
// anything unrecognized becomes "stream".
func FileTypeForName(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "docx":
		ext = "doc"
	case "xlsx":
		ext = "xls"
	case "pptx":
		ext = "ppt"
	}
	if uploadFileTypes[ext] {
		return ext
	}
	return "stream"
}
