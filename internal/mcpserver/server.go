// Package mcpserver exposes the channel's outbound operations as MCP
// tools over stdio, so agent runtimes can drive the bot without
// linking the SDK directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/openclaw/feishu-channel/internal/feishu"
)

// Sender is the outbound surface the tools call into.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) (string, error)
	SendCard(ctx context.Context, chatID string, card map[string]any) (string, error)
	SendImage(ctx context.Context, chatID, imageKey string) (string, error)
	UploadFile(ctx context.Context, fileName string, r io.Reader) (string, error)
	Probe(ctx context.Context) *feishu.ProbeResult
}

// Server wraps an MCP server bound to one Sender.
type Server struct {
	server *mcp.Server
	sender Sender
}

// NewServer creates the MCP server and registers the channel tools.
func NewServer(sender Sender) *Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "feishu-channel",
		Version: "v1.0.0",
	}, nil)

	s := &Server{server: server, sender: sender}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "feishu_send_text",
		Description: "Send a plain text message to a Feishu chat.",
	}, s.handleSendText)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "feishu_send_card",
		Description: "Send an interactive card to a Feishu chat. The card is raw card JSON and is passed through unchanged.",
	}, s.handleSendCard)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "feishu_send_image",
		Description: "Send a previously uploaded image to a Feishu chat by image key.",
	}, s.handleSendImage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "feishu_upload_file",
		Description: "Upload a local file to Feishu and return its file key for sending.",
	}, s.handleUploadFile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "feishu_probe",
		Description: "Check connectivity with the configured app credentials and resolve the bot identity.",
	}, s.handleProbe)
}

// SendTextInput is the input for the send_text tool.
type SendTextInput struct {
	ChatID string `json:"chat_id" jsonschema:"The target chat id (oc_xxx)"`
	Text   string `json:"text" jsonschema:"The message text to send"`
}

// SendOutput is the shared output of the send tools.
type SendOutput struct {
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleSendText(ctx context.Context, req *mcp.CallToolRequest, input SendTextInput) (*mcp.CallToolResult, SendOutput, error) {
	id, err := s.sender.SendText(ctx, input.ChatID, input.Text)
	if err != nil {
		return nil, SendOutput{Error: err.Error()}, nil
	}
	return nil, SendOutput{MessageID: id}, nil
}

// SendCardInput is the input for the send_card tool.
type SendCardInput struct {
	ChatID string `json:"chat_id" jsonschema:"The target chat id (oc_xxx)"`
	Card   string `json:"card" jsonschema:"The interactive card as a JSON string"`
}

func (s *Server) handleSendCard(ctx context.Context, req *mcp.CallToolRequest, input SendCardInput) (*mcp.CallToolResult, SendOutput, error) {
	var card map[string]any
	if err := json.Unmarshal([]byte(input.Card), &card); err != nil {
		return nil, SendOutput{Error: "card is not valid JSON: " + err.Error()}, nil
	}
	id, err := s.sender.SendCard(ctx, input.ChatID, card)
	if err != nil {
		return nil, SendOutput{Error: err.Error()}, nil
	}
	return nil, SendOutput{MessageID: id}, nil
}

// SendImageInput is the input for the send_image tool.
type SendImageInput struct {
	ChatID   string `json:"chat_id" jsonschema:"The target chat id (oc_xxx)"`
	ImageKey string `json:"image_key" jsonschema:"The image key returned by a previous upload"`
}

func (s *Server) handleSendImage(ctx context.Context, req *mcp.CallToolRequest, input SendImageInput) (*mcp.CallToolResult, SendOutput, error) {
	id, err := s.sender.SendImage(ctx, input.ChatID, input.ImageKey)
	if err != nil {
		return nil, SendOutput{Error: err.Error()}, nil
	}
	return nil, SendOutput{MessageID: id}, nil
}

// UploadFileInput is the input for the upload_file tool.
type UploadFileInput struct {
	Path string `json:"path" jsonschema:"Path of the local file to upload"`
}

// UploadFileOutput carries the platform file key.
type UploadFileOutput struct {
	FileKey string `json:"file_key,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleUploadFile(ctx context.Context, req *mcp.CallToolRequest, input UploadFileInput) (*mcp.CallToolResult, UploadFileOutput, error) {
	f, err := os.Open(input.Path)
	if err != nil {
		return nil, UploadFileOutput{Error: err.Error()}, nil
	}
	defer f.Close()

	key, err := s.sender.UploadFile(ctx, filepath.Base(input.Path), f)
	if err != nil {
		return nil, UploadFileOutput{Error: err.Error()}, nil
	}
	return nil, UploadFileOutput{FileKey: key}, nil
}

// ProbeInput is empty; probe takes no arguments.
type ProbeInput struct{}

func (s *Server) handleProbe(ctx context.Context, req *mcp.CallToolRequest, input ProbeInput) (*mcp.CallToolResult, feishu.ProbeResult, error) {
	return nil, *s.sender.Probe(ctx), nil
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
