package mcpserver

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/feishu-channel/internal/feishu"
)

type fakeSender struct {
	lastChatID string
	lastText   string
	lastCard   map[string]any
}

func (f *fakeSender) SendText(_ context.Context, chatID, text string) (string, error) {
	f.lastChatID = chatID
	f.lastText = text
	return "om_sent", nil
}

func (f *fakeSender) SendCard(_ context.Context, chatID string, card map[string]any) (string, error) {
	f.lastChatID = chatID
	f.lastCard = card
	return "om_card", nil
}

func (f *fakeSender) SendImage(_ context.Context, chatID, imageKey string) (string, error) {
	return "om_img", nil
}

func (f *fakeSender) UploadFile(_ context.Context, fileName string, r io.Reader) (string, error) {
	return "file_key_1", nil
}

func (f *fakeSender) Probe(context.Context) *feishu.ProbeResult {
	return &feishu.ProbeResult{OK: true, BotOpenID: "ou_bot"}
}

func TestHandleSendText(t *testing.T) {
	sender := &fakeSender{}
	s := NewServer(sender)

	_, out, err := s.handleSendText(context.Background(), nil, SendTextInput{ChatID: "oc_1", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "om_sent", out.MessageID)
	assert.Empty(t, out.Error)
	assert.Equal(t, "oc_1", sender.lastChatID)
	assert.Equal(t, "hi", sender.lastText)
}

func TestHandleSendCard(t *testing.T) {
	sender := &fakeSender{}
	s := NewServer(sender)

	_, out, err := s.handleSendCard(context.Background(), nil, SendCardInput{
		ChatID: "oc_1",
		Card:   `{"header":{"title":{"tag":"plain_text","content":"hi"}}}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "om_card", out.MessageID)
	assert.Contains(t, sender.lastCard, "header")
}

func TestHandleSendCardInvalidJSON(t *testing.T) {
	s := NewServer(&fakeSender{})

	_, out, err := s.handleSendCard(context.Background(), nil, SendCardInput{ChatID: "oc_1", Card: "{"})
	require.NoError(t, err)
	assert.Empty(t, out.MessageID)
	assert.Contains(t, out.Error, "not valid JSON")
}

func TestHandleProbe(t *testing.T) {
	s := NewServer(&fakeSender{})

	_, out, err := s.handleProbe(context.Background(), nil, ProbeInput{})
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "ou_bot", out.BotOpenID)
}
