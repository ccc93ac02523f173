package feishu

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func probeServer(t *testing.T, botCode int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"tenant_access_token":"t-abc"}`))
	})
	mux.HandleFunc("/open-apis/bot/v3/info", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t-abc", r.Header.Get("Authorization"))
		if botCode != 0 {
			w.Write([]byte(`{"code":99991663,"msg":"invalid token"}`))
			return
		}
		w.Write([]byte(`{"code":0,"msg":"ok","bot":{"open_id":"ou_bot","app_name":"TestBot"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProbeSuccess(t *testing.T) {
	srv := probeServer(t, 0)
	c := NewClient("cli_a", "secret", srv.URL, zerolog.Nop())

	res := c.Probe(context.Background())
	assert.True(t, res.OK)
	assert.Equal(t, "cli_a", res.AppID)
	assert.Equal(t, "ou_bot", res.BotOpenID)
	assert.Equal(t, "TestBot", res.BotName)
	assert.Empty(t, res.Error)
}

func TestProbeBotInfoError(t *testing.T) {
	srv := probeServer(t, 1)
	c := NewClient("cli_a", "secret", srv.URL, zerolog.Nop())

	res := c.Probe(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, "cli_a", res.AppID)
	assert.Empty(t, res.BotOpenID)
	assert.Contains(t, res.Error, "invalid token")
}

func TestProbeUnreachable(t *testing.T) {
	srv := probeServer(t, 0)
	url := srv.URL
	srv.Close()

	c := NewClient("cli_a", "secret", url, zerolog.Nop())
	res := c.Probe(context.Background())
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Error)
}

func TestFileTypeForName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.pdf", "pdf"},
		{"notes.doc", "doc"},
		{"notes.docx", "doc"},
		{"sheet.xlsx", "xls"},
		{"deck.PPTX", "ppt"},
		{"clip.mp4", "mp4"},
		{"voice.opus", "opus"},
		{"archive.zip", "stream"},
		{"noext", "stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileTypeForName(tt.name), tt.name)
	}
}
