package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ProbeResult reports whether the platform is reachable with the
// configured credentials and, on success, the bot's identity.
type ProbeResult struct {
	OK        bool   `json:"ok"`
	AppID     string `json:"app_id,omitempty"`
	BotName   string `json:"bot_name,omitempty"`
	BotOpenID string `json:"bot_open_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Probe resolves the bot's own identity by fetching a tenant access
// token and then the bot info. Failures come back inside the result,
// never as an error; callers treat an unresolved identity as
// best-effort.
func (c *Client) Probe(ctx context.Context) *ProbeResult {
	fail := func(err error) *ProbeResult {
		c.log.Warn().Err(err).Msg("probe failed")
		return &ProbeResult{AppID: c.appID, Error: err.Error()}
	}

	token, err := c.tenantAccessToken(ctx)
	if err != nil {
		return fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/open-apis/bot/v3/info", nil)
	if err != nil {
		return fail(fmt.Errorf("build bot info request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fail(fmt.Errorf("get bot info: %w", err))
	}
	defer resp.Body.Close()

	var botResult struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Bot  struct {
			OpenID  string `json:"open_id"`
			AppName string `json:"app_name"`
		} `json:"bot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&botResult); err != nil {
		return fail(fmt.Errorf("decode bot info: %w", err))
	}
	if botResult.Code != 0 {
		return fail(fmt.Errorf("bot info: code %d: %s", botResult.Code, botResult.Msg))
	}

	c.log.Info().Str("bot_open_id", botResult.Bot.OpenID).Str("bot_name", botResult.Bot.AppName).Msg("probe ok")
	return &ProbeResult{
		OK:        true,
		AppID:     c.appID,
		BotName:   botResult.Bot.AppName,
		BotOpenID: botResult.Bot.OpenID,
	}
}

func (c *Client) tenantAccessToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/open-apis/auth/v3/tenant_access_token/internal",
		strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("get tenant token: %w", err)
	}
	defer resp.Body.Close()

	var tokenResult struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResult); err != nil {
		return "", fmt.Errorf("decode tenant token: %w", err)
	}
	if tokenResult.Code != 0 {
		return "", fmt.Errorf("tenant token: code %d: %s", tokenResult.Code, tokenResult.Msg)
	}
	return tokenResult.TenantAccessToken, nil
}
