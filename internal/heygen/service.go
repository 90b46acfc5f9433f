package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/avatarhub/backend-go/internal/errors"
)

// Service HeyGen流媒体数字人服务客户端。
// 服务端只负责签发会话token，视频流由浏览器直接与HeyGen建立。
type Service struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewService 创建HeyGen服务客户端
func NewService(apiKey, baseURL string) *Service {
	if baseURL == "" {
		baseURL = "https://api.heygen.com"
	}

	return &Service{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Ready 检查凭证是否已配置
func (s *Service) Ready() bool {
	return s != nil && s.apiKey != ""
}

// CreateSessionToken 签发流媒体会话token
func (s *Service) CreateSessionToken(ctx context.Context) (string, error) {
	if !s.Ready() {
		return "", apperrors.NewConfigurationError("HeyGen API key is not configured")
	}

	body := bytes.NewReader([]byte("{}"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/streaming.create_token", body)
	if err != nil {
		return "", apperrors.NewUpstreamError("heygen", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperrors.NewUpstreamError("heygen", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperrors.NewUpstreamError("heygen", fmt.Errorf("%s %s", resp.Status, strings.TrimSpace(string(raw))))
	}

	var tokenResp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", apperrors.NewUpstreamError("heygen", err)
	}
	if tokenResp.Data.Token == "" {
		return "", apperrors.NewUpstreamError("heygen", fmt.Errorf("empty token in response"))
	}

	return tokenResp.Data.Token, nil
}
