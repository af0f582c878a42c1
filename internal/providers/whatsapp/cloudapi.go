package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type CloudAPIProvider struct {
	baseURL     string
	phoneID     string
	accessToken string
	httpClient  *http.Client
	log         *zap.Logger
}

func NewCloudAPIProvider(baseURL, phoneID, accessToken string, log *zap.Logger) *CloudAPIProvider {
	return &CloudAPIProvider{
		baseURL:     baseURL,
		phoneID:     phoneID,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         log.Named("whatsapp.cloudapi"),
	}
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

func (p *CloudAPIProvider) SendText(ctx context.Context, to, body string) error {
	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", p.baseURL, p.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.log.Warn("whatsapp send failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return fmt.Errorf("whatsapp send failed: status %d", resp.StatusCode)
	}
	return nil
}
