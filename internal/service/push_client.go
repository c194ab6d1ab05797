package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"easyconnect-server/internal/models"

	"go.uber.org/zap"
)

// Максимальное число токенов в одном запросе к шлюзу.
const maxTokensPerRequest = 1000

// Ответы шлюза, означающие, что токен больше не действителен.
var invalidTokenErrors = map[string]struct{}{
	"InvalidRegistration": {},
	"NotRegistered":       {},
	"MismatchSenderId":    {},
}

// SendResult — итог push-доставки одного уведомления.
// Success истинен, если доставлено хотя бы на одно устройство.
type SendResult struct {
	Success      bool
	SuccessCount int
	FailureCount int
	Total        int
}

// TokenFeedback получает обратную связь шлюза о токенах.
// Реализуется репозиторием токенов; вызывается только из пути воркера.
type TokenFeedback interface {
	MarkUsed(ctx context.Context, tokens []string) error
	Deactivate(ctx context.Context, tokens []string) (int64, error)
}

// PushClient отправляет push-уведомления на устройства.
type PushClient interface {
	Send(ctx context.Context, tokens []string, n *models.Notification) *SendResult
}

// fcmMessage — тело запроса к legacy HTTP API шлюза.
type fcmMessage struct {
	To              string            `json:"to,omitempty"`
	RegistrationIDs []string          `json:"registration_ids,omitempty"`
	Notification    fcmNotification   `json:"notification"`
	Data            map[string]string `json:"data"`
	Priority        string            `json:"priority"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
	Badge string `json:"badge"`
}

type fcmResponse struct {
	Success int         `json:"success"`
	Failure int         `json:"failure"`
	Results []fcmResult `json:"results"`
}

type fcmResult struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// fcmClient реализует PushClient поверх legacy FCM HTTP API.
type fcmClient struct {
	serverKey  string
	endpoint   string
	httpClient *http.Client
	feedback   TokenFeedback
	logger     *zap.Logger

	warnOnce sync.Once
}

var _ PushClient = (*fcmClient)(nil)

// NewFCMClient создает клиент шлюза. Пустой serverKey не является ошибкой:
// клиент создается, но каждая отправка завершается неуспешным результатом.
func NewFCMClient(serverKey, endpoint string, feedback TokenFeedback, logger *zap.Logger) PushClient {
	return &fcmClient{
		serverKey: serverKey,
		endpoint:  endpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		feedback: feedback,
		logger:   logger.Named("fcm_client"),
	}
}

// Send доставляет уведомление на устройства. Токены разбиваются на чанки
// по maxTokensPerRequest; ошибка транспорта проваливает весь чанк целиком.
func (c *fcmClient) Send(ctx context.Context, tokens []string, n *models.Notification) *SendResult {
	result := &SendResult{Total: len(tokens)}
	if len(tokens) == 0 {
		return result
	}

	if c.serverKey == "" {
		c.warnOnce.Do(func() {
			c.logger.Error("FCM server key is not configured, push delivery is disabled")
		})
		result.FailureCount = len(tokens)
		return result
	}

	for start := 0; start < len(tokens); start += maxTokensPerRequest {
		end := start + maxTokensPerRequest
		if end > len(tokens) {
			end = len(tokens)
		}
		c.sendChunk(ctx, tokens[start:end], n, result)
	}

	result.Success = result.SuccessCount > 0
	return result
}

func (c *fcmClient) sendChunk(ctx context.Context, tokens []string, n *models.Notification, result *SendResult) {
	msg := c.buildMessage(tokens, n)

	body, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal push message", zap.Error(err))
		result.FailureCount += len(tokens)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("Failed to build push request", zap.Error(err))
		result.FailureCount += len(tokens)
		return
	}
	req.Header.Set("Authorization", "key="+c.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Push gateway request failed", zap.Int("tokens", len(tokens)), zap.Error(err))
		result.FailureCount += len(tokens)
		pushDeliveriesTotal.WithLabelValues("transport_error").Add(float64(len(tokens)))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("Push gateway returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		result.FailureCount += len(tokens)
		pushDeliveriesTotal.WithLabelValues("gateway_error").Add(float64(len(tokens)))
		return
	}

	var gw fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&gw); err != nil {
		c.logger.Error("Failed to decode push gateway response", zap.Error(err))
		result.FailureCount += len(tokens)
		return
	}

	delivered := make([]string, 0, len(tokens))
	invalid := make([]string, 0)
	for idx, res := range gw.Results {
		if idx >= len(tokens) {
			break
		}
		switch {
		case res.MessageID != "":
			delivered = append(delivered, tokens[idx])
		case c.isInvalidToken(res.Error):
			invalid = append(invalid, tokens[idx])
			c.logger.Warn("Push gateway rejected device token",
				zap.String("error", res.Error),
			)
		default:
			c.logger.Warn("Push delivery failed for token", zap.String("error", res.Error))
		}
	}

	result.SuccessCount += len(delivered)
	result.FailureCount += len(tokens) - len(delivered)
	pushDeliveriesTotal.WithLabelValues("delivered").Add(float64(len(delivered)))
	pushDeliveriesTotal.WithLabelValues("failed").Add(float64(len(tokens) - len(delivered)))

	c.applyFeedback(ctx, delivered, invalid)
}

// applyFeedback передает репозиторию результаты доставки.
// Ошибки обратной связи не влияют на итог отправки.
func (c *fcmClient) applyFeedback(ctx context.Context, delivered, invalid []string) {
	if c.feedback == nil {
		return
	}
	if len(delivered) > 0 {
		if err := c.feedback.MarkUsed(ctx, delivered); err != nil {
			c.logger.Error("Failed to mark tokens as used", zap.Error(err))
		}
	}
	if len(invalid) > 0 {
		deactivated, err := c.feedback.Deactivate(ctx, invalid)
		if err != nil {
			c.logger.Error("Failed to deactivate invalid tokens", zap.Error(err))
			return
		}
		tokensDeactivatedTotal.Add(float64(deactivated))
		c.logger.Info("Deactivated invalid device tokens", zap.Int64("count", deactivated))
	}
}

func (c *fcmClient) buildMessage(tokens []string, n *models.Notification) fcmMessage {
	data := map[string]string{
		"notification_id": n.ID.String(),
		"title":           n.Titre,
		"body":            n.Message,
		"type":            n.Type,
		"priorite":        n.Priorite,
		"click_action":    "FLUTTER_NOTIFICATION_CLICK",
	}
	if n.ActionRoute != nil {
		data["action_route"] = *n.ActionRoute
	}
	if n.EntityType != nil {
		data["entity_type"] = *n.EntityType
	}
	if n.EntityID != nil {
		data["entity_id"] = *n.EntityID
	}
	for k, v := range n.Metadata {
		data[k] = fmt.Sprint(v)
	}

	msg := fcmMessage{
		Notification: fcmNotification{
			Title: n.Titre,
			Body:  n.Message,
			Sound: "default",
			Badge: "1",
		},
		Data:     data,
		Priority: gatewayPriority(n.Priorite),
	}
	if len(tokens) == 1 {
		msg.To = tokens[0]
	} else {
		msg.RegistrationIDs = tokens
	}
	return msg
}

func (c *fcmClient) isInvalidToken(gwError string) bool {
	_, ok := invalidTokenErrors[gwError]
	return ok
}

func gatewayPriority(priorite string) string {
	switch priorite {
	case models.PrioriteHaute, models.PrioriteUrgente:
		return "high"
	default:
		return "normal"
	}
}
