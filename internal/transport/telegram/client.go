package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"schedbot/internal/domain"
	"schedbot/internal/infra"
)

// ErrMissingToken indicates that the client was configured without a bot token.
var ErrMissingToken = errors.New("telegram: bot token is required")

// Options configures the Bot API client.
type Options struct {
	Token          string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Telegram Bot API. Failures are classified
// into domain.SendError so the dispatcher can decide between retrying and
// disabling the subscription.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, ErrMissingToken
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Send delivers the artifact to the user's chat. Text artifacts go through
// sendMessage, photo artifacts through sendPhoto.
func (c *Client) Send(ctx context.Context, userID int64, artifact *domain.Artifact) error {
	switch artifact.Kind {
	case domain.ArtifactText:
		return c.sendMessage(ctx, userID, string(artifact.Data))
	case domain.ArtifactPhoto:
		return c.sendPhoto(ctx, userID, artifact.Data, artifact.Caption)
	default:
		return &domain.SendError{Permanent: true, Err: fmt.Errorf("telegram: unknown artifact kind %q", artifact.Kind)}
	}
}

func (c *Client) sendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &domain.SendError{Permanent: true, Err: fmt.Errorf("telegram: encode request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return &domain.SendError{Permanent: true, Err: fmt.Errorf("telegram: build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, chatID, "sendMessage")
}

func (c *Client) sendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return &domain.SendError{Permanent: true, Err: fmt.Errorf("telegram: write field: %w", err)}
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return &domain.SendError{Permanent: true, Err: fmt.Errorf("telegram: write field: %w", err)}
		}
	}
	part, err := writer.CreateFormFile("photo", "schedule.png")
	if err != nil {
		return &domain.SendError{Permanent: true, Err: fmt.Errorf("telegram: create form file: %w", err)}
	}
	if _, err := part.Write(photo); err != nil {
		return &domain.SendError{Permanent: true, Err: fmt.Errorf("telegram: write photo: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return &domain.SendError{Permanent: true, Err: fmt.Errorf("telegram: close form: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendPhoto"), &buf)
	if err != nil {
		return &domain.SendError{Permanent: true, Err: fmt.Errorf("telegram: build request: %w", err)}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, chatID, "sendPhoto")
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

func (c *Client) do(req *http.Request, chatID int64, method string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.SendError{Err: fmt.Errorf("telegram: http request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.SendError{Err: fmt.Errorf("telegram: read response: %w", err)}
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// A body the API gateway mangled; the status line still tells
		// transient from permanent.
		if resp.StatusCode >= 500 {
			return &domain.SendError{Err: fmt.Errorf("telegram: status %d", resp.StatusCode)}
		}
		return &domain.SendError{Err: fmt.Errorf("telegram: decode response (status %d): %w", resp.StatusCode, err)}
	}
	if decoded.OK {
		c.logger.Debug().Int64("chat_id", chatID).Str("method", method).Msg("telegram: delivered")
		return nil
	}
	return classifyAPIError(decoded)
}

// classifyAPIError maps Bot API rejections onto the retry policy. Forbidden
// means the user blocked the bot or the chat is gone; both are permanent.
func classifyAPIError(resp apiResponse) error {
	apiErr := fmt.Errorf("telegram: %s (%d)", resp.Description, resp.ErrorCode)
	switch {
	case resp.ErrorCode == http.StatusForbidden:
		return &domain.SendError{Permanent: true, Err: apiErr}
	case resp.ErrorCode == http.StatusBadRequest && isDeadChat(resp.Description):
		return &domain.SendError{Permanent: true, Err: apiErr}
	case resp.ErrorCode == http.StatusTooManyRequests:
		return &domain.SendError{
			RetryAfter: time.Duration(resp.Parameters.RetryAfter) * time.Second,
			Err:        apiErr,
		}
	default:
		return &domain.SendError{Err: apiErr}
	}
}

func isDeadChat(description string) bool {
	lower := strings.ToLower(description)
	for _, marker := range []string{"chat not found", "user is deactivated", "bot was blocked"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
