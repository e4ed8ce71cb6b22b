package notify

import (
	"algoexec/config"
	"algoexec/pkg/http"
	"algoexec/pkg/types"
	"algoexec/pkg/utils"
	"context"
	"encoding/json"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Connection identifies the observer of an instance. An empty CallbackUrl falls
// back to the notifier default, and so does one outside the allowlist.
type Connection struct {
	Id          string `json:"id" msgpack:"id"`
	CallbackUrl string `json:"callbackUrl,omitempty" msgpack:"callbackUrl"`
}

type Message struct {
	ConnectionId string            `json:"connectionId"`
	Gid          string            `json:"gid,omitempty"`
	Level        types.NotifyLevel `json:"level"`
	Message      string            `json:"message"`
	Time         time.Time         `json:"time"`
}

// Notifier delivers leveled messages to observers, best effort.
type Notifier struct {
	defaultUrl string
	allowed    []string
	token      string
	disabled   bool
	timeout    time.Duration

	logger *log.Entry
}

func New(cfg *config.NotificationConfig) *Notifier {
	n := &Notifier{
		timeout: 5 * time.Second,
		logger:  log.WithFields(log.Fields{"component": "notify"}),
	}
	if cfg != nil {
		n.defaultUrl = cfg.CallbackUrl
		n.allowed = cfg.AllowedCallbackUrls
		n.disabled = cfg.Disabled || utils.LoadBoolEnvWithDefault("NOTIFY_DISABLED")
		if cfg.TokenEnv != "" {
			n.token = utils.LoadEnvWithDefault(cfg.TokenEnv, "")
		}
	}
	return n
}

// CallbackAllowed reports whether an order may name url as its observer.
func (n *Notifier) CallbackAllowed(url string) bool {
	if url == "" {
		return true
	}
	for _, prefix := range n.allowed {
		if prefix != "" && strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// Notify logs the message and posts it to the connection's observer in the
// background. Delivery failures are logged, never returned.
func (n *Notifier) Notify(conn Connection, gid string, level types.NotifyLevel, message string) {
	logger := n.logger.WithFields(log.Fields{"conn": conn.Id, "gid": gid})
	switch level {
	case types.NotifyError:
		logger.Error(message)
	case types.NotifyWarning:
		logger.Warn(message)
	default:
		logger.Info(message)
	}

	url := conn.CallbackUrl
	if !n.CallbackAllowed(url) {
		logger.Warnf("callback url not allowed: %s", url)
		url = ""
	}
	if url == "" {
		url = n.defaultUrl
	}
	if n.disabled || url == "" {
		return
	}

	body, err := json.Marshal(Message{
		ConnectionId: conn.Id,
		Gid:          gid,
		Level:        level,
		Message:      message,
		Time:         time.Now(),
	})
	if err != nil {
		logger.Errorf("fail to encode notification: %v", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if _, _, err := http.PostRequest(ctx, url, n.token, body); err != nil {
			logger.Warnf("fail to deliver notification: %v", err)
		}
	}()
}
