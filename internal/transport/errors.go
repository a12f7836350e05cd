package transport

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/relay-bot/internal/session"
)

var (
	// ErrNotConnected is returned by calls made before Authenticate succeeded.
	ErrNotConnected = errors.New("transport not connected")

	// ErrMessageNotFound is returned by FetchMessage for unknown messages.
	ErrMessageNotFound = errors.New("message not found")
)

var floodWaitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`FLOOD_WAIT_(\d+)`),
	regexp.MustCompile(`retry after (\d+)`),
}

// ParseFloodWait extracts the wait from error texts such as FLOOD_WAIT_42 or
// "Too Many Requests: retry after 42".
func ParseFloodWait(text string) (time.Duration, bool) {
	var m []string
	for _, re := range floodWaitPatterns {
		if m = re.FindStringSubmatch(text); m != nil {
			break
		}
	}
	if m == nil {
		return 0, false
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// classifyAuthError maps Bot API failures onto the login error taxonomy.
func classifyAuthError(err error) error {
	if err == nil {
		return nil
	}

	if apiErr, ok := asAPIError(err); ok {
		switch {
		case apiErr.RetryAfter > 0:
			return &session.RateLimitError{Wait: time.Duration(apiErr.RetryAfter) * time.Second}
		case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %s", session.ErrInvalidCode, apiErr.Message)
		}
	}
	if wait, ok := ParseFloodWait(err.Error()); ok {
		return &session.RateLimitError{Wait: wait}
	}
	return err
}

func asAPIError(err error) (tgbotapi.Error, bool) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return *apiErr, true
	}
	return tgbotapi.Error{}, false
}
