package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/model"
)

const maxErrorBody = 256

type getter struct {
	HTTPClient *http.Client
	Log        *zap.Logger
}

// get issues a GET with params merged into the query string. Network and
// read failures are transient.
func (g getter) get(ctx context.Context, rawURL string, params map[string]string) (int, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, &model.TransientError{Err: err}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			g.Log.Warn("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &model.TransientError{Err: fmt.Errorf("read body: %w", err)}
	}
	return resp.StatusCode, body, nil
}

// httpStatusPage maps a non-2xx status onto the taxonomy: 429 is rate
// limited, 5xx transient, any other 4xx terminal. ok is false for 2xx.
func httpStatusPage(code int, body []byte) (page model.Page, ok bool, err error) {
	if code >= 200 && code < 300 {
		return model.Page{}, false, nil
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	switch {
	case code == http.StatusTooManyRequests:
		return model.Page{Status: model.StatusRateLimited, Code: strconv.Itoa(code), Message: msg}, true, nil
	case code >= 500:
		return model.Page{}, true, &model.TransientError{Err: fmt.Errorf("HTTP %d: %s", code, msg)}
	default:
		return model.Page{Status: model.StatusTerminal, Code: strconv.Itoa(code), Message: msg}, true, nil
	}
}
