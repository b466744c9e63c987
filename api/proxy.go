package api

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
)

// NewHubProxy builds the handler the cloud uses to forward dashboard API
// calls to the hub. The hub answers from its own snapshot; the cloud only
// relays the request.
func NewHubProxy(hubURL string, logger *zap.Logger) (http.Handler, error) {
	target, err := url.Parse(hubURL)
	if err != nil {
		return nil, fmt.Errorf("invalid hub url %q: %w", hubURL, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("Failed to proxy request to hub",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		http.Error(w, "hub unreachable", http.StatusBadGateway)
	}

	return proxy, nil
}
