package deeplink

import (
	"context"
	"net/url"
	"strings"
	"time"

	"shellbridge/internal/domain/eventbus"
	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
)

const logTag = "DEEPLINK"

// NavigateFunc delivers an in-app path to the embedded view.
type NavigateFunc func(path string)

// Router resolves incoming URLs into in-app navigation. Two origins are
// handled: a cold-start initial URL checked once after a settle delay,
// and live URL events while the shell is running. Events arriving while
// no navigation capability is available are dropped, not queued.
type Router struct {
	cfg    config.DeepLinkConfig
	bus    *eventbus.Bus
	logger *logging.Logger
}

// NewRouter creates a deep link router.
func NewRouter(cfg config.DeepLinkConfig, bus *eventbus.Bus, logger *logging.Logger) *Router {
	return &Router{cfg: cfg, bus: bus, logger: logger}
}

// Resolve parses a live URL event and invokes the navigation capability
// with the derived in-app path. Unresolvable or unnavigable events are
// dropped.
func (r *Router) Resolve(rawURL string, navigate NavigateFunc) {
	r.resolve(rawURL, navigate, false)
}

// ResolveInitial checks a cold-start URL once, after the configured
// settle delay, so the embedded view has finished mounting. An empty
// initial URL is a normal launch and no-ops.
func (r *Router) ResolveInitial(ctx context.Context, rawURL string, navigate NavigateFunc) {
	if rawURL == "" {
		return
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(r.settleDelay()):
	}
	r.resolve(rawURL, navigate, true)
}

func (r *Router) resolve(rawURL string, navigate NavigateFunc, coldStart bool) {
	path, ok := r.Path(rawURL)
	if !ok {
		r.logger.DebugTag(logTag, "dropping unroutable url %q", rawURL)
		return
	}
	if navigate == nil {
		r.logger.DebugTag(logTag, "no navigator for %q, dropping", rawURL)
		return
	}

	r.logger.InfoTag(logTag, "routing %q -> %q", rawURL, path)
	navigate(path)
	r.bus.Publish(eventbus.EventDeepLinkOpened, eventbus.DeepLinkEventData{
		URL:       rawURL,
		Path:      path,
		ColdStart: coldStart,
	})
}

// Path derives the in-app path for a URL. Scheme links (scheme://a/b)
// and https universal links on an associated domain both resolve; any
// other URL does not.
func (r *Router) Path(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	switch u.Scheme {
	case r.cfg.Scheme:
		// scheme://profile/settings -> /profile/settings
		path := "/" + u.Host + u.Path
		if path == "/" && u.Host == "" {
			return "", false
		}
		return withQuery(strings.TrimSuffix(path, "/"), u), true
	case "https":
		for _, domain := range r.cfg.AssociatedDomains {
			if strings.EqualFold(u.Host, domain) {
				path := u.Path
				if path == "" {
					path = "/"
				}
				return withQuery(path, u), true
			}
		}
	}
	return "", false
}

func (r *Router) settleDelay() time.Duration {
	if r.cfg.SettleDelay > 0 {
		return r.cfg.SettleDelay
	}
	return time.Second
}

func withQuery(path string, u *url.URL) string {
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		return path + "?" + u.RawQuery
	}
	return path
}
