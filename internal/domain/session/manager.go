package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shellbridge/internal/domain/eventbus"
	apperrors "shellbridge/internal/platform/errors"
	"shellbridge/internal/platform/logging"
)

const logTag = "SESSION"

// PushRegistrar exchanges the device push token with a remote endpoint.
// Both operations report success as a boolean; the retry policy lives
// behind this interface.
type PushRegistrar interface {
	Register(ctx context.Context, endpoint string) bool
	Unregister(ctx context.Context, endpoint string) bool
}

// Manager drives the two-state login lifecycle. Either state may
// transition to the other at any time.
type Manager struct {
	store     *Store
	registrar PushRegistrar
	bus       *eventbus.Bus
	logger    *logging.Logger
	pushOn    bool
}

// NewManager wires the session manager. registrar may be nil when push
// notifications are disabled.
func NewManager(store *Store, registrar PushRegistrar, bus *eventbus.Bus, logger *logging.Logger, pushEnabled bool) *Manager {
	return &Manager{
		store:     store,
		registrar: registrar,
		bus:       bus,
		logger:    logger,
		pushOn:    pushEnabled,
	}
}

// Current returns the persisted session.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	return m.store.Load(ctx)
}

// LoginSuccess persists the credentials reported by the web content and,
// when an endpoint was supplied, registers the push token. Registration
// failure is logged and does not fail the login.
func (m *Manager) LoginSuccess(ctx context.Context, userID, userToken, pushTokenEndpoint string) error {
	if userID == "" || userToken == "" {
		return apperrors.New(apperrors.KindSession, "session.LoginSuccess", "userId and userToken are required")
	}

	sess := Session{
		UserID:            userID,
		UserToken:         userToken,
		PushTokenEndpoint: pushTokenEndpoint,
		IsLoggedIn:        true,
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return err
	}

	if exp, ok := tokenExpiry(userToken); ok {
		m.logger.DebugTag(logTag, "user %s logged in, token expires %s", userID, exp.Format(time.RFC3339))
	} else {
		m.logger.DebugTag(logTag, "user %s logged in", userID)
	}

	if pushTokenEndpoint != "" && m.pushOn && m.registrar != nil {
		if !m.registrar.Register(ctx, pushTokenEndpoint) {
			m.logger.WarnTag(logTag, "push token registration failed for %s", pushTokenEndpoint)
		}
	}

	m.bus.Publish(eventbus.EventSessionLoggedIn, eventbus.SessionEventData{UserID: userID})
	return nil
}

// Logout unregisters the push token when an endpoint is known, then
// clears the session. Unregistration failure never blocks the clear.
// endpointOverride, when non-empty, takes precedence over the stored
// endpoint; the web content may supply a fresher one in its message.
func (m *Manager) Logout(ctx context.Context, endpointOverride string) error {
	sess, err := m.store.Load(ctx)
	if err != nil {
		m.logger.WarnTag(logTag, "could not load session during logout: %v", err)
		sess = Session{}
	}

	endpoint := sess.PushTokenEndpoint
	if endpointOverride != "" {
		endpoint = endpointOverride
	}
	if endpoint != "" && m.pushOn && m.registrar != nil {
		if !m.registrar.Unregister(ctx, endpoint) {
			m.logger.WarnTag(logTag, "push token unregistration failed for %s", endpoint)
		}
	}

	if err := m.store.Clear(ctx); err != nil {
		return err
	}

	m.logger.InfoTag(logTag, "user logged out")
	m.bus.Publish(eventbus.EventSessionLoggedOut, eventbus.SessionEventData{UserID: sess.UserID})
	return nil
}

// tokenExpiry pulls the exp claim out of the web-supplied token without
// verifying the signature. The token is opaque to the shell; the expiry
// is only used for logging.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
