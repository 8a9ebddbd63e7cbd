package session

import (
	"context"
	"errors"

	"github.com/bytedance/sonic"

	apperrors "shellbridge/internal/platform/errors"
	"shellbridge/internal/platform/securestore"
)

// Secure storage keys owned by the session store.
const (
	keyUserID            = "user_id"
	keyUserToken         = "user_token"
	keyIsLoggedIn        = "is_logged_in"
	keyPushTokenEndpoint = "push_token_endpoint"
)

// Store persists the session in secure storage. It is the only writer
// of the session keys; everything else goes through its API.
type Store struct {
	store securestore.Store
}

// NewStore creates a session store over the given secure storage.
func NewStore(store securestore.Store) *Store {
	return &Store{store: store}
}

// Load reads the persisted session. A missing session is not an error;
// it loads as the zero value with IsLoggedIn false.
func (s *Store) Load(ctx context.Context) (Session, error) {
	var sess Session

	if err := s.loadString(ctx, keyUserID, &sess.UserID); err != nil {
		return Session{}, err
	}
	if err := s.loadString(ctx, keyUserToken, &sess.UserToken); err != nil {
		return Session{}, err
	}
	if err := s.loadString(ctx, keyPushTokenEndpoint, &sess.PushTokenEndpoint); err != nil {
		return Session{}, err
	}

	raw, err := s.store.Get(ctx, keyIsLoggedIn)
	if errors.Is(err, securestore.ErrNotFound) {
		return sess, nil
	}
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.KindStorage, "session.Load", "read is_logged_in", err)
	}
	if err := sonic.Unmarshal(raw, &sess.IsLoggedIn); err != nil {
		return Session{}, apperrors.Wrap(apperrors.KindStorage, "session.Load", "decode is_logged_in", err)
	}

	// A logged-in flag without credentials is a torn write; report the
	// session as logged out rather than half-authenticated.
	if sess.IsLoggedIn && (sess.UserID == "" || sess.UserToken == "") {
		sess.IsLoggedIn = false
	}
	return sess, nil
}

// Save persists the full session.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if sess.IsLoggedIn && (sess.UserID == "" || sess.UserToken == "") {
		return apperrors.New(apperrors.KindSession, "session.Save", "logged-in session requires userId and userToken")
	}

	if err := s.saveString(ctx, keyUserID, sess.UserID); err != nil {
		return err
	}
	if err := s.saveString(ctx, keyUserToken, sess.UserToken); err != nil {
		return err
	}
	if err := s.saveString(ctx, keyPushTokenEndpoint, sess.PushTokenEndpoint); err != nil {
		return err
	}

	raw, err := sonic.Marshal(sess.IsLoggedIn)
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "session.Save", "encode is_logged_in", err)
	}
	if err := s.store.Set(ctx, keyIsLoggedIn, raw); err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "session.Save", "write is_logged_in", err)
	}
	return nil
}

// Clear removes every session key from secure storage.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range []string{keyUserID, keyUserToken, keyIsLoggedIn, keyPushTokenEndpoint} {
		if err := s.store.Delete(ctx, key); err != nil {
			return apperrors.Wrap(apperrors.KindStorage, "session.Clear", "delete "+key, err)
		}
	}
	return nil
}

func (s *Store) loadString(ctx context.Context, key string, out *string) error {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, securestore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "session.Load", "read "+key, err)
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "session.Load", "decode "+key, err)
	}
	return nil
}

func (s *Store) saveString(ctx context.Context, key, value string) error {
	if value == "" {
		if err := s.store.Delete(ctx, key); err != nil {
			return apperrors.Wrap(apperrors.KindStorage, "session.Save", "delete "+key, err)
		}
		return nil
	}
	raw, err := sonic.Marshal(value)
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "session.Save", "encode "+key, err)
	}
	if err := s.store.Set(ctx, key, raw); err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "session.Save", "write "+key, err)
	}
	return nil
}
