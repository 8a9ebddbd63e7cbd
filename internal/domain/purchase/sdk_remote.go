package purchase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// RemoteSDK talks to the purchase-service collaborator over HTTP. The
// service fronts the store-specific receipt handling; this client only
// exchanges entitlement snapshots and purchase intents.
//
// Endpoint contract, relative to the base URL:
//
//	GET  /customers/{userId}            -> CustomerInfo
//	GET  /offerings                     -> Offerings
//	POST /customers/{userId}/purchases  -> CustomerInfo, body {productId}
//	POST /customers/{userId}/restore    -> CustomerInfo
//
// A 409 on the purchase endpoint means the user cancelled the native
// flow; it maps to ErrCancelled.
type RemoteSDK struct {
	baseURL string
	client  *http.Client

	mu        sync.Mutex
	apiKey    string
	userID    string
	listeners map[int]func(CustomerInfo)
	nextID    int
}

// NewRemoteSDK builds a client for the purchase service.
func NewRemoteSDK(baseURL string) *RemoteSDK {
	return &RemoteSDK{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 20 * time.Second},
		listeners: map[int]func(CustomerInfo){},
	}
}

func (s *RemoteSDK) Configure(_ context.Context, apiKey, userID string) error {
	if s.baseURL == "" {
		return fmt.Errorf("purchase service URL not configured")
	}
	if apiKey == "" {
		return fmt.Errorf("purchase service API key required")
	}
	s.mu.Lock()
	s.apiKey = apiKey
	s.userID = userID
	s.mu.Unlock()
	return nil
}

func (s *RemoteSDK) Offerings(ctx context.Context) (Offerings, error) {
	var offerings Offerings
	if err := s.get(ctx, "/offerings", &offerings); err != nil {
		return Offerings{}, err
	}
	return offerings, nil
}

func (s *RemoteSDK) Purchase(ctx context.Context, productID string) (CustomerInfo, error) {
	body := map[string]string{"productId": productID}
	var info CustomerInfo
	status, err := s.post(ctx, "/customers/"+s.currentUser()+"/purchases", body, &info)
	if err != nil {
		return CustomerInfo{}, err
	}
	if status == http.StatusConflict {
		return CustomerInfo{}, ErrCancelled
	}
	if status < 200 || status >= 300 {
		return CustomerInfo{}, fmt.Errorf("purchase service returned %d", status)
	}
	s.notify(info)
	return info, nil
}

func (s *RemoteSDK) Restore(ctx context.Context) (CustomerInfo, error) {
	var info CustomerInfo
	status, err := s.post(ctx, "/customers/"+s.currentUser()+"/restore", nil, &info)
	if err != nil {
		return CustomerInfo{}, err
	}
	if status < 200 || status >= 300 {
		return CustomerInfo{}, fmt.Errorf("purchase service returned %d", status)
	}
	s.notify(info)
	return info, nil
}

func (s *RemoteSDK) CustomerInfo(ctx context.Context) (CustomerInfo, error) {
	var info CustomerInfo
	if err := s.get(ctx, "/customers/"+s.currentUser(), &info); err != nil {
		return CustomerInfo{}, err
	}
	return info, nil
}

func (s *RemoteSDK) AddCustomerInfoListener(fn func(CustomerInfo)) ListenerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return &remoteListener{sdk: s, id: id}
}

type remoteListener struct {
	sdk *RemoteSDK
	id  int
}

func (l *remoteListener) Remove() {
	l.sdk.mu.Lock()
	defer l.sdk.mu.Unlock()
	delete(l.sdk.listeners, l.id)
}

func (s *RemoteSDK) notify(info CustomerInfo) {
	s.mu.Lock()
	listeners := make([]func(CustomerInfo), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(info)
	}
}

func (s *RemoteSDK) currentUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *RemoteSDK) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("purchase service returned %d", resp.StatusCode)
	}
	return sonic.ConfigDefault.NewDecoder(resp.Body).Decode(out)
}

func (s *RemoteSDK) post(ctx context.Context, path string, body, out interface{}) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if derr := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(out); derr != nil {
			return resp.StatusCode, derr
		}
	}
	return resp.StatusCode, nil
}

func (s *RemoteSDK) authorize(req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}
