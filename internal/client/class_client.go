package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var ErrClassNotFound = fmt.Errorf("class not found")

// MembershipChecker answers whether a user may enter a room.
type MembershipChecker interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

// ClassClient wraps the class service HTTP API. Membership lookups are
// cached with a short TTL since roster changes are rare relative to joins.
type ClassClient struct {
	baseURL    string
	httpClient *http.Client
	cache      map[string]*cachedMembership
	cacheTTL   time.Duration
	mu         sync.RWMutex
}

type cachedMembership struct {
	isMember  bool
	expiresAt time.Time
}

type membershipResponse struct {
	Success bool   `json:"success"`
	Data    *bool  `json:"data"`
	Error   string `json:"error,omitempty"`
}

// NewClassClient creates a new class service client.
func NewClassClient(baseURL string, cacheTTL time.Duration) *ClassClient {
	return &ClassClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:    make(map[string]*cachedMembership),
		cacheTTL: cacheTTL,
	}
}

// IsMember reports whether the user is enrolled in the class the room
// belongs to.
func (c *ClassClient) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	key := roomID + ":" + userID
	if isMember, ok := c.getFromCache(key); ok {
		return isMember, nil
	}

	url := fmt.Sprintf("%s/api/v1/classes/%s/members/%s", c.baseURL, roomID, userID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, ErrClassNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("class service returned status: %d", resp.StatusCode)
	}

	var memberResp membershipResponse
	if err := json.NewDecoder(resp.Body).Decode(&memberResp); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	if !memberResp.Success || memberResp.Data == nil {
		return false, fmt.Errorf("class service error: %s", memberResp.Error)
	}

	c.addToCache(key, *memberResp.Data)
	return *memberResp.Data, nil
}

// InvalidateCache removes a membership entry from the cache.
func (c *ClassClient) InvalidateCache(roomID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, roomID+":"+userID)
}

func (c *ClassClient) getFromCache(key string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if cached, ok := c.cache[key]; ok {
		if time.Now().Before(cached.expiresAt) {
			return cached.isMember, true
		}
	}
	return false, false
}

func (c *ClassClient) addToCache(key string, isMember bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = &cachedMembership{
		isMember:  isMember,
		expiresAt: time.Now().Add(c.cacheTTL),
	}
}

// AllowAllChecker is used when no class service is configured: every
// authenticated user may enter any room.
type AllowAllChecker struct{}

func (AllowAllChecker) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	return true, nil
}
