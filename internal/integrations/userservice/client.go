package userservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheEntry struct {
	user      *User
	fetchedAt time.Time
}

// Client клиент для работы с UserService.
// Ответы кэшируются в LRU на cacheTTL, отсутствие пользователя не кэшируется.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger

	mu       sync.Mutex
	cache    *lru.Cache[int64, cacheEntry]
	cacheTTL time.Duration
	now      func() time.Time
}

// NewClient создает новый экземпляр клиента UserService.
// cacheSize <= 0 отключает кэш.
func NewClient(baseURL string, timeout time.Duration, cacheSize int, cacheTTL time.Duration, log Logger) (*Client, error) {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:      log,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}

	if cacheSize > 0 {
		cache, err := lru.New[int64, cacheEntry](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create cache: %v", ErrInternal, err)
		}
		c.cache = cache
	}

	return c, nil
}

// GetUser получает пользователя по ID
func (c *Client) GetUser(ctx context.Context, userID int64) (*User, error) {
	if user, ok := c.cached(userID); ok {
		return user, nil
	}

	user, err := c.fetchUser(ctx, userID)
	if err != nil {
		if err != ErrUserNotFound {
			c.log.Error("UserService request failed for user_id=%d: %v", userID, err)
		}
		return nil, err
	}

	c.store(user)
	return user, nil
}

func (c *Client) fetchUser(ctx context.Context, userID int64) (*User, error) {
	url := fmt.Sprintf("%s/internal/users/%d", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: invalid user ID format", ErrInvalidResponse)
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return &user, nil
}

func (c *Client) cached(userID int64) (*User, bool) {
	if c.cache == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache.Get(userID)
	if !ok {
		return nil, false
	}
	if c.cacheTTL > 0 && c.now().Sub(entry.fetchedAt) > c.cacheTTL {
		c.cache.Remove(userID)
		return nil, false
	}

	u := *entry.user
	return &u, true
}

func (c *Client) store(user *User) {
	if c.cache == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	u := *user
	c.cache.Add(user.ID, cacheEntry{user: &u, fetchedAt: c.now()})
}
