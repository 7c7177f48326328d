package auth

import (
	"context"
	"sync"

	"popquiz-service/internal/domain"
)

// Client is one device's view of the identity provider: it remembers the
// signed-in identity and streams changes to subscribers.
type Client struct {
	provider Provider

	mu      sync.Mutex
	current *domain.Identity
	token   string
	subs    map[chan *domain.Identity]struct{}
}

func NewClient(provider Provider) *Client {
	return &Client{
		provider: provider,
		subs:     make(map[chan *domain.Identity]struct{}),
	}
}

func (c *Client) SignUp(ctx context.Context, email, password string) (Credentials, error) {
	creds, err := c.provider.SignUp(ctx, email, password)
	if err != nil {
		return Credentials{}, err
	}
	c.set(&creds.Identity, creds.Token)
	return creds, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (Credentials, error) {
	creds, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		return Credentials{}, err
	}
	c.set(&creds.Identity, creds.Token)
	return creds, nil
}

// Restore signs the client in with a previously issued token.
func (c *Client) Restore(_ context.Context, token string) (domain.Identity, error) {
	id, err := c.provider.Verify(token)
	if err != nil {
		return domain.Identity{}, err
	}
	c.set(&id, token)
	return id, nil
}

// SignOut clears the local identity even when revoking the token fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	var err error
	if token != "" {
		err = c.provider.SignOut(ctx, token)
	}
	c.set(nil, "")
	return err
}

// Current returns a copy of the signed-in identity, or nil.
func (c *Client) Current() *domain.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyIdentity(c.current)
}

// Subscribe streams the current identity, starting with its present value.
// The channel only ever holds the latest value.
func (c *Client) Subscribe() (<-chan *domain.Identity, func()) {
	ch := make(chan *domain.Identity, 1)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	ch <- copyIdentity(c.current)
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Client) set(id *domain.Identity, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = copyIdentity(id)
	c.token = token
	for ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- copyIdentity(id)
	}
}

func copyIdentity(id *domain.Identity) *domain.Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
