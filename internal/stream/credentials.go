package stream

import "sync"

// Credentials is the auth collaborator the channel consults when dialing.
// Token returns the current bearer token (empty when anonymous); Clear is
// invoked when the server rejects the handshake as unauthorized.
type Credentials interface {
	Token() string
	Clear()
}

// StaticCredentials holds a token set once at composition time.
type StaticCredentials struct {
	mu    sync.RWMutex
	token string
}

func NewStaticCredentials(token string) *StaticCredentials {
	return &StaticCredentials{token: token}
}

func (c *StaticCredentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *StaticCredentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}
