package vault

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

// SessionCookieName is the cookie carrying the console session id.
const SessionCookieName = "celerix_support_session"

// ErrInvalidSession is returned for a cookie that fails authentication or does not hold a session id.
var ErrInvalidSession = errors.New("vault: invalid session cookie")

// SessionCodec signs and encrypts session ids for the session cookie.
type SessionCodec struct {
	secure *securecookie.SecureCookie
}

// NewSessionCodec builds a codec. Empty keys are replaced by random ones, so
// sessions do not survive a restart. blockKey is truncated to 32 bytes.
func NewSessionCodec(hashKey, blockKey []byte) (*SessionCodec, error) {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(64)
	}
	if len(blockKey) == 0 {
		blockKey = securecookie.GenerateRandomKey(32)
	}
	if len(blockKey) > 32 {
		blockKey = blockKey[:32]
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("vault: block key must be 16, 24 or 32 bytes, got %d", len(blockKey))
	}

	secure := securecookie.New(hashKey, blockKey)
	secure.SetSerializer(securecookie.JSONEncoder{})
	return &SessionCodec{secure: secure}, nil
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Encode returns the cookie value for id.
func (c *SessionCodec) Encode(id string) (string, error) {
	return c.secure.Encode(SessionCookieName, id)
}

// Decode returns the session id held by a cookie value.
func (c *SessionCodec) Decode(value string) (string, error) {
	var id string
	if err := c.secure.Decode(SessionCookieName, value, &id); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrInvalidSession
	}
	return id, nil
}
