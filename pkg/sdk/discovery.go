package sdk

import (
	"os"
	"strings"
)

// DefaultAddr is where a locally started daemon listens.
const DefaultAddr = "https://localhost:7002"

// New returns a client for the daemon named by the environment.
// CELERIX_SUPPORT_ADDR selects the daemon; a bare host:port uses plain HTTP
// when CELERIX_DISABLE_TLS is "true".
func New(opts ...Option) (*Client, error) {
	return Connect(ResolveAddr(""), opts...)
}

// ResolveAddr picks the daemon address: an explicit addr first, then the
// environment, then DefaultAddr.
func ResolveAddr(addr string) string {
	if addr == "" {
		addr = os.Getenv("CELERIX_SUPPORT_ADDR")
	}
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		scheme := "https://"
		if os.Getenv("CELERIX_DISABLE_TLS") == "true" {
			scheme = "http://"
		}
		addr = scheme + addr
	}
	return addr
}
