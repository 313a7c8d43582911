package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, validateEmail("user@example.com"))
	assert.False(t, validateEmail(""))
	assert.False(t, validateEmail("not-an-email"))
	assert.False(t, validateEmail("user@"))
}

func TestClientIPIgnoresForwardedHeadersFromUntrustedSender(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:4711"
	req.Header.Set("X-Forwarded-For", "10.0.0.9")

	assert.Equal(t, "203.0.113.7", clientIP(req, nil))
}

func TestClientIPHonorsTrustedProxy(t *testing.T) {
	trusted := parseProxyCIDRs([]string{"192.0.2.0/24"})

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.10:4711"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 192.0.2.10")

	assert.Equal(t, "203.0.113.7", clientIP(req, trusted))

	// X-Real-IP is the fallback when no X-Forwarded-For is present.
	req = httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.10:4711"
	req.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", clientIP(req, trusted))
}

func TestParseProxyCIDRs(t *testing.T) {
	nets := parseProxyCIDRs([]string{"10.0.0.0/8", "192.0.2.1", " ", "garbage"})
	assert.Len(t, nets, 2)

	assert.True(t, isTrustedProxy("10.1.2.3", nets))
	assert.True(t, isTrustedProxy("192.0.2.1", nets))
	assert.False(t, isTrustedProxy("203.0.113.7", nets))
	assert.False(t, isTrustedProxy("not-an-ip", nets))
}
