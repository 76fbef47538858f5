package auth

import (
	"crypto/hmac"
	"net/http"
)

// DeviceKeyMiddleware authenticates device-originated requests with the
// shared static key carried in the x-api-key header.
type DeviceKeyMiddleware struct {
	Key []byte
}

// NewDeviceKeyMiddleware constructs device-key auth middleware.
func NewDeviceKeyMiddleware(key []byte) *DeviceKeyMiddleware {
	return &DeviceKeyMiddleware{Key: key}
}

// Wrap enforces the device key on the handler.
func (m *DeviceKeyMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.Key) == 0 {
			http.Error(w, "device auth not configured", http.StatusUnauthorized)
			return
		}
		key := r.Header.Get("x-api-key")
		if key == "" || !hmac.Equal([]byte(key), m.Key) {
			http.Error(w, "unauthorized device", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
