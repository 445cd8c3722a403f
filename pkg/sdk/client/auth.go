package client

import (
	"net/http"

	"github.com/conduit-lang/conduit-sdk/pkg/sdk/config"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/wire"
)

const (
	// HeaderRequestID carries the id shared by every attempt of one request
	HeaderRequestID = "X-Request-ID"
)

// prepareHeaders sets content negotiation, the request id and auth material.
// It runs before every attempt since each attempt builds a fresh request.
func (s *Service) prepareHeaders(req *http.Request, requestID string, hasBody bool) {
	req.Header.Set("Accept", wire.MediaType)
	if hasBody {
		req.Header.Set("Content-Type", wire.MediaType)
	}
	req.Header.Set(HeaderRequestID, requestID)
	s.authorize(req)
}

// authorize attaches the configured credentials. Under the cookie scheme the
// client jar carries session cookies; a configured token is sent as the
// session cookie as well.
func (s *Service) authorize(req *http.Request) {
	auth := s.cfg.Auth
	if auth.Token == "" {
		return
	}

	switch auth.Scheme {
	case config.SchemeToken:
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	default:
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: auth.Token})
	}
}
