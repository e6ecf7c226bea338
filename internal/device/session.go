// Package device talks to the media-transfer HTTP API of a networked signage
// player. A Session is bound to one device address and one credential pair;
// it owns the bearer token for the lifetime of the process.
package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultUsername is assumed when no username is configured, matching
	// the factory account on the devices.
	DefaultUsername = "admin"

	// DefaultMaxResults is the page size used by callers that have no
	// reason to pick their own.
	DefaultMaxResults = 500

	// DefaultTimeout bounds every request made through a session. The
	// devices can be very slow to hand out large media files.
	DefaultTimeout = 5 * time.Minute

	devicePort     = 8080
	apiVersionPath = "/v2"
)

var (
	// ErrEmptyUsername is returned by NewSession when the configured
	// username is empty or blank.
	ErrEmptyUsername = errors.New("device: username must not be empty")

	// ErrAuthFailed is returned by Authenticate when the device rejects
	// the credentials or hands back an unusable token response.
	ErrAuthFailed = errors.New("device: authentication failed")
)

// Session is an authenticated handle to one device. It is not safe for
// concurrent use until Authenticate has returned; afterwards the token is
// read-only and the session may be shared freely.
type Session struct {
	baseURL  string
	username string
	password string
	token    string
	client   *resty.Client
	timeout  time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithUsername overrides the default device username.
func WithUsername(username string) Option {
	return func(s *Session) { s.username = username }
}

// WithPassword sets the device password. An empty password is valid; many
// devices ship without one.
func WithPassword(password string) Option {
	return func(s *Session) { s.password = password }
}

// WithBaseURL replaces the derived http://{address}:8080/v2 base URL.
func WithBaseURL(baseURL string) Option {
	return func(s *Session) { s.baseURL = baseURL }
}

// WithTimeout overrides the per-request timeout shared by all calls made
// through this session.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) { s.timeout = timeout }
}

// WithClient injects a preconfigured resty client, sharing its connection
// pool with other sessions.
func WithClient(client *resty.Client) Option {
	return func(s *Session) { s.client = client }
}

// NewSession builds a session for the device at address. The username must
// not be empty; this is checked here so a misconfiguration never reaches the
// network layer.
func NewSession(address string, opts ...Option) (*Session, error) {
	s := &Session{
		baseURL:  fmt.Sprintf("http://%s:%d%s", address, devicePort, apiVersionPath),
		username: DefaultUsername,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if strings.TrimSpace(s.username) == "" {
		return nil, ErrEmptyUsername
	}
	if s.client == nil {
		s.client = resty.New()
	}
	s.client.SetTimeout(s.timeout)
	return s, nil
}

// Authenticate exchanges the session credentials for a bearer token using a
// password grant. It is the only operation that ever sets the token; on any
// failure the session is left exactly as it was.
func (s *Session) Authenticate(ctx context.Context) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type": "password",
			"username":   s.username,
			"password":   s.password,
		}).
		Post(s.baseURL + "/oauth2/token")
	if err != nil {
		return errors.Wrap(ErrAuthFailed, err.Error())
	}
	if resp.IsError() {
		return errors.Wrapf(ErrAuthFailed, "status %d", resp.StatusCode())
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return errors.Wrap(ErrAuthFailed, "malformed token response")
	}
	if body.AccessToken == "" {
		return errors.Wrap(ErrAuthFailed, "token response has no access_token")
	}

	s.token = body.AccessToken
	log.WithField("username", s.username).Debug("authenticated with device")
	return nil
}

// FindFiles fetches a single page of the device's file catalog. Pagination is
// deliberately left to the caller: pass the previous page's NextPageToken to
// continue, starting from 0. The session must have been authenticated; an
// unauthenticated call is simply rejected by the device.
func (s *Session) FindFiles(ctx context.Context, maxResults, pageToken int) (*FilePage, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"maxResults": strconv.Itoa(maxResults),
			"pageToken":  strconv.Itoa(pageToken),
		}).
		Post(BuildURL(s.baseURL, "/files/find", s.token))
	if err != nil {
		return nil, errors.Wrap(err, "find files")
	}
	if resp.IsError() {
		return nil, errors.Errorf("find files: status %d: %s", resp.StatusCode(), resp.String())
	}

	var page FilePage
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, errors.Wrap(err, "find files")
	}
	log.WithFields(log.Fields{
		"items":         len(page.Items),
		"nextPageToken": page.NextPageToken,
	}).Debug("fetched file page")
	return &page, nil
}

// IsAuthenticated reports whether Authenticate has succeeded on this session.
func (s *Session) IsAuthenticated() bool {
	return s.token != ""
}

// Username returns the username the session authenticates as.
func (s *Session) Username() string { return s.username }

// Token returns the current bearer token, or "" before authentication.
func (s *Session) Token() string { return s.token }

// BaseURL returns the device base URL including port and API version path.
func (s *Session) BaseURL() string { return s.baseURL }

// Client exposes the underlying HTTP client so downloads can share the
// session's connection pool and timeout.
func (s *Session) Client() *resty.Client { return s.client }

// BuildURL appends the bearer token to a device-relative path. It is pure
// string formatting: an empty token still yields a well-formed URL, and it is
// the device that rejects it.
func BuildURL(baseURL, path, token string) string {
	return fmt.Sprintf("%s%s?access_token=%s", baseURL, path, token)
}
