// Package oauth handles the delegated identity providers users can link to
// their account. The provider set is a fixed enum; anything else is a
// validation error, not a crash.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spoonjoy/spoonjoy/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Provider identifies a supported external identity provider.
type Provider string

const (
	// ProviderGitHub is the GitHub OAuth provider.
	ProviderGitHub Provider = "github"
	// ProviderGoogle is the Google OAuth provider.
	ProviderGoogle Provider = "google"
)

// ErrUnknownProvider rejects a provider outside the supported enum.
var ErrUnknownProvider = errors.New("oauth: unknown provider")

// ErrNotConfigured indicates the provider has no client credentials.
var ErrNotConfigured = errors.New("oauth: provider not configured")

// ParseProvider validates a raw provider name against the supported enum.
func ParseProvider(raw string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderGitHub:
		return ProviderGitHub, nil
	case ProviderGoogle:
		return ProviderGoogle, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
	}
}

// Profile is the identity returned by a provider after code exchange.
type Profile struct {
	ProviderUserID string          // Stable user ID at the provider.
	Username       string          // Display name at the provider.
	Email          string          // Email, may be empty.
	Raw            json.RawMessage // Full profile payload as returned.
}

// Exchanger runs the authorization-code flow against a provider.
type Exchanger interface {
	// AuthCodeURL returns the provider's authorization URL for a link or
	// login attempt identified by state.
	AuthCodeURL(provider Provider, state string) (string, error)
	// Exchange trades an authorization code for the provider profile.
	Exchange(ctx context.Context, provider Provider, code string) (*Profile, error)
}

// Service implements Exchanger with golang.org/x/oauth2.
type Service struct {
	cfg        config.OAuthConfig
	httpClient *http.Client
}

// NewService constructs a Service from provider credentials.
func NewService(cfg config.OAuthConfig) *Service {
	return &Service{cfg: cfg, httpClient: http.DefaultClient}
}

// AuthCodeURL returns the provider authorization URL.
func (s *Service) AuthCodeURL(provider Provider, state string) (string, error) {
	conf, err := s.oauthConfig(provider)
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL(state), nil
}

// Exchange trades the authorization code for the provider profile.
func (s *Service) Exchange(ctx context.Context, provider Provider, code string) (*Profile, error) {
	conf, err := s.oauthConfig(provider)
	if err != nil {
		return nil, err
	}
	token, errExchange := conf.Exchange(ctx, code)
	if errExchange != nil {
		return nil, fmt.Errorf("oauth: exchange code: %w", errExchange)
	}
	return s.fetchProfile(ctx, provider, conf, token)
}

// oauthConfig builds the x/oauth2 config for a provider.
func (s *Service) oauthConfig(provider Provider) (*oauth2.Config, error) {
	creds, ok := s.cfg.Providers[string(provider)]
	if !ok || strings.TrimSpace(creds.ClientID) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, provider)
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  strings.TrimRight(s.cfg.CallbackBaseURL, "/") + "/auth/" + string(provider) + "/callback",
	}
	switch provider {
	case ProviderGitHub:
		conf.Endpoint = github.Endpoint
		conf.Scopes = []string{"read:user", "user:email"}
	case ProviderGoogle:
		conf.Endpoint = google.Endpoint
		conf.Scopes = []string{"openid", "email", "profile"}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return conf, nil
}

// profileURL returns the provider's profile endpoint.
func profileURL(provider Provider) string {
	switch provider {
	case ProviderGitHub:
		return "https://api.github.com/user"
	case ProviderGoogle:
		return "https://www.googleapis.com/oauth2/v2/userinfo"
	default:
		return ""
	}
}

// fetchProfile loads the provider profile with the exchanged token.
func (s *Service) fetchProfile(ctx context.Context, provider Provider, conf *oauth2.Config, token *oauth2.Token) (*Profile, error) {
	client := conf.Client(ctx, token)
	resp, errGet := client.Get(profileURL(provider))
	if errGet != nil {
		return nil, fmt.Errorf("oauth: fetch profile: %w", errGet)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth: profile status %d", resp.StatusCode)
	}

	raw, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return nil, fmt.Errorf("oauth: read profile: %w", errRead)
	}
	return parseProfile(provider, raw)
}

// parseProfile extracts the identity fields from a raw provider payload.
func parseProfile(provider Provider, raw []byte) (*Profile, error) {
	switch provider {
	case ProviderGitHub:
		var body struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
			Email string `json:"email"`
		}
		if errDecode := json.Unmarshal(raw, &body); errDecode != nil {
			return nil, fmt.Errorf("oauth: decode github profile: %w", errDecode)
		}
		if body.ID == 0 {
			return nil, errors.New("oauth: github profile missing id")
		}
		return &Profile{
			ProviderUserID: fmt.Sprintf("%d", body.ID),
			Username:       body.Login,
			Email:          strings.ToLower(strings.TrimSpace(body.Email)),
			Raw:            raw,
		}, nil
	case ProviderGoogle:
		var body struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if errDecode := json.Unmarshal(raw, &body); errDecode != nil {
			return nil, fmt.Errorf("oauth: decode google profile: %w", errDecode)
		}
		if body.ID == "" {
			return nil, errors.New("oauth: google profile missing id")
		}
		return &Profile{
			ProviderUserID: body.ID,
			Username:       body.Name,
			Email:          strings.ToLower(strings.TrimSpace(body.Email)),
			Raw:            raw,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}
