package oauth

import (
	"errors"
	"strings"
	"testing"

	"github.com/spoonjoy/spoonjoy/internal/config"
)

func TestParseProvider(t *testing.T) {
	cases := []struct {
		raw  string
		want Provider
		ok   bool
	}{
		{"github", ProviderGitHub, true},
		{" GitHub ", ProviderGitHub, true},
		{"google", ProviderGoogle, true},
		{"facebook", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseProvider(tc.raw)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseProvider(%q) error: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("ParseProvider(%q) = %q, want %q", tc.raw, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrUnknownProvider) {
			t.Fatalf("ParseProvider(%q) error = %v, want ErrUnknownProvider", tc.raw, err)
		}
	}
}

func TestAuthCodeURLRequiresCredentials(t *testing.T) {
	svc := NewService(config.OAuthConfig{CallbackBaseURL: "https://spoonjoy.test"})
	if _, err := svc.AuthCodeURL(ProviderGitHub, "state123"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("AuthCodeURL error = %v, want ErrNotConfigured", err)
	}
}

func TestAuthCodeURLIncludesStateAndCallback(t *testing.T) {
	svc := NewService(config.OAuthConfig{
		CallbackBaseURL: "https://spoonjoy.test/",
		Providers: map[string]config.OAuthProviderConfig{
			"github": {ClientID: "id", ClientSecret: "secret"},
		},
	})
	url, err := svc.AuthCodeURL(ProviderGitHub, "state123")
	if err != nil {
		t.Fatalf("AuthCodeURL error: %v", err)
	}
	if !strings.Contains(url, "state=state123") {
		t.Fatalf("authorize URL missing state: %s", url)
	}
	if !strings.Contains(url, "auth%2Fgithub%2Fcallback") {
		t.Fatalf("authorize URL missing callback path: %s", url)
	}
}

func TestParseProfileGitHub(t *testing.T) {
	raw := []byte(`{"id":42,"login":"chef","email":"Chef@Example.COM"}`)
	profile, err := parseProfile(ProviderGitHub, raw)
	if err != nil {
		t.Fatalf("parseProfile error: %v", err)
	}
	if profile.ProviderUserID != "42" {
		t.Fatalf("ProviderUserID = %q, want 42", profile.ProviderUserID)
	}
	if profile.Username != "chef" {
		t.Fatalf("Username = %q, want chef", profile.Username)
	}
	if profile.Email != "chef@example.com" {
		t.Fatalf("Email = %q, want lowercase", profile.Email)
	}
}

func TestParseProfileGoogleMissingID(t *testing.T) {
	if _, err := parseProfile(ProviderGoogle, []byte(`{"name":"x"}`)); err == nil {
		t.Fatal("expected error for profile without id")
	}
}
