package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	apperrors "bahafit/internal/errors"
)

const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// Profile is what a provider tells us about the person signing in.
type Profile struct {
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
}

// Provider is an OAuth sign-in provider.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// OAuthCredentials configures one provider. Empty credentials disable it.
type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
}

type oauthProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	decode      func(body []byte) (*Profile, error)
}

func (p *oauthProvider) Name() string { return p.name }

func (p *oauthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a token and loads the profile.
func (p *oauthProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange %s code: %w", p.name, err)
	}

	resp, err := p.config.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s profile: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s profile: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s profile: status %d", p.name, resp.StatusCode)
	}

	profile, err := p.decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s profile: %w", p.name, err)
	}
	profile.Provider = p.name
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if profile.Email == "" {
		return nil, fmt.Errorf("%s profile has no email", p.name)
	}
	return profile, nil
}

func decodeGoogleProfile(body []byte) (*Profile, error) {
	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &Profile{Email: info.Email, Name: info.Name, Image: info.Picture}, nil
}

func decodeFacebookProfile(body []byte) (*Profile, error) {
	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &Profile{Email: info.Email, Name: info.Name, Image: info.Picture.Data.URL}, nil
}

// Providers holds the enabled sign-in providers by name.
type Providers map[string]Provider

// Get returns the named provider or ErrProviderNotConfigured.
func (p Providers) Get(name string) (Provider, error) {
	provider, ok := p[name]
	if !ok {
		return nil, apperrors.ErrProviderNotConfigured
	}
	return provider, nil
}

// NewProviders registers every provider with credentials. Each callback is
// callbackBase + "/" + provider + "/callback".
func NewProviders(callbackBase string, google, facebook OAuthCredentials) Providers {
	providers := Providers{}
	callbackBase = strings.TrimRight(callbackBase, "/")

	if google.ClientID != "" && google.ClientSecret != "" {
		providers[ProviderGoogle] = &oauthProvider{
			name: ProviderGoogle,
			config: &oauth2.Config{
				ClientID:     google.ClientID,
				ClientSecret: google.ClientSecret,
				Endpoint:     endpoints.Google,
				RedirectURL:  callbackBase + "/" + ProviderGoogle + "/callback",
				Scopes:       []string{"openid", "email", "profile"},
			},
			userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
			decode:      decodeGoogleProfile,
		}
	}
	if facebook.ClientID != "" && facebook.ClientSecret != "" {
		providers[ProviderFacebook] = &oauthProvider{
			name: ProviderFacebook,
			config: &oauth2.Config{
				ClientID:     facebook.ClientID,
				ClientSecret: facebook.ClientSecret,
				Endpoint:     endpoints.Facebook,
				RedirectURL:  callbackBase + "/" + ProviderFacebook + "/callback",
				Scopes:       []string{"email", "public_profile"},
			},
			userInfoURL: "https://graph.facebook.com/me?fields=name,email,picture.type(large)",
			decode:      decodeFacebookProfile,
		}
	}
	return providers
}
