package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// GoogleProvider does the redirect and code exchange against Google's OAuth
// endpoints. The URLs are fields so tests can point them at a local server
type GoogleProvider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

type GoogleUser struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{
		ClientID:     viper.GetString("oauth.google.client_id"),
		ClientSecret: viper.GetString("oauth.google.client_secret"),
		RedirectURL:  viper.GetString("oauth.google.redirect_url"),
		AuthURL:      googleAuthURL,
		TokenURL:     googleTokenURL,
		UserInfoURL:  googleUserInfoURL,
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// LoginURL builds the consent screen URL the client gets redirected to
func (p *GoogleProvider) LoginURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)

	return p.AuthURL + "?" + q.Encode()
}

// Exchange trades an authorization code for an access token
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", p.ClientID)
	form.Set("client_secret", p.ClientSecret)
	form.Set("redirect_uri", p.RedirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode token response, %w", err)
	}

	if tok.AccessToken == "" {
		return "", errors.New("token response carried no access token")
	}

	return tok.AccessToken, nil
}

// FetchUser loads the signed-in user's profile with the access token
func (p *GoogleProvider) FetchUser(ctx context.Context, accessToken string) (*GoogleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var u GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response, %w", err)
	}

	if u.Sub == "" {
		return nil, errors.New("userinfo response carried no subject")
	}

	return &u, nil
}
