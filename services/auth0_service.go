package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/discr/discr-api/config"
	"github.com/discr/discr-api/models"
)

// ErrMissingEmail is returned when the identity provider has no email on file
var ErrMissingEmail = errors.New("identity provider returned no email")

// Auth0UserInfo is the subset of the /userinfo payload a profile is seeded from
type Auth0UserInfo struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

// NewProfile seeds a profile for auth0ID. Auth0 reports the email as the name
// when the user never set one, so that case leaves FullName empty.
func (u *Auth0UserInfo) NewProfile(auth0ID string) (*models.Profile, error) {
	if u.Email == "" {
		return nil, ErrMissingEmail
	}

	profile := &models.Profile{
		Auth0ID:           auth0ID,
		Email:             u.Email,
		DisplayPreference: models.DisplayPreferenceUsername,
	}
	if name := strings.TrimSpace(u.Name); name != "" && name != u.Email {
		profile.FullName = &name
	}
	return profile, nil
}

// Auth0Service fetches the signed-in user's identity details for profile bootstrap
type Auth0Service struct {
	userinfoURL string
	httpClient  *http.Client
}

// NewAuth0Service builds the client for the configured tenant. A domain that
// already carries a scheme is used as-is so tests can point at a local server.
func NewAuth0Service(cfg *config.Config) *Auth0Service {
	base := cfg.Auth0Domain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Auth0Service{
		userinfoURL: strings.TrimSuffix(base, "/") + "/userinfo",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetUserInfo calls /userinfo with the caller's own access token
func (s *Auth0Service) GetUserInfo(ctx context.Context, accessToken string) (*Auth0UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info Auth0UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	return &info, nil
}
