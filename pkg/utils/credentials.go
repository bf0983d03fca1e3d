package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	ScopeSheets = "https://www.googleapis.com/auth/spreadsheets"

	tokenDirName   = ".evs-dispatch/tokens"
	tokenFilePerms = 0600
	tokenDirPerms  = 0700

	credentialTypeServiceAccount = "service_account"
)

// ErrNoToken is returned when an OAuth client file is configured but no token has been
// authorised for the environment yet
var ErrNoToken = errors.New("no authorised token for environment")

// SheetsTokenSource returns a token source for the Sheets API from a credentials file.
// Service account keys are used directly. OAuth client files need a token previously
// stored with ExchangeCode; refreshed tokens are written back to disk.
func SheetsTokenSource(ctx context.Context, credentialsFile, env string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	if probe.Type == credentialTypeServiceAccount {
		creds, err := google.CredentialsFromJSON(ctx, data, ScopeSheets)
		if err != nil {
			return nil, fmt.Errorf("failed to load service account: %w", err)
		}
		return creds.TokenSource, nil
	}

	oauthConfig, err := oauthConfigFromJSON(data)
	if err != nil {
		return nil, err
	}

	token, err := LoadTokenFromFile(env)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w %q: run the auth command first", ErrNoToken, env)
	}

	return &persistingTokenSource{
		env:    env,
		source: oauthConfig.TokenSource(ctx, token),
		last:   token,
	}, nil
}

// AuthURL returns the URL a user visits to authorise the OAuth client in credentialsFile
func AuthURL(credentialsFile string) (string, error) {
	oauthConfig, err := loadOAuthConfig(credentialsFile)
	if err != nil {
		return "", err
	}
	return oauthConfig.AuthCodeURL("state", oauth2.AccessTypeOffline), nil
}

// ExchangeCode trades an authorisation code for a token and stores it for env
func ExchangeCode(ctx context.Context, credentialsFile, env, code string) error {
	oauthConfig, err := loadOAuthConfig(credentialsFile)
	if err != nil {
		return err
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	return SaveTokenToFile(env, token)
}

func loadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return oauthConfigFromJSON(data)
}

func oauthConfigFromJSON(data []byte) (*oauth2.Config, error) {
	oauthConfig, err := google.ConfigFromJSON(data, ScopeSheets)
	if err != nil {
		return nil, fmt.Errorf("failed to create google config: %w", err)
	}
	// Out-of-band style flow: the user pastes the code back into the CLI
	oauthConfig.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	return oauthConfig, nil
}

// persistingTokenSource saves the token whenever the wrapped source refreshes it
type persistingTokenSource struct {
	env    string
	source oauth2.TokenSource
	last   *oauth2.Token
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.source.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != p.last.AccessToken {
		if err := SaveTokenToFile(p.env, token); err != nil {
			return nil, err
		}
		p.last = token
	}
	return token, nil
}

// tokenFilePath returns the path to the token file for the given environment
func tokenFilePath(env string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, tokenDirName, fmt.Sprintf("token-%s.json", env)), nil
}

// LoadTokenFromFile loads an OAuth token for the given environment
// Returns nil if no token has been stored yet
func LoadTokenFromFile(env string) (*oauth2.Token, error) {
	tokenPath, err := tokenFilePath(env)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	return &token, nil
}

// SaveTokenToFile saves an OAuth token for the given environment with owner-only permissions
func SaveTokenToFile(env string, token *oauth2.Token) error {
	tokenPath, err := tokenFilePath(env)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(tokenPath), tokenDirPerms); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(tokenPath, data, tokenFilePerms); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// DeleteTokenFile deletes the token file for the given environment
func DeleteTokenFile(env string) error {
	tokenPath, err := tokenFilePath(env)
	if err != nil {
		return err
	}

	if err := os.Remove(tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}

	return nil
}
