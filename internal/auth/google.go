package auth

import (
	"context"
	"fmt"
	"os"

	"github.com/beekhof/discord-event-sync/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarScope is the only Google scope the sync needs.
const CalendarScope = calendar.CalendarEventsReadonlyScope

// OAuthConfig builds the OAuth client config from a Google credentials file.
func OAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	clientID, clientSecret, err := config.LoadGoogleCredentials(credentialsPath)
	if err != nil {
		return nil, err
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "http://127.0.0.1:8080", // Will be updated dynamically by auth flow
		Scopes:       []string{CalendarScope},
		Endpoint:     google.Endpoint,
	}, nil
}

// GoogleClientOptions returns the client options for the configured Google
// credential mode, in order of preference: API key, service account key,
// stored OAuth user token.
func GoogleClientOptions(ctx context.Context, cfg *config.Config) ([]option.ClientOption, error) {
	switch {
	case cfg.GoogleAPIKey != "":
		return []option.ClientOption{option.WithAPIKey(cfg.GoogleAPIKey)}, nil

	case cfg.GoogleServiceAccountPath != "":
		data, err := os.ReadFile(cfg.GoogleServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account key: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(data, CalendarScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service account key: %w", err)
		}
		return []option.ClientOption{option.WithHTTPClient(jwtConfig.Client(ctx))}, nil

	case cfg.GoogleCredentialsPath != "":
		oauthConfig, err := OAuthConfig(cfg.GoogleCredentialsPath)
		if err != nil {
			return nil, err
		}
		client, err := GetAuthenticatedClient(ctx, oauthConfig, NewFileTokenStore(cfg.GoogleTokenPath))
		if err != nil {
			return nil, err
		}
		return []option.ClientOption{option.WithHTTPClient(client)}, nil
	}
	return nil, &config.ConfigurationError{Field: "google_api_key", Message: "no Google credentials configured"}
}
