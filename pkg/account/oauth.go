package account

import (
	"slices"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// OAuth provider identifiers accepted by SignInWithOAuth.
const (
	OAuthProviderGoogle   = "google"
	OAuthProviderGithub   = "github"
	OAuthProviderDiscord  = "discord"
	OAuthProviderFacebook = "facebook"
)

var oauthProviders = []string{
	OAuthProviderGoogle,
	OAuthProviderGithub,
	OAuthProviderDiscord,
	OAuthProviderFacebook,
}

// ValidOAuthProvider reports whether the provider is on the allow-list.
func ValidOAuthProvider(provider string) bool {
	return slices.Contains(oauthProviders, provider)
}

// OAuthProviders returns the allow-list of supported provider identifiers.
func OAuthProviders() []string {
	return slices.Clone(oauthProviders)
}

var oauthEndpoints = map[string]oauth2.Endpoint{
	OAuthProviderGoogle:   endpoints.Google,
	OAuthProviderGithub:   endpoints.GitHub,
	OAuthProviderDiscord:  endpoints.Discord,
	OAuthProviderFacebook: endpoints.Facebook,
}

// DirectOAuth builds authorization URLs straight against a provider,
// bypassing the hosted backend's authorize endpoint. Used by self-managed
// deployments that register their own OAuth applications; the hosted flow
// goes through AuthProvider.OAuthURL instead.
type DirectOAuth struct {
	provider string
	config   oauth2.Config
}

// NewDirectOAuth creates a direct-provider adapter for one of the allowed
// providers.
func NewDirectOAuth(provider, clientID, clientSecret, redirectURL string, scopes []string) (*DirectOAuth, error) {
	endpoint, ok := oauthEndpoints[provider]
	if !ok {
		return nil, &Error{Kind: KindValidation, Message: "Unsupported sign-in provider: " + provider}
	}
	if clientID == "" || redirectURL == "" {
		return nil, &Error{Kind: KindValidation, Message: "OAuth client ID and redirect URL are required"}
	}

	return &DirectOAuth{
		provider: provider,
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}, nil
}

// Provider returns the provider identifier.
func (d *DirectOAuth) Provider() string {
	return d.provider
}

// AuthURL builds the provider authorization URL for the given state token.
func (d *DirectOAuth) AuthURL(state string) string {
	return d.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}
