package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/securecookie"
	"github.com/nexusiam/core/internal/apperr"
	"github.com/nexusiam/core/internal/ddstore"
	"github.com/nexusiam/core/internal/domain/fedauth"
	"github.com/nexusiam/core/internal/domain/idp"
	"github.com/nexusiam/core/internal/domain/user"
	"github.com/nexusiam/core/internal/eventlog"
	esdomain "github.com/nexusiam/core/pkg/eventsourcing/domain"
	"golang.org/x/oauth2"
)

// stateCookieName is the cookie a relying party stores the encrypted state
// round-trip value under, so a load balancer that cannot pin a callback to
// the node that started the intent can still recover it without a central
// lookup.
const stateCookieName = "fedauth_state"

// Well-known keys internal/domain/idp.Config carries for an OAuth/OIDC IDP,
// read by HandleOAuthCallback to build the provider's oauth2.Config.
const (
	idpConfigClientID         = "clientId"
	idpConfigClientSecret     = "clientSecret"
	idpConfigAuthEndpoint     = "authEndpoint"
	idpConfigTokenEndpoint    = "tokenEndpoint"
	idpConfigUserinfoEndpoint = "userinfoEndpoint"
	idpConfigKeysEndpoint     = "keysEndpoint"
	idpConfigIssuer           = "issuer"
	idpConfigScopes           = "scopes" // space-separated
)

// OAuthCallback is the external provider's redirect-back payload.
type OAuthCallback struct {
	State string
	Code  string
	Error string
}

// FedAuthCommands implements the §4.5 command engine for OAuth/OIDC
// intents, SAML requests/sessions, and OAuth PAR, all built on the
// pkg/ddd/internal/ddstore second kernel, plus user provisioning/linking
// on the first kernel's user aggregate.
type FedAuthCommands struct {
	intents      *ddstore.Repository[*fedauth.Intent]
	samlRequests *ddstore.Repository[*fedauth.SAMLRequest]
	samlSessions *ddstore.Repository[*fedauth.SAMLSession]
	authRequests *ddstore.Repository[*fedauth.AuthRequest]
	users        *eventlog.Repository[*user.User]
	httpClient   *http.Client
	stateCookie  *securecookie.SecureCookie
}

// CookieKeys holds the hash and block keys used to sign/encrypt the
// optional state round-trip cookie (32 bytes each; see EncodeStateCookie).
// It is its own type, rather than two bare []byte constructor parameters,
// so the dependency injection graph has a single unambiguous provider for
// it instead of two indistinguishable []byte values.
type CookieKeys struct {
	HashKey  []byte
	BlockKey []byte
}

// NewFedAuthCommands builds the command engine backed by ddStore for the
// fedauth aggregates, eventStore for the user aggregate, httpClient for
// outbound token/userinfo/JWKS calls (nil selects http.DefaultClient), and
// keys for signing/encrypting the optional state round-trip cookie.
func NewFedAuthCommands(ddStore esdomain.EventStore, eventStore eventlog.Store, httpClient *http.Client, keys CookieKeys) *FedAuthCommands {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &FedAuthCommands{
		intents:      ddstore.NewRepository[*fedauth.Intent](ddStore, fedauth.NewIntentShell),
		samlRequests: ddstore.NewRepository[*fedauth.SAMLRequest](ddStore, fedauth.NewSAMLRequestShell),
		samlSessions: ddstore.NewRepository[*fedauth.SAMLSession](ddStore, fedauth.NewSAMLSessionShell),
		authRequests: ddstore.NewRepository[*fedauth.AuthRequest](ddStore, fedauth.NewAuthRequestShell),
		users:        eventlog.NewRepository(eventStore, user.EntityType, user.New),
		httpClient:   httpClient,
		stateCookie:  securecookie.New(keys.HashKey, keys.BlockKey),
	}
}

// EncodeStateCookie signs and encrypts state into a cookie value suitable
// for stateCookieName, giving the relying party a way to recover the
// intent's state from the user agent itself when the callback lands on a
// node other than the one that started the intent.
func (c *FedAuthCommands) EncodeStateCookie(state string) (string, error) {
	value, err := c.stateCookie.Encode(stateCookieName, state)
	if err != nil {
		return "", fmt.Errorf("encode state cookie: %w", err)
	}
	return value, nil
}

// DecodeStateCookie reverses EncodeStateCookie, rejecting a tampered or
// expired cookie value outright rather than falling back to the raw state
// query parameter.
func (c *FedAuthCommands) DecodeStateCookie(value string) (string, error) {
	var state string
	if err := c.stateCookie.Decode(stateCookieName, value, &state); err != nil {
		return "", fmt.Errorf("decode state cookie: %w", err)
	}
	return state, nil
}

// StartIDPIntent implements startIDPIntent: it mints state/PKCE/nonce and
// records idp.intent.started. The intent's own aggregate ID is the state
// value, so GetIDPIntentByState is a direct point lookup.
func (c *FedAuthCommands) StartIDPIntent(ctx context.Context, instanceID, orgID, idpID string, typ fedauth.IntentType, redirectURI, authRequestID string) (*fedauth.Intent, ObjectDetails, error) {
	i, err := fedauth.StartIntent(instanceID, orgID, idpID, typ, redirectURI, authRequestID)
	if err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.InvalidArgument, "FEDAUTHv2-001", "invalid idp intent", err)
	}
	return finishIntent(ctx, c.intents, i, "FEDAUTHv2-002")
}

// GetIDPIntentByState resolves Open Question §9.1 as a point lookup
// (variant A): the intent's aggregate ID is its state value, so this loads
// it directly from the ddstore repository rather than returning an unconditional nil
// (the buggy variant B the source exhibited).
func (c *FedAuthCommands) GetIDPIntentByState(ctx context.Context, state string) (*fedauth.Intent, error) {
	i, err := c.intents.Load(ctx, state)
	if err != nil {
		return nil, mapDDStoreErr(err, "FEDAUTHv2-010")
	}
	return i, nil
}

// HandleOAuthCallback implements handleOAuthCallback. cfg is the IDP
// configuration the intent was started against; existingUserID links the
// external identity to an already-authenticated user instead of
// provisioning a new one.
func (c *FedAuthCommands) HandleOAuthCallback(ctx context.Context, callback OAuthCallback, cfg *idp.IDPConfig, existingUserID string) (*fedauth.Intent, ObjectDetails, error) {
	i, err := c.intents.Load(ctx, callback.State)
	if err != nil {
		return nil, ObjectDetails{}, mapDDStoreErr(err, "FEDAUTHv2-010")
	}

	if callback.Error != "" {
		return c.failIntent(ctx, i, fmt.Sprintf("provider returned error: %s", callback.Error), apperr.Unauthenticated)
	}
	if i.IsExpired(time.Now()) {
		return c.failIntent(ctx, i, "intent expired", apperr.PreconditionFailed)
	}

	oauthCfg := oauth2.Config{
		ClientID:     cfg.Config[idpConfigClientID],
		ClientSecret: cfg.Config[idpConfigClientSecret],
		RedirectURL:  i.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.Config[idpConfigAuthEndpoint],
			TokenURL: cfg.Config[idpConfigTokenEndpoint],
		},
	}

	token, err := oauthCfg.Exchange(ctx, callback.Code, oauth2.SetAuthURLParam("code_verifier", i.CodeVerifier))
	if err != nil {
		return c.failIntent(ctx, i, fmt.Sprintf("token exchange failed: %v", err), apperr.Unauthenticated)
	}

	if i.Type == fedauth.IntentOIDC {
		rawIDToken, _ := token.Extra("id_token").(string)
		if rawIDToken != "" {
			if err := c.validateIDToken(ctx, rawIDToken, cfg, i.Nonce); err != nil {
				return c.failIntent(ctx, i, fmt.Sprintf("id token validation failed: %v", err), apperr.Unauthenticated)
			}
		}
	}

	claims, err := c.fetchUserinfo(ctx, cfg.Config[idpConfigUserinfoEndpoint], token)
	if err != nil {
		return c.failIntent(ctx, i, fmt.Sprintf("userinfo fetch failed: %v", err), apperr.Unauthenticated)
	}

	userID := existingUserID
	if userID == "" {
		provisioned, err := c.provisionUser(ctx, i.InstanceID, i.OrgID, i.IDPID, claims)
		if err != nil {
			return nil, ObjectDetails{}, err
		}
		userID = provisioned
	} else {
		if err := c.linkIDP(ctx, userID, i.IDPID, claims.ExternalUserID); err != nil {
			return nil, ObjectDetails{}, err
		}
	}

	if err := i.Succeed(userID, claims); err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, "FEDAUTHv2-001", "idp intent precondition failed", err)
	}
	return finishIntent(ctx, c.intents, i, "FEDAUTHv2-002")
}

func (c *FedAuthCommands) failIntent(ctx context.Context, i *fedauth.Intent, reason string, code apperr.Code) (*fedauth.Intent, ObjectDetails, error) {
	if failErr := i.Fail(reason); failErr != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, "FEDAUTHv2-001", "idp intent precondition failed", failErr)
	}
	if _, _, err := finishIntent(ctx, c.intents, i, "FEDAUTHv2-002"); err != nil {
		return nil, ObjectDetails{}, err
	}
	return nil, ObjectDetails{}, apperr.New(code, "FEDAUTHv2-003", reason)
}

func finishIntent(ctx context.Context, repo *ddstore.Repository[*fedauth.Intent], i *fedauth.Intent, saveID string) (*fedauth.Intent, ObjectDetails, error) {
	pending := i.GetUncommittedEvents()
	if len(pending) == 0 {
		return i, ObjectDetails{Sequence: int64(i.GetSequenceNo()), ResourceOwner: i.OrgID}, nil
	}
	last := pending[len(pending)-1]
	if err := repo.Save(ctx, i); err != nil {
		return nil, ObjectDetails{}, mapDDStoreErr(err, saveID)
	}
	return i, detailsFromEnvelope(last, i.OrgID), nil
}

// validateIDToken checks the ID token's signature against the IDP's JWKS,
// plus nonce, issuer, audience, and expiry, per spec.md §4.5's OIDC
// addendum.
func (c *FedAuthCommands) validateIDToken(ctx context.Context, rawIDToken string, cfg *idp.IDPConfig, expectedNonce string) error {
	keySet, err := c.fetchJWKS(ctx, cfg.Config[idpConfigKeysEndpoint])
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(rawIDToken, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		for _, key := range keySet.Keys {
			if kid == "" || key.KeyID == kid {
				return key.Key, nil
			}
		}
		return nil, fmt.Errorf("no matching jwks key for kid %q", kid)
	})
	if err != nil {
		return fmt.Errorf("parse id token: %w", err)
	}

	if nonce, _ := claims["nonce"].(string); nonce != expectedNonce {
		return fmt.Errorf("nonce mismatch")
	}
	if issuer := cfg.Config[idpConfigIssuer]; issuer != "" {
		if iss, _ := claims["iss"].(string); iss != issuer {
			return fmt.Errorf("issuer mismatch: expected %q, got %q", issuer, iss)
		}
	}
	if clientID := cfg.Config[idpConfigClientID]; clientID != "" {
		if !claimsAudienceContains(claims, clientID) {
			return fmt.Errorf("audience mismatch: expected %q", clientID)
		}
	}
	if exp, ok := claims["exp"].(float64); ok {
		if time.Unix(int64(exp), 0).Before(time.Now()) {
			return fmt.Errorf("id token expired")
		}
	}
	return nil
}

func claimsAudienceContains(claims jwt.MapClaims, clientID string) bool {
	switch aud := claims["aud"].(type) {
	case string:
		return aud == clientID
	case []interface{}:
		for _, a := range aud {
			if s, _ := a.(string); s == clientID {
				return true
			}
		}
	}
	return false
}

func (c *FedAuthCommands) fetchJWKS(ctx context.Context, keysEndpoint string) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, keysEndpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("keys endpoint returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var keySet jose.JSONWebKeySet
	if err := json.Unmarshal(body, &keySet); err != nil {
		return nil, err
	}
	return &keySet, nil
}

// fetchUserinfo calls the IDP's userinfo endpoint with token and normalizes
// the returned claims into fedauth.Claims, per spec.md §4.5's claim
// normalization rule.
func (c *FedAuthCommands) fetchUserinfo(ctx context.Context, userinfoEndpoint string, token *oauth2.Token) (fedauth.Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoEndpoint, nil)
	if err != nil {
		return fedauth.Claims{}, err
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fedauth.Claims{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fedauth.Claims{}, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fedauth.Claims{}, err
	}
	return normalizeClaims(raw), nil
}

func claimString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func normalizeClaims(raw map[string]interface{}) fedauth.Claims {
	verified, _ := raw["email_verified"].(bool)
	return fedauth.Claims{
		ExternalUserID: claimString(raw, "sub", "id"),
		Email:          claimString(raw, "email"),
		EmailVerified:  verified,
		Username:       claimString(raw, "preferred_username", "username"),
		FirstName:      claimString(raw, "given_name", "first_name"),
		LastName:       claimString(raw, "family_name", "last_name"),
		DisplayName:    claimString(raw, "name", "display_name"),
		AvatarURL:      claimString(raw, "picture", "avatar_url"),
		Locale:         claimString(raw, "locale"),
	}
}

func (c *FedAuthCommands) provisionUser(ctx context.Context, instanceID, orgID, idpID string, claims fedauth.Claims) (string, error) {
	username := fedauth.NewProvisionedUsername(claims)
	u := user.NewHuman(instanceID, orgID, username, claims.Email, "")
	if !u.IsValid() {
		return "", apperr.Wrap(apperr.PreconditionFailed, "FEDAUTHv2-004", "user provisioning precondition failed", firstError(u.Errors()))
	}
	u.AddIDPLink(idpID, claims.ExternalUserID)
	if err := c.users.Save(ctx, u); err != nil {
		return "", mapStoreErr(err, "FEDAUTHv2-005")
	}
	return u.ID(), nil
}

func (c *FedAuthCommands) linkIDP(ctx context.Context, userID, idpID, externalUserID string) error {
	u, err := c.users.Load(ctx, userID)
	if err != nil {
		return mapStoreErr(err, "FEDAUTHv2-010")
	}
	u.AddIDPLink(idpID, externalUserID)
	if !u.IsValid() {
		return apperr.Wrap(apperr.PreconditionFailed, "FEDAUTHv2-004", "idp link precondition failed", firstError(u.Errors()))
	}
	if len(u.UncommittedEvents()) == 0 {
		return nil
	}
	if err := c.users.Save(ctx, u); err != nil {
		return mapStoreErr(err, "FEDAUTHv2-005")
	}
	return nil
}

// AddSAMLRequest implements addSAMLRequest.
func (c *FedAuthCommands) AddSAMLRequest(ctx context.Context, instanceID, orgID, binding, destination, acsURL, requestID, issuer string) (*fedauth.SAMLRequest, ObjectDetails, error) {
	r, err := fedauth.AddSAMLRequest(instanceID, orgID, binding, destination, acsURL, requestID, issuer)
	if err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.InvalidArgument, "FEDAUTHv2-001", "invalid saml request", err)
	}
	return finishSAMLRequest(ctx, c.samlRequests, r, "FEDAUTHv2-002")
}

// LinkSessionToSAMLRequest implements linkSessionToSAMLRequest: it
// transitions requestID from added to linked and creates the SAML session
// the link establishes, valid for ttl.
func (c *FedAuthCommands) LinkSessionToSAMLRequest(ctx context.Context, requestID, userID string, ttl time.Duration) (*fedauth.SAMLSession, ObjectDetails, error) {
	r, err := c.samlRequests.Load(ctx, requestID)
	if err != nil {
		return nil, ObjectDetails{}, mapDDStoreErr(err, "FEDAUTHv2-010")
	}

	session, err := fedauth.NewSAMLSession(r.InstanceID, r.OrgID, requestID, userID, ttl)
	if err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.InvalidArgument, "FEDAUTHv2-001", "invalid saml session", err)
	}
	if err := c.samlSessions.Save(ctx, session); err != nil {
		return nil, ObjectDetails{}, mapDDStoreErr(err, "FEDAUTHv2-002")
	}

	if err := r.LinkSession(session.GetID()); err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, "FEDAUTHv2-001", "saml request precondition failed", err)
	}
	if _, _, err := finishSAMLRequest(ctx, c.samlRequests, r, "FEDAUTHv2-002"); err != nil {
		return nil, ObjectDetails{}, err
	}
	return session, ObjectDetails{Sequence: int64(session.GetSequenceNo()), ResourceOwner: session.OrgID, EventDate: session.CreatedAt}, nil
}

// FailSAMLRequest implements failSAMLRequest.
func (c *FedAuthCommands) FailSAMLRequest(ctx context.Context, requestID, reason string) (ObjectDetails, error) {
	r, err := c.samlRequests.Load(ctx, requestID)
	if err != nil {
		return ObjectDetails{}, mapDDStoreErr(err, "FEDAUTHv2-010")
	}
	if err := r.Fail(reason); err != nil {
		return ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, "FEDAUTHv2-001", "saml request precondition failed", err)
	}
	_, details, err := finishSAMLRequest(ctx, c.samlRequests, r, "FEDAUTHv2-002")
	return details, err
}

// TerminateSAMLSession explicitly closes a session ahead of its absolute
// expiration.
func (c *FedAuthCommands) TerminateSAMLSession(ctx context.Context, sessionID string) (ObjectDetails, error) {
	s, err := c.samlSessions.Load(ctx, sessionID)
	if err != nil {
		return ObjectDetails{}, mapDDStoreErr(err, "FEDAUTHv2-010")
	}
	if err := s.Terminate(); err != nil {
		return ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, "FEDAUTHv2-001", "saml session precondition failed", err)
	}
	pending := s.GetUncommittedEvents()
	if len(pending) == 0 {
		return ObjectDetails{Sequence: int64(s.GetSequenceNo()), ResourceOwner: s.OrgID}, nil
	}
	last := pending[len(pending)-1]
	if err := c.samlSessions.Save(ctx, s); err != nil {
		return ObjectDetails{}, mapDDStoreErr(err, "FEDAUTHv2-002")
	}
	return detailsFromEnvelope(last, s.OrgID), nil
}

func finishSAMLRequest(ctx context.Context, repo *ddstore.Repository[*fedauth.SAMLRequest], r *fedauth.SAMLRequest, saveID string) (*fedauth.SAMLRequest, ObjectDetails, error) {
	pending := r.GetUncommittedEvents()
	if len(pending) == 0 {
		return r, ObjectDetails{Sequence: int64(r.GetSequenceNo()), ResourceOwner: r.OrgID}, nil
	}
	last := pending[len(pending)-1]
	if err := repo.Save(ctx, r); err != nil {
		return nil, ObjectDetails{}, mapDDStoreErr(err, saveID)
	}
	return r, detailsFromEnvelope(last, r.OrgID), nil
}

// CreatePushedAuthRequest implements createPushedAuthRequest (RFC 9126).
func (c *FedAuthCommands) CreatePushedAuthRequest(ctx context.Context, instanceID, orgID, clientID string, params map[string]string) (*fedauth.AuthRequest, ObjectDetails, error) {
	a, err := fedauth.CreatePushedAuthRequest(instanceID, orgID, clientID, params)
	if err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.InvalidArgument, "FEDAUTHv2-001", "invalid pushed auth request", err)
	}
	pending := a.GetUncommittedEvents()
	last := pending[len(pending)-1]
	if err := c.authRequests.Save(ctx, a); err != nil {
		return nil, ObjectDetails{}, mapDDStoreErr(err, "FEDAUTHv2-002")
	}
	return a, detailsFromEnvelope(last, a.OrgID), nil
}

// ConsumePushedAuthRequest loads the AuthRequest behind requestURI,
// enforcing its 90-second lifetime and single-use consumption before the
// authorization endpoint honors it.
func (c *FedAuthCommands) ConsumePushedAuthRequest(ctx context.Context, requestURI string) (*fedauth.AuthRequest, error) {
	a, err := c.authRequests.Load(ctx, requestURI)
	if err != nil {
		return nil, mapDDStoreErr(err, "FEDAUTHv2-010")
	}
	if a.IsExpired(time.Now()) {
		return nil, apperr.New(apperr.PreconditionFailed, "FEDAUTHv2-006", "pushed authorization request expired")
	}
	if err := a.Consume(); err != nil {
		return nil, apperr.Wrap(apperr.PreconditionFailed, "FEDAUTHv2-006", "pushed authorization request precondition failed", err)
	}
	if err := c.authRequests.Save(ctx, a); err != nil {
		return nil, mapDDStoreErr(err, "FEDAUTHv2-002")
	}
	return a, nil
}
