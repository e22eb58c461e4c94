package config

import "time"

func (a AuthConfig) GetSigningKey() string                     { return a.SigningKey }
func (a AuthConfig) GetSigningKeyID() string                   { return a.SigningKeyID }
func (a AuthConfig) GetPreviousSigningKeys() map[string]string { return a.PreviousKeys }
func (a AuthConfig) GetTokenTTL() time.Duration                { return a.TokenTTL }
func (a AuthConfig) GetIssuer() string                         { return a.Issuer }
func (a AuthConfig) GetAudience() []string                     { return a.Audience }
func (a AuthConfig) GetHashCost() int                          { return a.HashCost }
func (a AuthConfig) GetContextKey() string                     { return a.ContextKey }
func (a AuthConfig) GetTokenLookup() string                    { return a.TokenLookup }
func (a AuthConfig) GetAuthScheme() string                     { return a.AuthScheme }

func (d DatabaseConfig) GetDriver() string { return d.Driver }
func (d DatabaseConfig) GetDSN() string    { return d.DSN }
func (d DatabaseConfig) GetDebug() bool    { return d.Debug }
