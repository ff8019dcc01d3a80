package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config configures bearer-token verification.
type Config struct {
	Secret   string `env:"AUTH_JWT_SECRET,required"`
	Issuer   string `env:"AUTH_JWT_ISSUER"`
	Audience string `env:"AUTH_JWT_AUDIENCE"`
}

// Claims are the JWT claims carried by caller tokens. The subject is the uid.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
}

// Verifier validates HS256 tokens.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
	cfg    Config
}

// NewVerifier panics on an empty secret.
func NewVerifier(cfg Config) *Verifier {
	if cfg.Secret == "" {
		panic("identity: jwt secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Verifier{secret: []byte(cfg.Secret), parser: jwt.NewParser(opts...), cfg: cfg}
}

// Verify parses and validates token and returns the caller it identifies.
func (v *Verifier) Verify(token string) (Caller, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Caller{}, errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Caller{}, errors.Join(ErrInvalidToken, jwt.ErrTokenInvalidSubject)
	}
	return Caller{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

// Sign issues a token for c valid for ttl. Used by tests and the dev CLI.
func (v *Verifier) Sign(c Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UID,
			Issuer:    v.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Name:          c.Name,
	}
	if v.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{v.cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
