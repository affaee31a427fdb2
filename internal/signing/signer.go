// Package signing provee un firmador HMAC compartido por los tokens de
// sesión y los gate grants. HS256 con un secret único del servidor.
package signing

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const issuer = "internalhub"

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Signer firma y valida JWTs HS256.
type Signer struct {
	secret []byte
}

// New crea un Signer con el secret dado (mínimo 32 bytes, validado en config).
func New(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign firma claims arbitrarios, seteando iss/iat/nbf/exp.
func (s *Signer) Sign(claims jwtv5.MapClaims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims["iss"] = issuer
	claims["iat"] = now.Unix()
	claims["nbf"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	return tk.SignedString(s.secret)
}

// Parse valida firma (HS256), iss, y exp/nbf con una pequeña tolerancia.
// Devuelve las claims como map[string]any.
func (s *Signer) Parse(token string) (map[string]any, error) {
	keyfunc := func(t *jwtv5.Token) (any, error) { return s.secret, nil }

	tok, err := jwtv5.Parse(token, keyfunc, jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if iss, _ := claims["iss"].(string); iss != issuer {
		return nil, ErrInvalidToken
	}

	now := time.Now()
	if expf, ok := claims["exp"].(float64); ok {
		if time.Unix(int64(expf), 0).Before(now.Add(-30 * time.Second)) {
			return nil, ErrInvalidToken
		}
	}
	if nbff, ok := claims["nbf"].(float64); ok {
		if time.Unix(int64(nbff), 0).After(now.Add(30 * time.Second)) {
			return nil, ErrInvalidToken
		}
	}

	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return out, nil
}
