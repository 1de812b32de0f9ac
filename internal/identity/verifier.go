// Package identity integra com o provedor de identidade: valida os tokens de
// acesso emitidos para o dashboard e consulta o cadastro de contas.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultLeeway = 30 * time.Second

// Claims contém os dados do token verificado que interessam à API.
type Claims struct {
	UserID string
	Email  string
}

// Verifier valida tokens de acesso HS256 assinados com o segredo compartilhado
// do provedor de identidade.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier monta o verificador. O segredo é obrigatório; audience vazia
// desliga a checagem de audiência.
func NewVerifier(secret, audience string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("segredo do provedor de identidade não configurado")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}, nil
}

// Verify valida o token e extrai as claims que identificam o usuário.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := v.parser.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token inválido")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims do token inválidas")
	}

	claims := &Claims{
		UserID: readString(mapClaims, "sub"),
		Email:  readString(mapClaims, "email"),
	}
	if claims.UserID == "" {
		return nil, errors.New("token sem claim sub")
	}
	if claims.Email == "" {
		return nil, errors.New("token sem claim email")
	}
	return claims, nil
}

func readString(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
