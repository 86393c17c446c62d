package jwtPkg

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"FaceVision/internal/entity"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const SecretEnvKey = "JWT_SECRET"

var (
	ErrEmptyToken     = errors.New("empty access token")
	ErrInvalidFormat  = errors.New("invalid Authorization format")
	ErrSecretNotSet   = errors.New("JWT secret not configured")
	ErrMissingClaims  = errors.New("token claims are missing required fields")
	ErrInvalidClaims  = errors.New("invalid token claims")
	ErrUnexpectedAlgo = errors.New("unexpected signing method")
)

func Sign(data map[string]interface{}, expiresIn time.Duration) (string, int64, error) {
	expiredAt := time.Now().Add(expiresIn).Unix()

	secret := os.Getenv(SecretEnvKey)
	if secret == "" {
		return "", 0, ErrSecretNotSet
	}

	claims := jwt.MapClaims{}
	claims["exp"] = expiredAt

	for k, v := range data {
		claims[k] = v
	}

	to := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := to.SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return accessToken, expiredAt, nil
}

// TokenFromRequest takes the bearer token from the Authorization header and
// falls back to the token query parameter, which browsers must use for
// websocket upgrades.
func TokenFromRequest(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		if q := strings.TrimSpace(c.Query("token")); q != "" {
			return q, nil
		}
		return "", ErrEmptyToken
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrInvalidFormat
	}

	accessToken := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if accessToken == "" {
		return "", ErrEmptyToken
	}
	return accessToken, nil
}

func Verify(accessToken string) (*jwt.Token, error) {
	secret := os.Getenv(SecretEnvKey)
	if secret == "" {
		return nil, ErrSecretNotSet
	}

	return jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedAlgo, token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
}

func VerifyRequest(c *fiber.Ctx) (*jwt.Token, error) {
	accessToken, err := TokenFromRequest(c)
	if err != nil {
		return nil, err
	}
	return Verify(accessToken)
}

func ClaimsUser(token *jwt.Token) (entity.UserLoginData, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entity.UserLoginData{}, ErrInvalidClaims
	}

	id, okID := claims["id"].(string)
	email, okEmail := claims["email"].(string)
	name, okName := claims["name"].(string)
	if !okID || !okEmail || !okName || id == "" {
		return entity.UserLoginData{}, ErrMissingClaims
	}

	return entity.UserLoginData{
		ID:    id,
		Email: email,
		Name:  name,
	}, nil
}

func GetUserLoginData(c *fiber.Ctx) (entity.UserLoginData, error) {
	userData := c.Locals("user")

	user, ok := userData.(entity.UserLoginData)
	if !ok {
		return entity.UserLoginData{}, fiber.ErrUnauthorized
	}

	return user, nil
}
