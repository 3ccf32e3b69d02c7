package handler

import (
	"net/http"
	"slices"
	"strings"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTClaims claims токена, выданного Auth Service
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет JWT токен в запросах для Gin
type AuthMiddleware struct {
	jwtSecret string
}

// NewAuthMiddleware создает новый middleware для аутентификации
func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate проверяет JWT токен и кладет пользователя в контекст Gin
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		principal, ok := m.parse(c, authHeader)
		if !ok {
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

// OptionalAuthenticate как Authenticate, но запрос без заголовка проходит анонимно
// Нужен публичным чтениям, где видимость зависит от читателя
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		principal, ok := m.parse(c, authHeader)
		if !ok {
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

// parse разбирает "Bearer <token>", при ошибке отвечает 401 и прерывает цепочку
func (m *AuthMiddleware) parse(c *gin.Context, authHeader string) (entity.Principal, bool) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		abortWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
		return entity.Principal{}, false
	}

	token, err := jwt.ParseWithClaims(parts[1], &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(m.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
		return entity.Principal{}, false
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "Invalid token claims")
		return entity.Principal{}, false
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid user ID in token")
		return entity.Principal{}, false
	}

	role := entity.UserRole(strings.ToUpper(claims.Role))
	switch role {
	case entity.RoleBuyer, entity.RoleFarmer, entity.RoleAdmin:
	default:
		abortWithError(c, http.StatusUnauthorized, "Unknown role in token")
		return entity.Principal{}, false
	}

	return entity.Principal{UserID: userID, Role: role}, true
}

// RequireRole пропускает только пользователей с одной из ролей
func (m *AuthMiddleware) RequireRole(roles ...entity.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if !slices.Contains(roles, principal.Role) {
			abortWithError(c, http.StatusForbidden, "Insufficient permissions")
			return
		}

		c.Next()
	}
}

func setPrincipal(c *gin.Context, principal entity.Principal) {
	c.Set(ctxUserID, principal.UserID)
	c.Set(ctxRole, principal.Role)
}

// principalFrom достает аутентифицированного пользователя из контекста Gin
func principalFrom(c *gin.Context) (entity.Principal, bool) {
	userID, ok := c.Get(ctxUserID)
	if !ok {
		return entity.Principal{}, false
	}
	role, ok := c.Get(ctxRole)
	if !ok {
		return entity.Principal{}, false
	}

	id, ok := userID.(uuid.UUID)
	if !ok {
		return entity.Principal{}, false
	}
	r, ok := role.(entity.UserRole)
	if !ok {
		return entity.Principal{}, false
	}
	return entity.Principal{UserID: id, Role: r}, true
}

// viewerFrom читатель для проверки видимости, nil - анонимный
func viewerFrom(c *gin.Context) *entity.Principal {
	principal, ok := principalFrom(c)
	if !ok {
		return nil
	}
	return &principal
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, entity.ErrorResponse{Error: message})
}
