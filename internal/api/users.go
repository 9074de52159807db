package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/veris-dev/veris-lrs/internal/auth"
	"github.com/veris-dev/veris-lrs/internal/identity"
	"github.com/veris-dev/veris-lrs/pkg/schema"
)

// Authenticate exchanges an email/password credential for a bearer token.
// Public.
func (h *Handler) Authenticate(c *gin.Context) {
	var creds schema.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed credentials"})
		return
	}

	u, err := h.Users.Authenticate(c.Request.Context(), creds)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Email or password is incorrect. Please try again",
		})
		return
	}
	h.issueToken(c, u)
}

// AuthenticateMagic exchanges a single-use magic token for a bearer token.
// Public.
func (h *Handler) AuthenticateMagic(c *gin.Context) {
	var creds schema.MagicCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed credentials"})
		return
	}

	u, err := h.Users.AuthenticateMagic(c.Request.Context(), creds.MagicToken)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Incorrect magic token. Please recreate a new one",
		})
		return
	}
	h.issueToken(c, u)
}

// issueToken mints the bearer token both exchanges return.
func (h *Handler) issueToken(c *gin.Context, u schema.User) {
	token, err := h.Auth.Issue(u.ID, u.Role)
	if err != nil {
		h.Log.Error("token issue failed", zap.String("user", u.ID), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, schema.AuthResponse{User: u, Token: token})
}

// Register creates an account. Whether this route is public or
// admin-gated is decided at route-registration time.
func (h *Handler) Register(c *gin.Context) {
	var reg schema.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed registration"})
		return
	}

	id, _ := auth.IdentityFrom(c)
	_, err := h.Users.Register(c.Request.Context(), reg, id.Role == auth.RoleAdmin)
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		h.Log.Error("registration failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "registration failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CurrentUser returns the caller's own account.
func (h *Handler) CurrentUser(c *gin.Context) {
	id, _ := auth.IdentityFrom(c)
	u, err := h.Users.Get(c.Request.Context(), id.Subject)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateCurrentUser lets the caller update their own account. Role changes
// are ignored unless the caller is an admin.
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	id, _ := auth.IdentityFrom(c)
	h.updateUser(c, id.Subject)
}

// ListUsers returns every account. Admin only.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		h.Log.Error("user list failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser returns one account by id. Admin only.
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateUser updates one account by id. Admin only.
func (h *Handler) UpdateUser(c *gin.Context) {
	h.updateUser(c, c.Param("id"))
}

func (h *Handler) updateUser(c *gin.Context, userID string) {
	var upd identity.UserUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed update"})
		return
	}

	id, _ := auth.IdentityFrom(c)
	u, err := h.Users.Update(c.Request.Context(), userID, upd, id.Role == auth.RoleAdmin)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		h.Log.Error("user update failed", zap.String("user", userID), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

// DeleteUser removes one account by id. Admin only.
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		h.Log.Error("user delete failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CreateMagicToken mints a single-use login token for a user. Admin only;
// the token is returned once and never stored in clear.
func (h *Handler) CreateMagicToken(c *gin.Context) {
	token, err := h.Users.IssueMagicToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		h.Log.Error("magic token issue failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"magicToken": token})
}
