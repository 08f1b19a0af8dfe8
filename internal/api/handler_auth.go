package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Tom8810/janso/internal/apperr"
	"github.com/Tom8810/janso/internal/auth"
	"github.com/Tom8810/janso/internal/mw"
	"github.com/Tom8810/janso/internal/parlor"
)

type registerRequest struct {
	Email         string                `json:"email" binding:"required,email"`
	Password      string                `json:"password" binding:"required,min=6"`
	OwnerName     string                `json:"owner_name" binding:"required"`
	Name          string                `json:"name" binding:"required"`
	Address       parlor.AddressDetails `json:"address"`
	PhoneNumber   string                `json:"phone_number"`
	BusinessHours *parlor.BusinessHours `json:"business_hours"`
	Description   string                `json:"description"`
	MaxCapacity   int                   `json:"max_capacity" binding:"gte=0"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// bindingError maps request validation failures to the auth message catalog.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Email":
			return apperr.New(apperr.KindInvalidArgument, auth.CodeInvalidEmail, auth.MsgInvalidEmail)
		case "Password":
			return apperr.New(apperr.KindInvalidArgument, auth.CodeWeakPassword, auth.MsgWeakPassword)
		}
	}
	return apperr.New(apperr.KindInvalidArgument, auth.CodeInvalidRequest, auth.MsgInvalidRequest)
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindingError(err))
		return
	}

	sess, err := h.auth.Register(c.Request.Context(), auth.Registration{
		Email:          req.Email,
		Password:       req.Password,
		OwnerName:      req.OwnerName,
		Name:           req.Name,
		AddressDetails: req.Address,
		PhoneNumber:    req.PhoneNumber,
		BusinessHours:  req.BusinessHours,
		Description:    req.Description,
		MaxCapacity:    req.MaxCapacity,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidate()
	c.JSON(http.StatusCreated, sess)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindingError(err))
		return
	}

	sess, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Logout handles POST /api/auth/logout by revoking the bearer token.
func (h *Handler) Logout(c *gin.Context) {
	token, err := auth.ExtractTokenFromHeader(c.Request)
	if err != nil {
		h.fail(c, auth.ErrLoginRequired)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(c *gin.Context) {
	accountID, ok := mw.AccountID(c)
	if !ok {
		h.fail(c, auth.ErrLoginRequired)
		return
	}
	account, err := h.auth.Account(c.Request.Context(), accountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"parlor_id":  account.ID,
		"email":      account.Email,
		"owner_name": account.OwnerName,
	})
}
