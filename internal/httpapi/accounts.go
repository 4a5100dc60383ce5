package httpapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/usecase"
)

// AuthHandler serves signup and login.
type AuthHandler struct {
	accounts *usecase.AccountService
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(accounts *usecase.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// SignupResponse is returned by POST /auth/signup.
type SignupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// Register mounts the signup and login routes.
func (h *AuthHandler) Register(e *echo.Echo) {
	group := e.Group("/auth")
	group.POST("/signup", h.Signup)
	group.POST("/login", h.Login)
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req usecase.SignupInput
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", apperrors.ErrBadRequest)
	}
	user, err := h.accounts.Signup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, SignupResponse{Message: "User registered successfully!", UserID: user.ID})
}

// Login handles POST /auth/login and returns a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req usecase.LoginInput
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", apperrors.ErrBadRequest)
	}
	result, err := h.accounts.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
