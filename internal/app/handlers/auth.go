package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/lib/api/response"
	"github.com/linemk/marketplace/internal/service"
)

// RegisterRequest — самостоятельная регистрация покупателя или продавца
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"omitempty,min=10,max=15"`
	Role     string `json:"role" validate:"omitempty,oneof=customer vendor"`
}

// LoginRequest представляет структуру запроса для аутентификации с тегами валидации
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse представляет структуру ответа с JWT-токеном
type AuthResponse struct {
	Token string `json:"token"`
}

func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		token, err := authService.Register(r.Context(), service.RegisterInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Phone:    req.Phone,
			Role:     models.Role(req.Role),
		})
		if err != nil {
			renderError(w, r, logger, err)
			return
		}

		response.Render(w, r, http.StatusCreated, response.OK(AuthResponse{Token: token}))
	}
}

// LoginHandler – HTTP-обработчик для аутентификации
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}

		response.Render(w, r, http.StatusOK, response.OK(AuthResponse{Token: token}))
	}
}
