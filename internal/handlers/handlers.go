package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mtech-resorts/cashdesk/config"
	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/internal/auth"
	"github.com/mtech-resorts/cashdesk/internal/db"
	"github.com/mtech-resorts/cashdesk/internal/orders"
	"github.com/mtech-resorts/cashdesk/internal/stats"
	"github.com/mtech-resorts/cashdesk/internal/swap"
	"github.com/mtech-resorts/cashdesk/models"
)

type Handler struct {
	Config   *config.Config
	Database *db.Manager
	Orders   *orders.Service
	Swap     *swap.Saga
	Stats    *stats.Aggregator
	Myth     OrderReader
	Skidata  OrderReader
	Logger   *zap.SugaredLogger
}

// writeResult renders the discriminated envelope every endpoint shares.
func (h *Handler) writeResult(w http.ResponseWriter, result apierr.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(result))
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.Logger.Errorw("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeResult(w, apierr.Fail(apierr.Classify(r.Context(), err)))
}

func statusFor(result apierr.Result) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.ErrorType {
	case apierr.TypeValidation:
		return http.StatusBadRequest
	case apierr.TypeConflict:
		return http.StatusConflict
	case apierr.TypeTimeout:
		return http.StatusGatewayTimeout
	case apierr.TypeAborted:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var credentials models.Credentials

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		h.Logger.Error("error reading decoded credentials", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(credentials.Password), 14)
	if err != nil {
		h.Logger.Info("password encryption error", zap.Error(err))
		http.Error(w, "internal error", http.StatusBadRequest)
		return
	}

	operator := models.Operator{
		UUID:     uuid.New().String(),
		Login:    credentials.Login,
		Password: string(passwordBytes),
	}

	if err = h.Database.PutOperator(r.Context(), operator); err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			h.Logger.Debug("duplicate key value violates unique constraint", zap.Error(err))
			http.Error(w, "login already exists", http.StatusConflict)
			return
		}
		h.Logger.Error("error when trying to put credentials to database", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	token, err := auth.BuildJWT(operator.UUID)
	if err != nil {
		h.Logger.Error("error building JWT", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var credentials models.Credentials

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		h.Logger.Error("error reading decoded credentials", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	operator, err := h.Database.GetOperator(r.Context(), credentials.Login)
	if err != nil {
		if strings.Contains(err.Error(), "no rows in result set") {
			h.Logger.Error("login does not exist", zap.Error(err))
			http.Error(w, "login does not exist", http.StatusUnauthorized)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(operator.Password), []byte(credentials.Password))
	if err != nil {
		h.Logger.Error("invalid login or password", zap.Error(err))
		http.Error(w, "invalid login or password", http.StatusUnauthorized)
		return
	}

	token, err := auth.BuildJWT(operator.UUID)
	if err != nil {
		h.Logger.Error("error building JWT", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.WriteHeader(http.StatusOK)
}
