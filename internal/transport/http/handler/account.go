package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chat-otp/internal/application/auth"
	"github.com/go-chat-otp/internal/domain"
)

// Client-facing messages.
const (
	MsgWelcome         = "Welcome to chat api."
	MsgInvalidData     = "Invalid data"
	MsgUserCreated     = "User created"
	MsgInvalidLogin    = "Invalid login"
	MsgCheckEmail      = "Check email for login code."
	MsgInvalidCode     = "Invalid code."
	MsgCodeExpired     = "Code has expired. Please retry."
	MsgLoginSuccessful = "Login successful."
	MsgInternal        = "Some error occurred."
)

// AccountHandler handles registration, login and OTP verification.
type AccountHandler struct {
	svc auth.Service
}

func NewAccountHandler(svc auth.Service) *AccountHandler { return &AccountHandler{svc: svc} }

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, MsgInvalidData)
		return
	}
	err := h.svc.Register(r.Context(), req.Email, req.FullName)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeErrors(w, http.StatusUnprocessableEntity, MsgInvalidData, verr.Fields)
			return
		}
		writeMessage(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	writeMessage(w, http.StatusOK, MsgUserCreated)
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, MsgInvalidData)
		return
	}
	u, err := h.svc.Login(r.Context(), req.Email)
	switch {
	case err == nil:
		writeData(w, http.StatusOK, u, MsgCheckEmail)
	case errors.Is(err, domain.ErrValidation):
		writeMessage(w, http.StatusUnprocessableEntity, MsgInvalidLogin)
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, MsgInvalidLogin)
	default:
		writeMessage(w, http.StatusInternalServerError, MsgInternal)
	}
}

func (h *AccountHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, MsgInvalidData)
		return
	}
	err := h.svc.VerifyOtp(r.Context(), req.UserID, req.Otp)
	switch {
	case err == nil:
		writeData(w, http.StatusOK, "", MsgLoginSuccessful)
	case errors.Is(err, domain.ErrExpiredCredential):
		writeMessage(w, http.StatusBadRequest, MsgCodeExpired)
	case errors.Is(err, domain.ErrValidation) && errors.Is(err, domain.ErrBadRequest):
		writeMessage(w, http.StatusBadRequest, MsgInvalidData)
	case errors.Is(err, domain.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, MsgInvalidCode)
	case errors.Is(err, domain.ErrBadRequest):
		writeMessage(w, http.StatusBadRequest, MsgInvalidCode)
	default:
		writeMessage(w, http.StatusInternalServerError, MsgInternal)
	}
}
