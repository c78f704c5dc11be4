package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/exthub-go/apperror"
	"github.com/user/exthub-go/auth"
	"github.com/user/exthub-go/response"
	"github.com/user/exthub-go/validation"
)

// Handlers wraps the user Service with HTTP handlers.
type Handlers struct {
	service *Service
	ew      *response.ErrorWriter
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service, ew *response.ErrorWriter) *Handlers {
	return &Handlers{service: service, ew: ew}
}

// RegisterRoutes mounts the user routes. Register and login are public; the
// profile routes require authentication; the by-id routes and role
// assignment additionally require the admin role, re-checked against the
// repository on every request.
func (h *Handlers) RegisterRoutes(r chi.Router, authenticate, requireAdmin func(next http.Handler) http.Handler) {
	r.Post("/register", h.HandleRegister())
	r.Post("/login", h.HandleLogin())

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/profile", h.HandleGetProfile())
		r.Put("/profile", h.HandleUpdateProfile())
		r.Delete("/profile", h.HandleDeleteProfile())
		r.Put("/change-password", h.HandleChangePassword())
		r.Get("/", h.HandleListUsers())

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Post("/assign-role", h.HandleAssignRole())
			r.Get("/{id}", h.HandleGetUserByID())
			r.Put("/{id}", h.HandleUpdateUserByID())
			r.Delete("/{id}", h.HandleDeleteUserByID())
		})
	})
}

// currentUserID extracts the authenticated user's id from the context.
func currentUserID(r *http.Request) (string, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return "", apperror.NewAuthError("authentication required", nil)
	}
	return claims.UserID, nil
}

// HandleRegister godoc
// @Summary Register a new user
// @Tags users
// @Accept json
// @Produce json
// @Param body body CreateUserRequest true "Registration details"
// @Success 201 {object} response.Envelope{data=LoginResponse}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/register [post]
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := validation.DecodeAndValidate(r, &req); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		defer r.Body.Close()

		result, err := h.service.Register(r.Context(), req)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.Created(w, "User registered successfully", result)
	}
}

// HandleLogin godoc
// @Summary Log in with email and password
// @Tags users
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Envelope{data=LoginResponse}
// @Failure 401 {object} response.Envelope
// @Router /users/login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := validation.DecodeAndValidate(r, &req); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		defer r.Body.Close()

		result, err := h.service.Login(r.Context(), req)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "Login successful", result)
	}
}

// HandleGetProfile godoc
// @Summary Get the current user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=User}
// @Failure 401 {object} response.Envelope
// @Router /users/profile [get]
func (h *Handlers) HandleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		user, err := h.service.Get(r.Context(), userID)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "Profile retrieved successfully", user)
	}
}

// HandleUpdateProfile godoc
// @Summary Update the current user's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateUserRequest true "Fields to update"
// @Success 200 {object} response.Envelope{data=User}
// @Failure 409 {object} response.Envelope
// @Router /users/profile [put]
func (h *Handlers) HandleUpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		var req UpdateUserRequest
		if err := validation.DecodeAndValidate(r, &req); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		defer r.Body.Close()

		user, err := h.service.Update(r.Context(), userID, req)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "User updated successfully", user)
	}
}

// HandleDeleteProfile godoc
// @Summary Delete the current user's account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /users/profile [delete]
func (h *Handlers) HandleDeleteProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		if err := h.service.Delete(r.Context(), userID); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "User deleted successfully", nil)
	}
}

// HandleChangePassword godoc
// @Summary Change the current user's password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/change-password [put]
func (h *Handlers) HandleChangePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		var req ChangePasswordRequest
		if err := validation.DecodeAndValidate(r, &req); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		defer r.Body.Close()

		if err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "Password changed successfully", nil)
	}
}

// HandleListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} response.PaginatedEnvelope{data=[]User}
// @Router /users [get]
func (h *Handlers) HandleListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := validation.ParsePagination(r)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		list, total, err := h.service.List(r.Context(), p.Page, p.Limit)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.Paginated(w, "Users retrieved successfully", list, response.NewPagination(total, p.Page, p.Limit))
	}
}

// HandleGetUserByID godoc
// @Summary Get a user by id (admin)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope{data=User}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *Handlers) HandleGetUserByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validation.RequireParam(r, "id")
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		user, err := h.service.Get(r.Context(), id)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "User retrieved successfully", user)
	}
}

// HandleUpdateUserByID godoc
// @Summary Update a user by id (admin)
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param body body UpdateUserRequest true "Fields to update"
// @Success 200 {object} response.Envelope{data=User}
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/{id} [put]
func (h *Handlers) HandleUpdateUserByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validation.RequireParam(r, "id")
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		var req UpdateUserRequest
		if err := validation.DecodeAndValidate(r, &req); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		defer r.Body.Close()

		user, err := h.service.Update(r.Context(), id, req)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "User updated successfully", user)
	}
}

// HandleDeleteUserByID godoc
// @Summary Delete a user by id (admin)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *Handlers) HandleDeleteUserByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validation.RequireParam(r, "id")
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}

		if err := h.service.Delete(r.Context(), id); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "User deleted successfully", nil)
	}
}

// HandleAssignRole godoc
// @Summary Assign a role to a user (admin)
// @Description Sets the target user's role to USER or ADMIN. There is no
// guard against an admin demoting themselves.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body AssignRoleRequest true "Target user and role"
// @Success 200 {object} response.Envelope{data=User}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/assign-role [post]
func (h *Handlers) HandleAssignRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssignRoleRequest
		if err := validation.DecodeAndValidate(r, &req); err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		defer r.Body.Close()

		user, err := h.service.AssignRole(r.Context(), req.UserID, req.Role)
		if err != nil {
			h.ew.WriteError(w, r, err)
			return
		}
		response.OK(w, "User role updated successfully", user)
	}
}
