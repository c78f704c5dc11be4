package users

// CreateUserRequest is the registration payload.
type CreateUserRequest struct {
	Email     string  `json:"email" validate:"required,email" example:"user@example.com"`
	Username  string  `json:"username" validate:"required,min=3,max=20" example:"newuser"`
	Password  string  `json:"password" validate:"required,min=6" example:"strongpassword123"`
	FirstName *string `json:"firstName,omitempty" example:"John"`
	LastName  *string `json:"lastName,omitempty" example:"Doe"`
}

// UpdateUserRequest is the partial-update payload. Nil fields are left
// untouched.
type UpdateUserRequest struct {
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Username  *string `json:"username,omitempty" validate:"omitempty,min=3,max=20"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// IsEmpty reports whether the request carries no fields at all.
func (r *UpdateUserRequest) IsEmpty() bool {
	return r.Email == nil && r.Username == nil && r.FirstName == nil && r.LastName == nil
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required" example:"strongpassword123"`
}

// ChangePasswordRequest is the password-change payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// AssignRoleRequest is the admin payload for changing a user's role.
type AssignRoleRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   Role   `json:"role" validate:"required,oneof=USER ADMIN"`
}

// LoginResponse carries the authenticated user together with a freshly
// issued bearer token. Returned by both register and login.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
