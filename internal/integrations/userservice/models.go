package userservice

// Роли пользователей, которые участвуют в маппинге
const (
	RoleConsultant = "CONSULTANT"
	RoleClient     = "CLIENT"
	RoleAdmin      = "ADMIN"
)

// User модель пользователя из UserService
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HasRole проверяет роль пользователя
func (u *User) HasRole(role string) bool {
	return u != nil && u.Role == role
}

// ErrorResponse модель ошибки от UserService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
