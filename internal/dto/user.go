package dto

import "github.com/noah-isme/formation-admin-api/internal/models"

// UserItem is the admin listing shape of a user.
type UserItem struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Roles     models.RoleList `json:"roles" swaggertype:"array,string"`
}

// NewUserItems maps users to their listing shape.
func NewUserItems(users []models.User) []UserItem {
	items := make([]UserItem, 0, len(users))
	for _, u := range users {
		roles := u.Roles
		if roles == nil {
			roles = models.RoleList{}
		}
		items = append(items, UserItem{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Roles: roles})
	}
	return items
}
