package models

// User is the subset of the account record needed to deliver alerts
type User struct {
	AuthID               string `json:"auth_id"`
	Email                string `json:"email"`
	FirstName            string `json:"first_name,omitempty"`
	LastName             string `json:"last_name,omitempty"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
}

// CanReceiveAlerts reports whether alert emails may be sent to the user
func (u User) CanReceiveAlerts() bool {
	return u.NotificationsEnabled && u.Email != ""
}
