package models

import (
	"gorm.io/datatypes"
)

// UserProfile - профиль конечного пользователя (клиента поддержки)
type UserProfile struct {
	BaseModel
	Name      string `gorm:"type:varchar(120)"`
	Email     string `gorm:"index"`
	Phone     string `gorm:"type:varchar(40)"`
	AvatarURL string
	Meta      datatypes.JSON `gorm:"type:jsonb"` // {"source": "widget", "locale": "..."}
}

func (UserProfile) TableName() string {
	return "support.user_profiles"
}

// AdminProfile - профиль оператора поддержки
type AdminProfile struct {
	BaseModel
	Name      string `gorm:"type:varchar(120)"`
	Email     string `gorm:"uniqueIndex;not null"`
	AvatarURL string
}

func (AdminProfile) TableName() string {
	return "support.admin_profiles"
}

// AuthRecord - минимальная auth-запись, из которой берутся best-effort
// утверждения (email), когда профиль пользователя не найден
type AuthRecord struct {
	ID    string `gorm:"type:uuid;primaryKey"`
	Email string
}

func (AuthRecord) TableName() string {
	return "auth.users"
}

// Identity - разрешенная личность участника. Вариант (user/admin) несет
// явный тег роли; Phone заполняется только для пользователей.
type Identity struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Synthesized bool   `json:"-"` // собрана из auth-утверждений, не из профиля
}

// PlaceholderIdentity - заглушка для участника, которого не удалось
// разрешить. Не кэшируется.
func PlaceholderIdentity(id string, role Role) Identity {
	name := "Unknown user"
	if role == RoleAdmin {
		name = "Support agent"
	}
	return Identity{ID: id, Role: role, Name: name}
}

// IdentityFromUser строит Identity из профиля пользователя
func IdentityFromUser(p *UserProfile) Identity {
	return Identity{
		ID:        p.ID,
		Role:      RoleUser,
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		AvatarURL: p.AvatarURL,
	}
}

// IdentityFromAdmin строит Identity из профиля оператора
func IdentityFromAdmin(p *AdminProfile) Identity {
	return Identity{
		ID:        p.ID,
		Role:      RoleAdmin,
		Name:      p.Name,
		Email:     p.Email,
		AvatarURL: p.AvatarURL,
	}
}

// SynthesizedIdentity - личность пользователя, собранная из auth-записи,
// когда профиль отсутствует
func SynthesizedIdentity(id, email string) Identity {
	name := email
	if name == "" {
		name = "Unknown user"
	}
	return Identity{
		ID:          id,
		Role:        RoleUser,
		Name:        name,
		Email:       email,
		Synthesized: true,
	}
}
