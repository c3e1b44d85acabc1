package httpapi

import (
	"encoding/json"
	"time"

	"github.com/dorandoran/user/internal/domain/profiles"
	"github.com/dorandoran/user/internal/domain/users"
)

type userDTO struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Name         string    `json:"name"`
	Picture      string    `json:"picture"`
	Info         string    `json:"info"`
	Preferences  string    `json:"preferences"`
	LastConnTime time.Time `json:"lastConnTime"`
	Status       string    `json:"status"`
	Role         string    `json:"role"`
	CoachCheck   bool      `json:"coachCheck"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toUserDTO(u users.User) userDTO {
	return userDTO{
		ID:           u.ID.String(),
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Name:         u.Name,
		Picture:      u.Picture,
		Info:         u.Info,
		LastConnTime: u.LastConnTime,
		Status:       string(u.Status),
		Role:         string(u.Role),
		CoachCheck:   u.CoachCheck,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type userListDTO struct {
	Users []userDTO `json:"users"`
	Count int       `json:"count"`
}

type createUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	Picture   string `json:"picture"`
	Info      string `json:"info"`
}

func (r createUserRequest) input() users.CreateInput {
	return users.CreateInput{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Name:      r.Name,
		Password:  r.Password,
		Picture:   r.Picture,
		Info:      r.Info,
	}
}

// updateUserRequest is a partial update; absent fields are left untouched.
type updateUserRequest struct {
	Email      *string `json:"email"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Name       *string `json:"name"`
	Picture    *string `json:"picture"`
	Info       *string `json:"info"`
	Status     *string `json:"status"`
	CoachCheck *bool   `json:"coachCheck"`
}

func (r updateUserRequest) input() (users.UpdateInput, error) {
	in := users.UpdateInput{
		Email:      r.Email,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Name:       r.Name,
		Picture:    r.Picture,
		Info:       r.Info,
		CoachCheck: r.CoachCheck,
	}
	if r.Status != nil {
		st, err := users.ParseStatus(*r.Status)
		if err != nil {
			return users.UpdateInput{}, err
		}
		in.Status = &st
	}
	return in, nil
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

type profileDTO struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"userId"`
	Bio       string          `json:"bio"`
	AvatarURL string          `json:"avatarUrl"`
	Settings  json.RawMessage `json:"settings"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toProfileDTO(p profiles.Profile) profileDTO {
	settings := p.Settings
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}
	return profileDTO{
		ID:        p.ID,
		UserID:    p.UserID.String(),
		Bio:       p.Bio,
		AvatarURL: p.AvatarURL,
		Settings:  settings,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type profileRequest struct {
	Bio       string          `json:"bio"`
	AvatarURL string          `json:"avatarUrl"`
	Settings  json.RawMessage `json:"settings"`
}

type settingDTO struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toSettingDTO(s profiles.Setting) settingDTO {
	return settingDTO{
		ID:        s.ID,
		UserID:    s.UserID.String(),
		Key:       s.Key,
		Value:     s.Value,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type settingRequest struct {
	Value string `json:"value"`
}
