// Package models содержит доменные структуры каталога поз, флоу и профиля,
// а также DTO для приёма данных из JSON-запросов.
package models

import "time"

// PoseStatus статус публикации позы.
type PoseStatus string

const (
	PoseDraft     PoseStatus = "draft"
	PosePublished PoseStatus = "published"
	PoseArchived  PoseStatus = "archived"
)

// Pose запись каталога. Для подсистемы флоу неизменяема.
type Pose struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	Name           string     `json:"name"`
	SanskritName   string     `json:"sanskrit_name,omitempty"`
	Difficulty     string     `json:"difficulty"`
	PoseType       string     `json:"pose_type"`
	PrimaryFocus   string     `json:"primary_focus"`
	SecondaryFocus []string   `json:"secondary_focus"`
	Description    string     `json:"description,omitempty"`
	Benefits       []string   `json:"benefits"`
	Steps          []string   `json:"steps"`
	Cautions       []string   `json:"cautions"`
	ImageURL       string     `json:"image_url,omitempty"`
	Status         PoseStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DummyPose принимает позу из админского JSON-запроса до преобразования в Pose.
type DummyPose struct {
	Slug           string   `json:"slug" validate:"required,max=120"`
	Name           string   `json:"name" validate:"required,max=200"`
	SanskritName   string   `json:"sanskrit_name" validate:"omitempty,max=200"`
	Difficulty     string   `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	PoseType       string   `json:"pose_type" validate:"required"`
	PrimaryFocus   string   `json:"primary_focus" validate:"required"`
	SecondaryFocus []string `json:"secondary_focus"`
	Description    string   `json:"description"`
	Benefits       []string `json:"benefits"`
	Steps          []string `json:"steps"`
	Cautions       []string `json:"cautions"`
	ImageURL       string   `json:"image_url" validate:"omitempty,url"`
	Status         string   `json:"status" validate:"required,oneof=draft published archived"`
}

// ToPose переносит поля запроса в доменную модель.
func (d DummyPose) ToPose() Pose {
	return Pose{
		Slug:           d.Slug,
		Name:           d.Name,
		SanskritName:   d.SanskritName,
		Difficulty:     d.Difficulty,
		PoseType:       d.PoseType,
		PrimaryFocus:   d.PrimaryFocus,
		SecondaryFocus: nonNil(d.SecondaryFocus),
		Description:    d.Description,
		Benefits:       nonNil(d.Benefits),
		Steps:          nonNil(d.Steps),
		Cautions:       nonNil(d.Cautions),
		ImageURL:       d.ImageURL,
		Status:         PoseStatus(d.Status),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
