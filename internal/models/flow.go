package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Side сторона тела для асимметричных поз.
type Side string

const (
	SideBoth   Side = "both"
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideCenter Side = "center"
)

// Flow пользовательская последовательность поз.
// PublicSlug сохраняется после снятия публикации, чтобы повторный share вернул ту же ссылку.
type Flow struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	Title                 string     `json:"title"`
	Description           *string    `json:"description,omitempty"`
	Style                 string     `json:"style"`
	Level                 string     `json:"level"`
	TargetDurationMinutes *int       `json:"target_duration_minutes,omitempty"`
	IsPublic              bool       `json:"is_public"`
	PublicSlug            *string    `json:"public_slug,omitempty"`
	ShareExpiresAt        *time.Time `json:"share_expires_at,omitempty"`
	IsArchived            bool       `json:"is_archived"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// FlowItem одна поза внутри флоу. PoseID — слабая ссылка, поза может исчезнуть из каталога.
type FlowItem struct {
	ID              string  `json:"id"`
	FlowID          string  `json:"flow_id"`
	PoseID          string  `json:"pose_id"`
	Position        int     `json:"position"`
	DurationSeconds int     `json:"duration_seconds"`
	Side            Side    `json:"side"`
	Notes           *string `json:"notes,omitempty"`
	Repetitions     int     `json:"repetitions"`
}

// ResolvedFlowItem элемент флоу вместе с позой из каталога (nil, если поза снята с публикации или удалена).
type ResolvedFlowItem struct {
	FlowItem
	Pose *Pose `json:"pose"`
}

// ResolvedFlow флоу с упорядоченными элементами и вычисляемыми полями.
type ResolvedFlow struct {
	Flow
	Items                []ResolvedFlowItem `json:"items"`
	PoseCount            int                `json:"pose_count"`
	TotalDurationSeconds int                `json:"total_duration_seconds"`
}

// FlowSummary строка списка флоу пользователя.
type FlowSummary struct {
	Flow
	PoseCount            int `json:"pose_count"`
	TotalDurationSeconds int `json:"total_duration_seconds"`
}

// PublicFlow представление флоу для неаутентифицированного чтения, без владельца.
type PublicFlow struct {
	ID                    string             `json:"id"`
	Title                 string             `json:"title"`
	Description           *string            `json:"description,omitempty"`
	Style                 string             `json:"style"`
	Level                 string             `json:"level"`
	TargetDurationMinutes *int               `json:"target_duration_minutes,omitempty"`
	Items                 []ResolvedFlowItem `json:"items"`
	PoseCount             int                `json:"pose_count"`
	TotalDurationSeconds  int                `json:"total_duration_seconds"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// ToPublic убирает из флоу данные, которые не должны уходить по публичной ссылке.
func (f *ResolvedFlow) ToPublic() PublicFlow {
	return PublicFlow{
		ID:                    f.ID,
		Title:                 f.Title,
		Description:           f.Description,
		Style:                 f.Style,
		Level:                 f.Level,
		TargetDurationMinutes: f.TargetDurationMinutes,
		Items:                 f.Items,
		PoseCount:             f.PoseCount,
		TotalDurationSeconds:  f.TotalDurationSeconds,
		UpdatedAt:             f.UpdatedAt,
	}
}

// DummyFlowItem элемент флоу из JSON-запроса. Position необязателен, по умолчанию — индекс в списке.
type DummyFlowItem struct {
	PoseID          string  `json:"pose_id" validate:"required,uuid"`
	DurationSeconds int     `json:"duration_seconds" validate:"required,gt=0"`
	Side            string  `json:"side" validate:"omitempty,oneof=both left right center"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
	Position        *int    `json:"position" validate:"omitempty,gte=0"`
}

// DummyFlow тело запроса на создание флоу.
type DummyFlow struct {
	Title                 string          `json:"title" validate:"required,max=200"`
	Description           *string         `json:"description" validate:"omitempty,max=2000"`
	Style                 string          `json:"style" validate:"omitempty,oneof=vinyasa hatha yin restorative power custom"`
	Level                 string          `json:"level" validate:"omitempty,oneof=beginner intermediate advanced all"`
	TargetDurationMinutes *int            `json:"target_duration_minutes" validate:"omitempty,gt=0,lte=600"`
	Items                 []DummyFlowItem `json:"items" validate:"dive"`
}

// FlowPatch частичное обновление: nil означает "ключ не передан, значение не трогаем".
// Описание стирается явным null, см. ClearDescription.
// Items != nil заменяет весь набор элементов (в том числе пустым списком).
type FlowPatch struct {
	Title                 *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description           *string          `json:"description" validate:"omitempty,max=2000"`
	Style                 *string          `json:"style" validate:"omitempty,oneof=vinyasa hatha yin restorative power custom"`
	Level                 *string          `json:"level" validate:"omitempty,oneof=beginner intermediate advanced all"`
	TargetDurationMinutes *int             `json:"target_duration_minutes" validate:"omitempty,gt=0,lte=600"`
	IsArchived            *bool            `json:"is_archived"`
	Items                 *[]DummyFlowItem `json:"items"`
	// ClearDescription выставляется, когда в теле пришёл "description": null.
	ClearDescription bool `json:"-"`
}

// UnmarshalJSON отличает явный null в description от отсутствующего ключа.
func (p *FlowPatch) UnmarshalJSON(data []byte) error {
	type plain FlowPatch
	var raw struct {
		plain
		Description json.RawMessage `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = FlowPatch(raw.plain)
	p.Description, p.ClearDescription = nil, false

	switch {
	case len(raw.Description) == 0:
	case bytes.Equal(bytes.TrimSpace(raw.Description), []byte("null")):
		p.ClearDescription = true
	default:
		var d string
		if err := json.Unmarshal(raw.Description, &d); err != nil {
			return err
		}
		p.Description = &d
	}
	return nil
}

// HasMetadata сообщает, есть ли в патче поля самого флоу.
func (p FlowPatch) HasMetadata() bool {
	return p.Title != nil || p.Description != nil || p.ClearDescription || p.Style != nil || p.Level != nil ||
		p.TargetDurationMinutes != nil || p.IsArchived != nil
}
