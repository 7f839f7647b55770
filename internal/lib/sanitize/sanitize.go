// Package sanitize очищает пользовательский текст флоу от разметки.
//
// Флоу уходят наружу по публичной ссылке без аутентификации, поэтому название,
// описание и заметки хранятся как обычный текст.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/magabrotheeeer/flow-builder/internal/models"
)

var policy = bluemonday.StrictPolicy()

// Text убирает все теги и пробелы по краям. Сущности раскодируются обратно,
// чтобы "Sun & Moon" не превращался в "Sun &amp; Moon".
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

func textPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := Text(*s)
	return &v
}

func items(in []models.DummyFlowItem) {
	for i := range in {
		in[i].Notes = textPtr(in[i].Notes)
	}
}

// Flow очищает текстовые поля запроса на создание флоу.
func Flow(req *models.DummyFlow) {
	req.Title = Text(req.Title)
	req.Description = textPtr(req.Description)
	items(req.Items)
}

// Patch очищает текстовые поля частичного обновления. Непереданные поля остаются nil.
func Patch(p *models.FlowPatch) {
	p.Title = textPtr(p.Title)
	p.Description = textPtr(p.Description)
	if p.Items != nil {
		items(*p.Items)
	}
}
