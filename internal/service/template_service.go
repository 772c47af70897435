package service

import (
	appErrors "github.com/examsphere/exam-portal-api/pkg/errors"
	"github.com/examsphere/exam-portal-api/pkg/export"
)

type templateRenderer interface {
	RenderTemplate(columns []string) ([]byte, error)
}

// TemplateService serves the empty .xlsx workbooks admins fill in for
// bulk imports.
type TemplateService struct {
	exporter templateRenderer
}

// NewTemplateService constructs TemplateService.
func NewTemplateService(exporter templateRenderer) *TemplateService {
	return &TemplateService{exporter: exporter}
}

// StudentTemplate renders the student import template.
func (s *TemplateService) StudentTemplate() ([]byte, string, error) {
	data, err := s.exporter.RenderTemplate(export.StudentTemplateColumns)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
	}
	return data, "student_import_template.xlsx", nil
}

// QuestionTemplate renders the question import template.
func (s *TemplateService) QuestionTemplate() ([]byte, string, error) {
	data, err := s.exporter.RenderTemplate(export.QuestionTemplateColumns)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
	}
	return data, "question_import_template.xlsx", nil
}
