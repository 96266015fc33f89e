package editor

import (
	"fmt"
	"strings"

	"formsync-backend/internal/model"
)

// ValidateSchema 저장 전 best-effort 검증
// 변경 시점에는 강제하지 않는다 - 경고 목록만 반환
func ValidateSchema(schema *model.FormSchema) []string {
	var errs []string

	if strings.TrimSpace(schema.Title) == "" {
		errs = append(errs, "form title is required")
	}

	if len(schema.Fields) == 0 {
		errs = append(errs, "form must have at least one field")
	}

	for i, field := range schema.Fields {
		if strings.TrimSpace(field.Label) == "" {
			errs = append(errs, fmt.Sprintf("field %d must have a label", i+1))
		}
		if field.Type.IsChoice() && len(field.Options) == 0 {
			errs = append(errs, fmt.Sprintf("field %q must have options", field.Label))
		}
	}

	return errs
}
