package editor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"formsync-backend/internal/model"
	"formsync-backend/internal/sync"
)

func newTestEditor() (*Editor, *sync.Engine) {
	engine := sync.NewEngine(NewDefaultForm("user-1"), 0)
	return New(engine), engine
}

func TestNewDefaultForm(t *testing.T) {
	form := NewDefaultForm("user-1")

	require.NotEmpty(t, form.ID)
	require.Equal(t, "Untitled Form", form.Title)
	require.Empty(t, form.Fields)
	require.Equal(t, "Submit", form.Settings.SubmitText)
	require.Equal(t, "Thank you for your submission!", form.Settings.SuccessMessage)
	require.Equal(t, "user-1", form.UserID)
}

func TestNewDefaultField(t *testing.T) {
	text := NewDefaultField(model.FieldText)
	require.NotEmpty(t, text.ID)
	require.Equal(t, "Text Field", text.Label)
	require.Empty(t, text.Options)

	// 선택형은 placeholder 옵션 2개
	sel := NewDefaultField(model.FieldSelect)
	require.Equal(t, []string{"Option 1", "Option 2"}, sel.Options)
	require.NotEqual(t, text.ID, sel.ID)
}

func TestEditor_AddField(t *testing.T) {
	ed, engine := newTestEditor()

	id1 := ed.AddField(model.FieldText)
	id2 := ed.AddField(model.FieldEmail)

	form := engine.Form()
	require.Len(t, form.Fields, 2)
	require.Equal(t, id1, form.Fields[0].ID)
	require.Equal(t, id2, form.Fields[1].ID)
	require.NotEqual(t, id1, id2)

	// 새로 추가된 필드가 선택됨
	require.Equal(t, id2, ed.SelectedFieldID())
	// 구조 편집은 로컬 편집 시각에 참여
	require.False(t, engine.LastLocalEdit().IsZero())
}

func TestEditor_UpdateField(t *testing.T) {
	ed, engine := newTestEditor()
	id := ed.AddField(model.FieldText)

	label := "Your Name"
	required := true
	ed.UpdateField(id, FieldPatch{Label: &label, Required: &required})

	field := engine.Form().FindField(id)
	require.Equal(t, "Your Name", field.Label)
	require.True(t, field.Required)
	// 패치에 없는 속성은 유지
	require.Equal(t, model.FieldText, field.Type)
}

func TestEditor_UpdateField_MissingIDIsNoop(t *testing.T) {
	ed, engine := newTestEditor()
	ed.AddField(model.FieldText)
	before := engine.Form().Fields

	label := "x"
	ed.UpdateField("nonexistent", FieldPatch{Label: &label})

	require.Equal(t, before[0].Label, engine.Form().Fields[0].Label)
}

func TestEditor_DeleteField(t *testing.T) {
	ed, engine := newTestEditor()
	id1 := ed.AddField(model.FieldText)
	id2 := ed.AddField(model.FieldEmail)

	ed.DeleteField(id2)

	form := engine.Form()
	require.Len(t, form.Fields, 1)
	require.Equal(t, id1, form.Fields[0].ID)
	// 선택 중이던 필드 삭제 시 선택 해제
	require.Empty(t, ed.SelectedFieldID())
}

func TestEditor_DeleteField_KeepsUnrelatedSelection(t *testing.T) {
	ed, _ := newTestEditor()
	id1 := ed.AddField(model.FieldText)
	id2 := ed.AddField(model.FieldEmail)
	ed.Select(id1)

	ed.DeleteField(id2)

	require.Equal(t, id1, ed.SelectedFieldID())
}

func TestEditor_ReorderFields(t *testing.T) {
	ed, engine := newTestEditor()
	a := ed.AddField(model.FieldText)
	b := ed.AddField(model.FieldEmail)
	c := ed.AddField(model.FieldNumber)

	ed.ReorderFields(0, 2)

	ids := fieldIDs(engine.Form())
	require.Equal(t, []string{b, c, a}, ids)

	// 역방향 이동으로 원복
	ed.ReorderFields(2, 0)
	require.Equal(t, []string{a, b, c}, fieldIDs(engine.Form()))
}

func TestEditor_ReorderFields_OutOfRangeIsNoop(t *testing.T) {
	ed, engine := newTestEditor()
	a := ed.AddField(model.FieldText)
	b := ed.AddField(model.FieldEmail)

	ed.ReorderFields(-1, 1)
	ed.ReorderFields(0, 5)
	ed.ReorderFields(1, 1)

	require.Equal(t, []string{a, b}, fieldIDs(engine.Form()))
}

func fieldIDs(form *model.FormSchema) []string {
	ids := make([]string, 0, len(form.Fields))
	for _, f := range form.Fields {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestValidateSchema(t *testing.T) {
	form := NewDefaultForm("user-1")

	// 제목은 있지만 필드 없음
	warnings := ValidateSchema(form)
	require.Contains(t, warnings, "form must have at least one field")

	// 라벨 없는 필드 + 옵션 없는 선택형
	form.Fields = []model.FormField{
		{ID: "f1", Type: model.FieldText, Label: ""},
		{ID: "f2", Type: model.FieldSelect, Label: "Pick one", Options: nil},
	}
	warnings = ValidateSchema(form)
	require.Contains(t, warnings, "field 1 must have a label")
	require.Contains(t, warnings, `field "Pick one" must have options`)

	// 정상 폼은 경고 없음
	form.Fields = []model.FormField{
		{ID: "f1", Type: model.FieldText, Label: "Name"},
	}
	require.Empty(t, ValidateSchema(form))
}
