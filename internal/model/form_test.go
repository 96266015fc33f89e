package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormSchema_Clone(t *testing.T) {
	original := &FormSchema{
		ID:    "form-1",
		Title: "original",
		Fields: []FormField{
			{ID: "f1", Type: FieldSelect, Label: "Pick", Options: []string{"a", "b"}},
		},
		Logic: &FormLogic{Rules: []LogicRule{{ID: "r1", Enabled: true}}},
	}

	clone := original.Clone()
	clone.Title = "mutated"
	clone.Fields[0].Options[0] = "z"
	clone.Logic.Rules[0].Enabled = false

	// 깊은 복사 - 원본은 영향 없음
	require.Equal(t, "original", original.Title)
	require.Equal(t, "a", original.Fields[0].Options[0])
	require.True(t, original.Logic.Rules[0].Enabled)

	var nilSchema *FormSchema
	require.Nil(t, nilSchema.Clone())
}

func TestFormSchema_FindField(t *testing.T) {
	schema := &FormSchema{Fields: []FormField{
		{ID: "f1", Label: "one"},
		{ID: "f2", Label: "two"},
	}}

	field := schema.FindField("f2")
	require.NotNil(t, field)
	require.Equal(t, "two", field.Label)

	// 반환된 포인터로 제자리 수정 가능
	field.Label = "renamed"
	require.Equal(t, "renamed", schema.Fields[1].Label)

	require.Nil(t, schema.FindField("missing"))
	require.Equal(t, 1, schema.FieldIndex("f2"))
	require.Equal(t, -1, schema.FieldIndex("missing"))
}

func TestFieldType_ValidAndIsChoice(t *testing.T) {
	require.True(t, FieldText.Valid())
	require.True(t, FieldRadio.Valid())
	require.False(t, FieldType("signature").Valid())

	require.True(t, FieldSelect.IsChoice())
	require.True(t, FieldCheckbox.IsChoice())
	require.False(t, FieldText.IsChoice())
	require.False(t, FieldDate.IsChoice())
}
