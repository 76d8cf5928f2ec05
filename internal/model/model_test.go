package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medula/internal/datemath"
)

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "Consulta", TypeLabel(TypeConsulta))
	assert.Equal(t, "Examen", TypeLabel(TypeExamen))
	assert.Equal(t, "Medicamento", TypeLabel(TypeMedicamento))
	assert.Equal(t, "vacuna", TypeLabel("vacuna"))
	assert.False(t, IsKnownType("vacuna"))
	assert.True(t, IsKnownType(TypeExamen))
}

func TestDetail(t *testing.T) {
	e := Event{Title: "Hemograma", Type: TypeExamen, Date: "2024-03-25", Time: "08:00", Location: "Laboratorio X", Notes: "Ayuno 8h"}
	assert.Equal(t, "Hemograma\n25/03/2024 08:00\nExamen\nLaboratorio X\nAyuno 8h", e.Detail())

	e = Event{Title: "Control", Type: "otro", Date: "2024-03-13"}
	assert.Equal(t, "Control\n13/03/2024\notro", e.Detail())
}

func TestEventInputValidate(t *testing.T) {
	ok := EventInput{Title: "Control", Date: "2024-03-05"}
	assert.NoError(t, ok.Validate())

	withTime := ok
	withTime.Time = "09:30"
	withTime.Type = TypeExamen
	assert.NoError(t, withTime.Validate())

	leap := EventInput{Title: "x", Date: "2024-02-29", Time: "23:59"}
	assert.NoError(t, leap.Validate())

	otherType := EventInput{Title: "x", Date: "2024-03-05", Type: "cirugia"}
	assert.NoError(t, otherType.Validate())

	bad := []EventInput{
		{Title: " ", Date: "2024-03-05"},
		{Title: "x"},
		{Title: "x", Date: "2024-00-10"},
		{Title: "x", Date: "2024-02-30"},
		{Title: "x", Date: "2023-02-29"},
		{Title: "x", Date: "2024-03-05", Time: "930"},
		{Title: "x", Date: "2024-03-05", Time: "99:99"},
		{Title: "x", Date: "2024-03-05", Time: "24:00"},
	}
	for _, in := range bad {
		err := in.Validate()
		assert.Error(t, err, "%+v", in)
		if in.Title == "x" {
			assert.ErrorIs(t, err, datemath.ErrParse, "%+v", in)
		}
	}
}
