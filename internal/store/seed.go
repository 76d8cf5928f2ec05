package store

import (
	"fmt"
	"time"

	"medula/internal/model"
)

// SeedEvents returns the example appointments placed on days 5, 13 and 25
// of anchor's month.
func SeedEvents(anchor time.Time) []model.EventInput {
	day := func(d int) string {
		return fmt.Sprintf("%04d-%02d-%02d", anchor.Year(), int(anchor.Month()), d)
	}
	return []model.EventInput{
		{Title: "Vacuna Influenza", Type: model.TypeMedicamento, Date: day(5), Time: "09:00", Location: "CESFAM La Florida", Notes: "Dosis anual"},
		{Title: "Control nutrición", Type: model.TypeConsulta, Date: day(13), Time: "12:30", Location: "Clínica Central", Notes: "Revisión de pauta"},
		{Title: "Hemograma", Type: model.TypeExamen, Date: day(25), Time: "08:00", Location: "Laboratorio X", Notes: "Ayuno 8h"},
	}
}
