package snapshot_test

import (
	"fmt"
	"time"

	"github.com/OldStager01/workforce-ml/pkg/models"
)

// ScenarioRoster returns 60 employees: 12 terminated at offsets spread over
// the lookback window and 48 still active.
func ScenarioRoster(today time.Time) []models.EmployeeRecord {
	classes := []string{"SINDICALIZADO", "CONFIANZA", "EVENTUAL"}
	areas := []string{"Produccion", "Almacen", "Calidad"}

	var roster []models.EmployeeRecord
	for i := 0; i < 60; i++ {
		e := models.EmployeeRecord{
			EmployeeID: fmt.Sprintf("S%03d", i),
			HireDate:   today.AddDate(-2, 0, -30*(i%20)),
			Attributes: models.Attributes{
				Area:           areas[i%len(areas)],
				Classification: classes[i%len(classes)],
				Gender:         []string{"M", "F"}[i%2],
			},
			Incidents: models.IncidentAggregate{
				Neg90d:   float64(i % 3),
				Total90d: float64(i%3 + 2),
			},
		}
		if i < 12 {
			term := today.AddDate(0, -4, -25*i)
			e.TerminationDate = &term
			e.Incidents.Neg90d = 4
			e.Incidents.Neg365d = 9
		}
		roster = append(roster, e)
	}
	return roster
}
