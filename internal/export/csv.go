// Package export renders the class roster as a downloadable CSV file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/aimd54/planet-heroes/internal/service/analytics"
)

// Filename is the suggested download name.
const Filename = "class_performance.csv"

// Header is the fixed column order.
var Header = []string{"Name", "Email", "Total Points", "Badges", "Level", "Rank"}

// WriteCSV writes one header row and one row per student.
func WriteCSV(w io.Writer, rows []analytics.StudentSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Name,
			r.Email,
			strconv.Itoa(r.TotalPoints),
			strconv.Itoa(r.BadgeCount),
			strconv.Itoa(r.Level),
			strconv.Itoa(r.Rank),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", r.UserID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
