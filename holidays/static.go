package holidays

import (
	"context"
	"strings"

	"github.com/warp/budget-engine/budget"
)

// StaticSource serves a fixed holiday list per jurisdiction.
type StaticSource map[string][]budget.Date

// Fetch implements budget.HolidaySource. It returns the jurisdiction's
// dates that fall in year.
func (s StaticSource) Fetch(_ context.Context, jurisdiction string, year int) ([]budget.Date, error) {
	var out []budget.Date
	for _, d := range s[strings.ToUpper(jurisdiction)] {
		if d.Year() == year {
			out = append(out, d)
		}
	}
	return out, nil
}
