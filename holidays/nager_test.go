package holidays_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/budget/store"
	"github.com/warp/budget-engine/holidays"
)

const germany2024 = `[
  {"date":"2024-01-01","localName":"Neujahr","name":"New Year's Day","countryCode":"DE","global":true,"counties":null},
  {"date":"2024-01-06","localName":"Heilige Drei Könige","name":"Epiphany","countryCode":"DE","global":false,"counties":["DE-BW","DE-BY","DE-ST"]},
  {"date":"2024-10-03","localName":"Tag der Deutschen Einheit","name":"German Unity Day","countryCode":"DE","global":true,"counties":null}
]`

func newServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/api/v3/PublicHolidays/2024/DE":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(germany2024))
		case "/api/v3/PublicHolidays/2024/XX":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestNagerSource_Country(t *testing.T) {
	srv, paths := newServer(t)
	src := holidays.NewNagerSource(srv.URL, nil)

	dates, err := src.Fetch(context.Background(), "de", 2024)

	require.NoError(t, err)
	assert.Equal(t, []string{"/api/v3/PublicHolidays/2024/DE"}, *paths)
	require.Len(t, dates, 2)
	assert.Equal(t, "2024-01-01", dates[0].String())
	assert.Equal(t, "2024-10-03", dates[1].String())
}

func TestNagerSource_SubdivisionIncludesRegionalHolidays(t *testing.T) {
	srv, _ := newServer(t)
	src := holidays.NewNagerSource(srv.URL, nil)

	dates, err := src.Fetch(context.Background(), "DE-BY", 2024)

	require.NoError(t, err)
	assert.Len(t, dates, 3)
}

func TestNagerSource_UnknownCountryIsEmpty(t *testing.T) {
	srv, _ := newServer(t)

	dates, err := holidays.NewNagerSource(srv.URL, nil).Fetch(context.Background(), "XX", 2024)

	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestNagerSource_ServerErrorBecomesHolidaySourceError(t *testing.T) {
	srv, _ := newServer(t)
	mem := store.NewTxMemory()
	clock := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	cal := budget.NewHolidayCalendar(mem, holidays.NewNagerSource(srv.URL, nil), clock)

	// 2024 succeeds, 2025 and 2026 return 500
	_, err := cal.Refresh(context.Background(), "DE")

	require.Error(t, err)
	assert.ErrorIs(t, err, budget.ErrHolidaySource)
	stored, err := mem.LoadHolidays(context.Background(), "DE")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestStaticSource(t *testing.T) {
	src := holidays.StaticSource{
		"DE": {budget.NewDate(2024, time.October, 3), budget.NewDate(2025, time.October, 3)},
	}

	dates, err := src.Fetch(context.Background(), "de", 2025)

	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, 2025, dates[0].Year())
}
