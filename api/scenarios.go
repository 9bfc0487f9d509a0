/*
scenarios.go - Demo scenario endpoints

PURPOSE:
  Lists and loads the built-in demo households from the factory package.
  Each scenario is laid out around today, so the last ended fiscal month
  is immediately ready to close.

NOTE:
  Fiscal settings are write-once, so a scenario can only be loaded into an
  unconfigured store. Loading into a configured store fails with 409 and
  writes nothing. Start the server on a fresh database (or ":memory:") to
  switch scenarios.

SEE ALSO:
  - factory/scenarios.go: Scenario definitions
  - factory/household.go: Seeding
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/warp/budget-engine/factory"
	"github.com/warp/budget-engine/logging"
)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all := factory.Scenarios()
	out := make([]ScenarioDTO, 0, len(all))
	for _, s := range all {
		out = append(out, toScenarioDTO(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	id := h.currentScenario
	h.mu.Unlock()

	if id == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	s, err := factory.GetScenario(id)
	if err != nil {
		writeJSON(w, http.StatusOK, ScenarioDTO{ID: id, Name: id})
		return
	}
	writeJSON(w, http.StatusOK, toScenarioDTO(s))
}

// LoadScenario seeds a predefined household.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := factory.GetScenario(req.ScenarioID)
	if err != nil {
		writeDomainError(w, "Unknown scenario", err)
		return
	}

	ctx := r.Context()
	household := s.Build(h.Resolver.Today())
	res, err := h.Factory.Seed(ctx, h.Store, household)
	if err != nil {
		writeDomainError(w, "Failed to load scenario", err)
		return
	}
	h.Calendar.Invalidate(household.Settings.Jurisdiction)

	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()

	h.logger.Info("scenario loaded",
		"scenario", s.ID,
		logging.FieldJurisdiction, household.Settings.Jurisdiction,
		"goals", len(res.Goals))

	writeJSON(w, http.StatusCreated, LoadScenarioResponse{
		Scenario:      toScenarioDTO(s),
		Subcategories: len(res.Subcategories),
		Transactions:  res.Transactions,
		Cashflows:     res.Cashflows,
		Accounts:      len(res.Accounts),
		Goals:         len(res.Goals),
		Holidays:      res.Holidays,
	})
}

func toScenarioDTO(s factory.Scenario) ScenarioDTO {
	return ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description}
}
