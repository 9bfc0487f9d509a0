package budget

import (
	"context"
	"fmt"
)

// SetupService performs the one-time fiscal setup.
type SetupService struct {
	store    SettingsStore
	calendar *HolidayCalendar
}

func NewSetupService(store SettingsStore, calendar *HolidayCalendar) *SetupService {
	return &SetupService{store: store, calendar: calendar}
}

// Setup validates and stores settings. A second call fails with
// ErrSettingsImmutable.
func (s *SetupService) Setup(ctx context.Context, settings FiscalSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if s.calendar != nil {
		s.calendar.Invalidate(settings.Jurisdiction)
	}
	return nil
}
