package prefs

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nebulachat/backend/internal/logger"
	"github.com/nebulachat/backend/internal/model/prefs"
	"github.com/nebulachat/backend/internal/store"
)

// Service owns the persisted app preferences.
type Service struct {
	mu    sync.Mutex
	state prefs.State
	store store.Store
}

// NewService loads the preferences aggregate, defaulting to the light theme.
func NewService(st store.Store) (*Service, error) {
	svc := &Service{store: st}
	if st != nil {
		if _, err := st.Load(store.KeyPrefs, &svc.state); err != nil {
			return nil, fmt.Errorf("load prefs state: %w", err)
		}
	}
	if svc.state.Theme == "" {
		svc.state.Theme = prefs.ThemeLight
	}
	return svc, nil
}

// Theme returns the active theme.
func (s *Service) Theme() prefs.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Theme
}

// ToggleTheme flips between light and dark and returns the new value.
func (s *Service) ToggleTheme() prefs.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Theme == prefs.ThemeDark {
		s.state.Theme = prefs.ThemeLight
	} else {
		s.state.Theme = prefs.ThemeDark
	}
	if s.store != nil {
		if err := s.store.Save(store.KeyPrefs, s.state); err != nil {
			logger.Log.Error("persist_prefs_state_failed", zap.Error(err))
		}
	}
	return s.state.Theme
}
