package services

import (
	"chatty/contract"
	"chatty/domain"
	"chatty/domain/preference"
	"chatty/errors"
	"chatty/runtime"
	stderrors "errors"
	"fmt"
	"log/slog"
)

type IThemeService interface {
	Theme() domain.Theme
	SetTheme(theme domain.Theme) error
	Subscribe(fn func(preference.State)) func()
}

type ThemeService struct {
	log   *slog.Logger
	repo  contract.IPreferenceRepository
	store *runtime.Store[preference.State, preference.Action]
}

// NewThemeService reads the stored theme once. Nothing is written when
// the key is missing.
func NewThemeService(log *slog.Logger, repo contract.IPreferenceRepository, fallback domain.Theme) *ThemeService {
	if fallback == "" {
		fallback = domain.DefaultTheme
	}
	theme := fallback
	stored, err := repo.GetPreference(domain.ThemeKey)
	switch {
	case err == nil:
		theme = domain.Theme(stored)
	case stderrors.Is(err, errors.ErrPreferenceNotFound):
	default:
		log.Warn("Reading theme failed, using default", "theme", fallback, "error", err)
	}
	return &ThemeService{
		log:   log,
		repo:  repo,
		store: runtime.NewStore(preference.State{Theme: theme}, preference.Reduce),
	}
}

func (s *ThemeService) Theme() domain.Theme {
	return s.store.State().Theme
}

func (s *ThemeService) Subscribe(fn func(preference.State)) func() {
	return s.store.Subscribe(fn)
}

// SetTheme persists first. The in-memory theme only changes once stored.
func (s *ThemeService) SetTheme(theme domain.Theme) error {
	if err := s.repo.SetPreference(domain.ThemeKey, string(theme)); err != nil {
		return fmt.Errorf("save theme %q: %w", theme, err)
	}
	s.store.Dispatch(preference.SetTheme{Theme: theme})
	if !theme.IsKnown() {
		s.log.Debug("Theme is not a known theme", "theme", theme)
	}
	return nil
}
