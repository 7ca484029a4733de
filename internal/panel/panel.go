// Package panel implements the management panel's actions: sign-in, the
// saved phrase list and the extension settings. Setting changes are written
// to the store and broadcast to every page engine.
package panel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/parla-app/parla/internal/backend"
	"github.com/parla-app/parla/internal/messaging"
	"github.com/parla-app/parla/internal/settings"
	"go.uber.org/zap"
)

// Backend is the subset of the HTTP client the panel uses.
type Backend interface {
	Login(ctx context.Context, username, password string) (string, error)
	Logout()
	LoggedIn() bool
	Profile(ctx context.Context) (*backend.User, error)
	ListPhrases(ctx context.Context) ([]backend.Phrase, error)
	DeletePhrase(ctx context.Context, id int64) error
}

type Panel struct {
	bus     *messaging.Bus
	store   settings.Store
	backend Backend
	logger  *zap.Logger
}

func New(bus *messaging.Bus, store settings.Store, b Backend, logger *zap.Logger) *Panel {
	return &Panel{bus: bus, store: store, backend: b, logger: logger.Named("panel")}
}

// Settings returns the stored settings.
func (p *Panel) Settings(ctx context.Context) (settings.Settings, error) {
	return settings.Load(ctx, p.store)
}

// ToggleExtension persists the switch and tells every engine.
func (p *Panel) ToggleExtension(ctx context.Context, active bool) error {
	current, err := p.Settings(ctx)
	if err != nil {
		return err
	}
	current.ExtensionActive = active
	if err := p.store.Set(ctx, current.Values()); err != nil {
		return fmt.Errorf("save extension state: %w", err)
	}
	p.logger.Info("Extension toggled", zap.Bool("active", active))
	return p.broadcast(messaging.ActionToggleExtension, messaging.ToggleExtension{Active: active})
}

// SetAutoPause persists the auto-pause preference.
func (p *Panel) SetAutoPause(ctx context.Context, enabled bool) error {
	return p.update(ctx, func(s *settings.Settings) error {
		s.AutoPauseEnabled = enabled
		return nil
	})
}

// SetTargetLanguage validates and persists the translation target.
func (p *Panel) SetTargetLanguage(ctx context.Context, tag string) error {
	return p.update(ctx, func(s *settings.Settings) error {
		canonical, err := settings.NormalizeLanguage(tag)
		if err != nil {
			return err
		}
		s.TargetLanguage = canonical
		return nil
	})
}

func (p *Panel) update(ctx context.Context, apply func(*settings.Settings) error) error {
	current, err := p.Settings(ctx)
	if err != nil {
		return err
	}
	if err := apply(&current); err != nil {
		return err
	}
	if err := p.store.Set(ctx, current.Values()); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return p.broadcast(messaging.ActionSettingsUpdated, current)
}

func (p *Panel) broadcast(action messaging.Action, payload any) error {
	msg, err := messaging.NewMessage(action, payload)
	if err != nil {
		return err
	}
	p.bus.Broadcast(msg)
	return nil
}

// Login signs in and returns the account.
func (p *Panel) Login(ctx context.Context, username, password string) (*backend.User, error) {
	if _, err := p.backend.Login(ctx, username, password); err != nil {
		return nil, err
	}
	return p.backend.Profile(ctx)
}

// Logout drops the session.
func (p *Panel) Logout() { p.backend.Logout() }

// CurrentUser verifies the session with the backend. It returns nil when
// signed out or when the session has expired.
func (p *Panel) CurrentUser(ctx context.Context) (*backend.User, error) {
	if !p.backend.LoggedIn() {
		return nil, nil
	}
	user, err := p.backend.Profile(ctx)
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
			p.backend.Logout()
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Phrases lists saved phrases whose text or translation contains filter,
// ignoring case. An empty filter lists everything.
func (p *Panel) Phrases(ctx context.Context, filter string) ([]backend.Phrase, error) {
	all, err := p.backend.ListPhrases(ctx)
	if err != nil {
		return nil, err
	}
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return all, nil
	}
	out := make([]backend.Phrase, 0, len(all))
	for _, ph := range all {
		if strings.Contains(strings.ToLower(ph.Text), filter) ||
			strings.Contains(strings.ToLower(ph.Translation), filter) {
			out = append(out, ph)
		}
	}
	return out, nil
}

// DeletePhrase removes a saved phrase.
func (p *Panel) DeletePhrase(ctx context.Context, id int64) error {
	return p.backend.DeletePhrase(ctx, id)
}
