package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/internal/storage"
)

// SaveThemeDraft stores vars as the store's DRAFT theme. Variable names must
// be non-empty; values are free-form.
func (s *Store) SaveThemeDraft(ctx context.Context, storeID string, vars map[string]string) (theme *Theme, err error) {
	ctx, done := s.begin(ctx, "save_theme_draft", storeID, "", "")
	defer done(&err)

	if storeID == "" {
		return nil, invalidIdentity(storeID, "", "", "store id is empty")
	}
	if vs := validateVariables(vars); len(vs) > 0 {
		return nil, sferrors.New("E405").
			WithDetailf("%d invalid variable name(s)", len(vs)).
			WithViolations(vs)
	}
	if vars == nil {
		vars = map[string]string{}
	}
	data, err := json.Marshal(themePayload{Variables: vars})
	if err != nil {
		return nil, err
	}

	var row *storage.Row
	err = s.backend.Update(ctx, func(tx storage.Tx) error {
		var err error
		row, err = tx.Put(ctx, themeKey(storeID, StatusDraft), data)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "save theme draft")
	}
	return decodeTheme(row)
}

// PublishTheme copies the DRAFT theme over the PUBLISHED one in one
// transaction.
func (s *Store) PublishTheme(ctx context.Context, storeID string) (theme *Theme, err error) {
	ctx, done := s.begin(ctx, "publish_theme", storeID, "", "")
	defer done(&err)

	if storeID == "" {
		return nil, invalidIdentity(storeID, "", "", "store id is empty")
	}

	var row *storage.Row
	err = s.backend.Update(ctx, func(tx storage.Tx) error {
		draft, err := tx.Get(ctx, themeKey(storeID, StatusDraft))
		if errors.Is(err, storage.ErrNotFound) {
			return sferrors.New("E402").WithDetailf("store %q has no draft theme", storeID)
		}
		if err != nil {
			return err
		}
		pubKey := themeKey(storeID, StatusPublished)
		current, err := tx.Get(ctx, pubKey)
		if err == nil && bytes.Equal(current.Data, draft.Data) {
			row = current
			return nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		row, err = tx.Put(ctx, pubKey, draft.Data)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "publish theme")
	}

	theme, err = decodeTheme(row)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, Event{
		Type:    EventThemePublished,
		StoreID: storeID,
		Version: theme.Version,
		At:      s.now(),
		Theme:   theme,
	})
	return theme, nil
}

// GetThemeDraft returns the DRAFT theme, if any.
func (s *Store) GetThemeDraft(ctx context.Context, storeID string) (*Theme, bool, error) {
	return s.getTheme(ctx, storeID, StatusDraft)
}

// GetThemePublished returns the PUBLISHED theme, if any.
func (s *Store) GetThemePublished(ctx context.Context, storeID string) (*Theme, bool, error) {
	return s.getTheme(ctx, storeID, StatusPublished)
}

func (s *Store) getTheme(ctx context.Context, storeID string, status Status) (theme *Theme, ok bool, err error) {
	ctx, done := s.begin(ctx, "get_theme_"+lower(status), storeID, "", "")
	defer done(&err)

	if storeID == "" {
		return nil, false, invalidIdentity(storeID, "", "", "store id is empty")
	}
	row, err := s.backend.Get(ctx, themeKey(storeID, status))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr(err, "get theme")
	}
	theme, err = decodeTheme(row)
	if err != nil {
		return nil, false, err
	}
	return theme, true, nil
}

func validateVariables(vars map[string]string) []sferrors.Violation {
	var out []sferrors.Violation
	for _, name := range sortedNames(vars) {
		if strings.TrimSpace(name) == "" {
			out = append(out, sferrors.Violation{
				Field:   fmt.Sprintf("variables[%q]", name),
				Message: "variable name is empty",
			})
		}
	}
	return out
}

func sortedNames(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
