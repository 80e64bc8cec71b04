package orchestrators

import (
	"context"
	"log/slog"

	settingsstore "nursery/internal/adapters/storage/settings"
	"nursery/internal/domain/account"
)

// SettingsDeps holds dependencies for settings management.
type SettingsDeps struct {
	SettingsStore settingsstore.Store
	ActivityStore ActivityStore
}

// ExecuteGetSettings returns every stored setting.
func ExecuteGetSettings(ctx context.Context, deps SettingsDeps) (map[string]string, error) {
	all, err := deps.SettingsStore.All(ctx)
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = map[string]string{}
	}
	return all, nil
}

// ExecuteUpdateSetting writes one setting. Only admins may change
// configuration.
func ExecuteUpdateSetting(ctx context.Context, principal account.Principal, key, value string, deps SettingsDeps) error {
	if !principal.IsAdmin() {
		return account.ErrForbidden
	}
	if err := deps.SettingsStore.Set(ctx, key, value); err != nil {
		return err
	}
	slog.Info("settings_event", "event", "setting_updated", "key", key)
	recordActivity(ctx, deps.ActivityStore, principal, "setting_updated", map[string]string{"key": key})
	return nil
}
