package services

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
	"github.com/custodia-labs/docket/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService reads and edits the persisted configuration by dotted key.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get returns the effective settings with defaults applied.
func (s *SettingsService) Get() (*domain.Settings, error) {
	return s.configStore.Settings()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Keys returns every settable dotted key in sorted order.
func (s *SettingsService) Keys() []string {
	var keys []string
	walkSettings(reflect.TypeOf(domain.Settings{}), "", func(key string, _ reflect.Type) {
		keys = append(keys, key)
	})
	sort.Strings(keys)
	return keys
}

// Value returns the effective value of key rendered as text.
func (s *SettingsService) Value(key string) (string, error) {
	settings, err := s.Get()
	if err != nil {
		return "", err
	}
	field, err := settingField(reflect.ValueOf(settings).Elem(), key)
	if err != nil {
		return "", err
	}
	return formatValue(field), nil
}

// Set parses raw for key's type, checks the resulting settings are valid
// and persists the value.
func (s *SettingsService) Set(key, raw string) error {
	current, err := s.configStore.Settings()
	if err != nil {
		defaults := domain.DefaultSettings()
		current = &defaults
	}
	candidate := *current

	field, err := settingField(reflect.ValueOf(&candidate).Elem(), key)
	if err != nil {
		return err
	}
	value, err := parseValue(field.Type(), raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	field.Set(reflect.ValueOf(value).Convert(field.Type()))

	if err := candidate.Validate(); err != nil {
		return err
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// walkSettings visits every leaf field of t keyed by its toml tag path.
func walkSettings(t reflect.Type, prefix string, fn func(key string, t reflect.Type)) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("toml"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			walkSettings(f.Type, key, fn)
			continue
		}
		fn(key, f.Type)
	}
}

// settingField resolves a dotted key to the addressable field in v.
func settingField(v reflect.Value, key string) (reflect.Value, error) {
	for _, part := range strings.Split(key, ".") {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
		}
		next, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
		}
		v = next
	}
	if v.Kind() == reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %q is a section, not a setting", domain.ErrInvalidInput, key)
	}
	return v, nil
}

func fieldByTag(v reflect.Value, tag string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.Split(t.Field(i).Tag.Get("toml"), ",")[0] == tag {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// parseValue converts raw text into a value the TOML store can hold for t.
// Lists are comma separated.
func parseValue(t reflect.Type, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch t.Kind() {
	case reflect.String:
		return raw, nil
	case reflect.Bool:
		return strconv.ParseBool(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case reflect.Float64:
		return strconv.ParseFloat(raw, 64)
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			break
		}
		parts := []string{}
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return parts, nil
	}
	return nil, fmt.Errorf("unsupported setting type %s", t)
}

func formatValue(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Slice:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(v.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v.Interface())
	}
}
