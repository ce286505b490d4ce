package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// SettingsVersion is the current shape of every settings blob.  Rows written
// with an older version are still decoded; unknown keys land in Extra.
const SettingsVersion = 1

// LayoutSettings configures how terminals render the floor plan.
type LayoutSettings struct {
	Version    int            `json:"version"`
	Background *string        `json:"background,omitempty"`
	GridSize   *int           `json:"grid_size,omitempty"`
	ShowLabels *bool          `json:"show_labels,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// AreaSettings configures one area.
type AreaSettings struct {
	Version       int            `json:"version"`
	Color         *string        `json:"color,omitempty"`
	ServiceFeePct *float64       `json:"service_fee_pct,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// AreaRestrictions limits who may be seated in an area.
type AreaRestrictions struct {
	Version     int            `json:"version"`
	MinAge      *int           `json:"min_age,omitempty"`
	VIPOnly     *bool          `json:"vip_only,omitempty"`
	CardGroupID *uint64        `json:"card_group_id,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// TableSettings configures one table.
type TableSettings struct {
	Version  int            `json:"version"`
	Rotation *int           `json:"rotation,omitempty"`
	Smoking  *bool          `json:"smoking,omitempty"`
	WaiterID *uint64        `json:"waiter_id,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// TabSettings configures one tab.
type TabSettings struct {
	Version          int            `json:"version"`
	ServiceFeeWaived *bool          `json:"service_fee_waived,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// CardSettings configures one prepaid card.
type CardSettings struct {
	Version       int            `json:"version"`
	AllowNegative *bool          `json:"allow_negative,omitempty"`
	Label         *string        `json:"label,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

func (s LayoutSettings) Value() (driver.Value, error)   { return encodeSettings(s) }
func (s AreaSettings) Value() (driver.Value, error)     { return encodeSettings(s) }
func (s AreaRestrictions) Value() (driver.Value, error) { return encodeSettings(s) }
func (s TableSettings) Value() (driver.Value, error)    { return encodeSettings(s) }
func (s TabSettings) Value() (driver.Value, error)      { return encodeSettings(s) }
func (s CardSettings) Value() (driver.Value, error)     { return encodeSettings(s) }

func (s *LayoutSettings) Scan(src any) error   { return decodeSettings(src, s, &s.Version) }
func (s *AreaSettings) Scan(src any) error     { return decodeSettings(src, s, &s.Version) }
func (s *AreaRestrictions) Scan(src any) error { return decodeSettings(src, s, &s.Version) }
func (s *TableSettings) Scan(src any) error    { return decodeSettings(src, s, &s.Version) }
func (s *TabSettings) Scan(src any) error      { return decodeSettings(src, s, &s.Version) }
func (s *CardSettings) Scan(src any) error     { return decodeSettings(src, s, &s.Version) }

// encodeSettings stamps the current version when the caller left it unset.
func encodeSettings(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	if n, ok := fields["version"].(float64); !ok || n == 0 {
		fields["version"] = SettingsVersion
		if b, err = json.Marshal(fields); err != nil {
			return nil, err
		}
	}
	return string(b), nil
}

// decodeSettings accepts NULL, []byte and string sources.  Keys that are not
// promoted to a named field are kept in the blob's Extra map so nothing is
// lost on a read-modify-write cycle.
func decodeSettings(src any, dst any, version *int) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*version = SettingsVersion
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("settings: unsupported source type %T", src)
	}
	if len(raw) == 0 {
		*version = SettingsVersion
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := collectExtra(raw, dst); err != nil {
		return err
	}
	if *version == 0 {
		*version = SettingsVersion
	}
	return nil
}

func collectExtra(raw []byte, dst any) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	named := jsonFieldNames(dst)
	extra := map[string]any{}
	for k, v := range all {
		if named[k] || k == "extra" {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("settings: key %q: %w", k, err)
		}
		extra[k] = val
	}
	if len(extra) == 0 {
		return nil
	}
	return mergeExtra(dst, extra)
}

func jsonFieldNames(v any) map[string]bool {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			out[name] = true
		}
	}
	return out
}

func mergeExtra(dst any, extra map[string]any) error {
	var target *map[string]any
	switch s := dst.(type) {
	case *LayoutSettings:
		target = &s.Extra
	case *AreaSettings:
		target = &s.Extra
	case *AreaRestrictions:
		target = &s.Extra
	case *TableSettings:
		target = &s.Extra
	case *TabSettings:
		target = &s.Extra
	case *CardSettings:
		target = &s.Extra
	default:
		return fmt.Errorf("settings: unsupported destination %T", dst)
	}
	if *target == nil {
		*target = map[string]any{}
	}
	for k, v := range extra {
		(*target)[k] = v
	}
	return nil
}
