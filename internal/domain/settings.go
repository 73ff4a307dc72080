package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// settingsDocument is the top-level JSON structure the host platform sends to
// the settings-update entry point.
type settingsDocument struct {
	Settings []settingEntry `json:"settings"`
}

type settingEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SettingDescriptor declares one configurable setting of the peripheral:
// name, type, default and a human-readable description. The host queries the
// full list to render its configuration surface.
type SettingDescriptor struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

const (
	settingAddress       = "terminal_address"
	settingPOSNumber     = "pos_number"
	settingForceOnline   = "force_online"
	settingRecordDir     = "record_dir"
	settingPendingTicket = "pending_ticket_path"
)

// SettingDescriptors lists every setting the peripheral declares to the host.
func SettingDescriptors() []SettingDescriptor {
	return []SettingDescriptor{
		{settingAddress, "string", "", "Terminal address the driver connects to"},
		{settingPOSNumber, "int", "1", "POS number identifying this kiosk lane"},
		{settingForceOnline, "bool", "false", "Force every authorization online"},
		{settingRecordDir, "string", "records", "Directory for per-attempt audit record files"},
		{settingPendingTicket, "string", "pending_ticket.txt", "Path of the transient customer ticket artifact"},
	}
}

// DescribeSettings serializes the declared settings as the factory-description
// document.
func DescribeSettings() ([]byte, error) {
	doc := struct {
		Settings []SettingDescriptor `json:"settings"`
	}{Settings: SettingDescriptors()}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal settings schema: %w", err)
	}
	return data, nil
}

// ParseSettingsDocument applies a serialized settings document on top of a
// base configuration and returns the resulting configuration. Unknown setting
// names are rejected so host-side typos surface instead of silently doing
// nothing.
func ParseSettingsDocument(data []byte, base RuntimeConfiguration) (*RuntimeConfiguration, error) {
	var doc settingsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal settings document: %w", err)
	}

	cfg := base
	for i, entry := range doc.Settings {
		switch entry.Name {
		case settingAddress:
			cfg.Address = entry.Value
		case settingPOSNumber:
			n, err := strconv.Atoi(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("setting %d (%s): %w", i, entry.Name, err)
			}
			cfg.POSNumber = n
		case settingForceOnline:
			b, err := strconv.ParseBool(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("setting %d (%s): %w", i, entry.Name, err)
			}
			cfg.ForceOnline = b
		case settingRecordDir:
			cfg.RecordDir = entry.Value
		case settingPendingTicket:
			cfg.PendingTicketPath = entry.Value
		default:
			return nil, fmt.Errorf("setting %d: unknown name %q", i, entry.Name)
		}
	}
	return &cfg, nil
}
