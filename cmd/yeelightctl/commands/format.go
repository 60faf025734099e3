package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/jmylchreest/yeelightd/pkg/client"
)

// EntryTableData returns the table data for a list of config entries
func EntryTableData(entries []client.Entry) pterm.TableData {
	data := pterm.TableData{{"ID", "Title", "Domain", "Unique ID", "Source", "State"}}
	for _, e := range entries {
		state := e.State
		if e.Reason != "" {
			state += " (" + e.Reason + ")"
		}
		data = append(data, []string{e.EntryID, e.Title, e.Domain, e.UniqueID, e.Source, state})
	}
	return data
}

// EntryParseable returns the parseable key=value string for an entry
func EntryParseable(e client.Entry) string {
	return fmt.Sprintf("id=%q title=%q domain=%q unique_id=%q source=%q state=%q host=%q",
		e.EntryID, e.Title, e.Domain, e.UniqueID, e.Source, e.State, fmt.Sprint(valueOr(e.Data["host"], "")))
}

// StateTableData returns the table data for a single entity state, attributes sorted
func StateTableData(s client.State) pterm.TableData {
	data := pterm.TableData{
		{pterm.Bold.Sprint("Entity"), pterm.Bold.Sprint(s.EntityID)},
		{"State", s.State},
		{"Last Changed", formatTime(s.LastChanged)},
	}
	for _, k := range sortedKeys(s.Attributes) {
		data = append(data, []string{k, fmt.Sprint(s.Attributes[k])})
	}
	return data
}

// StatesTableData returns one row per entity state
func StatesTableData(states []client.State) pterm.TableData {
	data := pterm.TableData{{"Entity", "State", "Brightness", "Name"}}
	for _, s := range states {
		data = append(data, []string{
			s.EntityID,
			s.State,
			fmt.Sprint(valueOr(s.Attributes["brightness"], "-")),
			fmt.Sprint(valueOr(s.Attributes["friendly_name"], "")),
		})
	}
	return data
}

// StateParseable returns the parseable key=value string for a state
func StateParseable(s client.State) string {
	parts := []string{fmt.Sprintf("entity_id=%q", s.EntityID), fmt.Sprintf("state=%q", s.State)}
	for _, k := range sortedKeys(s.Attributes) {
		switch v := s.Attributes[k].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s=%q", k, v))
		case []any:
			vals := make([]string, len(v))
			for i, x := range v {
				vals[i] = fmt.Sprint(x)
			}
			parts = append(parts, fmt.Sprintf("%s=%q", k, strings.Join(vals, ",")))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	if !s.LastChanged.IsZero() {
		parts = append(parts, fmt.Sprintf("last_changed=%d", s.LastChanged.Unix()))
	}
	return strings.Join(parts, " ")
}

// BulbTableData returns one row per discovered bulb
func BulbTableData(bulbs []client.Bulb) pterm.TableData {
	data := pterm.TableData{{"ID", "Host", "Model", "Name", "Firmware"}}
	for _, b := range bulbs {
		data = append(data, []string{b.ID, fmt.Sprintf("%s:%d", b.Host, b.Port), b.Model, b.Name, b.FirmwareVersion})
	}
	return data
}

// BulbParseable returns the parseable key=value string for a bulb
func BulbParseable(b client.Bulb) string {
	return fmt.Sprintf("id=%q host=%q port=%d model=%q name=%q firmware=%q",
		b.ID, b.Host, b.Port, b.Model, b.Name, b.FirmwareVersion)
}

// formatTime formats a timestamp for display
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(time.RFC1123Z)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func valueOr(v any, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}
