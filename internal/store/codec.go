package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"toolcrib/internal/models"
)

// Positional field orders written for each table. The header row is written
// alongside the data so that readers can survive columns moving; when
// reading back, header names are matched case- and underscore-insensitively
// since the store enforces no schema.
var (
	assetHeader = []string{"id", "name", "category", "zone", "asset_class",
		"quantity", "available", "condition", "composition", "monetary_value", "last_verified"}
	caseHeader = []string{"id", "tool_id", "staff_id", "staff_name", "quantity",
		"issuance_type", "is_returned", "condition_on_return", "escalation_stage",
		"escalation_status", "grace_expiry_date", "monetary_value", "notes", "action_history"}
	maintenanceHeader = []string{"id", "tool_id", "reported_by", "reported_date",
		"breakdown_context", "status", "assigned_staff_id", "assigned_staff_name"}
)

const timeLayout = time.RFC3339

// normalizeField is the header comparison key: lower-cased with underscores
// and spaces removed, so "toolId", "tool_id" and "Tool ID" all match.
func normalizeField(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "")
	return strings.ReplaceAll(name, " ", "")
}

// fieldIndex maps normalized header names to column positions.
func fieldIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[normalizeField(name)] = i
	}
	return idx
}

func field(row []string, idx map[string]int, name string) string {
	i, ok := idx[normalizeField(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// EncodeAsset serializes an asset into its positional row. The composition
// is a stringified JSON list carrying any persisted defect annotations.
func EncodeAsset(a models.Asset) []string {
	comp, _ := json.Marshal(a.Composition)
	return []string{
		a.ID,
		a.Name,
		a.Category,
		a.Zone,
		string(a.Class),
		strconv.Itoa(a.Quantity),
		strconv.Itoa(a.Available),
		string(a.Condition),
		string(comp),
		strconv.FormatFloat(a.MonetaryValue, 'f', 2, 64),
		a.LastVerified.UTC().Format(timeLayout),
	}
}

// DecodeAsset parses one row using the table's header.
func DecodeAsset(header, row []string) (models.Asset, error) {
	idx := fieldIndex(header)
	id := field(row, idx, "id")
	if id == "" {
		return models.Asset{}, fmt.Errorf("asset row has no id: %v", row)
	}
	a := models.Asset{
		ID:        id,
		Name:      field(row, idx, "name"),
		Category:  field(row, idx, "category"),
		Zone:      field(row, idx, "zone"),
		Class:     models.AssetClass(field(row, idx, "asset_class")),
		Condition: models.Condition(field(row, idx, "condition")),
	}
	a.Quantity, _ = strconv.Atoi(field(row, idx, "quantity"))
	a.Available, _ = strconv.Atoi(field(row, idx, "available"))
	a.MonetaryValue, _ = strconv.ParseFloat(field(row, idx, "monetary_value"), 64)
	if raw := field(row, idx, "composition"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &a.Composition); err != nil {
			// Older rows stored a comma-joined list.
			for _, p := range strings.Split(raw, ",") {
				if p = strings.TrimSpace(p); p != "" {
					a.Composition = append(a.Composition, p)
				}
			}
		}
	}
	if raw := field(row, idx, "last_verified"); raw != "" {
		a.LastVerified, _ = time.Parse(timeLayout, raw)
	}
	return a, nil
}

// historyEntry is the persisted shape of one action history element.
type historyEntry struct {
	Stage     string `json:"stage"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Notes     string `json:"notes"`
}

// EncodeCase serializes a case. The in-memory defect tags are rendered into
// the notes string here and only here.
func EncodeCase(c models.Case) []string {
	notes := c.Notes
	if tags := models.EncodeDefectTags(c.Defects); tags != "" {
		if notes != "" {
			notes += " "
		}
		notes += tags
	}
	hist := make([]historyEntry, 0, len(c.History))
	for _, h := range c.History {
		hist = append(hist, historyEntry{
			Stage:     string(h.Stage),
			Actor:     h.Actor,
			Action:    h.Action,
			Timestamp: h.Timestamp.UTC().Format(timeLayout),
			Notes:     h.Notes,
		})
	}
	histRaw, _ := json.Marshal(hist)
	grace := ""
	if c.GraceExpiry != nil {
		grace = c.GraceExpiry.UTC().Format(timeLayout)
	}
	return []string{
		c.ID,
		c.ToolID,
		c.StaffID,
		c.StaffName,
		strconv.Itoa(c.Quantity),
		string(c.IssuanceType),
		strconv.FormatBool(c.IsReturned),
		string(c.ConditionOnReturn),
		string(c.Stage),
		string(c.Status),
		grace,
		strconv.FormatFloat(c.MonetaryValue, 'f', 2, 64),
		notes,
		string(histRaw),
	}
}

// DecodeCase parses one case row, splitting embedded defect tags back out
// of the notes into structured form.
func DecodeCase(header, row []string) (models.Case, error) {
	idx := fieldIndex(header)
	id := field(row, idx, "id")
	if id == "" {
		return models.Case{}, fmt.Errorf("case row has no id: %v", row)
	}
	c := models.Case{
		ID:                id,
		ToolID:            field(row, idx, "tool_id"),
		StaffID:           field(row, idx, "staff_id"),
		StaffName:         field(row, idx, "staff_name"),
		IssuanceType:      models.IssuanceType(field(row, idx, "issuance_type")),
		ConditionOnReturn: models.Condition(field(row, idx, "condition_on_return")),
		Stage:             models.EscalationStage(field(row, idx, "escalation_stage")),
		Status:            models.EscalationStatus(field(row, idx, "escalation_status")),
	}
	c.Quantity, _ = strconv.Atoi(field(row, idx, "quantity"))
	c.IsReturned, _ = strconv.ParseBool(field(row, idx, "is_returned"))
	c.MonetaryValue, _ = strconv.ParseFloat(field(row, idx, "monetary_value"), 64)
	if raw := field(row, idx, "grace_expiry_date"); raw != "" {
		if t, err := time.Parse(timeLayout, raw); err == nil {
			c.GraceExpiry = &t
		}
	}
	rawNotes := field(row, idx, "notes")
	c.Defects = models.ParseDefectTags(rawNotes)
	c.Notes = models.StripDefectTagText(rawNotes)
	if raw := field(row, idx, "action_history"); raw != "" {
		var hist []historyEntry
		if err := json.Unmarshal([]byte(raw), &hist); err == nil {
			for _, h := range hist {
				ts, _ := time.Parse(timeLayout, h.Timestamp)
				c.History = append(c.History, models.ActionEntry{
					Stage:     models.EscalationStage(h.Stage),
					Actor:     h.Actor,
					Action:    h.Action,
					Timestamp: ts,
					Notes:     h.Notes,
				})
			}
		}
	}
	return c, nil
}

// EncodeMaintenance serializes a maintenance record.
func EncodeMaintenance(r models.MaintenanceRecord) []string {
	return []string{
		r.ID,
		r.ToolID,
		r.ReportedBy,
		r.ReportedDate.UTC().Format(timeLayout),
		r.BreakdownContext,
		string(r.Status),
		r.AssignedStaffID,
		r.AssignedStaff,
	}
}

// DecodeMaintenance parses one maintenance row.
func DecodeMaintenance(header, row []string) (models.MaintenanceRecord, error) {
	idx := fieldIndex(header)
	id := field(row, idx, "id")
	if id == "" {
		return models.MaintenanceRecord{}, fmt.Errorf("maintenance row has no id: %v", row)
	}
	r := models.MaintenanceRecord{
		ID:               id,
		ToolID:           field(row, idx, "tool_id"),
		ReportedBy:       field(row, idx, "reported_by"),
		BreakdownContext: field(row, idx, "breakdown_context"),
		Status:           models.MaintenanceStatus(field(row, idx, "status")),
		AssignedStaffID:  field(row, idx, "assigned_staff_id"),
		AssignedStaff:    field(row, idx, "assigned_staff_name"),
	}
	if raw := field(row, idx, "reported_date"); raw != "" {
		r.ReportedDate, _ = time.Parse(timeLayout, raw)
	}
	return r, nil
}

// HeaderFor returns the canonical header row written for a table.
func HeaderFor(table string) []string {
	switch table {
	case TableAssets:
		return append([]string(nil), assetHeader...)
	case TableCases:
		return append([]string(nil), caseHeader...)
	case TableMaintenance:
		return append([]string(nil), maintenanceHeader...)
	}
	return nil
}
