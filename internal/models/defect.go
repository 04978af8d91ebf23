package models

import (
	"fmt"
	"regexp"
	"strings"
)

// DefectTag records a single defective part on a case. Cases hold these as
// structured data; the bracketed tag grammar only appears when a case is
// written to or read from the store.
type DefectTag struct {
	Part   string
	Defect PieceState
}

var defectTagPattern = regexp.MustCompile(`\[(MISSING|DAMAGED):\s*([^\]]+)\]`)

// EncodeDefectTags renders tags in the persisted notes grammar,
// e.g. "[MISSING: SOCKET B] [DAMAGED: DRIVER]".
func EncodeDefectTags(tags []DefectTag) string {
	if len(tags) == 0 {
		return ""
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, fmt.Sprintf("[%s: %s]", strings.ToUpper(string(t.Defect)), NormalizePartName(t.Part)))
	}
	return strings.Join(out, " ")
}

// StripDefectTagText removes every defect tag from a notes string, leaving
// the surrounding free text.
func StripDefectTagText(notes string) string {
	return strings.Join(strings.Fields(defectTagPattern.ReplaceAllString(notes, "")), " ")
}

// ParseDefectTags extracts every defect tag embedded in a notes string.
// Unrecognized text is ignored; the store enforces no schema.
func ParseDefectTags(notes string) []DefectTag {
	matches := defectTagPattern.FindAllStringSubmatch(notes, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]DefectTag, 0, len(matches))
	for _, m := range matches {
		defect := PieceMissing
		if m[1] == "DAMAGED" {
			defect = PieceDamaged
		}
		tags = append(tags, DefectTag{Part: strings.TrimSpace(m[2]), Defect: defect})
	}
	return tags
}
