package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDefectTags(t *testing.T) {
	tags := []DefectTag{
		{Part: "Socket B", Defect: PieceMissing},
		{Part: " driver ", Defect: PieceDamaged},
	}
	assert.Equal(t, "[MISSING: SOCKET B] [DAMAGED: DRIVER]", EncodeDefectTags(tags))
	assert.Equal(t, "", EncodeDefectTags(nil))
}

func TestParseDefectTags(t *testing.T) {
	notes := "Custodian left site early. [MISSING: SOCKET B] see supervisor [DAMAGED: DRIVER]"
	tags := ParseDefectTags(notes)
	assert.Len(t, tags, 2)
	assert.Equal(t, DefectTag{Part: "SOCKET B", Defect: PieceMissing}, tags[0])
	assert.Equal(t, DefectTag{Part: "DRIVER", Defect: PieceDamaged}, tags[1])

	assert.Nil(t, ParseDefectTags("no tags here"))
}

func TestStripDefectTagText(t *testing.T) {
	notes := "Custodian left site early. [MISSING: SOCKET B] see supervisor"
	assert.Equal(t, "Custodian left site early. see supervisor", StripDefectTagText(notes))
}

func TestCanonicalPartName(t *testing.T) {
	assert.Equal(t, "Socket B", CanonicalPartName("Socket B (MISSING)"))
	assert.Equal(t, "Driver", CanonicalPartName("Driver (DAMAGED)"))
	assert.Equal(t, "Socket A", CanonicalPartName("Socket A"))
}

func TestNormalizePartName(t *testing.T) {
	assert.Equal(t, "SOCKET B", NormalizePartName("  socket b "))
	assert.Equal(t, "SOCKET B", NormalizePartName("Socket B (MISSING)"))
}
