package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jacksund/simmate-engine/pkg/core"
)

func TestValidateTaskName(t *testing.T) {
	assert.NoError(t, ValidateTaskName("relax-structure"))
	assert.NoError(t, ValidateTaskName("vasp.relax_01"))

	assert.ErrorIs(t, ValidateTaskName(""), core.ErrInvalidTaskName)
	assert.ErrorIs(t, ValidateTaskName("1starts-with-digit"), core.ErrInvalidTaskName)
	assert.ErrorIs(t, ValidateTaskName("has spaces"), core.ErrInvalidTaskName)
	assert.ErrorIs(t, ValidateTaskName("semi;colon"), core.ErrInvalidTaskName)
	assert.ErrorIs(t, ValidateTaskName(strings.Repeat("a", MaxTaskNameLength+1)), core.ErrTaskNameTooLong)
}

func TestValidateTags(t *testing.T) {
	assert.NoError(t, ValidateTags(nil))
	assert.NoError(t, ValidateTags([]string{"gpu", "warwulf"}))

	assert.ErrorIs(t, ValidateTags([]string{""}), core.ErrInvalidTag)
	assert.ErrorIs(t, ValidateTags([]string{"has space"}), core.ErrInvalidTag)
	assert.ErrorIs(t, ValidateTags([]string{strings.Repeat("x", MaxTagLength+1)}), core.ErrInvalidTag)
}

func TestSanitizeStoredText(t *testing.T) {
	assert.Equal(t, "", SanitizeStoredText(""))
	assert.Equal(t, "plain text", SanitizeStoredText("plain text"))
	assert.Equal(t, "keeps\nnewlines\tand tabs", SanitizeStoredText("keeps\nnewlines\tand tabs"))
	assert.Equal(t, "stripped", SanitizeStoredText("str\x00ipp\x1bed"))

	long := strings.Repeat("a", MaxStoredTextLength+100)
	out := SanitizeStoredText(long)
	assert.Len(t, out, MaxStoredTextLength)
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestClampCorrections(t *testing.T) {
	assert.Equal(t, 1, ClampCorrections(0))
	assert.Equal(t, 1, ClampCorrections(-5))
	assert.Equal(t, 5, ClampCorrections(5))
	assert.Equal(t, MaxCorrections, ClampCorrections(MaxCorrections+1))
}
