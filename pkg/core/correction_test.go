package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCorrectionLog_AppendAndCount(t *testing.T) {
	var log CorrectionLog
	assert.Equal(t, 0, log.Len())
	assert.Equal(t, 0, log.CountFor("frozen-job"))

	now := time.Now()
	log.Append(Correction{Handler: "frozen-job", Fix: "restarted", At: now})
	log.Append(Correction{Handler: "unconverged", Fix: "reduced step", At: now})
	log.Append(Correction{Handler: "frozen-job", Fix: "restarted", At: now})

	assert.Equal(t, 3, log.Len())
	assert.Equal(t, 2, log.CountFor("frozen-job"))
	assert.Equal(t, 1, log.CountFor("unconverged"))

	entries := log.Entries()
	assert.Equal(t, "frozen-job", entries[0].Handler)
	assert.Equal(t, "unconverged", entries[1].Handler)
}

func TestCorrection_String(t *testing.T) {
	c := Correction{
		Handler: "frozen-job",
		Error:   ErrorDescriptor{Reason: "no output for 60s"},
		Fix:     "restarted with smaller mesh",
	}
	assert.Equal(t, "frozen-job: no output for 60s -> restarted with smaller mesh", c.String())
}
