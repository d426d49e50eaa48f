package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetAndRestore(t *testing.T) {
	start := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	restore := Set(Stepper(start, time.Minute))

	assert.Equal(t, start, Now())
	assert.Equal(t, "2026-05-06 07:09", UTCFormatted("2006-01-02 15:04"))

	restore()
	assert.WithinDuration(t, time.Now(), Now(), time.Second)
}
