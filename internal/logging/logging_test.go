package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBootstrapIsUsableBeforeConfig(t *testing.T) {
	l := Bootstrap("api-server")
	assert.NotEqual(t, zerolog.Disabled, l.GetLevel())

	l = New("prod", "slot-auditor")
	assert.NotEqual(t, zerolog.Disabled, l.GetLevel())
}
