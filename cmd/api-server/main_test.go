package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/elumia/wellness-api/internal/auth"
	"github.com/elumia/wellness-api/internal/config"
)

func TestNewVerifier(t *testing.T) {
	v := newVerifier(config.Config{FirebaseProjectID: "elumia-test"}, zerolog.Nop())
	assert.IsType(t, &auth.FirebaseVerifier{}, v)

	v = newVerifier(config.Config{AuthDevSecret: "secret"}, zerolog.Nop())
	assert.IsType(t, &auth.DevVerifier{}, v)
}
