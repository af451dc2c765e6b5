package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type zoneInput struct {
	Timezone *string `validate:"omitempty,timezone"`
}

type codeInput struct {
	Code string `validate:"required,len=6,numeric"`
}

func TestStruct_Timezone(t *testing.T) {
	good := "Europe/Berlin"
	bad := "Mars/Olympus"
	assert.NoError(t, Struct(&zoneInput{}))
	assert.NoError(t, Struct(&zoneInput{Timezone: &good}))
	err := Struct(&zoneInput{Timezone: &bad})
	assert.ErrorContains(t, err, "field 'Timezone' failed 'timezone'")
}

func TestStruct_JoinsFieldErrors(t *testing.T) {
	err := Struct(&codeInput{Code: "12ab"})
	assert.ErrorContains(t, err, "field 'Code' failed 'len'")
}
