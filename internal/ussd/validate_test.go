package ussd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/member-registry/internal/domain"
)

func TestValidateNRC(t *testing.T) {
	nrc, err := ValidateNRC(" 123456/78/1 ")
	require.NoError(t, err)
	assert.Equal(t, "123456/78/1", nrc)

	for _, bad := range []string{"", "123456781", "12345/78/1", "123456/7/1", "123456/78/12", "abcdef/gh/i"} {
		_, err := ValidateNRC(bad)
		assert.ErrorIs(t, err, ErrMalformedInput, bad)
	}
}

func TestValidateNameTitleCases(t *testing.T) {
	name, err := ValidateName("  van der merwe ", "Last name")
	require.NoError(t, err)
	assert.Equal(t, "Van Der Merwe", name)

	name, err = ValidateName("o'brien", "Last name")
	require.NoError(t, err)
	assert.Equal(t, "O'brien", name)

	for _, bad := range []string{"", "   ", "123", "J0hn", "-dash"} {
		_, err := ValidateName(bad, "First name")
		assert.ErrorIs(t, err, ErrMalformedInput, bad)
	}
}

func TestValidateVotersID(t *testing.T) {
	id, err := ValidateVotersID(" ab1234 ")
	require.NoError(t, err)
	assert.Equal(t, "AB1234", id)

	_, err = ValidateVotersID("abc")
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestParseDOB(t *testing.T) {
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	dob, err := ParseDOB("15/06/1985", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(1985, 6, 15, 0, 0, 0, 0, time.UTC), dob)

	for _, bad := range []string{"1985-06-15", "31/02/1990", "15/06/1850", "15/06/2030", "junk"} {
		_, err := ParseDOB(bad, now)
		assert.ErrorIs(t, err, ErrMalformedInput, bad)
	}
}

func TestParseMenuChoice(t *testing.T) {
	idx, err := ParseMenuChoice("2", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = ParseMenuChoice("x", 3)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = ParseMenuChoice("4", 3)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ParseMenuChoice("0", 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"260971234567":    "+260971234567",
		"+260971234567":   "+260971234567",
		"0971234567":      "+260971234567",
		"971234567":       "+260971234567",
		"+260 97 1234567": "+260971234567",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestLastFragment(t *testing.T) {
	assert.Equal(t, "", LastFragment(""))
	assert.Equal(t, "1", LastFragment("1"))
	assert.Equal(t, "John", LastFragment("1*1*John"))
	assert.Equal(t, "123456/78/1", LastFragment("1*1*John*Banda*123456/78/1"))
}

func TestParseGender(t *testing.T) {
	g, err := ParseGender("1")
	require.NoError(t, err)
	assert.Equal(t, domain.GenderMale, g)

	g, err = ParseGender(" 2 ")
	require.NoError(t, err)
	assert.Equal(t, domain.GenderFemale, g)

	g, err = ParseGender("3")
	require.NoError(t, err)
	assert.Equal(t, domain.GenderOther, g)

	_, err = ParseGender("4")
	assert.True(t, errors.Is(err, ErrMalformedInput))
}
