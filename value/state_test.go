package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_StringCanonicalForm(t *testing.T) {
	assert.Equal(t, "7:OPEN", NewStateCodeName(7, "OPEN").String())
	assert.Equal(t, "3:", NewStateCode(3).String())
	assert.Equal(t, ":OPEN", NewStateName("OPEN").String())
}

func TestState_FromStringRoundTrip(t *testing.T) {
	s := NewStateCodeName(7, "OPEN")
	parsed := FromString(s.String())
	code, ok := parsed.Code()
	assert.True(t, ok)
	assert.Equal(t, 7, code)
	assert.Equal(t, "OPEN", parsed.Name())
}

func TestState_FromStringBareNamePrecededByColon(t *testing.T) {
	s := FromString(":OPEN")
	_, ok := s.Code()
	assert.False(t, ok)
	assert.Equal(t, "OPEN", s.Name())
}

func TestState_FromStringCodeOnly(t *testing.T) {
	s := FromString("3:")
	code, ok := s.Code()
	assert.True(t, ok)
	assert.Equal(t, 3, code)
	assert.Equal(t, "", s.Name())
}

func TestState_FromStringTolerantOfWhitespace(t *testing.T) {
	s := FromString("  7 : OPEN  ")
	code, ok := s.Code()
	assert.True(t, ok)
	assert.Equal(t, 7, code)
	assert.Equal(t, "OPEN", s.Name())
}

func TestState_EqualPrefersCode(t *testing.T) {
	a := NewStateCodeName(1, "ONE")
	b := NewStateCodeName(1, "UN")
	assert.True(t, a.Equal(b))

	c := NewStateName("ONE")
	d := NewStateName("ONE")
	assert.True(t, c.Equal(d))

	assert.False(t, a.Equal(c))
}

func TestGroup_IndexesByCodeAndUpperTrimmedName(t *testing.T) {
	g := NewGroup(nil)
	g.Add(NewStateCodeName(1, " open "))

	byCode, ok := g.ByCode(1)
	assert.True(t, ok)
	assert.Equal(t, " open ", byCode.Name())

	byName, ok := g.ByName("OPEN")
	assert.True(t, ok)
	code, _ := byName.Code()
	assert.Equal(t, 1, code)
}

func TestGroup_AddDuplicateDoesNotPanic(t *testing.T) {
	g := NewGroup(nil)
	g.Add(NewStateCodeName(1, "OPEN"))
	assert.NotPanics(t, func() {
		g.Add(NewStateCodeName(1, "CLOSED"))
	})
	s, ok := g.ByCode(1)
	assert.True(t, ok)
	assert.Equal(t, "CLOSED", s.Name())
}
