package silo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPosition struct{ X, Y float64 }
type testVelocity struct{ X, Y float64 }
type testFlag struct{ On bool }
type testLabel struct{ Name string }

func TestRegisterComponentIdempotent(t *testing.T) {
	a := RegisterComponent[testPosition]()
	b := RegisterComponent[testPosition]()
	assert.Equal(t, a.ComponentID(), b.ComponentID())
}

func TestRegisterComponentDistinctTypes(t *testing.T) {
	pos := RegisterComponent[testPosition]()
	vel := RegisterComponent[testVelocity]()
	assert.NotEqual(t, pos.ComponentID(), vel.ComponentID())
}

func TestTypeInfoMoveClearsSource(t *testing.T) {
	ct := RegisterComponent[testLabel]()
	info := ct.typeInfo()

	src := testLabel{Name: "hello"}
	var dst testLabel
	info.Move(ptrTo(&dst), ptrTo(&src))

	assert.Equal(t, "hello", dst.Name)
	assert.Equal(t, "", src.Name)
}

func TestTypeInfoCloneLeavesSourceIntact(t *testing.T) {
	ct := RegisterComponent[testLabel]()
	info := ct.typeInfo()
	require.True(t, info.Cloneable())

	src := testLabel{Name: "hello"}
	var dst testLabel
	info.Clone(ptrTo(&dst), ptrTo(&src))

	assert.Equal(t, "hello", dst.Name)
	assert.Equal(t, "hello", src.Name)
}
