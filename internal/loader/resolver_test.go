package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seitarof/classgate/internal/classfile/classfiletest"
)

func TestChain(t *testing.T) {
	ctx := context.Background()
	miss := ResolverFunc(func(_ context.Context, name string) (*LoadedType, error) {
		return nil, &TypeNotFoundError{Name: name}
	})
	gate, _ := fixtureLoader()

	typ, err := Chain(miss, gate).Resolve(ctx, classfiletest.PlainName)
	require.NoError(t, err)
	assert.Equal(t, gate.ID(), typ.DefinedBy)

	_, err = Chain(miss, gate).Resolve(ctx, classfiletest.StaticInitBlockName)
	assert.True(t, IsViolation(err))

	_, err = Chain(miss, miss).Resolve(ctx, "a.B")
	var nf *TypeNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "a.B", nf.Name)

	boom := errors.New("boom")
	stop := ResolverFunc(func(context.Context, string) (*LoadedType, error) { return nil, boom })
	_, err = Chain(stop, gate).Resolve(ctx, classfiletest.PlainName)
	assert.ErrorIs(t, err, boom)
	_, ok := gate.Decision(classfiletest.PlainName)
	assert.True(t, ok, "decision from the first chain call")
}

func TestContextLoader(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	l := New()
	got, ok := FromContext(WithLoader(context.Background(), l))
	require.True(t, ok)
	assert.Same(t, l, got)
}

func TestErrors(t *testing.T) {
	v := &ClassFormatViolation{Name: "a.B", Reason: "non-final-static", Member: "x"}
	assert.Equal(t, "class format violation: a.B rejected: non-final-static (x)", v.Error())
	assert.True(t, IsViolation(errors.Join(errors.New("ctx"), v)))

	nf := &TypeNotFoundError{Name: "a.B"}
	assert.Equal(t, "type not found: a.B", nf.Error())
	assert.False(t, IsViolation(nf))
	assert.True(t, IsNotFound(nf))
}
