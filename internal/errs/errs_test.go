package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errKind = errors.New("store unavailable")

func TestTag(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	tagged := Tag(errKind, cause)

	require.Error(t, tagged)
	assert.ErrorIs(t, tagged, errKind)
	assert.ErrorIs(t, tagged, cause)
	assert.Equal(t, "store unavailable: dial tcp: connection refused", tagged.Error())

	assert.Same(t, tagged, Tag(errKind, tagged))
	assert.NoError(t, Tag(errKind, nil))
}

func TestWrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	assert.NoError(t, Wrap(nil, "ignored"))
	assert.EqualError(t, Wrap(cause, "get ticket"), "get ticket: boom")
	assert.EqualError(t, Wrapf(cause, "get ticket %s", "t-1"), "get ticket t-1: boom")
	assert.Equal(t, []string{"get ticket: boom", "boom"}, Chain(Wrap(cause, "get ticket")))
}
