package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	releaseerrors "github.com/xinchaobeta/semantic-release/internal/errors"
)

func TestError(t *testing.T) {
	t.Parallel()

	t.Run("should render code and message without a details block", func(t *testing.T) {
		t.Parallel()

		// given
		err := releaseerrors.New(releaseerrors.ETagNoVersion, "tagFormat has no version placeholder", "")

		// then
		assert.Equal(t, "ETAGNOVERSION: tagFormat has no version placeholder", err.Error())
		assert.True(t, err.SemanticRelease)
	})

	t.Run("should append the details block when present", func(t *testing.T) {
		t.Parallel()

		// given
		err := releaseerrors.New(releaseerrors.EInvalidBranchName, "bad branch name", "`release//1`")

		// then
		assert.Contains(t, err.Error(), "`release//1`")
	})
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	t.Run("should report Empty for a fresh aggregate", func(t *testing.T) {
		t.Parallel()

		assert.True(t, releaseerrors.NewAggregate().Empty())
	})

	t.Run("should drop nil errors", func(t *testing.T) {
		t.Parallel()

		agg := releaseerrors.NewAggregate(nil, nil)
		assert.True(t, agg.Empty())
	})

	t.Run("should split semantic-release-marked errors from internal ones", func(t *testing.T) {
		t.Parallel()

		// given
		semantic := releaseerrors.New(releaseerrors.EDuplicateBranches, "duplicate branch names", "")
		internal := stderrors.New("boom")
		agg := releaseerrors.NewAggregate(semantic, internal)

		// then
		assert.Len(t, agg.SemanticReleaseErrors(), 1)
		assert.Len(t, agg.InternalErrors(), 1)
		assert.False(t, agg.Empty())
	})

	t.Run("should expose every error via Unwrap for errors.Is/As", func(t *testing.T) {
		t.Parallel()

		// given
		e1 := stderrors.New("one")
		e2 := stderrors.New("two")
		agg := releaseerrors.NewAggregate(e1, e2)

		// then
		assert.True(t, stderrors.Is(agg, e1))
		assert.True(t, stderrors.Is(agg, e2))
	})

	t.Run("should accumulate errors added after construction", func(t *testing.T) {
		t.Parallel()

		// given
		agg := releaseerrors.NewAggregate()
		agg.Add(stderrors.New("first"))
		agg.Add(nil)

		// then
		assert.Len(t, agg.Errors(), 1)
	})
}

func TestIsSemanticRelease(t *testing.T) {
	t.Parallel()

	t.Run("should report true for a *Error value", func(t *testing.T) {
		t.Parallel()

		err := releaseerrors.New(releaseerrors.ENoRepoURL, "no repository URL configured", "")
		assert.True(t, releaseerrors.IsSemanticRelease(err))
	})

	t.Run("should report false for a plain error", func(t *testing.T) {
		t.Parallel()

		assert.False(t, releaseerrors.IsSemanticRelease(stderrors.New("plain")))
	})
}
