package helm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriticalAddonsOnlyToleration(t *testing.T) {
	t.Parallel()
	tol := CriticalAddonsOnlyToleration()
	assert.Equal(t, "CriticalAddonsOnly", tol["key"])
	assert.Equal(t, "Exists", tol["operator"])
}

func TestWithTolerations(t *testing.T) {
	t.Parallel()
	block := WithTolerations()
	tols, ok := block["tolerations"].([]Values)
	require.True(t, ok)
	require.Len(t, tols, 1)
	assert.Equal(t, "CriticalAddonsOnly", tols[0]["key"])
}

func TestExistingServiceAccount(t *testing.T) {
	t.Parallel()

	t.Run("with role", func(t *testing.T) {
		t.Parallel()
		sa := ExistingServiceAccount("karpenter", "arn:aws:iam::123456789012:role/karpenter")
		assert.Equal(t, false, sa["create"])
		assert.Equal(t, "karpenter", sa["name"])
		assert.Equal(t, Values{RoleARNAnnotation: "arn:aws:iam::123456789012:role/karpenter"}, sa["annotations"])
	})

	t.Run("without role", func(t *testing.T) {
		t.Parallel()
		sa := ExistingServiceAccount("aws-fluent-bit", "")
		assert.NotContains(t, sa, "annotations")
	})
}
