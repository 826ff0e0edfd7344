package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAddTrackedSecondsIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(TrackedSeconds)
	AddTrackedSeconds(-10)
	AddTrackedSeconds(0)
	assert.Equal(t, before, testutil.ToFloat64(TrackedSeconds))

	AddTrackedSeconds(30)
	assert.Equal(t, before+30, testutil.ToFloat64(TrackedSeconds))
}

func TestIncrementProjectMutation(t *testing.T) {
	counter := ProjectMutations.WithLabelValues("progress", "success")
	before := testutil.ToFloat64(counter)
	IncrementProjectMutation("progress", "success")
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
