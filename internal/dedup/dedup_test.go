package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryDeduperAcquiresOncePerTTL(t *testing.T) {
	d := NewMemoryDeduper(time.Hour)
	current := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return current }

	ctx := context.Background()
	assert.True(t, d.AcquireOnce(ctx, "p1:2026-03-10"))
	assert.False(t, d.AcquireOnce(ctx, "p1:2026-03-10"))
	assert.True(t, d.AcquireOnce(ctx, "p2:2026-03-10"))

	current = current.Add(time.Hour)
	assert.True(t, d.AcquireOnce(ctx, "p1:2026-03-10"))
}

func TestMemoryDeduperReleaseAllowsRetry(t *testing.T) {
	d := NewMemoryDeduper(time.Hour)
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "p1:2026-03-10"))
	d.Release(ctx, "p1:2026-03-10")
	assert.True(t, d.AcquireOnce(ctx, "p1:2026-03-10"))
	assert.False(t, d.AcquireOnce(ctx, "p1:2026-03-10"))

	d.Release(ctx, "never-acquired")
}
