package recency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRecent_Boundary(t *testing.T) {
	now := time.Date(2025, 11, 8, 14, 45, 0, 0, time.UTC)

	assert.True(t, IsRecent(now.Add(-RecentWindow+time.Nanosecond), now))
	assert.False(t, IsRecent(now.Add(-RecentWindow), now), "exactly the threshold is not recent")
	assert.False(t, IsRecent(now.Add(-RecentWindow-time.Second), now))
	assert.True(t, IsRecent(now.Add(time.Minute), now), "future timestamps count as recent")
}

func TestIsActive_Boundary(t *testing.T) {
	now := time.Date(2025, 11, 8, 14, 45, 0, 0, time.UTC)

	assert.True(t, IsActive(now.Add(-59*time.Minute), now))
	assert.False(t, IsActive(now.Add(-ActiveWindow), now))
	assert.True(t, IsActive(now.Add(-RecentWindow), now), "not recent but still active")
}

func TestWithin_CustomWindow(t *testing.T) {
	now := time.Date(2025, 11, 8, 14, 45, 0, 0, time.UTC)

	assert.True(t, Within(now.Add(-29*time.Minute), now, 30*time.Minute))
	assert.False(t, Within(now.Add(-30*time.Minute), now, 30*time.Minute))
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 11, 8, 14, 45, 0, 0, time.UTC)

	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "Just now"},
		{59 * time.Second, "Just now"},
		{-10 * time.Minute, "Just now"},
		{time.Minute, "1m ago"},
		{59*time.Minute + 59*time.Second, "59m ago"},
		{time.Hour, "1h ago"},
		{23*time.Hour + 59*time.Minute, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{50 * time.Hour, "2d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.elapsed.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, TimeAgo(now.Add(-tt.elapsed), now))
		})
	}
}
