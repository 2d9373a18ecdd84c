package camunda

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobKey(t *testing.T) {
	_, ok := JobKey(context.Background())
	assert.False(t, ok)

	key, ok := JobKey(WithJobKey(context.Background(), 2251799813685249))
	assert.True(t, ok)
	assert.Equal(t, int64(2251799813685249), key)
}
