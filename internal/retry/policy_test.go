package retry

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type statusErr struct{ status int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.status) }
func (e statusErr) StatusCode() int { return e.status }

func TestShouldRetry(t *testing.T) {
	p := Default()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not retried", nil, false},
		{"network fault without response is retried", errors.New("connection refused"), true},
		{"408 request timeout is retried", statusErr{408}, true},
		{"429 too many requests is retried", statusErr{429}, true},
		{"503 service unavailable is retried", statusErr{503}, true},
		{"wrapped 502 is retried", fmt.Errorf("fetch: %w", statusErr{502}), true},
		{"401 unauthorized is not retried", statusErr{401}, false},
		{"403 forbidden is not retried", statusErr{403}, false},
		{"404 not found is not retried", statusErr{404}, false},
		{"422 validation failure is not retried", statusErr{422}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldRetry(tt.err))
		})
	}
}

func TestBackoffMonotonicAndCapped(t *testing.T) {
	p := Default()

	prev := time.Duration(0)
	for attempt := 0; attempt <= 20; attempt++ {
		d := p.backoff(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, maxDelay, "attempt %d", attempt)
		prev = d
	}
	assert.Equal(t, time.Second, p.backoff(0))
	assert.Equal(t, 2*time.Second, p.backoff(1))
	assert.Equal(t, 4*time.Second, p.backoff(2))
	assert.Equal(t, maxDelay, p.backoff(10))
}

func TestDelayJitterBounds(t *testing.T) {
	p := Default()

	for i := 0; i < 50; i++ {
		d := p.Delay(2)
		assert.GreaterOrEqual(t, d, 4*time.Second)
		assert.Less(t, d, 4*time.Second+maxJitter)
	}
}

func TestNegativeAttemptTreatedAsFirst(t *testing.T) {
	p := Default()
	assert.Equal(t, p.backoff(0), p.backoff(-3))
}
