package events_test

import (
	"testing"

	"go.uber.org/goleak"
)

// go-redis starts maintenance-notification cleanup loops per client that Close does not stop.
var ignoreRedisLoops = goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/maintnotifications.(*CircuitBreakerManager).cleanupLoop")

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, ignoreRedisLoops)
}
