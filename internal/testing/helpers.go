package testing

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// TestContext returns a context with a reasonable timeout for tests. Log
// output of code under test is routed to t.Log.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return log.IntoContext(ctx, testr.NewWithOptions(t, testr.Options{Verbosity: 1}))
}

// QuietContext is TestContext without logging, for tests whose goroutines
// may outlive the test body.
func QuietContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
