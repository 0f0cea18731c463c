package workers_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/membersverify/internal/app/system/fincen"
	"github.com/dalemusser/membersverify/internal/app/system/workers"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (c *countingSource) Token(context.Context) (string, error) {
	c.calls.Add(1)
	return "tok", c.err
}

func TestTokenWarmer_WarmsOnStartAndTicks(t *testing.T) {
	src := &countingSource{}
	w := workers.NewTokenWarmer(src, zap.NewNop(), 10*time.Millisecond)
	w.Start()

	assert.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	w.Stop()

	after := src.calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, after, src.calls.Load(), "no calls after Stop")
	w.Stop()
}

func TestTokenWarmer_KeepsRunningAfterFailures(t *testing.T) {
	src := &countingSource{err: errors.New("token endpoint down")}
	w := workers.NewTokenWarmer(src, zap.NewNop(), 10*time.Millisecond)
	w.Start()
	defer w.Stop()

	assert.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestTokenWarmer_UsesCachedToken(t *testing.T) {
	var fetches atomic.Int32
	tokens := fincen.NewTokenSource(fincen.FetcherFunc(func(ctx context.Context) (*oauth2.Token, error) {
		fetches.Add(1)
		return &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}, nil
	}), zap.NewNop(), nil)

	w := workers.NewTokenWarmer(tokens, zap.NewNop(), 5*time.Millisecond)
	w.Start()
	assert.Eventually(t, func() bool { return tokens.Status().Cached }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	w.Stop()

	assert.Equal(t, int32(1), fetches.Load())
}
