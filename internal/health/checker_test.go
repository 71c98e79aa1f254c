package health

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	telebot "gopkg.in/telebot.v3"
)

func TestChecker_Check(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewChecker(nil)
	c.AddCheck("redis", NewRedisChecker(client))
	c.AddCheck("postgres", CheckFunc(func(context.Context) error { return errors.New("connection refused") }))
	c.AddCheck("telegram", NewTelegramChecker(&telebot.Bot{Me: &telebot.User{ID: 42}}))
	c.AddCheck("ignored", nil)

	results := c.Check(context.Background())

	assert.Equal(t, map[string]string{
		"redis":    "OK",
		"postgres": "connection refused",
		"telegram": "OK",
	}, results)
}

func TestChecker_TimesOutSlowChecks(t *testing.T) {
	c := NewChecker(nil)
	c.timeout = 20 * time.Millisecond
	c.AddCheck("slow", CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	results := c.Check(context.Background())
	assert.Equal(t, context.DeadlineExceeded.Error(), results["slow"])
}

func TestTelegramChecker_Uninitialized(t *testing.T) {
	assert.Error(t, NewTelegramChecker(nil).HealthCheck(context.Background()))
	assert.Error(t, NewTelegramChecker(&telebot.Bot{}).HealthCheck(context.Background()))
}
