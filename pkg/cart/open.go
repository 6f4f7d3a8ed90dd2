package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// OpenOptions selects and configures a cart backend.
type OpenOptions struct {
	// Kind is "memory", "redis" or "sqlite".
	Kind          string
	RedisAddr     string
	RedisPassword string
	DBPath        string
}

// Open builds the backend named by opts.Kind. The returned close func
// releases its connections. The sqlite slot is paired with an in-process bus,
// so only widgets served by the same process are kept in sync.
func Open(ctx context.Context, opts OpenOptions, log *logrus.Entry) (Backend, func() error, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	switch opts.Kind {
	case "", "memory":
		m := NewMemoryBackend()
		return Backend{Slot: m, Bus: m, Log: log}, func() error { return nil }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return Backend{}, nil, fmt.Errorf("connect to redis at %s: %w", opts.RedisAddr, err)
		}
		r := NewRedisBackend(client, log)
		return Backend{Slot: r, Bus: r, Log: log}, client.Close, nil

	case "sqlite":
		slot, err := NewSQLiteSlot(opts.DBPath)
		if err != nil {
			return Backend{}, nil, err
		}
		return Backend{Slot: slot, Bus: NewMemoryBackend(), Log: log}, slot.Close, nil

	default:
		return Backend{}, nil, fmt.Errorf("unknown cart backend %q", opts.Kind)
	}
}
