package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
)

// NewClient initializes a Redis client from a URL and verifies the connection
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// guestCartRepository stores anonymous-session carts as JSON blobs with a TTL.
// Guest carts are throwaway state; losing one on expiry is acceptable.
type guestCartRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewGuestCartRepository creates a new guest cart repository
func NewGuestCartRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *guestCartRepository {
	return &guestCartRepository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *guestCartRepository) key(sessionToken string) string {
	return fmt.Sprintf("cart:guest:%s", sessionToken)
}

func (r *guestCartRepository) Get(ctx context.Context, sessionToken string) (*domain.GuestCart, error) {
	data, err := r.client.Get(ctx, r.key(sessionToken)).Result()
	if err == redis.Nil {
		// No cart for this session
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get guest cart", zap.Error(err))
		return nil, err
	}

	var cart domain.GuestCart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *guestCartRepository) Save(ctx context.Context, cart *domain.GuestCart) error {
	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(cart.SessionToken), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save guest cart", zap.Error(err))
		return err
	}
	return nil
}

func (r *guestCartRepository) Delete(ctx context.Context, sessionToken string) error {
	if err := r.client.Del(ctx, r.key(sessionToken)).Err(); err != nil {
		r.logger.Error("Failed to delete guest cart", zap.Error(err))
		return err
	}
	return nil
}
