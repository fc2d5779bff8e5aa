package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"agentchain/internal/models"

	"github.com/redis/go-redis/v9"
)

// Publisher 在事务提交后推送通知，失败不影响请求
type Publisher interface {
	Publish(n *models.Notification)
}

type NopPublisher struct{}

func (NopPublisher) Publish(*models.Notification) {}

// NotificationChannel 每个 agent 一个 redis 频道
func NotificationChannel(agentID string) string {
	return "agentchain:notifications:" + agentID
}

// redisPublisherClient 是 *redis.Client 用到的方法子集
type redisPublisherClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher 通过 redis pub/sub 异步推送通知
type RedisPublisher struct {
	rdb     redisPublisherClient
	queue   chan *models.Notification // 待推送队列
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.RWMutex // 保护 closed 和向 queue 发送
	closed bool
}

func NewRedisPublisher(rdb redisPublisherClient) *RedisPublisher {
	p := &RedisPublisher{
		rdb:     rdb,
		queue:   make(chan *models.Notification, 1000), // 缓冲队列，防止阻塞
		timeout: 3 * time.Second,
	}
	p.wg.Add(1)
	go p.worker()
	return p
}

// Publish 非阻塞入队，队列满时丢弃
func (p *RedisPublisher) Publish(n *models.Notification) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		slog.Warn("publisher closed, dropping notification",
			slog.String("module", "publisher"),
			slog.String("notification_id", n.ID),
		)
		return
	}

	select {
	case p.queue <- n:
	default:
		slog.Warn("notification queue full, dropping",
			slog.String("module", "publisher"),
			slog.String("notification_id", n.ID),
		)
	}
}

func (p *RedisPublisher) worker() {
	defer p.wg.Done()
	for n := range p.queue {
		p.send(n)
	}
}

func (p *RedisPublisher) send(n *models.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		slog.Error("failed to marshal notification",
			slog.String("module", "publisher"),
			slog.String("error", err.Error()),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, NotificationChannel(n.AgentID), payload).Err(); err != nil {
		slog.Warn("failed to publish notification",
			slog.String("module", "publisher"),
			slog.String("notification_id", n.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Close 停止接收并等待队列清空，之后的 Publish 直接丢弃
func (p *RedisPublisher) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
	})
}
