// Package kafka consumes render requests from a Kafka topic with a sarama consumer group.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ByLCY/versereel/pipeline"
)

// Handler 处理一条渲染请求。返回非 ErrPermanent 的错误时消息不会被标记，会话结束后重新投递。
type Handler func(ctx context.Context, req pipeline.Request) error

// Config holds the consumer group settings.
type Config struct {
	Brokers    []string
	Topic      string
	GroupID    string
	RetryDelay time.Duration // 暂时性失败后重新加入消费组前的等待，默认 5s
}

// Consumer wraps a sarama consumer group.
type Consumer struct {
	group      sarama.ConsumerGroup
	handler    *groupHandler
	topic      string
	retryDelay time.Duration
	log        *zap.Logger
}

// NewConsumer connects to the brokers; messages are handed to h one at a time per partition.
func NewConsumer(cfg Config, h Handler, log *zap.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka 配置不完整: brokers=%v topic=%q group=%q", cfg.Brokers, cfg.Topic, cfg.GroupID)
	}
	if log == nil {
		log = zap.NewNop()
	}
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_6_0_0
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("创建 consumer group 失败: %w", err)
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &Consumer{
		group:      group,
		handler:    &groupHandler{handle: h, log: log},
		topic:      cfg.Topic,
		retryDelay: cfg.RetryDelay,
		log:        log.With(zap.String("topic", cfg.Topic), zap.String("group", cfg.GroupID)),
	}, nil
}

// Run consumes until ctx is cancelled; rebalances re-enter Consume.
func (c *Consumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.log.Error("kafka consumer error", zap.Error(err))
		}
	}()
	c.log.Info("kafka consumer started")
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("kafka consume failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil
		}
		// 会话因暂时性失败结束时稍等再重新加入，未标记的消息会被重新投递
		if c.handler.failed.Swap(false) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
		}
	}
}

func (c *Consumer) Close() error { return c.group.Close() }

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	handle Handler
	failed atomic.Bool // 有分区因暂时性失败停止
	log    *zap.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim 顺序处理一个分区。暂时性失败时停止本次会话且不标记该消息，
// 重新加入消费组后从最后提交的位移继续，失败消息之后的消息也不会被提前提交。
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok || msg == nil {
				return nil
			}
			if err := h.process(session.Context(), msg); err != nil {
				h.failed.Store(true)
				return fmt.Errorf("分区 %d 位移 %d 暂停消费: %w", msg.Partition, msg.Offset, err)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// process returns an error only for transient failures; such a message must not be marked.
func (h *groupHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	log := h.log.With(zap.Int32("partition", msg.Partition), zap.Int64("offset", msg.Offset))
	req, err := Decode(msg.Value)
	if err != nil {
		// 无法解析或不安全的消息直接跳过
		log.Warn("skipping rejected render request", zap.Error(err))
		return nil
	}
	if err := h.handle(ctx, req); err != nil {
		if errors.Is(err, ErrPermanent) {
			log.Error("render request failed permanently", zap.String("id", req.ID), zap.Error(err))
			return nil
		}
		log.Error("render request failed, will retry", zap.String("id", req.ID), zap.Error(err))
		return err
	}
	return nil
}

// ErrPermanent marks handler errors that retrying cannot fix; such messages are still marked.
var ErrPermanent = errors.New("permanent failure")

// Decode parses and validates one message payload.
func Decode(data []byte) (pipeline.Request, error) {
	var req pipeline.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("解析消息失败: %w", err)
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	if err := req.CheckRemote(); err != nil {
		return req, err
	}
	return req, nil
}
