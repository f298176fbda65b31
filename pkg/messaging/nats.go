// pkg/messaging/nats.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"StickerRadar/pkg/model"
)

const (
	alertsStream  = "ALERTS_STREAM"
	alertsSubject = "alerts.price"
)

// NATSClient NATS JetStream客户端
// 监控进程把已触发的提醒发布到ALERTS_STREAM，API进程消费后写入历史
type NATSClient struct {
	conn      *nats.Conn
	jetStream jetstream.JetStream
	ctx       context.Context
	cancel    context.CancelFunc
}

// AlertHandler 提醒事件处理函数
type AlertHandler func(alert model.PriceAlert) error

// NewNATSClient 创建新的NATS客户端
func NewNATSClient(natsURL, clientID string) (*NATSClient, error) {
	// 连接NATS
	nc, err := nats.Connect(natsURL,
		nats.Name(clientID),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // 无限重连
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS连接断开: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Println("NATS重新连接成功")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("连接NATS失败: %w", err)
	}

	// 创建JetStream上下文
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("创建JetStream失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	client := &NATSClient{
		conn:      nc,
		jetStream: js,
		ctx:       ctx,
		cancel:    cancel,
	}

	// 初始化提醒事件流
	if err := client.setupStream(); err != nil {
		log.Printf("警告: 设置Stream失败: %v", err)
	}

	return client, nil
}

// setupStream 设置提醒事件流
func (c *NATSClient) setupStream() error {
	streamConfig := jetstream.StreamConfig{
		Name:        alertsStream,
		Subjects:    []string{"alerts.*"},
		Description: "价格提醒事件流",
		Retention:   jetstream.LimitsPolicy,
		MaxMsgs:     50000,
		MaxBytes:    50 * 1024 * 1024,   // 50MB
		MaxAge:      7 * 24 * time.Hour, // 保留7天
	}

	_, err := c.jetStream.CreateOrUpdateStream(c.ctx, streamConfig)
	if err != nil {
		return fmt.Errorf("创建/更新Stream %s 失败: %w", alertsStream, err)
	}

	log.Printf("Stream %s 设置成功", alertsStream)
	return nil
}

// PublishAlert 发布提醒事件
func (c *NATSClient) PublishAlert(alert model.PriceAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("序列化提醒事件失败: %w", err)
	}

	if _, err := c.jetStream.Publish(c.ctx, alertsSubject, payload); err != nil {
		return fmt.Errorf("发布消息到 %s 失败: %w", alertsSubject, err)
	}

	return nil
}

// SubscribeAlerts 订阅提醒事件
func (c *NATSClient) SubscribeAlerts(consumerName string, handler AlertHandler) error {
	consumerConfig := jetstream.ConsumerConfig{
		Name:          consumerName,
		Description:   fmt.Sprintf("%s 消费者", consumerName),
		FilterSubject: alertsSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := c.jetStream.CreateOrUpdateConsumer(c.ctx, alertsStream, consumerConfig)
	if err != nil {
		return fmt.Errorf("创建消费者 %s 失败: %w", consumerName, err)
	}

	go c.consumeAlerts(consumer, consumerName, handler)

	log.Printf("已订阅 %s (Stream: %s, Consumer: %s)", alertsSubject, alertsStream, consumerName)
	return nil
}

// consumeAlerts 消费提醒事件
func (c *NATSClient) consumeAlerts(consumer jetstream.Consumer, consumerName string, handler AlertHandler) {
	iter, err := consumer.Messages(jetstream.PullMaxMessages(10))
	if err != nil {
		log.Printf("获取 %s 消息迭代器失败: %v", consumerName, err)
		return
	}
	defer iter.Stop()

	for {
		select {
		case <-c.ctx.Done():
			log.Printf("消费者 %s 收到停止信号", consumerName)
			return
		default:
			msg, err := iter.Next()
			if err != nil {
				if err == jetstream.ErrNoMessages {
					continue
				}
				log.Printf("获取 %s 消息失败: %v", consumerName, err)
				time.Sleep(1 * time.Second)
				continue
			}

			var alert model.PriceAlert
			if err := json.Unmarshal(msg.Data(), &alert); err != nil {
				log.Printf("解析提醒事件失败: %v", err)
				msg.Nak()
				continue
			}

			if err := handler(alert); err != nil {
				log.Printf("消费者 %s 处理消息失败: %v", consumerName, err)
				msg.Nak()
			} else {
				msg.Ack()
			}
		}
	}
}

// IsConnected 检查连接状态
func (c *NATSClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close 关闭连接
func (c *NATSClient) Close() error {
	log.Println("正在关闭NATS连接...")

	c.cancel()

	// 等待消费者退出
	time.Sleep(1 * time.Second)

	if c.conn != nil {
		c.conn.Close()
	}

	log.Println("NATS连接已关闭")
	return nil
}
