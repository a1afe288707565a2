package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tms-next/internal/config"
	"github.com/tms-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 规划运行所在队列
	CriticalQueue = constants.QueueCritical
	// LowQueue 地理编码等后台补偿任务
	LowQueue = constants.QueueLow
)

// ErrDisabled 队列未启用
var ErrDisabled = errors.New("queue disabled")

// Client 队列客户端封装
type Client struct {
	client             *asynq.Client
	enabled            bool
	defaultQueue       string
	reoptimizeDebounce time.Duration
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig, reoptimizeDebounce time.Duration) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue, reoptimizeDebounce: reoptimizeDebounce}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:             client,
		enabled:            true,
		defaultQueue:       DefaultQueue,
		reoptimizeDebounce: reoptimizeDebounce,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueuePlanningRun 推送路线规划任务，不重试，任务 ID 与进度记录一致
func (c *Client) EnqueuePlanningRun(payload PlanningRunPayload) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	task, err := NewPlanningRunTask(payload)
	if err != nil {
		return err
	}
	options := []asynq.Option{
		asynq.Queue(CriticalQueue),
		asynq.MaxRetry(0),
		asynq.TaskID(payload.TaskID),
		asynq.Timeout(2 * time.Hour),
	}
	_, err = c.client.Enqueue(task, options...)
	return err
}

// ScheduleLoadPlanReoptimize 延迟推送路线重算任务；窗口内已排队的同一计划直接合并，执行时间以首次排队为准
func (c *Client) ScheduleLoadPlanReoptimize(loadPlanID uint) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewLoadPlanReoptimizeTask(LoadPlanReoptimizePayload{LoadPlanID: loadPlanID})
	if err != nil {
		return err
	}
	delay := c.reoptimizeDebounce
	if delay < 0 {
		delay = 0
	}
	options := []asynq.Option{
		asynq.Queue(c.defaultQueue),
		asynq.TaskID(ReoptimizeTaskID(loadPlanID)),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(2),
		asynq.Retention(0),
	}
	_, err = c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// EnqueueDeliveryGeocode 推送配送单地理编码任务
func (c *Client) EnqueueDeliveryGeocode(deliveryID uint) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	task, err := NewDeliveryGeocodeTask(DeliveryGeocodePayload{DeliveryID: deliveryID})
	if err != nil {
		return err
	}
	options := []asynq.Option{
		asynq.Queue(LowQueue),
		asynq.TaskID(GeocodeTaskID(deliveryID)),
		asynq.MaxRetry(3),
	}
	_, err = c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{CriticalQueue: 6, DefaultQueue: 3, LowQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
