package worker

import (
	"context"
	"errors"
	"time"

	"github.com/tms-next/internal/config"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	geocodeSweepInterval = 10 * time.Minute
	geocodeSweepLimit    = 200
)

// Service 异步队列服务
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: geocodeSweepInterval,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.geocode != nil {
		go s.runGeocodeSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runGeocodeSweepLoop 定期为缺少坐标的待处理配送单补发地理编码任务
func (s *Service) runGeocodeSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.geocode == nil {
		return
	}
	runOnce := func() {
		queued, err := s.consumer.geocode.SweepMissingCoordinates(ctx, geocodeSweepLimit)
		if err != nil {
			logger.Warnw("worker_geocode_sweep_failed", "error", err)
			return
		}
		if queued > 0 {
			logger.Infow("worker_geocode_sweep_queued", "count", queued)
		}
	}
	runOnce()

	interval := s.sweepInterval
	if interval <= 0 {
		interval = geocodeSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
