package provider

import (
	"time"

	"github.com/paybridge-next/internal/cache"
	"github.com/paybridge-next/internal/config"
	"github.com/paybridge-next/internal/logger"
	"github.com/paybridge-next/internal/models"
	"github.com/paybridge-next/internal/payment/docdata"
	"github.com/paybridge-next/internal/queue"
	"github.com/paybridge-next/internal/repository"
	"github.com/paybridge-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Gateway     *docdata.Client

	// Repositories
	OrderRepo      repository.OrderRepository
	AttemptRepo    repository.PaymentAttemptRepository
	SourceTypeRepo repository.SourceTypeRepository

	// Services
	SourceTypeService *service.SourceTypeService
	SessionService    *service.SessionService
	ReconcileService  *service.ReconcileService
	Notifier          service.StatusNotifier
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	// 初始化网关客户端
	gateway, err := docdata.NewClient(docdata.Config{
		BaseURL:          cfg.Gateway.BaseURL,
		MerchantName:     cfg.Gateway.MerchantName,
		MerchantPassword: cfg.Gateway.MerchantPassword,
		Profile:          cfg.Gateway.Profile,
		PaymentPageURL:   cfg.Gateway.PaymentPageURL,
		TimeoutMS:        cfg.Gateway.TimeoutMS,
	})
	if err != nil {
		logger.Errorw("provider_init_gateway_failed", "error", err)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Gateway:     gateway,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.OrderRepo = repository.NewOrderRepository(db)
	c.AttemptRepo = repository.NewPaymentAttemptRepository(db)
	c.SourceTypeRepo = repository.NewSourceTypeRepository(db)
}

func (c *Container) initServices() {
	c.SourceTypeService = service.NewSourceTypeService(c.SourceTypeRepo)
	c.Notifier = service.NewQueueStatusNotifier(c.QueueClient)
	c.SessionService = service.NewSessionService(c.OrderRepo, c.Gateway, c.SourceTypeService)

	statusMap := service.NewStatusMap(c.Config.Reconcile.StatusMapping, c.Config.Reconcile.Cascade)
	c.ReconcileService = service.NewReconcileService(
		c.OrderRepo,
		c.AttemptRepo,
		c.Gateway,
		c.Notifier,
		statusMap,
		service.ReconcileOptions{
			RoundingTolerance: c.Config.Reconcile.RoundingTolerance,
			OutcomeCacheTTL:   time.Duration(c.Config.Reconcile.OutcomeCacheTTLSeconds) * time.Second,
		},
	)
}
