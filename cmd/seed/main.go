package main

import (
	"time"

	"github.com/paybridge-next/internal/config"
	"github.com/paybridge-next/internal/constants"
	"github.com/paybridge-next/internal/logger"
	"github.com/paybridge-next/internal/models"

	"github.com/shopspring/decimal"
)

// 演示数据：一个已在网关登记、等待对账的订单聚合。
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 来源类型
	var sourceType models.SourceType
	if err := models.DB.Where("code = ?", constants.SourceTypeCode).First(&sourceType).Error; err != nil {
		sourceType = models.SourceType{
			Code: constants.SourceTypeCode,
			Name: constants.SourceTypeName,
		}
		if err := models.DB.Create(&sourceType).Error; err != nil {
			stdLog.Printf("Failed to create source type: %v", err)
		} else {
			stdLog.Printf("Created source type: %s", sourceType.Code)
		}
	} else {
		stdLog.Printf("Source type already exists: %s", sourceType.Code)
	}

	// 演示订单
	merchantOrderNo := "DEMO-ORD-0001"
	var existing models.PayOrder
	if err := models.DB.Where("merchant_order_no = ?", merchantOrderNo).First(&existing).Error; err == nil {
		stdLog.Printf("Demo order already exists: %s", merchantOrderNo)
		return
	}

	now := time.Now()
	order := models.PayOrder{
		OrderKey:         "DEMO-KEY-0001",
		MerchantOrderNo:  merchantOrderNo,
		Status:           constants.OrderStatusNew,
		Currency:         "EUR",
		Language:         "nl",
		Country:          "NL",
		Description:      "Demo reconciliation order",
		TotalGrossAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(74.95)),
		CreatedAt:        now,
		UpdatedAt:        now,
		Items: []models.OrderItem{
			{
				Title:    "Demo product",
				Quantity: 1,
				Amount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(49.95)),
				Status:   constants.OrderStatusNew,
			},
			{
				Title:    "Demo add-on",
				Quantity: 1,
				Amount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(25.00)),
				Status:   constants.OrderStatusNew,
			},
		},
	}
	if err := models.DB.Create(&order).Error; err != nil {
		stdLog.Fatalf("Failed to create demo order: %v", err)
	}
	stdLog.Printf("Created demo order: %s (order_key=%s)", order.MerchantOrderNo, order.OrderKey)
}
