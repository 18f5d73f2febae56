package constants

// 项目侧订单状态（订单聚合与行项目共用的状态词汇表）
const (
	OrderStatusNew          = "new"
	OrderStatusInProgress   = "in_progress"
	OrderStatusPending      = "pending"
	OrderStatusPaid         = "paid"
	OrderStatusPaidRefunded = "paid_refunded"
	OrderStatusCancelled    = "cancelled"
	OrderStatusChargedBack  = "charged_back"
	OrderStatusRefunded     = "refunded"
	OrderStatusExpired      = "expired"
	OrderStatusUnknown      = "unknown"
)

// 网关侧支付尝试状态（与项目侧订单状态相互独立的词汇表）
const (
	AttemptStatusNew                  = "NEW"
	AttemptStatusStarted              = "STARTED"
	AttemptStatusAuthorizationRequest = "AUTHORIZATION_REQUESTED"
	AttemptStatusAuthorized           = "AUTHORIZED"
	AttemptStatusPaid                 = "PAID"
	AttemptStatusCanceled             = "CANCELED"
	AttemptStatusChargedBack          = "CHARGED-BACK"
	AttemptStatusRefunded             = "REFUNDED"
	AttemptStatusConfirmedPaid        = "CONFIRMED_PAID"
	AttemptStatusConfirmedChargedback = "CONFIRMED_CHARGEDBACK"
	AttemptStatusClosedSuccess        = "CLOSED_SUCCESS"
	AttemptStatusClosedCanceled       = "CLOSED_CANCELED"
)

// 网关支付方式
const (
	PaymentMethodBankTransfer = "SEPA_BANK_TRANSFER"
	PaymentMethodIdeal        = "IDEAL"
	PaymentMethodVisa         = "VISA"
	PaymentMethodMastercard   = "MASTERCARD"
	PaymentMethodAmex         = "AMEX"
	PaymentMethodPaypal       = "PAYPAL_EXPRESS_CHECKOUT"
)

// 通知到达渠道；同一笔状态更新可能从多个渠道竞态到达
const (
	NotificationChannelReturn   = "return"
	NotificationChannelCallback = "callback"
	NotificationChannelPoll     = "poll"
)

// 收款来源分类的固定记录
const (
	SourceTypeCode = "docdata"
	SourceTypeName = "Docdata Payments"
)

// 队列与任务名称
const (
	QueueDefault            = "default"
	TaskReconcileStatusPoll = "reconcile:status_poll"
	TaskOrderStatusChanged  = "notify:order_status_changed"
)
