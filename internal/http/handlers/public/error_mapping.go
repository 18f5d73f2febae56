package public

import (
	"errors"

	"github.com/paybridge-next/internal/http/response"
	"github.com/paybridge-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var sessionCreateErrorRules = []mappedHandlerError{
	{target: service.ErrSessionInvalid, code: response.CodeBadRequest, key: "error.session_invalid"},
	{target: service.ErrSessionExists, code: response.CodeBadRequest, key: "error.session_exists"},
	{target: service.ErrSessionCreateFailed, code: response.CodeInternal, key: "error.session_create_failed"},
	{target: service.ErrSourceTypeResolve, code: response.CodeInternal, key: "error.source_type_resolve_failed"},
	{target: service.ErrOrderFetchFailed, code: response.CodeInternal, key: "error.order_fetch_failed"},
}

var orderStatusErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderFetchFailed, code: response.CodeInternal, key: "error.order_fetch_failed"},
}

var paymentReturnErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrReportInvalid, code: response.CodeInternal, key: "error.report_invalid"},
	{target: service.ErrLedgerIntegrity, code: response.CodeInternal, key: "error.ledger_integrity"},
	{target: service.ErrOrderFetchFailed, code: response.CodeInternal, key: "error.order_fetch_failed"},
	{target: service.ErrOrderUpdateFailed, code: response.CodeInternal, key: "error.order_update_failed"},
}

func respondSessionCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, sessionCreateErrorRules, response.CodeInternal, "error.session_create_failed")
}

func respondOrderStatusError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderStatusErrorRules, response.CodeInternal, "error.order_fetch_failed")
}

func respondPaymentReturnError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentReturnErrorRules, response.CodeInternal, "error.reconcile_failed")
}
