package docdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("docdata config invalid")
	ErrRequestFailed   = errors.New("docdata request failed")
	ErrResponseInvalid = errors.New("docdata response invalid")
	ErrCreateRejected  = errors.New("docdata create rejected")
	ErrOrderUnknown    = errors.New("docdata order unknown")
)

// 网关限制：账单街道字段最长 32 字符，超长会被网关整单拒绝
const maxStreetLength = 32

// Config Docdata 网关配置
type Config struct {
	BaseURL          string `json:"base_url"`          // API 地址
	MerchantName     string `json:"merchant_name"`     // 商户名
	MerchantPassword string `json:"merchant_password"` // 商户密码
	Profile          string `json:"profile"`           // 支付档案
	PaymentPageURL   string `json:"payment_page_url"`  // 收银台地址
	TimeoutMS        int    `json:"timeout_ms"`        // 请求超时
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.MerchantName) == "" {
		return fmt.Errorf("%w: merchant_name is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.MerchantPassword) == "" {
		return fmt.Errorf("%w: merchant_password is required", ErrConfigInvalid)
	}
	return nil
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.MerchantName = strings.TrimSpace(c.MerchantName)
	c.MerchantPassword = strings.TrimSpace(c.MerchantPassword)
	c.Profile = strings.TrimSpace(c.Profile)
	c.PaymentPageURL = strings.TrimRight(strings.TrimSpace(c.PaymentPageURL), "/")
	if c.Profile == "" {
		c.Profile = "standard"
	}
}

// Client Docdata 网关客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient 创建网关客户端
func NewClient(cfg Config) (*Client, error) {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := 10 * time.Second
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Shopper 购物者信息
type Shopper struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Street    string `json:"street,omitempty"`
	City      string `json:"city,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Language  string `json:"language,omitempty"`
}

// CreateInput 创建支付会话输入
type CreateInput struct {
	MerchantOrderNo string
	TotalGross      string
	Currency        string
	Description     string
	Shopper         Shopper
}

// CreateResult 创建支付会话结果
type CreateResult struct {
	OrderKey string                 // 网关订单标识
	Raw      map[string]interface{} // 原始响应
}

// PaymentReport 单次支付尝试的状态报告
type PaymentReport struct {
	ID              string              `json:"id"`
	Status          string              `json:"status"`
	Method          string              `json:"method"`
	ConfidenceLevel string              `json:"confidence_level"`
	AmountAllocated string              `json:"amount_allocated"`
	AmountDebited   string              `json:"amount_debited"`
	AmountRefunded  string              `json:"amount_refunded"`
	AmountCharged   string              `json:"amount_chargeback"`
	BankTransfer    *BankTransferReport `json:"bank_transfer,omitempty"`
}

// BankTransferReport 银行转账扩展报告
type BankTransferReport struct {
	HolderName    string `json:"holder_name,omitempty"`
	HolderStreet  string `json:"holder_street,omitempty"`
	HolderCity    string `json:"holder_city,omitempty"`
	HolderCountry string `json:"holder_country,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	BIC           string `json:"bic,omitempty"`
}

// StatusReport 订单状态报告；金额均为网关返回的绝对值
type StatusReport struct {
	OrderKey              string          `json:"order_key"`
	MerchantOrderNo       string          `json:"merchant_order_no"`
	Status                string          `json:"status"`
	Currency              string          `json:"currency"`
	TotalGrossAmount      string          `json:"total_gross_amount"`
	TotalRegistered       string          `json:"total_registered"`
	TotalShopperPending   string          `json:"total_shopper_pending"`
	TotalAcquirerPending  string          `json:"total_acquirer_pending"`
	TotalAcquirerApproved string          `json:"total_acquirer_approved"`
	TotalCaptured         string          `json:"total_captured"`
	TotalRefunded         string          `json:"total_refunded"`
	TotalChargedBack      string          `json:"total_chargedback"`
	Payments              []PaymentReport `json:"payments"`
}

// CreateOrder 创建支付会话，返回网关订单标识
func (c *Client) CreateOrder(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if strings.TrimSpace(input.MerchantOrderNo) == "" || strings.TrimSpace(input.TotalGross) == "" {
		return nil, fmt.Errorf("%w: merchant order no and amount are required", ErrConfigInvalid)
	}

	shopper := input.Shopper
	shopper.Street = truncateStreet(shopper.Street)

	params := map[string]interface{}{
		"merchant": map[string]string{
			"name":     c.cfg.MerchantName,
			"password": c.cfg.MerchantPassword,
		},
		"profile":           c.cfg.Profile,
		"merchant_order_no": input.MerchantOrderNo,
		"total_gross":       input.TotalGross,
		"currency":          input.Currency,
		"description":       input.Description,
		"shopper":           shopper,
	}

	respBytes, err := c.postJSON(ctx, c.cfg.BaseURL+"/orders/create", params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		Success  bool   `json:"success"`
		Error    string `json:"error"`
		OrderKey string `json:"order_key"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrCreateRejected, resp.Error)
	}
	if strings.TrimSpace(resp.OrderKey) == "" {
		return nil, fmt.Errorf("%w: empty order key", ErrResponseInvalid)
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)

	return &CreateResult{
		OrderKey: resp.OrderKey,
		Raw:      raw,
	}, nil
}

// StatusRequest 拉取订单的权威状态报告
func (c *Client) StatusRequest(ctx context.Context, orderKey string) (*StatusReport, error) {
	if strings.TrimSpace(orderKey) == "" {
		return nil, fmt.Errorf("%w: order key is required", ErrConfigInvalid)
	}

	params := map[string]interface{}{
		"merchant": map[string]string{
			"name":     c.cfg.MerchantName,
			"password": c.cfg.MerchantPassword,
		},
		"order_key": orderKey,
	}

	respBytes, err := c.postJSON(ctx, c.cfg.BaseURL+"/orders/status", params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		Success bool          `json:"success"`
		Error   string        `json:"error"`
		Report  *StatusReport `json:"report"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !resp.Success {
		if strings.Contains(strings.ToLower(resp.Error), "unknown order") {
			return nil, fmt.Errorf("%w: %s", ErrOrderUnknown, orderKey)
		}
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Error)
	}
	if resp.Report == nil {
		return nil, fmt.Errorf("%w: empty report", ErrResponseInvalid)
	}
	return resp.Report, nil
}

// PaymentPageURL 拼装收银台跳转地址
func (c *Client) PaymentPageURL(orderKey string) string {
	if c.cfg.PaymentPageURL == "" {
		return ""
	}
	return fmt.Sprintf("%s?payment_cluster_key=%s&merchant_name=%s",
		c.cfg.PaymentPageURL,
		url.QueryEscape(orderKey),
		url.QueryEscape(c.cfg.MerchantName),
	)
}

func truncateStreet(street string) string {
	street = strings.TrimSpace(street)
	if len(street) <= maxStreetLength {
		return street
	}
	return street[:maxStreetLength]
}

func (c *Client) postJSON(ctx context.Context, endpoint string, params map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
