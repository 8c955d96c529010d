package service

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/monitoring"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// PaymentGateway 课程付费网关，生产环境为 Paystack
type PaymentGateway interface {
	Initialize(ctx context.Context, req PaymentInitRequest) (*PaymentInitResult, error)
	Verify(ctx context.Context, reference string) (*PaymentVerification, error)
}

type PaymentMetadata struct {
	CourseID     string `json:"courseId"`
	UserID       uint   `json:"userId"`
	CourseName   string `json:"courseName"`
	InstructorID uint   `json:"instructorId"`
	Type         string `json:"type"`
}

type PaymentInitRequest struct {
	Email    string
	Amount   int // 最小货币单位
	Metadata PaymentMetadata
}

type PaymentInitResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type PaymentVerification struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int             `json:"amount"`
	Currency  string          `json:"currency"`
	Metadata  PaymentMetadata `json:"metadata"`
}

func (v *PaymentVerification) Succeeded() bool {
	return v.Status == "success"
}

type paystackEnvelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type PaystackClient struct {
	client      *resty.Client
	callbackURL string
	currency    string
}

func NewPaystackClient(cfg *config.PaymentConfig) *PaystackClient {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &PaystackClient{client: client, callbackURL: cfg.CallbackURL, currency: cfg.Currency}
}

func (p *PaystackClient) Initialize(ctx context.Context, req PaymentInitRequest) (*PaymentInitResult, error) {
	body := map[string]interface{}{
		"email":    req.Email,
		"amount":   req.Amount,
		"metadata": req.Metadata,
	}
	if p.currency != "" {
		body["currency"] = p.currency
	}
	if p.callbackURL != "" {
		body["callback_url"] = p.callbackURL
	}

	var out paystackEnvelope[PaymentInitResult]
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/transaction/initialize")
	if err != nil {
		monitoring.PaymentRequests.WithLabelValues("initialize", "error").Inc()
		return nil, util.NewUpstream(err, "Failed to initialize payment")
	}
	if resp.IsError() || !out.Status {
		monitoring.PaymentRequests.WithLabelValues("initialize", "rejected").Inc()
		logger.L().Warn("paystack initialize rejected",
			zap.Int("status", resp.StatusCode()),
			zap.String("message", out.Message),
		)
		return nil, util.NewUpstream(fmt.Errorf("paystack: %s", out.Message), "Failed to initialize payment")
	}

	monitoring.PaymentRequests.WithLabelValues("initialize", "ok").Inc()
	return &out.Data, nil
}

func (p *PaystackClient) Verify(ctx context.Context, reference string) (*PaymentVerification, error) {
	var out paystackEnvelope[PaymentVerification]
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&out).
		Get("/transaction/verify/" + url.PathEscape(reference))
	if err != nil {
		monitoring.PaymentRequests.WithLabelValues("verify", "error").Inc()
		return nil, util.NewUpstream(err, "Failed to verify payment")
	}
	if resp.IsError() || !out.Status {
		monitoring.PaymentRequests.WithLabelValues("verify", "rejected").Inc()
		logger.L().Warn("paystack verify rejected",
			zap.String("reference", reference),
			zap.Int("status", resp.StatusCode()),
			zap.String("message", out.Message),
		)
		return nil, util.NewUpstream(fmt.Errorf("paystack: %s", out.Message), "Failed to verify payment")
	}

	monitoring.PaymentRequests.WithLabelValues("verify", "ok").Inc()
	return &out.Data, nil
}
