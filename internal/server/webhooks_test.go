package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	billingdomain "github.com/akadahq/akada/internal/billing/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeBillingService struct {
	receiveErr  error
	gotBody     []byte
	gotSig      string
	gotInitiate billingdomain.InitiateRequest
	gotVerify   string
}

func (f *fakeBillingService) Initiate(ctx context.Context, req billingdomain.InitiateRequest) (*billingdomain.InitiateResponse, error) {
	f.gotInitiate = req
	return &billingdomain.InitiateResponse{}, nil
}

func (f *fakeBillingService) VerifyByPull(ctx context.Context, reference string) (*billingdomain.VerifyResult, error) {
	f.gotVerify = reference
	return &billingdomain.VerifyResult{}, nil
}

func (f *fakeBillingService) ReceiveWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error {
	f.gotBody = rawBody
	f.gotSig = signatureHeader
	return f.receiveErr
}

func newWebhookRig(billingSvc billingdomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	srv := &Server{engine: engine, billingSvc: billingSvc}
	srv.registerWebhookRoutes()
	return engine
}

func TestReceiveGatewayWebhook_Accepted(t *testing.T) {
	fake := &fakeBillingService{}
	engine := newWebhookRig(fake)

	req := httptest.NewRequest(http.MethodPost, "/v1/billing/webhook", bytes.NewBufferString(`{"event":"charge.success"}`))
	req.Header.Set("X-Gateway-Signature", "abc123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, `{"event":"charge.success"}`, string(fake.gotBody))
	assert.Equal(t, "abc123", fake.gotSig)
}

func TestReceiveGatewayWebhook_BadSignature(t *testing.T) {
	fake := &fakeBillingService{receiveErr: billingdomain.ErrSignatureMismatch}
	engine := newWebhookRig(fake)

	req := httptest.NewRequest(http.MethodPost, "/v1/billing/webhook", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestReceiveGatewayWebhook_StorageFailure(t *testing.T) {
	fake := &fakeBillingService{receiveErr: fmt.Errorf("db locked")}
	engine := newWebhookRig(fake)

	req := httptest.NewRequest(http.MethodPost, "/v1/billing/webhook", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
