package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"hospital-ops/internal/domain"
	"hospital-ops/internal/store"
)

// pharmacyToken authenticates against the pharmacy feed.
type pharmacyToken struct {
	AppId     string `json:"appId"`
	SecureKey string `json:"secureKey"`
}

// pharmacyRequest pharmacy API request envelope.
type pharmacyRequest struct {
	Token *pharmacyToken `json:"token"`
	Data  map[string]any `json:"data"`
}

// pharmacyResponse pharmacy API response envelope.
type pharmacyResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// PharmacyClient reads prescriptions from the hospital pharmacy system and
// caches responses in the KV store so the task feed does not hammer the
// pharmacy API on every listing.
type PharmacyClient struct {
	httpClient *resty.Client
	token      *pharmacyToken
	cache      store.KV
	cacheTTL   time.Duration
	logger     *zap.Logger
}

var _ PrescriptionSource = (*PharmacyClient)(nil)

// NewPharmacyClient creates a pharmacy feed client.
func NewPharmacyClient(baseURL, appID, secretKey string, cache store.KV, cacheTTL time.Duration, logger *zap.Logger) *PharmacyClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	token := &pharmacyToken{
		AppId:     appID,
		SecureKey: secretKey,
	}

	return &PharmacyClient{
		httpClient: client,
		token:      token,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// GetPrescription fetches one prescription by id.
func (c *PharmacyClient) GetPrescription(ctx context.Context, tenantID, prescriptionID string) (*domain.Prescription, error) {
	cacheKey := fmt.Sprintf("pharmacy:prescription:%s:%s", tenantID, prescriptionID)
	if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
		var prescription domain.Prescription
		if err := json.Unmarshal([]byte(cached), &prescription); err == nil {
			return &prescription, nil
		}
	} else if !errors.Is(err, store.ErrMiss) {
		c.logger.Warn("Pharmacy cache read failed", zap.Error(err))
	}

	data, err := c.call(ctx, "/pharmacy/getPrescription", map[string]any{
		"tenantId":       tenantID,
		"prescriptionId": prescriptionID,
	})
	if err != nil {
		return nil, err
	}

	var prescription domain.Prescription
	if err := json.Unmarshal(data, &prescription); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prescription: %w", err)
	}
	if prescription.PrescriptionID == "" {
		return nil, fmt.Errorf("prescription %s: %w", prescriptionID, domain.ErrNotFound)
	}

	c.cachePut(ctx, cacheKey, &prescription)
	return &prescription, nil
}

// ListActiveForPatient fetches the patient's active prescriptions.
func (c *PharmacyClient) ListActiveForPatient(ctx context.Context, tenantID, patientID string) ([]*domain.Prescription, error) {
	cacheKey := fmt.Sprintf("pharmacy:patient:%s:%s", tenantID, patientID)
	if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
		var prescriptions []*domain.Prescription
		if err := json.Unmarshal([]byte(cached), &prescriptions); err == nil {
			return prescriptions, nil
		}
	} else if !errors.Is(err, store.ErrMiss) {
		c.logger.Warn("Pharmacy cache read failed", zap.Error(err))
	}

	data, err := c.call(ctx, "/pharmacy/listActivePrescriptions", map[string]any{
		"tenantId":  tenantID,
		"patientId": patientID,
	})
	if err != nil {
		return nil, err
	}

	var prescriptions []*domain.Prescription
	if err := json.Unmarshal(data, &prescriptions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prescriptions: %w", err)
	}

	c.cachePut(ctx, cacheKey, prescriptions)
	return prescriptions, nil
}

func (c *PharmacyClient) call(ctx context.Context, path string, data map[string]any) (json.RawMessage, error) {
	request := pharmacyRequest{
		Token: c.token,
		Data:  data,
	}

	var response pharmacyResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post(path)

	if err != nil {
		c.logger.Error("Pharmacy API call failed",
			zap.Error(err),
			zap.String("path", path),
		)
		return nil, fmt.Errorf("failed to call pharmacy API: %w", err)
	}

	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("pharmacy API HTTP %d", resp.StatusCode())
	}

	if response.Status != 0 {
		c.logger.Error("Pharmacy API returned error",
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return nil, fmt.Errorf("pharmacy API error: %s (status: %d)", response.Msg, response.Status)
	}

	return response.Data, nil
}

func (c *PharmacyClient) cachePut(ctx context.Context, key string, v any) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, string(encoded), c.cacheTTL); err != nil {
		c.logger.Warn("Pharmacy cache write failed", zap.Error(err))
	}
}
