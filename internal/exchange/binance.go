package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/trading-service/internal/config"
	"github.com/krobus00/trading-service/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultBinanceBaseURL        = "https://testnet.binance.vision"
	defaultBinanceRequestTimeout = 10 * time.Second

	binanceOrderPath = "/api/v3/order"
)

type BinanceClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewBinanceClient(cfg config.ExchangeConfig) *BinanceClient {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBinanceBaseURL
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultBinanceRequestTimeout
	}

	return &BinanceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Submit places one signed order. The call is bounded by the client timeout
// and the caller context; a timeout settles as REJECTED, the command does
// not stay in flight.
func (c *BinanceClient) Submit(ctx context.Context, apiKey, apiSecret string, order entity.OrderCommandMessage) ExecutionResult {
	if apiKey == "" || apiSecret == "" {
		return rejected("exchange credentials are missing")
	}

	payload := signedOrderPayload(order, apiSecret, time.Now().UnixMilli())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+binanceOrderPath, strings.NewReader(payload))
	if err != nil {
		return rejected(err.Error())
	}

	req.Header.Set("X-MBX-APIKEY", apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logrus.WithField("order_id", order.OrderID).Errorf("binance order request failed: %v", err)
		return rejected(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return rejected(err.Error())
	}

	var apiResp struct {
		Status string `json:"status"`
		Fills  []struct {
			Price string `json:"price"`
		} `json:"fills"`
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		return rejected(fmt.Sprintf("binance order parse failed: status=%d body=%s", resp.StatusCode, string(body)))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		errMsg := apiResp.Msg
		if errMsg == "" {
			errMsg = fmt.Sprintf("binance order rejected: status=%d", resp.StatusCode)
		}

		logrus.WithFields(logrus.Fields{
			"order_id": order.OrderID,
			"status":   resp.StatusCode,
			"code":     apiResp.Code,
		}).Infof("binance order rejected: %s", errMsg)

		return rejected(errMsg)
	}

	status := mapBinanceOrderStatus(apiResp.Status)
	if status == entity.OrderStatusRejected {
		errMsg := apiResp.Msg
		if errMsg == "" {
			errMsg = fmt.Sprintf("unexpected order status: %s", apiResp.Status)
		}
		return rejected(errMsg)
	}

	fillPrice := order.Price
	if len(apiResp.Fills) > 0 {
		if parsed, err := decimal.NewFromString(apiResp.Fills[0].Price); err == nil {
			fillPrice = &parsed
		}
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.OrderID,
		"symbol":   order.Symbol,
		"side":     order.Side,
		"type":     order.Type,
		"quantity": order.Quantity.String(),
		"status":   status,
	}).Info("order placed")

	return ExecutionResult{Status: status, FillPrice: fillPrice}
}

// signedOrderPayload serializes the parameter set in a fixed order and
// appends the HMAC-SHA256 signature computed over the exact joined string.
// The order is insertion order, not alphabetical: symbol, side, type,
// quantity, timestamp, then price and timeInForce for LIMIT orders. Any
// change here breaks signature compatibility.
func signedOrderPayload(order entity.OrderCommandMessage, apiSecret string, timestampMilli int64) string {
	pairs := []string{
		"symbol=" + order.Symbol,
		"side=" + string(order.Side),
		"type=" + string(order.Type),
		"quantity=" + order.Quantity.String(),
		"timestamp=" + strconv.FormatInt(timestampMilli, 10),
	}

	if order.Type == entity.OrderTypeLimit && order.Price != nil {
		pairs = append(pairs,
			"price="+order.Price.String(),
			"timeInForce=GTC",
		)
	}

	payload := strings.Join(pairs, "&")

	return payload + "&signature=" + hmacSHA256Hex(apiSecret, payload)
}

func mapBinanceOrderStatus(status string) entity.OrderStatus {
	switch status {
	case "FILLED":
		return entity.OrderStatusFilled
	case "PARTIALLY_FILLED":
		return entity.OrderStatusPartiallyFilled
	default:
		return entity.OrderStatusRejected
	}
}

func rejected(errMsg string) ExecutionResult {
	return ExecutionResult{Status: entity.OrderStatusRejected, Error: errMsg}
}

func hmacSHA256Hex(secret, payload string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}
