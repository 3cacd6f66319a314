package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 压测: 同一笔支付的回调被并发重复投递，最终只应推进一次订单状态
var (
	baseURL       = flag.String("url", "http://localhost:8080", "server base URL")
	externalID    = flag.String("external-id", "", "client_external_id of an existing pending order")
	callbackToken = flag.String("token", "", "x-callback-token")
	total         = flag.Int("n", 1000, "concurrent deliveries")
	sameID        = flag.Bool("same-webhook-id", true, "reuse one webhook-id for every delivery")

	httpClient *http.Client
)

func init() {
	// 优化 HTTP Client 配置
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxIdleConnsPerHost = 2000
	t.MaxConnsPerHost = 2000
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

type result struct {
	Duplicate bool   `json:"duplicate"`
	Applied   bool   `json:"applied"`
	Changed   bool   `json:"changed"`
	Reason    string `json:"reason"`
}

func main() {
	flag.Parse()
	if *externalID == "" {
		fmt.Println("-external-id is required")
		return
	}

	body := invoicePaidPayload(*externalID)
	webhookID := uuid.NewString()

	fmt.Printf("开始压测：并发投递 %d 次回调 (external_id: %s)...\n", *total, *externalID)

	var (
		wg                                  sync.WaitGroup
		mu                                  sync.Mutex
		changed, applied, duplicate, failed int
	)

	start := time.Now()
	for i := 0; i < *total; i++ {
		id := webhookID
		if !*sameID {
			id = uuid.NewString()
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r, err := deliver(id, body)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
			case r.Duplicate:
				duplicate++
			case r.Changed:
				changed++
			case r.Applied:
				applied++
			}
		}(id)
	}

	wg.Wait()
	duration := time.Since(start)
	qps := float64(*total) / duration.Seconds()

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", duration)
	fmt.Printf("总请求数: %d\n", *total)
	fmt.Printf("QPS: %.2f\n", qps)
	fmt.Printf("状态变更: %d (预期: 1)\n", changed)
	fmt.Printf("已处理未变更: %d\n", applied)
	fmt.Printf("重复回调: %d\n", duplicate)
	fmt.Printf("请求失败: %d\n", failed)
	fmt.Println("--------------------------------------------------")
}

// invoicePaidPayload 旧版 invoice 回调格式
func invoicePaidPayload(externalID string) []byte {
	payload := map[string]interface{}{
		"id":              "stress_" + externalID,
		"external_id":     externalID,
		"status":          "PAID",
		"amount":          100000,
		"currency":        "IDR",
		"payment_method":  "QR_CODE",
		"payment_channel": "QRIS",
		"paid_at":         time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	return body
}

func deliver(webhookID string, body []byte) (*result, error) {
	req, err := http.NewRequest(http.MethodPost, *baseURL+"/api/xendit/webhook", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-callback-token", *callbackToken)
	req.Header.Set("webhook-id", webhookID)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
	}

	var r result
	if err := json.Unmarshal(respBody, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
