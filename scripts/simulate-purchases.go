package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Load driver for the ticketing API: fires concurrent reservations at one
// tier and optionally confirms a fraction of them through forged webhook
// deliveries signed with the local Paystack secret. Useful for watching the
// stock decrement behave under contention.

var (
	baseURL     = flag.String("url", "http://localhost:8080", "Service base URL")
	tierID      = flag.String("tier", "", "Ticket tier ID (required)")
	numBuyers   = flag.Int("buyers", 200, "Number of buyers to simulate")
	concurrency = flag.Int("concurrency", 20, "Concurrent reservation requests")
	confirmRate = flag.Float64("confirm-rate", 0.7, "Fraction of reservations to confirm via webhook (0.0-1.0)")
	replayRate  = flag.Float64("replay-rate", 0.2, "Fraction of confirmed references to redeliver (0.0-1.0)")
	secret      = flag.String("secret", "", "Paystack secret key for signing webhook payloads")
	maxQuantity = flag.Int("max-quantity", 4, "Maximum units per reservation")
)

type reserveRequest struct {
	TierID     string `json:"tier_id"`
	Quantity   int    `json:"quantity"`
	BuyerEmail string `json:"buyer_email"`
	BuyerName  string `json:"buyer_name"`
}

type reserveResponse struct {
	IntentID         string `json:"intent_id"`
	GatewayReference string `json:"gateway_reference"`
	PaymentURL       string `json:"payment_url"`
}

func main() {
	flag.Parse()

	if *tierID == "" {
		fmt.Println("Error: --tier flag is required")
		flag.Usage()
		os.Exit(1)
	}

	client := &http.Client{Timeout: 15 * time.Second}

	fmt.Printf("🚀 Reserving for %d buyers against tier %s (%d concurrent)...\n", *numBuyers, *tierID, *concurrency)
	start := time.Now()

	references := reserveAll(client)

	elapsed := time.Since(start)
	fmt.Printf("⏱️  %d reservations succeeded in %v (%.0f req/sec)\n",
		len(references), elapsed, float64(len(references))/elapsed.Seconds())

	if *secret == "" {
		fmt.Println("\n💡 Tip: pass --secret to confirm reservations through signed webhook deliveries")
		return
	}

	confirmed := confirmFraction(client, references)
	fmt.Printf("✅ %d references confirmed via webhook\n", len(confirmed))

	replayed := 0
	for _, ref := range confirmed {
		if rand.Float64() < *replayRate {
			if deliverWebhook(client, ref) {
				replayed++
			}
		}
	}
	fmt.Printf("🔁 %d webhook deliveries replayed (expect identical outcomes)\n", replayed)
}

func reserveAll(client *http.Client) []string {
	var mu sync.Mutex
	var references []string
	var failures int64

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				ref, ok := reserveOne(client, i)
				if !ok {
					atomic.AddInt64(&failures, 1)
					continue
				}
				mu.Lock()
				references = append(references, ref)
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < *numBuyers; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if failures > 0 {
		fmt.Printf("⚠️  %d reservations rejected (likely sold out)\n", failures)
	}

	return references
}

func reserveOne(client *http.Client, i int) (string, bool) {
	body, _ := json.Marshal(reserveRequest{
		TierID:     *tierID,
		Quantity:   1 + rand.Intn(*maxQuantity),
		BuyerEmail: fmt.Sprintf("load-buyer-%d@example.com", i+1),
		BuyerName:  fmt.Sprintf("Load Buyer %d", i+1),
	})

	req, err := http.NewRequest(http.MethodPost, *baseURL+"/api/purchases", bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", fmt.Sprintf("load-buyer-%d", i+1))

	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", false
	}

	var parsed reserveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false
	}

	return parsed.GatewayReference, true
}

func confirmFraction(client *http.Client, references []string) []string {
	var confirmed []string
	for _, ref := range references {
		if rand.Float64() >= *confirmRate {
			continue
		}
		if deliverWebhook(client, ref) {
			confirmed = append(confirmed, ref)
		}
	}
	return confirmed
}

func deliverWebhook(client *http.Client, reference string) bool {
	payload, _ := json.Marshal(map[string]any{
		"event": "charge.success",
		"data": map[string]any{
			"reference": reference,
			"paid_at":   time.Now().UTC().Format(time.RFC3339),
		},
	})

	mac := hmac.New(sha512.New, []byte(*secret))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest(http.MethodPost, *baseURL+"/api/purchases/paystack-webhook", bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Paystack-Signature", signature)

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
