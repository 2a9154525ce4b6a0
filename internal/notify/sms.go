// Copyright (c) 2026 Essenzia. All rights reserved.

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// smsEndpoint is the vendor's bulk send endpoint.
const smsEndpoint = "https://www.fast2sms.com/dev/bulkV2"

// SMSClient sends one-time codes through the SMS vendor's HTTP API.
type SMSClient struct {
	apiKey string
	sender string
	client *http.Client
}

// smsResponse is the subset of the vendor response we inspect.
type smsResponse struct {
	Return  bool   `json:"return"`
	Message string `json:"message"`
}

// NewSMSClient constructs a client with the vendor API key and sender ID.
func NewSMSClient(apiKey, sender string) *SMSClient {
	return &SMSClient{
		apiKey: apiKey,
		sender: sender,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendCode sends a one-time code to the mobile number.
func (client *SMSClient) SendCode(ctx context.Context, mobile, code string) error {
	form := url.Values{
		"route":     {"v3"},
		"sender_id": {client.sender},
		"message":   {fmt.Sprintf("Your Essenzia verification code is %s", code)},
		"numbers":   {mobile},
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, smsEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: failed to build SMS request: %w", err)
	}
	request.Header.Set("Authorization", client.apiKey)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := client.client.Do(request)
	if err != nil {
		return fmt.Errorf("notify: SMS request failed: %w", err)
	}
	defer response.Body.Close()

	body, _ := io.ReadAll(response.Body)

	var result smsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("notify: failed to parse SMS response: %w", err)
	}
	if !result.Return {
		return fmt.Errorf("notify: SMS vendor rejected send: %s", result.Message)
	}

	return nil
}
