package genimage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// NanoBanana is the asynchronous backend: submit returns a task id that is
// polled for completion.
type NanoBanana struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewNanoBanana(apiKey, baseURL string) (*NanoBanana, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if baseURL == "" {
		baseURL = "https://api.nanobananaapi.ai"
	}
	return &NanoBanana{
		APIKey:  apiKey,
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (n *NanoBanana) Name() string { return "nanobanana" }

type nanoSubmitRequest struct {
	Prompt    string `json:"prompt"`
	NumImages int    `json:"numImages"`
	Type      string `json:"type"`
	ImageSize string `json:"image_size"`
}

type nanoSubmitResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

func (n *NanoBanana) Submit(ctx context.Context, in Input) (JobHandle, error) {
	prompt := in.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}
	// The service expects these exact values, including the TEXTTOIAMGE typo.
	body, _ := json.Marshal(nanoSubmitRequest{
		Prompt:    prompt,
		NumImages: 1,
		Type:      "TEXTTOIAMGE",
		ImageSize: "1:1",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.BaseURL+"/api/v1/nanobanana/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+n.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var out nanoSubmitResponse
	if err := n.do(req, &out); err != nil {
		return "", err
	}
	if out.Code != 200 {
		return "", &RemoteError{Code: strconv.Itoa(out.Code), Message: out.Msg}
	}
	if out.Data.TaskID == "" {
		return "", ErrMalformedResponse
	}
	return JobHandle(out.Data.TaskID), nil
}

type nanoPollResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		SuccessFlag int `json:"successFlag"`
		Response    struct {
			ResultImageURL string `json:"resultImageUrl"`
		} `json:"response"`
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"data"`
}

func (n *NanoBanana) Poll(ctx context.Context, h JobHandle) (PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		n.BaseURL+"/api/v1/nanobanana/record-info?taskId="+url.QueryEscape(string(h)), nil)
	if err != nil {
		return PollResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+n.APIKey)

	var out nanoPollResponse
	if err := n.do(req, &out); err != nil {
		return PollResult{}, err
	}
	if out.Code != 200 {
		return PollResult{}, &RemoteError{Code: strconv.Itoa(out.Code), Message: out.Msg}
	}

	switch out.Data.SuccessFlag {
	case 0:
		return PollResult{Status: StatusPending}, nil
	case 1:
		if out.Data.Response.ResultImageURL == "" {
			return PollResult{Status: StatusFailed, Err: ErrMalformedResponse}, nil
		}
		return PollResult{
			Status:   StatusSucceeded,
			Artifact: Artifact{URL: out.Data.Response.ResultImageURL, MIME: "image/jpeg"},
		}, nil
	default:
		return PollResult{Status: StatusFailed, Err: &RemoteError{
			Code:    out.Data.ErrorCode,
			Message: out.Data.ErrorMessage,
		}}, nil
	}
}

func (n *NanoBanana) do(req *http.Request, out any) error {
	resp, err := n.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("nanobanana request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("nanobanana read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
