// Package speech 는 외부 STT 서비스와의 좁은 경계만 정의한다.
// 오디오 디코딩과 모델 추론은 전부 협력자 소관이다.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Transcriber 는 음성 입력 경로가 파이프라인에 요구하는 전부다.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Client 는 multipart 업로드를 받는 HTTP STT 서비스 클라이언트.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient 는 baseURL 의 /transcribe 엔드포인트를 쓰는 클라이언트를 만든다.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe 는 오디오를 업로드하고 전사된 텍스트를 돌려준다.
// 재시도는 하지 않으며 실패는 그대로 전파된다.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build transcribe request: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("failed to read audio payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize transcribe request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("stt service %s: %s", resp.Status, string(detail))
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode stt response: %w", err)
	}

	return strings.TrimSpace(parsed.Text), nil
}
