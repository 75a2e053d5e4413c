package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/synchrobots/agvdash/internal/models"
)

// Stream 后端 SSE 推送流消费者，断线后按固定间隔重连
type Stream struct {
	logger         *zap.Logger
	url            string
	httpClient     *http.Client
	reconnectDelay time.Duration
}

// NewStream 创建推送流消费者
func NewStream(logger *zap.Logger, url string, reconnectDelay time.Duration) *Stream {
	return &Stream{
		logger: logger,
		url:    url,
		// 长连接，不设置整体超时
		httpClient:     &http.Client{},
		reconnectDelay: reconnectDelay,
	}
}

// Run 持续读取推送流并把消息写入 out，直到 ctx 取消
func (s *Stream) Run(ctx context.Context, out chan<- models.StreamMessage) {
	for {
		err := s.connect(ctx, out)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			s.logger.Error("Stream disconnected", zap.String("url", s.url), zap.Error(err))
		} else {
			s.logger.Warn("Stream closed by server", zap.String("url", s.url))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

// connect 建立一次连接并读取到断开为止
func (s *Stream) connect(ctx context.Context, out chan<- models.StreamMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream status=%d", resp.StatusCode)
	}

	s.logger.Info("Stream connected", zap.String("url", s.url))

	return ReadEvents(resp.Body, func(data []byte) bool {
		var msg models.StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Error("Stream parse error", zap.Error(err), zap.ByteString("data", data))
			return true
		}

		select {
		case out <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// ReadEvents 解析 text/event-stream，每个事件的 data 交给 fn。
// fn 返回 false 时停止读取。
func ReadEvents(r io.Reader, fn func(data []byte) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data bytes.Buffer
	hasData := false

	for scanner.Scan() {
		line := scanner.Bytes()

		if len(line) == 0 {
			// 空行：分发事件
			if hasData {
				if !fn(bytes.Clone(data.Bytes())) {
					return nil
				}
			}
			data.Reset()
			hasData = false
			continue
		}

		if line[0] == ':' {
			continue // 注释 / 心跳
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))

		if string(field) == "data" {
			if hasData {
				data.WriteByte('\n')
			}
			data.Write(value)
			hasData = true
		}
		// event / id / retry 不影响消息内容
	}

	return scanner.Err()
}
