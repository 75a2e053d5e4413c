package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/synchrobots/agvdash/internal/models"
)

// 后端接口路径（相对 dashboard 前缀）
const (
	PathMapMeta     = "/map-meta"
	PathMapImage    = "/map-image"
	PathAmrStates   = "/amr_states"
	PathEvents      = "/events_logs"
	PathControlLogs = "/control_logs"
	PathMissionLogs = "/mission_logs"
	PathStream      = "/stream"

	// 旧版单车位置接口不在 dashboard 前缀下
	PathAgvPosition = "/api/agv_position"
)

// listResponse 列表接口返回格式 {"items": [...]}
type listResponse[T any] struct {
	Items []T `json:"items"`
}

// Client 后端 API 客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	prefix     string
}

// NewClient 创建后端客户端
func NewClient(baseURL, prefix string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  "/" + strings.Trim(prefix, "/"),
	}
}

// dashboardURL 拼接 dashboard 前缀下的完整地址
func (c *Client) dashboardURL(path string, query url.Values) string {
	u := c.baseURL + c.prefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// StreamURL 推送流地址
func (c *Client) StreamURL() string {
	return c.dashboardURL(PathStream, nil)
}

// MapImageURL 带防缓存参数的地图图片地址
func (c *Client) MapImageURL(t int64) string {
	return c.dashboardURL(PathMapImage, url.Values{"t": {strconv.FormatInt(t, 10)}})
}

// doRequest 执行 GET 请求，非 2xx 视为错误
func (c *Client) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("request %s failed: status=%d body=%s", rawURL, resp.StatusCode, string(body))
	}

	return resp, nil
}

// getJSON GET 并解码 JSON
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	resp, err := c.doRequest(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// listItems 拉取列表接口，items 缺失时返回空列表
func listItems[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var result listResponse[T]
	if err := c.getJSON(ctx, c.dashboardURL(path, query), &result); err != nil {
		return nil, err
	}
	if result.Items == nil {
		result.Items = []T{}
	}
	return result.Items, nil
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": {strconv.Itoa(limit)}}
}

// GetMapMeta 获取地图标定信息
func (c *Client) GetMapMeta(ctx context.Context) (*models.MapMeta, error) {
	var meta models.MapMeta
	if err := c.getJSON(ctx, c.dashboardURL(PathMapMeta, nil), &meta); err != nil {
		return nil, fmt.Errorf("get map meta: %w", err)
	}
	return &meta, nil
}

// ListAmrStates 获取 AMR 实时状态
func (c *Client) ListAmrStates(ctx context.Context) ([]models.VehicleState, error) {
	items, err := listItems[models.VehicleState](ctx, c, PathAmrStates, nil)
	if err != nil {
		return nil, fmt.Errorf("list amr states: %w", err)
	}
	return items, nil
}

// ListEvents 获取最近事件日志
func (c *Client) ListEvents(ctx context.Context, limit int) ([]models.EventLog, error) {
	items, err := listItems[models.EventLog](ctx, c, PathEvents, limitQuery(limit))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return items, nil
}

// ListControlLogs 获取最近控制日志
func (c *Client) ListControlLogs(ctx context.Context, limit int) ([]models.ControlLog, error) {
	items, err := listItems[models.ControlLog](ctx, c, PathControlLogs, limitQuery(limit))
	if err != nil {
		return nil, fmt.Errorf("list control logs: %w", err)
	}
	return items, nil
}

// ListMissionLogs 获取最近任务日志
func (c *Client) ListMissionLogs(ctx context.Context, limit int) ([]models.MissionLog, error) {
	items, err := listItems[models.MissionLog](ctx, c, PathMissionLogs, limitQuery(limit))
	if err != nil {
		return nil, fmt.Errorf("list mission logs: %w", err)
	}
	return items, nil
}

// GetAgvPosition 获取旧版单车位置
func (c *Client) GetAgvPosition(ctx context.Context) (*models.AgvPosition, error) {
	var pos models.AgvPosition
	if err := c.getJSON(ctx, c.baseURL+PathAgvPosition, &pos); err != nil {
		return nil, fmt.Errorf("get agv position: %w", err)
	}
	return &pos, nil
}

// FetchMapImage 获取地图图片，调用方负责关闭返回的 Body
func (c *Client) FetchMapImage(ctx context.Context, t int64) (io.ReadCloser, string, error) {
	resp, err := c.doRequest(ctx, c.MapImageURL(t))
	if err != nil {
		return nil, "", fmt.Errorf("fetch map image: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return resp.Body, contentType, nil
}
