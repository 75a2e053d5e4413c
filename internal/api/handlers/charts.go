package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"
)

// CategoryCount 分拣区域统计
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// RatePoint 成功率采样点
type RatePoint struct {
	Label string  `json:"label"`
	Rate  float64 `json:"rate"` // %
}

// 演示数据，后端尚未提供统计接口
var (
	classifyStats = []CategoryCount{
		{Category: "Zone A", Count: 24},
		{Category: "Zone B", Count: 18},
		{Category: "Zone C", Count: 12},
		{Category: "Reject", Count: 3},
	}

	successRateLogs = []RatePoint{
		{Label: "10:00", Rate: 82},
		{Label: "10:10", Rate: 85},
		{Label: "10:20", Rate: 80},
		{Label: "10:30", Rate: 88},
		{Label: "10:40", Rate: 90},
		{Label: "10:50", Rate: 92},
	}
)

const chartWidth, chartHeight = "420px", "220px"

// ClassifyChart 分拣统计柱状图
func (h *Handler) ClassifyChart(c *gin.Context) {
	x := make([]string, 0, len(classifyStats))
	y := make([]opts.BarData, 0, len(classifyStats))
	for _, s := range classifyStats {
		x = append(x, s.Category)
		y = append(y, opts.BarData{Value: s.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Classification", Theme: "dark", Width: chartWidth, Height: chartHeight}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0}),
	)
	bar.SetXAxis(x).AddSeries("count", y)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		h.logger.Error("Failed to render classify chart", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render chart"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// SuccessChart 成功率折线图
func (h *Handler) SuccessChart(c *gin.Context) {
	x := make([]string, 0, len(successRateLogs))
	y := make([]opts.LineData, 0, len(successRateLogs))
	for _, p := range successRateLogs {
		x = append(x, p.Label)
		y = append(y, opts.LineData{Value: p.Rate, Name: fmt.Sprintf("성공률: %.0f%%", p.Rate)})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Success rate", Theme: "dark", Width: chartWidth, Height: chartHeight}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100}),
	)
	line.SetXAxis(x).AddSeries("rate", y,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
	)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		h.logger.Error("Failed to render success chart", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render chart"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
