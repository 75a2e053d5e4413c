package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MapMeta 地图标定信息：世界坐标到原始地图图片的映射，以及图片裁剪区域
type MapMeta struct {
	OriginX    float64 `json:"origin_x"`
	OriginY    float64 `json:"origin_y"`
	Resolution float64 `json:"resolution"` // 米/像素
	ImgWidth   float64 `json:"img_width"`
	ImgHeight  float64 `json:"img_height"`
	CropXMin   float64 `json:"crop_x_min"`
	CropYMin   float64 `json:"crop_y_min"`
	CropW      float64 `json:"crop_w"`
	CropH      float64 `json:"crop_h"`
}

// UnmarshalJSON 兼容数字和数字字符串，无法解析的值按 0 处理
func (m *MapMeta) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.OriginX = parseNumber(raw["origin_x"])
	m.OriginY = parseNumber(raw["origin_y"])
	m.Resolution = parseNumber(raw["resolution"])
	m.ImgWidth = parseNumber(raw["img_width"])
	m.ImgHeight = parseNumber(raw["img_height"])
	m.CropXMin = parseNumber(raw["crop_x_min"])
	m.CropYMin = parseNumber(raw["crop_y_min"])
	m.CropW = parseNumber(raw["crop_w"])
	m.CropH = parseNumber(raw["crop_h"])
	return nil
}

// Valid resolution、crop_w、crop_h 必须为非零有限值
func (m *MapMeta) Valid() bool {
	if m == nil {
		return false
	}
	return usable(m.Resolution) && usable(m.CropW) && usable(m.CropH)
}

func usable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func parseNumber(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
	} else {
		s = string(raw)
	}

	v, err := strconv.ParseFloat(numericPrefix(strings.TrimSpace(s)), 64)
	if err != nil {
		return 0
	}
	return v
}

// numericPrefix 取字符串开头最长的十进制数字部分，如 "12.5m" -> "12.5"
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return ""
	}

	// 指数部分后面必须有数字才算
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
