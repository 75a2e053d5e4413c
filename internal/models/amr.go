package models

// Equipment 设备信息（后端以内嵌对象返回）
type Equipment struct {
	EquipmentID   string `json:"equipment_id"`
	EquipmentType string `json:"equipment_type,omitempty"`
	EquipmentName string `json:"equipment_name"`
	Location      string `json:"location,omitempty"`
	IsOnline      bool   `json:"is_online"`
	Status        string `json:"status,omitempty"`
}

// VehicleState AMR 实时状态
type VehicleState struct {
	Idx         int64      `json:"idx,omitempty"`
	EquipmentID string     `json:"equipment_id"`
	Equipment   *Equipment `json:"equipment,omitempty"`
	PosX        float64    `json:"pos_x"`
	PosY        float64    `json:"pos_y"`
	Heading     *float64   `json:"heading,omitempty"`
	BatteryPct  *float64   `json:"battery_pct,omitempty"`
	Speed       *float64   `json:"speed,omitempty"` // m/s
	StateCode   string     `json:"state_code"`
	UpdatedAt   string     `json:"updated_at,omitempty"`
}

// AgvPosition 旧版单车位置接口
type AgvPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
