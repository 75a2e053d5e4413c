package models

// 事件级别
const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelErr  = "ERR"
)

// 控制结果
const (
	ResultSuccess = "SUCCESS"
	ResultFail    = "FAIL"
	ResultTimeout = "TIMEOUT"
)

// 任务状态
const (
	MissionWaiting = "WAITING"
	MissionRunning = "RUNNING"
	MissionDone    = "DONE"
	MissionError   = "ERROR"
)

// EventLog 设备事件日志
type EventLog struct {
	EventID       int64      `json:"event_id"`
	EquipmentID   string     `json:"equipment_id"`
	EquipmentType string     `json:"equipment_type"` // AGV, ARM, PLC, HMI
	Level         string     `json:"level"`
	Message       string     `json:"message"`
	CreatedAt     string     `json:"created_at"`
	Equipment     *Equipment `json:"equipment,omitempty"`
}

// ControlLog 控制操作日志
type ControlLog struct {
	ControlID      int64      `json:"control_id"`
	EquipmentID    string     `json:"equipment_id"`
	TargetType     string     `json:"target_type"` // AMR, PLC, ARM, SYSTEM
	ActionType     string     `json:"action_type"`
	OperatorName   string     `json:"operator_name,omitempty"`
	Source         string     `json:"source"` // WEB, API, SCRIPT
	RequestPayload string     `json:"request_payload,omitempty"`
	ResultStatus   string     `json:"result_status"`
	ResultMessage  string     `json:"result_message,omitempty"`
	CreatedAt      string     `json:"created_at"`
	Equipment      *Equipment `json:"equipment,omitempty"`
}

// MissionLog 任务日志
type MissionLog struct {
	MissionID     int64      `json:"mission_id"`
	EquipmentID   string     `json:"equipment_id"`
	EquipmentType string     `json:"equipment_type"`
	ModuleType    string     `json:"module_type"`
	Status        string     `json:"status"`
	Description   string     `json:"description,omitempty"`
	Source        string     `json:"source,omitempty"`
	CreatedAt     string     `json:"created_at"`
	Equipment     *Equipment `json:"equipment,omitempty"`
}
