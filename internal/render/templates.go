package render

const eventsHeader = `<div class="log-row log-head"><span>시간</span><span>장비</span><span>TYPE</span><span>LEVEL</span><span>내용</span></div>`

const controlHeader = `<div class="log-row log-head"><span>시간</span><span>대상</span><span>출처 / 구분</span><span>결과</span><span>내용</span></div>`

const itemTemplatesText = `
{{define "event_row"}}<div class="log-row"><span>{{.Time}}</span><span>{{.Device}}</span><span><span class="log-tag">{{.Type}}</span></span><span><span class="log-level {{.Level.Class}}">{{.Level.Text}}</span></span><span>{{.Message}}</span></div>{{end}}
{{define "control_row"}}<div class="log-row"><span>{{.Time}}</span><span>{{.Target}}</span><span>{{.Source}}</span><span><span class="log-level {{.Result.Class}}">{{.Result.Text}}</span></span><span>{{.Detail}}</span></div>{{end}}
{{define "mission_item"}}<div class="mission-item"><div class="mission-main"><div class="mission-id">{{.Label}}</div><div class="mission-meta">{{.Meta}}</div></div><div class="status-pill {{.Status.Class}}">{{.Status.Text}}</div></div>{{end}}
{{define "status_item"}}<div class="status-item"><div class="status-label"><span class="dot {{.Dot}}"></span><span>{{.Label}}</span></div><div class="status-value">{{.Detail}}</div></div>{{end}}
{{define "agv_node"}}<div class="agv-node" style="left: {{px .Left}}; top: {{px .Top}}"><div class="agv-label">{{.Label}}</div></div>{{end}}
{{define "agv_dot"}}<div class="agv-dot" style="left: {{px .X}}; top: {{px .Y}}; width: {{px .Diameter}}; height: {{px .Diameter}}"></div>{{end}}
`
