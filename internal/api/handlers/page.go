package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/synchrobots/agvdash/internal/projection"
	"github.com/synchrobots/agvdash/internal/render"
)

// pageData 看板页面数据
type pageData struct {
	Regions  map[string]render.Snapshot
	MapImage string
	Viewport projection.Viewport
}

// Region 模板中按名称取区域内容，未启用的区域返回空
func (p pageData) Region(name string) template.HTML {
	return p.Regions[name].HTML
}

// Has 区域是否启用
func (p pageData) Has(name string) bool {
	_, ok := p.Regions[name]
	return ok
}

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

// Index 看板页面，嵌入各区域的当前内容，之后由 WebSocket 增量更新
func (h *Handler) Index(c *gin.Context) {
	snaps, err := h.dashboard.Regions().Snapshots()
	if err != nil {
		h.logger.Error("Failed to render regions", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to render dashboard")
		return
	}

	data := pageData{
		Regions:  make(map[string]render.Snapshot, len(snaps)),
		MapImage: h.dashboard.MapImageURL(),
		Viewport: h.viewport,
	}
	for _, s := range snaps {
		data.Regions[s.Name] = s
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("Failed to render page", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to render dashboard")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

const pageHTML = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>AGV Dashboard</title>
<style>
body { background: #0f172a; color: #e2e8f0; font-family: sans-serif; margin: 0; padding: 16px; }
.grid { display: grid; grid-template-columns: 1fr 1fr; gap: 16px; }
.card { background: #1e293b; border-radius: 8px; padding: 12px; }
.log-row { display: grid; grid-template-columns: 70px 90px 60px 70px 1fr; gap: 4px; font-size: 12px; padding: 4px 0; border-bottom: 1px solid #334155; }
.log-head { color: #94a3b8; }
.mission-item, .status-item { display: flex; justify-content: space-between; font-size: 12px; padding: 4px 0; }
.lvl-info { color: #22c55e; } .lvl-warn { color: #eab308; } .lvl-err { color: #ef4444; }
.status-running { color: #38bdf8; } .status-done { color: #22c55e; } .status-error { color: #ef4444; }
.dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-right: 6px; }
.dot.green { background: #22c55e; } .dot.yellow { background: #eab308; } .dot.red { background: #ef4444; }
#map { position: relative; background-size: 100% 100%; background-repeat: no-repeat; }
.agv-node { position: absolute; transform: translate(-50%, -50%); font-size: 11px; }
.agv-dot { position: absolute; border-radius: 50%; background: #f97316; }
iframe { border: 0; }
</style>
</head>
<body>
<div class="grid">
  <div class="card">
    <h3>AMR 위치</h3>
    <div id="map" style="width: {{.Viewport.Width}}px; height: {{.Viewport.Height}}px; background-image: url('{{.MapImage}}')">
      {{if .Has "agv-path"}}<div id="agv-path">{{.Region "agv-path"}}</div>{{end}}
      {{if .Has "agv-legacy"}}<div id="agv-legacy">{{.Region "agv-legacy"}}</div>{{end}}
    </div>
  </div>
  {{if .Has "agv-status-list"}}<div class="card"><h3>AMR 상태</h3><div id="agv-status-list">{{.Region "agv-status-list"}}</div></div>{{end}}
  {{if .Has "events-table"}}<div class="card"><h3>이벤트</h3><div id="events-table">{{.Region "events-table"}}</div></div>{{end}}
  {{if .Has "control-table"}}<div class="card"><h3>제어 로그</h3><div id="control-table">{{.Region "control-table"}}</div></div>{{end}}
  {{if .Has "mission-list"}}<div class="card"><h3>미션</h3><div id="mission-list">{{.Region "mission-list"}}</div></div>{{end}}
  <div class="card">
    <h3>통계</h3>
    <iframe src="/charts/classify" width="440" height="240"></iframe>
    <iframe src="/charts/success" width="440" height="240"></iframe>
  </div>
</div>
<script>
(function () {
  var versions = {};
  function applyRegion(r) {
    var el = document.getElementById(r.name);
    if (!el || (versions[r.name] || 0) > r.version) return;
    versions[r.name] = r.version;
    el.innerHTML = r.html;
  }
  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var sock = new WebSocket(proto + location.host + "/ws");
    sock.onmessage = function (ev) {
      var msg = JSON.parse(ev.data);
      switch (msg.type) {
      case "init":
        (msg.data.regions || []).forEach(applyRegion);
        if (msg.data.map_image) document.getElementById("map").style.backgroundImage = "url('" + msg.data.map_image + "')";
        break;
      case "region":
        applyRegion(msg.data);
        break;
      case "map_image":
        document.getElementById("map").style.backgroundImage = "url('" + msg.data + "')";
        break;
      }
    };
    sock.onclose = function () { setTimeout(connect, 3000); };
  }
  connect();
})();
</script>
</body>
</html>
`
