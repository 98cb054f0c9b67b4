package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/oklog/ulid/v2"

	"cursorworld/world"
)

// HandleAdminConfig 提供输入准入限制的读取与更新（热更新）
// GET /admin/config   返回当前配置
// POST /admin/config  以 JSON 载荷更新部分字段
func (m *LevelManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		MaxClicks          *int `json:"maxClicks,omitempty"`
		MaxLines           *int `json:"maxLines,omitempty"`
		LineOccupancyLimit *int `json:"lineOccupancyLimit,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, m.Limits())
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		lim := m.Limits()
		if body.MaxClicks != nil {
			lim.MaxClicks = *body.MaxClicks
		}
		if body.MaxLines != nil {
			lim.MaxLines = *body.MaxLines
		}
		if body.LineOccupancyLimit != nil {
			lim.LineOccupancyLimit = *body.LineOccupancyLimit
		}
		if lim.MaxClicks < 0 || lim.MaxClicks > world.DefaultMaxClicks ||
			lim.MaxLines < 0 || lim.MaxLines > world.DefaultMaxLines || lim.LineOccupancyLimit < 0 {
			http.Error(w, "limits out of range", http.StatusBadRequest)
			return
		}
		m.SetLimits(lim)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		m.log.Infow("config updated",
			"maxClicks", lim.MaxClicks, "maxLines", lim.MaxLines, "lineOccupancyLimit", lim.LineOccupancyLimit)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出指定关卡的运行指标
// GET /metrics?level=0
func (m *LevelManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	levelID := 0
	if s := r.URL.Query().Get("level"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid level", http.StatusBadRequest)
			return
		}
		levelID = v
	}
	info, snap, err := m.LevelMetrics(levelID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, world.ErrUnknownLevel) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level":   info,
		"metrics": snap,
	})
}

// HandleLevels 列出所有关卡
// GET /admin/levels
func (m *LevelManager) HandleLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.LevelInfos())
}

// HandleOccupant 按句柄查看在线玩家
// GET /admin/occupant?handle=01HX...
func (m *LevelManager) HandleOccupant(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if _, err := ulid.ParseStrict(handle); err != nil {
		http.Error(w, "invalid handle", http.StatusBadRequest)
		return
	}
	info, ok := m.FindOccupant(handle)
	if !ok {
		http.Error(w, "occupant not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
