package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/char5742/keyball-draglock/internal/config"
	"github.com/char5742/keyball-draglock/internal/draglock"
	"github.com/char5742/keyball-draglock/internal/features"
)

// ルートの設定
func (s *Server) setupRoutes(router *http.ServeMux) {
	// 設定関連のエンドポイント
	router.HandleFunc("GET /api/config", s.handleGetConfig)
	router.HandleFunc("PUT /api/config", s.handleUpdateConfig)
	router.HandleFunc("POST /api/config/save", s.handleSaveConfig)

	// デバイス関連のエンドポイント
	router.HandleFunc("GET /api/devices", s.handleGetDevices)
	router.HandleFunc("PUT /api/devices/preferred", s.handleSetPreferredDevice)

	// ドラッグロック関連のエンドポイント
	router.HandleFunc("GET /api/draglock", s.handleGetDragLock)
	router.HandleFunc("PUT /api/draglock", s.handleUpdateDragLock)

	// 筆圧カーブ関連のエンドポイント
	router.HandleFunc("GET /api/pressure", s.handleGetPressure)
	router.HandleFunc("PUT /api/pressure", s.handleUpdatePressure)

	// サービス関連のエンドポイント
	router.HandleFunc("POST /api/service/start", s.handleStartService)
	router.HandleFunc("POST /api/service/stop", s.handleStopService)
	router.HandleFunc("GET /api/service/status", s.handleServiceStatus)

	// ヘルスチェック用エンドポイント
	router.HandleFunc("GET /api/health", s.handleHealthCheck)
}

// 設定取得ハンドラ
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GetConfig())
}

// 設定更新ハンドラ
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var newConfig config.Config

	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		writeError(w, http.StatusBadRequest, "設定の解析に失敗しました")
		return
	}

	s.UpdateConfig(&newConfig)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// 設定保存ハンドラ
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var saveRequest struct {
		Path string `json:"path"`
	}

	if err := json.NewDecoder(r.Body).Decode(&saveRequest); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	configPath := saveRequest.Path
	if configPath == "" {
		// デフォルトパスを使用
		userConfigDir, err := config.GetDefaultConfigDir()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "デフォルト設定ディレクトリの取得に失敗しました")
			return
		}
		configPath = filepath.Join(userConfigDir, "config.toml")
	}

	if err := config.SaveConfig(configPath, s.GetConfig()); err != nil {
		writeError(w, http.StatusInternalServerError, "設定の保存に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   configPath,
	})
}

// デバイス一覧取得ハンドラ
func (s *Server) handleGetDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := features.ScanDevices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "デバイス一覧の取得に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, devices)
}

// 優先デバイス設定ハンドラ
func (s *Server) handleSetPreferredDevice(w http.ResponseWriter, r *http.Request) {
	var request struct {
		PointerDevice string `json:"pointer_device"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	cfg := s.GetConfig()
	cfg.Device.PreferredPointer = request.PointerDevice
	s.UpdateConfig(cfg)

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// フィルターサービス
var filterService *FilterService

// ensureService はフィルターサービスを必要なら作成して返す
func (s *Server) ensureService() *FilterService {
	if filterService == nil {
		filterService = NewFilterService(s.GetConfig())
	}
	return filterService
}

// ドラッグロック状態取得ハンドラ
func (s *Server) handleGetDragLock(w http.ResponseWriter, r *http.Request) {
	dl := s.ensureService().Filter().DragLock()

	switch dl.Mode() {
	case draglock.ModeMeta:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"mode": "meta",
			"meta": dl.Meta(),
		})
	case draglock.ModePairs:
		var out [draglock.MaxButtons + 1]int
		last := dl.Pairs(out[:])
		pairs := make([]int, 0, last*2)
		for i := 1; i <= last; i++ {
			if out[i] != 0 {
				pairs = append(pairs, i, out[i])
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"mode":  "pairs",
			"pairs": pairs,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"mode": "disabled",
		})
	}
}

// ドラッグロック更新ハンドラ
// metaを指定するとメタボタン方式、pairs（ボタンとロック先の平坦な列）を
// 指定するとペア方式になる。不正な値の場合は状態を変更しない
func (s *Server) handleUpdateDragLock(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Meta  *int  `json:"meta"`
		Pairs []int `json:"pairs"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	dl := s.ensureService().Filter().DragLock()

	switch {
	case request.Meta != nil:
		if err := dl.SetMeta(*request.Meta); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("メタボタンの設定に失敗しました: %v", err))
			return
		}
	case request.Pairs != nil:
		if len(request.Pairs)%2 != 0 {
			writeError(w, http.StatusBadRequest, "pairsはボタンとロック先の組でなければなりません")
			return
		}
		var mapping [draglock.MaxButtons + 1]int
		for i := 0; i+1 < len(request.Pairs); i += 2 {
			button := request.Pairs[i]
			target := request.Pairs[i+1]
			if button <= 0 || button >= draglock.MaxButtons {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("ボタン番号が範囲外です: %d", button))
				return
			}
			mapping[button] = target
		}
		if err := dl.SetPairs(mapping[:]); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("ボタンペアの設定に失敗しました: %v", err))
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "metaまたはpairsを指定してください")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// 筆圧カーブ取得ハンドラ
func (s *Server) handleGetPressure(w http.ResponseWriter, r *http.Request) {
	cfg := s.GetConfig()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"curve":    cfg.Pressure.Curve,
		"axis_max": cfg.Pressure.AxisMax,
	})
}

// 筆圧カーブ更新ハンドラ
// カーブは適用前に検証し、不正な場合は現在のカーブを維持する
func (s *Server) handleUpdatePressure(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Curve   string `json:"curve"`
		AxisMax int    `json:"axis_max"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	cfg := s.GetConfig()
	if request.AxisMax == 0 {
		request.AxisMax = cfg.Pressure.AxisMax
	}

	controls, err := config.ParsePressureCurve(request.Curve)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("筆圧カーブの解析に失敗しました: %v", err))
		return
	}

	if err := s.ensureService().Filter().SetPressureCurve(controls, request.AxisMax); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("筆圧カーブの適用に失敗しました: %v", err))
		return
	}

	cfg.Pressure.Curve = request.Curve
	cfg.Pressure.AxisMax = request.AxisMax
	s.UpdateConfig(cfg)

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// サービス起動ハンドラ
func (s *Server) handleStartService(w http.ResponseWriter, r *http.Request) {
	service := s.ensureService()

	if service.IsRunning() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_running"})
		return
	}

	if err := service.Start(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("サービスの起動に失敗しました: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// サービス停止ハンドラ
func (s *Server) handleStopService(w http.ResponseWriter, r *http.Request) {
	if filterService == nil || !filterService.IsRunning() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_running"})
		return
	}

	filterService.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// サービス状態取得ハンドラ
func (s *Server) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	status := "stopped"
	if filterService != nil && filterService.IsRunning() {
		status = "running"
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// ヘルスチェックハンドラ
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
