package api

import (
	"fmt"
	"log"
	"sync"

	evdev "github.com/holoplot/go-evdev"

	"github.com/char5742/keyball-draglock/internal/config"
	"github.com/char5742/keyball-draglock/internal/consts"
	"github.com/char5742/keyball-draglock/internal/features"
)

// FilterService はイベントフィルター処理のライフサイクルを管理する構造体
type FilterService struct {
	cfg          *config.Config
	filter       *features.EventFilter
	isRunning    bool
	statusMutex  sync.RWMutex
	stopChan     chan struct{}
	doneChan     chan struct{}
	updateConfig chan *config.Config
	source       features.Pointer
	virtual      features.VirtualPointer
	monitor      *features.DeviceMonitor
}

// NewFilterService は新しいフィルターサービスを作成する
func NewFilterService(cfg *config.Config) *FilterService {
	s := &FilterService{
		cfg:          cfg,
		filter:       features.CreateEventFilter(),
		updateConfig: make(chan *config.Config, 1),
	}
	s.applyConfig(cfg)
	return s
}

// Filter はサービスの保持するイベントフィルターを返す
func (s *FilterService) Filter() *features.EventFilter {
	return s.filter
}

// applyConfig は設定をイベントフィルターに反映する
// 不正な設定項目はログに残してデフォルト動作を維持する
func (s *FilterService) applyConfig(cfg *config.Config) {
	if err := s.filter.SetDragLockConfig(cfg.DragLock.Buttons); err != nil {
		log.Printf("ドラッグロック設定が不正なため無効化します %q: %v", cfg.DragLock.Buttons, err)
	}

	controls, err := config.ParsePressureCurve(cfg.Pressure.Curve)
	if err != nil {
		log.Printf("筆圧カーブ設定が不正なため恒等変換を使用します %q: %v", cfg.Pressure.Curve, err)
		return
	}
	if err := s.filter.SetPressureCurve(controls, cfg.Pressure.AxisMax); err != nil {
		log.Printf("筆圧カーブの適用に失敗したため恒等変換を使用します: %v", err)
	}
}

// IsRunning はサービスが実行中かどうかを返す
func (s *FilterService) IsRunning() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.isRunning
}

// UpdateConfig は実行中のサービスに新しい設定を適用する
func (s *FilterService) UpdateConfig(cfg *config.Config) {
	s.statusMutex.Lock()
	s.cfg = cfg
	running := s.isRunning
	s.statusMutex.Unlock()

	if !running {
		s.applyConfig(cfg)
		return
	}

	// 実行中はイベントループに設定を渡す
	select {
	case s.updateConfig <- cfg:
	default:
		// 未処理の設定を破棄して新しい設定で置き換える
		select {
		case <-s.updateConfig:
		default:
		}
		s.updateConfig <- cfg
	}
}

// Start はイベントフィルター処理を開始する
func (s *FilterService) Start() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if s.isRunning {
		return fmt.Errorf("サービスはすでに実行中です")
	}

	sourcePath, err := s.pickSourceDevice()
	if err != nil {
		return err
	}

	virtual, err := features.CreateVirtualPointer(
		"/dev/uinput",
		[]byte(s.cfg.Output.Name),
		int32(s.cfg.Pressure.AxisMax),
	)
	if err != nil {
		return fmt.Errorf("仮想ポインターの作成に失敗しました: %w", err)
	}

	source, err := features.OpenPointer(sourcePath)
	if err != nil {
		_ = virtual.Close()
		return fmt.Errorf("ポインターデバイスのオープンに失敗しました: %w", err)
	}

	if err := source.Grab(); err != nil {
		_ = source.Close()
		_ = virtual.Close()
		return fmt.Errorf("ポインターデバイスの占有に失敗しました: %w", err)
	}

	s.source = source
	s.virtual = virtual
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.isRunning = true

	// ソースデバイスの切断を監視する
	s.monitor = s.watchSourceDevice(sourcePath)

	go s.pump(source, virtual, s.stopChan, s.doneChan)

	log.Printf("フィルターサービスを開始しました: %s", sourcePath)
	return nil
}

// Stop はイベントフィルター処理を停止する
func (s *FilterService) Stop() {
	s.statusMutex.Lock()
	if !s.isRunning {
		s.statusMutex.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	// ReadEventのブロックを解除するためにデバイスを閉じる
	_ = s.source.Close()

	done := s.doneChan
	virtual := s.virtual
	monitor := s.monitor
	s.source = nil
	s.virtual = nil
	s.monitor = nil
	s.statusMutex.Unlock()

	<-done
	_ = virtual.Close()
	if monitor != nil {
		monitor.Stop()
	}

	log.Println("フィルターサービスを停止しました")
}

// watchSourceDevice はソースデバイスの切断を検出したらサービスを停止する
// モニターの作成に失敗した場合は監視なしで続行する
func (s *FilterService) watchSourceDevice(sourcePath string) *features.DeviceMonitor {
	monitor, err := features.NewDeviceMonitor()
	if err != nil {
		log.Printf("デバイスモニターの作成に失敗しました: %v", err)
		return nil
	}

	monitor.RegisterCallback(func(event features.DeviceEvent) {
		if event.Type == features.DeviceRemoved && event.Device.Path == sourcePath {
			log.Printf("ソースデバイスが切断されました: %s", sourcePath)
			go s.Stop()
		}
	})

	if err := monitor.Start(); err != nil {
		log.Printf("デバイスモニターの開始に失敗しました: %v", err)
		monitor.Stop()
		return nil
	}
	return monitor
}

// pickSourceDevice は設定と接続状況からソースデバイスのパスを決める
func (s *FilterService) pickSourceDevice() (string, error) {
	devices, err := features.ScanDevices()
	if err != nil {
		return "", fmt.Errorf("デバイスの走査に失敗しました: %w", err)
	}
	if len(devices) == 0 {
		return "", fmt.Errorf("ポインターデバイスが見つかりません")
	}

	preferred := s.cfg.Device.PreferredPointer
	if preferred != "" {
		for _, d := range devices {
			if d.Name == preferred || d.Path == preferred {
				return d.Path, nil
			}
		}
		log.Printf("優先デバイス %q が見つからないため最初のデバイスを使用します", preferred)
	}
	return devices[0].Path, nil
}

// pump は入力イベントを読み取り、フィルターを通して仮想デバイスへ転送する
func (s *FilterService) pump(source features.Pointer, virtual features.VirtualPointer, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		case cfg := <-s.updateConfig:
			s.applyConfig(cfg)
		default:
		}

		ev, err := source.ReadEvent()
		if err != nil {
			select {
			case <-stop:
				// 停止処理によるクローズ
			default:
				log.Printf("イベントの読み取りに失敗しました: %v", err)
			}
			return
		}

		if err := s.forward(virtual, ev); err != nil {
			log.Printf("イベントの転送に失敗しました: %v", err)
		}
	}
}

// forward は1つの入力イベントをフィルターして仮想デバイスへ書き込む
func (s *FilterService) forward(virtual features.VirtualPointer, ev *evdev.InputEvent) error {
	switch ev.Type {
	case evdev.EV_KEY:
		code := uint16(ev.Code)
		if !features.IsButtonCode(code) {
			return nil
		}
		button := features.ButtonFromCode(code)
		press := ev.Value != 0
		out, outPress := s.filter.FilterButton(button, press)
		if out == 0 {
			return nil
		}
		return s.emitButton(virtual, out, outPress)

	case evdev.EV_REL:
		return virtual.MoveRel(uint16(ev.Code), ev.Value)

	case evdev.EV_ABS:
		if uint16(ev.Code) != consts.AbsPressure {
			return nil
		}
		return virtual.Pressure(s.filter.FilterPressure(ev.Value))
	}
	return nil
}

// emitButton は論理ボタンを実際のイベントとして送出する
// 4〜7に付け替えられたボタンは押下時にホイールイベントになる
func (s *FilterService) emitButton(virtual features.VirtualPointer, button int, press bool) error {
	switch button {
	case features.WheelUpButton:
		if !press {
			return nil
		}
		return virtual.Wheel(consts.RelWheel, 1)
	case features.WheelDownButton:
		if !press {
			return nil
		}
		return virtual.Wheel(consts.RelWheel, -1)
	case features.WheelLeftButton:
		if !press {
			return nil
		}
		return virtual.Wheel(consts.RelHWheel, -1)
	case features.WheelRightButton:
		if !press {
			return nil
		}
		return virtual.Wheel(consts.RelHWheel, 1)
	}

	code := features.CodeFromButton(button)
	if code == 0 {
		return nil
	}
	return virtual.Button(code, press)
}
