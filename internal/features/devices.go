package features

import (
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	evdev "github.com/holoplot/go-evdev"

	"github.com/char5742/keyball-draglock/internal/consts"
)

// Device は検出されたポインターデバイスを表す
type Device struct {
	Name        string
	Path        string
	HasPressure bool
}

// DeviceEventType はデバイスイベントの種類を表す
type DeviceEventType int

const (
	DeviceAdded DeviceEventType = iota
	DeviceRemoved
)

// DeviceEvent はデバイスの変更イベントを表す
type DeviceEvent struct {
	Type   DeviceEventType
	Device Device
}

// DeviceCallback はデバイスイベント発生時に呼び出されるコールバック関数の型
type DeviceCallback func(event DeviceEvent)

// ScanDevices は現在接続されているポインターデバイスを検出して返す
// 左ボタンを持つデバイスをポインターとみなす
func ScanDevices() ([]Device, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	var devices []Device
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}

		hasLeft := false
		for _, c := range dev.CapableEvents(evdev.EV_KEY) {
			if c == evdev.BTN_LEFT {
				hasLeft = true
				break
			}
		}

		if hasLeft {
			hasPressure := false
			for _, c := range dev.CapableEvents(evdev.EV_ABS) {
				if uint16(c) == consts.AbsPressure {
					hasPressure = true
					break
				}
			}
			devices = append(devices, Device{
				Name:        p.Name,
				Path:        p.Path,
				HasPressure: hasPressure,
			})
		}

		dev.Close()
	}

	return devices, nil
}

// DeviceMonitor はポインターデバイスの接続状態を監視する構造体
type DeviceMonitor struct {
	watcher   *fsnotify.Watcher
	callbacks []DeviceCallback
	devices   map[string]Device // パスをキーにしたデバイスマップ
	mutex     sync.RWMutex
	stopChan  chan struct{}
	isRunning bool
}

// NewDeviceMonitor は新しいDeviceMonitorを作成する
func NewDeviceMonitor() (*DeviceMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &DeviceMonitor{
		watcher:  watcher,
		devices:  make(map[string]Device),
		stopChan: make(chan struct{}),
	}, nil
}

// Start はデバイスの監視を開始する
func (dm *DeviceMonitor) Start() error {
	if dm.isRunning {
		return nil // すでに実行中
	}

	log.Println("デバイスモニターを開始します")
	dm.isRunning = true

	if err := dm.watcher.Add("/dev/input"); err != nil {
		log.Printf("ディレクトリの監視に失敗しました: /dev/input - %v", err)
	}

	// 初期デバイス一覧を取得
	devices, err := ScanDevices()
	if err != nil {
		log.Printf("初期デバイス一覧の取得に失敗しました: %v", err)
	} else {
		log.Printf("初期デバイス検出: %d 個のポインターを検出", len(devices))
		dm.updateDeviceList(devices)
	}

	go dm.watchEvents()

	return nil
}

// Stop はデバイスの監視を停止する
func (dm *DeviceMonitor) Stop() {
	if !dm.isRunning {
		return
	}

	log.Println("デバイスモニターを停止します")
	close(dm.stopChan)
	dm.watcher.Close()
	dm.isRunning = false
}

// RegisterCallback はデバイスイベントのコールバック関数を登録する
func (dm *DeviceMonitor) RegisterCallback(callback DeviceCallback) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()
	dm.callbacks = append(dm.callbacks, callback)
}

// GetConnectedDevices は現在接続されているデバイスのスナップショットを返す
func (dm *DeviceMonitor) GetConnectedDevices() []Device {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	devices := make([]Device, 0, len(dm.devices))
	for _, device := range dm.devices {
		devices = append(devices, device)
	}
	return devices
}

// watchEvents はfsnotifyのイベントを監視し、変化があればまとめて再スキャンする
func (dm *DeviceMonitor) watchEvents() {
	// 短時間に連続するイベントをまとめて処理するためのデバウンス
	const eventDebounceTime = 500 * time.Millisecond
	eventTimer := time.NewTimer(eventDebounceTime)
	eventTimer.Stop()
	pendingRescan := false

	// ウォッチ対象外の変化（権限変更など）も拾えるように定期再スキャンも行う
	rescanTicker := time.NewTicker(5 * time.Second)
	defer rescanTicker.Stop()

	for {
		select {
		case <-dm.stopChan:
			return

		case <-eventTimer.C:
			if pendingRescan {
				pendingRescan = false
				dm.rescan()
			}

		case <-rescanTicker.C:
			dm.rescan()

		case event, ok := <-dm.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove) != 0 {
				if !pendingRescan {
					pendingRescan = true
					eventTimer.Reset(eventDebounceTime)
				}
			}

		case err, ok := <-dm.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ファイルシステム監視エラー: %v", err)
		}
	}
}

func (dm *DeviceMonitor) rescan() {
	devices, err := ScanDevices()
	if err != nil {
		log.Printf("デバイス再スキャンに失敗しました: %v", err)
		return
	}
	dm.updateDeviceList(devices)
}

// updateDeviceList は現在のデバイス一覧を更新し、変更があれば通知する
func (dm *DeviceMonitor) updateDeviceList(newDevices []Device) {
	dm.mutex.Lock()

	seen := make(map[string]bool)
	var events []DeviceEvent

	for _, device := range newDevices {
		seen[device.Path] = true
		if _, exists := dm.devices[device.Path]; !exists {
			dm.devices[device.Path] = device
			log.Printf("新しいデバイスを追加: %s (%s)", device.Name, device.Path)
			events = append(events, DeviceEvent{Type: DeviceAdded, Device: device})
		}
	}

	for path, device := range dm.devices {
		if !seen[path] {
			log.Printf("デバイスを削除: %s (%s)", device.Name, path)
			delete(dm.devices, path)
			events = append(events, DeviceEvent{Type: DeviceRemoved, Device: device})
		}
	}

	callbacks := append([]DeviceCallback(nil), dm.callbacks...)
	dm.mutex.Unlock()

	// ロックを解放した状態でコールバックを呼び出す
	for _, event := range events {
		for _, callback := range callbacks {
			callback(event)
		}
	}
}
