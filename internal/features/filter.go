package features

import (
	"fmt"
	"sync"

	"github.com/char5742/keyball-draglock/internal/bezier"
	"github.com/char5742/keyball-draglock/internal/draglock"
)

// ドラッグロックと筆圧カーブによるイベント変換を表す構造体
type EventFilter struct {
	mutex       sync.Mutex
	dl          *draglock.DragLock
	pressureLUT []int
}

// CreateEventFilter は無効状態のイベントフィルターを作成する
func CreateEventFilter() *EventFilter {
	return &EventFilter{dl: draglock.New()}
}

// SetDragLockConfig は設定文字列からドラッグロックの状態を再構成する
// 文字列が不正な場合はドラッグロックを無効化してエラーを返す
func (f *EventFilter) SetDragLockConfig(config string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	dl, err := draglock.NewFromString(config)
	f.dl = dl
	return err
}

// DragLock はドラッグロックの状態機械を返す
func (f *EventFilter) DragLock() *draglock.DragLock {
	return f.dl
}

// FilterButton はボタンイベントをドラッグロックに通し、
// 送出すべき論理ボタンと押下状態を返す。0は送出しないことを表す
func (f *EventFilter) FilterButton(button int, press bool) (int, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.dl.FilterButton(button, press)
}

// SetPressureCurve は筆圧カーブを設定する
// 不正なカーブの場合はテーブルを変更せずエラーを返す
func (f *EventFilter) SetPressureCurve(controls [4]bezier.ControlPoint, axisMax int) error {
	if axisMax < 1 {
		return fmt.Errorf("筆圧軸の最大値が不正です: %d", axisMax)
	}

	// 適用前に小さなテーブルでカーブの妥当性を検証する
	var scratch [64]int
	if err := bezier.CubicBezier(controls, scratch[:]); err != nil {
		return err
	}

	// デフォルトカーブは恒等変換なのでテーブルを持たない
	if controls == bezier.Defaults {
		f.mutex.Lock()
		f.pressureLUT = nil
		f.mutex.Unlock()
		return nil
	}

	lut := make([]int, axisMax+1)
	if err := bezier.CubicBezier(controls, lut); err != nil {
		return err
	}

	f.mutex.Lock()
	f.pressureLUT = lut
	f.mutex.Unlock()
	return nil
}

// FilterPressure は筆圧値をカーブで変換する
// テーブルがない場合や範囲外の値はそのまま返す
func (f *EventFilter) FilterPressure(value int32) int32 {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.pressureLUT == nil {
		return value
	}
	if value < 0 || int(value) >= len(f.pressureLUT) {
		return value
	}
	return int32(f.pressureLUT[value])
}
