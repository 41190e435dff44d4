package features

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/char5742/keyball-draglock/internal/consts"
	"github.com/char5742/keyball-draglock/internal/types"
	"github.com/char5742/keyball-draglock/internal/utils"
)

// フィルター済みイベントの出力先となる仮想ポインターデバイスを表現するインターフェース
type VirtualPointer interface {
	Button(code uint16, press bool) error
	MoveRel(code uint16, delta int32) error
	Wheel(code uint16, delta int32) error
	Pressure(value int32) error
	io.Closer
}

type virtualPointer struct {
	name       []byte
	deviceFile *os.File
}

// CreateVirtualPointer は新しい仮想ポインターデバイスを作成する
// pressureMaxは筆圧軸の最大値
func CreateVirtualPointer(path string, name []byte, pressureMax int32) (VirtualPointer, error) {
	fd, err := createVirtualPointer(path, name, pressureMax)
	if err != nil {
		return nil, err
	}
	return &virtualPointer{name: name, deviceFile: fd}, nil
}

func (vp *virtualPointer) Close() error {
	_ = releaseDevice(vp.deviceFile)
	return vp.deviceFile.Close()
}

func createVirtualPointer(path string, name []byte, pressureMax int32) (*os.File, error) {
	deviceFile, err := createDeviceFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not create virtual pointer device: %v", err)
	}

	// キー入力イベント(EV_KEY)を登録する
	// これによりボタンイベントの送出が可能になる
	err = registerDevice(deviceFile, uintptr(consts.Key))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("キー入力イベント(EV_KEY)の登録に失敗しました: %v", err)
	}

	// ドラッグロックが付け替えうるすべてのボタンコードを登録する
	for code := consts.BtnLeft; code <= int(maxButtonCode); code++ {
		if err = utils.IOCtl(deviceFile, consts.SetKeyBit, uintptr(code)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("キー入力種別の登録に失敗しました %v: %v", code, err)
		}
	}

	// 相対座標入力イベント(EV_REL)を登録する
	err = registerDevice(deviceFile, uintptr(consts.Rel))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("相対座標入力イベント(EV_REL)の登録に失敗しました: %v", err)
	}

	for _, ev := range []int{consts.RelX, consts.RelY, consts.RelWheel, consts.RelHWheel} {
		if err = utils.IOCtl(deviceFile, consts.SetRelBit, uintptr(ev)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("相対座標軸の登録に失敗しました %v: %v", ev, err)
		}
	}

	// 絶対座標入力イベント(EV_ABS)を登録する（筆圧用）
	err = registerDevice(deviceFile, uintptr(consts.Abs))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("絶対座標入力イベント(EV_ABS)の登録に失敗しました: %v", err)
	}

	if err = utils.IOCtl(deviceFile, consts.SetAbsBit, uintptr(consts.AbsPressure)); err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("筆圧軸の登録に失敗しました: %v", err)
	}

	// ポインターデバイスプロパティを設定する
	if err := utils.IOCtl(deviceFile, consts.SetPropBit, uintptr(consts.PropPointer)); err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("ポインターデバイスプロパティの設定に失敗しました: %v", err)
	}

	var absMin [consts.AbsSize]int32
	var absMax [consts.AbsSize]int32

	absMin[consts.AbsPressure] = 0
	absMax[consts.AbsPressure] = pressureMax

	userDev := types.UserDev{
		Name: toUinputName(name),
		ID: types.InputID{
			Bustype: consts.BusUsb,
			Vendor:  0x4711,
			Product: 0x0818,
			Version: 1,
		},
		Absmin: absMin,
		Absmax: absMax,
	}

	fd, err := createUsbDevice(deviceFile, userDev)
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("USBデバイスの作成に失敗しました: %v", err)
	}

	return fd, nil
}

// ボタンイベントを送出する
func (vp *virtualPointer) Button(code uint16, press bool) error {
	value := int32(0)
	if press {
		value = 1
	}
	events := []types.Event{
		{Type: consts.Key, Code: code, Value: value},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	}
	return writeEvents(vp.deviceFile, events)
}

// 相対移動イベントを送出する
func (vp *virtualPointer) MoveRel(code uint16, delta int32) error {
	events := []types.Event{
		{Type: consts.Rel, Code: code, Value: delta},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	}
	return writeEvents(vp.deviceFile, events)
}

// ホイールイベントを送出する
func (vp *virtualPointer) Wheel(code uint16, delta int32) error {
	events := []types.Event{
		{Type: consts.Rel, Code: code, Value: delta},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	}
	return writeEvents(vp.deviceFile, events)
}

// 筆圧イベントを送出する
func (vp *virtualPointer) Pressure(value int32) error {
	events := []types.Event{
		{Type: consts.Abs, Code: consts.AbsPressure, Value: value},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	}
	return writeEvents(vp.deviceFile, events)
}

// デバイスファイルを作成する
func createDeviceFile(path string) (fd *os.File, err error) {
	deviceFile, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, errors.New("デバイスファイルを開くのに失敗しました")
	}
	return deviceFile, err
}

// デバイスを解放する
func releaseDevice(deviceFile *os.File) error {
	return utils.IOCtl(deviceFile, consts.DevDestroy, uintptr(0))
}

// デバイスを登録する
func registerDevice(deviceFile *os.File, evType uintptr) error {
	err := utils.IOCtl(deviceFile, consts.SetEvBit, evType)
	if err != nil {
		defer deviceFile.Close()
		err = releaseDevice(deviceFile)
		if err != nil {
			return fmt.Errorf("デバイスを解放するのに失敗しました: %v", err)
		}
		return fmt.Errorf("無効なファイルハンドルがutils.IOCtlから返されました: %v", err)
	}
	return nil
}

// USBデバイスを作成する
func createUsbDevice(deviceFile *os.File, dev types.UserDev) (fd *os.File, err error) {
	buf := new(bytes.Buffer)
	err = binary.Write(buf, binary.LittleEndian, dev)
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("ユーザーデバイスバッファの書き込みに失敗しました: %v", err)
	}
	_, err = deviceFile.Write(buf.Bytes())
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイス構造体をデバイスファイルに書き込むのに失敗しました: %v", err)
	}

	err = utils.IOCtl(deviceFile, consts.DevCreate, uintptr(0))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイスの作成に失敗しました: %v", err)
	}

	return deviceFile, err
}

// イベントを書き込む
func writeEvents(deviceFile *os.File, events []types.Event) error {
	for _, ev := range events {
		buf := new(bytes.Buffer)
		if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
			return fmt.Errorf("イベントをバッファに書き込むのに失敗しました: %v", err)
		}
		if _, err := deviceFile.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("イベントの書き込みに失敗しました: %v", err)
		}
	}
	return nil
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name []byte) (uinputName [consts.MaxNameSize]byte) {
	var fixedSizeName [consts.MaxNameSize]byte
	copy(fixedSizeName[:], name)
	return fixedSizeName
}
