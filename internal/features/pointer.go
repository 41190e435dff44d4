package features

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"
)

// ポインターデバイスからの入力を扱うインターフェース
type Pointer interface {
	// 次のイベントを1つ読み取る（ブロッキング）
	ReadEvent() (*evdev.InputEvent, error)
	// デバイスを専有する
	Grab() error
	// デバイスの専有を解除する
	Release() error
	Close() error
}

type evdevPointer struct {
	dev     *evdev.InputDevice
	grabbed bool
}

// OpenPointer は指定されたパスのポインターデバイスを開く
func OpenPointer(path string) (Pointer, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device file: %w", err)
	}
	return &evdevPointer{dev: dev}, nil
}

func (p *evdevPointer) ReadEvent() (*evdev.InputEvent, error) {
	return p.dev.ReadOne()
}

func (p *evdevPointer) Grab() error {
	if p.grabbed {
		return nil
	}
	if err := p.dev.Grab(); err != nil {
		return fmt.Errorf("failed to grab device: %w", err)
	}
	p.grabbed = true
	return nil
}

func (p *evdevPointer) Release() error {
	if !p.grabbed {
		return nil
	}
	if err := p.dev.Ungrab(); err != nil {
		return fmt.Errorf("failed to release device: %w", err)
	}
	p.grabbed = false
	return nil
}

func (p *evdevPointer) Close() error {
	_ = p.Release()
	return p.dev.Close()
}
