package draglock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxButtons は扱えるボタン番号の上限（この値自体は含まない）
const MaxButtons = 32

// Mode はドラッグロックの動作モードを表す
type Mode int

const (
	// ModeDisabled はドラッグロック無効
	ModeDisabled Mode = iota
	// ModeMeta はメタボタン方式（メタボタンの次に押したボタンをロックする）
	ModeMeta
	// ModePairs はボタンペア方式（ソースボタンをターゲットボタンに付け替える）
	ModePairs
)

var (
	// ErrInvalidConfig は設定文字列が解釈できなかったことを表す
	ErrInvalidConfig = errors.New("invalid drag lock configuration")
	// ErrOutOfRange はボタン番号が範囲外であることを表す
	ErrOutOfRange = errors.New("button out of range")
)

// buttonState はボタンごとのロック進行状態
type buttonState int

const (
	stateNone buttonState = iota
	stateDown1
	stateUp1
	stateDown2
)

// DragLock は1つの物理デバイスに対するドラッグロックの状態を保持する構造体
// 複数のゴルーチンから同時に呼び出すことはできない（デバイスごとに1つ作成する）
type DragLock struct {
	mode       Mode
	metaButton int
	metaArmed  bool

	// 添字はボタン番号。添字0は常にゼロのままの番兵
	lockPairs [MaxButtons + 1]int
	lockState [MaxButtons + 1]buttonState
}

// New は無効状態のドラッグロックを作成する
func New() *DragLock {
	return &DragLock{}
}

// NewFromString は設定文字列からドラッグロックを作成する
//
// 空文字列は無効状態。整数1つならメタボタン番号（0なら無効）。
// 空白区切りの整数列は (ソース, ターゲット) のペア列として解釈する。
// 解釈に失敗した場合もインスタンスは返し、無効状態のまま利用できる
func NewFromString(config string) (*DragLock, error) {
	dl := New()
	if err := dl.parseConfig(config); err != nil {
		// 失敗時は部分的に設定された状態を残さない
		*dl = DragLock{}
		return dl, err
	}
	return dl, nil
}

func (dl *DragLock) parseConfig(config string) error {
	// 空文字列はドラッグロック無効
	if config == "" {
		return nil
	}

	// まず「整数1つだけ」の形式を確認する（先頭の空白は数値解釈で無視される）
	if n, err := strconv.Atoi(strings.TrimLeft(config, " \t\n\v\f\r")); err == nil {
		if n < 0 || n >= MaxButtons {
			return fmt.Errorf("%w: meta button %d", ErrInvalidConfig, n)
		}
		// 0は許可する。後勝ちの設定スニペットで無効化し直せるようにするため
		if n == 0 {
			return nil
		}
		return dl.SetMeta(n)
	}

	// 「<int> <int> <int> <int>...」のペア列形式を確認する。
	// 空白のみの文字列と、最後のペアより後ろに空白が続く文字列は不正
	fields := strings.Fields(config)
	if len(fields) == 0 {
		return fmt.Errorf("%w: blank configuration %q", ErrInvalidConfig, config)
	}
	if strings.TrimRight(config, " \t\n\v\f\r") != config {
		return fmt.Errorf("%w: trailing whitespace in %q", ErrInvalidConfig, config)
	}
	if len(fields)%2 != 0 {
		return fmt.Errorf("%w: odd number of values in %q", ErrInvalidConfig, config)
	}

	var pairs [MaxButtons + 1]int
	for i := 0; i < len(fields); i += 2 {
		button, err := strconv.Atoi(fields[i])
		if err != nil {
			return fmt.Errorf("%w: bad button %q", ErrInvalidConfig, fields[i])
		}
		target, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return fmt.Errorf("%w: bad target %q", ErrInvalidConfig, fields[i+1])
		}
		if button <= 0 || button >= MaxButtons || target < 0 || target >= MaxButtons {
			return fmt.Errorf("%w: pair %d %d", ErrInvalidConfig, button, target)
		}
		pairs[button] = target
	}

	return dl.SetPairs(pairs[:])
}

// Mode は現在の動作モードを返す
func (dl *DragLock) Mode() Mode {
	return dl.mode
}

// Meta はメタボタン番号を返す（メタボタン方式でなければ0）
func (dl *DragLock) Meta() int {
	if dl.mode == ModeMeta {
		return dl.metaButton
	}
	return 0
}

// Pairs は現在のペア設定をoutへ書き込み、マッピングされた最大のボタン番号を返す
// ペア方式でなければ0を返す
func (dl *DragLock) Pairs(out []int) int {
	if dl.mode != ModePairs {
		return 0
	}

	// 歴史的経緯: ペア方式なのにメタボタンが残っている場合は
	// メタボタンだけを要素1つで返す
	if dl.metaButton != 0 {
		out[0] = dl.metaButton
		return 1
	}

	last := 0
	for i := range out {
		out[i] = 0
	}
	for i := 0; i < len(out) && i <= MaxButtons; i++ {
		out[i] = dl.lockPairs[i]
		if out[i] != 0 && i > last {
			last = i
		}
	}
	return last
}

// SetMeta はメタボタンを設定する。0を渡すと無効状態になる
// 範囲外の値を渡した場合は状態を変更せずエラーを返す
func (dl *DragLock) SetMeta(button int) error {
	if button < 0 || button >= MaxButtons {
		return fmt.Errorf("%w: meta button %d", ErrOutOfRange, button)
	}

	dl.metaButton = button
	if button != 0 {
		dl.mode = ModeMeta
	} else {
		dl.mode = ModeDisabled
	}
	return nil
}

// SetPairs はボタンペアのマッピングを設定する
// mapping[0]は必ず0でなければならない。すべてのターゲットが0なら無効状態になる
func (dl *DragLock) SetPairs(mapping []int) error {
	if len(mapping) == 0 || mapping[0] != 0 {
		return fmt.Errorf("%w: mapping for button 0 must be unset", ErrOutOfRange)
	}
	if len(mapping) > MaxButtons+1 {
		return fmt.Errorf("%w: mapping has %d entries", ErrOutOfRange, len(mapping))
	}
	for i, target := range mapping {
		if target < 0 || target >= MaxButtons {
			return fmt.Errorf("%w: target %d for button %d", ErrOutOfRange, target, i)
		}
	}

	dl.mode = ModeDisabled
	for i, target := range mapping {
		dl.lockPairs[i] = target
		if target != 0 {
			dl.mode = ModePairs
		}
	}
	return nil
}

// FilterButton はボタンイベントを1つ処理し、通過させるイベントを返す
// 返り値のボタン番号が0ならイベントは破棄する
func (dl *DragLock) FilterButton(button int, press bool) (int, bool) {
	// ボタン0は実在しない番兵。範囲外のボタンもそのまま通す
	if button <= 0 || button > MaxButtons {
		return button, press
	}

	switch dl.mode {
	case ModeDisabled:
		return button, press
	case ModeMeta:
		return dl.filterMeta(button, press)
	case ModePairs:
		return dl.filterPair(button, press)
	default:
		panic(fmt.Sprintf("draglock: unexpected mode %d", dl.mode))
	}
}

func (dl *DragLock) filterMeta(button int, press bool) (int, bool) {
	// メタボタン自身のイベントは常に飲み込む。押下でアームする
	if button == dl.metaButton {
		if press {
			dl.metaArmed = true
		}
		return 0, press
	}

	b := button
	switch dl.lockState[button] {
	case stateNone:
		if dl.metaArmed && press {
			dl.lockState[button] = stateDown1
			dl.metaArmed = false
		}
	case stateDown1:
		if !press {
			dl.lockState[button] = stateUp1
			b = 0
		}
	case stateUp1:
		if press {
			dl.lockState[button] = stateDown2
			b = 0
		}
	case stateDown2:
		if !press {
			dl.lockState[button] = stateNone
		}
	}

	return b, press
}

func (dl *DragLock) filterPair(button int, press bool) (int, bool) {
	// マッピングのないボタンはそのまま通す
	if dl.lockPairs[button] == 0 {
		return button, press
	}

	b := button
	switch dl.lockState[button] {
	case stateNone:
		if press {
			dl.lockState[button] = stateDown1
			b = dl.lockPairs[button]
		}
	case stateDown1:
		if !press {
			dl.lockState[button] = stateUp1
			b = 0
		}
	case stateUp1:
		if press {
			dl.lockState[button] = stateDown2
			b = 0
		}
	case stateDown2:
		if !press {
			dl.lockState[button] = stateNone
			b = dl.lockPairs[button]
		}
	}

	return b, press
}
