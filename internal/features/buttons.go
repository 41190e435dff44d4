package features

import (
	"github.com/char5742/keyball-draglock/internal/consts"
)

// 論理ボタン番号の割り当て: 1=左 2=中 3=右 4〜7=ホイール 8以降=サイドボタン

// IsButtonCode はコードがポインターのボタンかどうかを返す
func IsButtonCode(code uint16) bool {
	return code >= consts.BtnLeft && code <= maxButtonCode
}

// ButtonFromCode はカーネルのボタンコードを論理ボタン番号に変換する
func ButtonFromCode(code uint16) int {
	switch code {
	case 0:
		return 0
	case consts.BtnLeft:
		return 1
	case consts.BtnMiddle:
		return 2
	case consts.BtnRight:
		return 3
	default:
		if code < consts.BtnSide {
			return 0
		}
		return 8 + int(code) - consts.BtnSide
	}
}

// CodeFromButton は論理ボタン番号をカーネルのボタンコードに変換する
// ホイールに割り当てられた4〜7には対応するコードがないため0を返す
func CodeFromButton(button int) uint16 {
	switch {
	case button <= 0:
		return 0
	case button == 1:
		return consts.BtnLeft
	case button == 2:
		return consts.BtnMiddle
	case button == 3:
		return consts.BtnRight
	case button < 8:
		return 0
	default:
		return uint16(consts.BtnSide + button - 8)
	}
}

// ホイールに対応する論理ボタン番号
const (
	WheelUpButton    = 4
	WheelDownButton  = 5
	WheelLeftButton  = 6
	WheelRightButton = 7
)

// 論理ボタン31（上限）に対応するコード
var maxButtonCode = CodeFromButton(31)
