package consts

// イベントタイプの定数（input-event-codes.hより）
const (
	Syn = 0x00 // 同期イベント
	Key = 0x01 // キーイベント
	Rel = 0x02 // 相対座標イベント
	Abs = 0x03 // 絶対座標イベント

	RelX      = 0x00 // X軸の相対移動
	RelY      = 0x01 // Y軸の相対移動
	RelHWheel = 0x06 // 水平ホイールの相対移動
	RelWheel  = 0x08 // ホイールの相対移動

	AbsPressure = 0x18 // 筆圧の絶対値

	SynReport = 0 // イベント報告の同期
)

// ポインターのボタンコード
const (
	BtnLeft    = 0x110 // マウス左ボタン
	BtnRight   = 0x111 // マウス右ボタン
	BtnMiddle  = 0x112 // マウス中ボタン
	BtnSide    = 0x113 // サイドボタン
	BtnExtra   = 0x114 // 拡張ボタン
	BtnForward = 0x115 // 進むボタン
	BtnBack    = 0x116 // 戻るボタン
	BtnTask    = 0x117 // タスクボタン
)
