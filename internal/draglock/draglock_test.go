package draglock

import (
	"errors"
	"strconv"
	"testing"
)

func TestConfigEmpty(t *testing.T) {
	dl, err := NewFromString("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dl.Mode() != ModeDisabled {
		t.Errorf("mode = %v, want ModeDisabled", dl.Mode())
	}
}

func TestConfigInvalid(t *testing.T) {
	cases := []string{
		"1 ", // 末尾の空白は許可しない
		" ",
		"\t\n",
		"1 2 ",
		"1 11 2 12\n",
		"256",
		"-1",
		"1 -2",
		"1 2 3",
		"0 2",
		"0 0",
		"abc",
		"1 x",
	}
	for _, config := range cases {
		dl, err := NewFromString(config)
		if err == nil {
			t.Errorf("NewFromString(%q): expected error", config)
		}
		if !errors.Is(err, ErrInvalidConfig) && !errors.Is(err, ErrOutOfRange) {
			t.Errorf("NewFromString(%q): unexpected error %v", config, err)
		}
		if dl == nil || dl.Mode() != ModeDisabled {
			t.Errorf("NewFromString(%q): instance must remain usable and disabled", config)
		}
	}
}

func TestConfigWhitespace(t *testing.T) {
	// 空白のみ・末尾の空白・負のターゲットはいずれも設定文字列の不正
	for _, config := range []string{" ", "1 2 ", "1 -2"} {
		_, err := NewFromString(config)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewFromString(%q): error = %v, want ErrInvalidConfig", config, err)
		}
	}

	// 先頭や区切りの空白は数値解釈で読み飛ばされる
	dl, err := NewFromString(" 1 11")
	if err != nil {
		t.Fatalf("NewFromString(\" 1 11\"): %v", err)
	}
	if dl.Mode() != ModePairs {
		t.Errorf("mode = %v, want ModePairs", dl.Mode())
	}

	dl, err = NewFromString("\t5")
	if err != nil {
		t.Fatalf("NewFromString(\"\\t5\"): %v", err)
	}
	if dl.Meta() != 5 {
		t.Errorf("Meta() = %d, want 5", dl.Meta())
	}
}

func TestConfigDisable(t *testing.T) {
	for _, config := range []string{"", "0"} {
		dl, err := NewFromString(config)
		if err != nil {
			t.Fatalf("NewFromString(%q): %v", config, err)
		}
		if dl.Mode() != ModeDisabled {
			t.Errorf("NewFromString(%q): mode = %v, want ModeDisabled", config, dl.Mode())
		}
	}
}

func TestConfigMetaButton(t *testing.T) {
	for _, button := range []int{1, 2, 10} {
		dl, err := NewFromString(strconv.Itoa(button))
		if err != nil {
			t.Fatalf("NewFromString(%d): %v", button, err)
		}
		if dl.Mode() != ModeMeta {
			t.Errorf("mode = %v, want ModeMeta", dl.Mode())
		}
		if dl.Meta() != button {
			t.Errorf("Meta() = %d, want %d", dl.Meta(), button)
		}
	}
}

func TestConfigButtonPairs(t *testing.T) {
	cases := []struct {
		config string
		mode   Mode
	}{
		{"1 1", ModePairs},
		{"1 2 3 4 5 6 7 8", ModePairs},
		{"1 2 3 4 5 0 7 8", ModePairs},
		// すべてのターゲットが0なら解析は成功するが無効状態になる
		{"1 0 3 0 5 0 7 0", ModeDisabled},
	}
	for _, tc := range cases {
		dl, err := NewFromString(tc.config)
		if err != nil {
			t.Fatalf("NewFromString(%q): %v", tc.config, err)
		}
		if dl.Mode() != tc.mode {
			t.Errorf("NewFromString(%q): mode = %v, want %v", tc.config, dl.Mode(), tc.mode)
		}
	}
}

func TestConfigGet(t *testing.T) {
	out := make([]int, MaxButtons)

	dl, _ := NewFromString("")
	if got := dl.Meta(); got != 0 {
		t.Errorf("Meta() = %d, want 0", got)
	}
	if got := dl.Pairs(out); got != 0 {
		t.Errorf("Pairs() = %d, want 0", got)
	}

	dl, _ = NewFromString("8")
	if got := dl.Meta(); got != 8 {
		t.Errorf("Meta() = %d, want 8", got)
	}
	if got := dl.Pairs(out); got != 0 {
		t.Errorf("Pairs() = %d, want 0", got)
	}

	dl, _ = NewFromString("1 2 3 4 5 6")
	if got := dl.Meta(); got != 0 {
		t.Errorf("Meta() = %d, want 0", got)
	}
	if got := dl.Pairs(out); got != 5 {
		t.Errorf("Pairs() = %d, want 5", got)
	}
	want := []int{0, 2, 0, 4, 0, 6}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("out[%d] = %d, want %d", i, out[i], w)
		}
	}
}

func TestSetMeta(t *testing.T) {
	dl := New()

	if err := dl.SetMeta(0); err != nil {
		t.Fatalf("SetMeta(0): %v", err)
	}
	if dl.Mode() != ModeDisabled {
		t.Errorf("mode = %v, want ModeDisabled", dl.Mode())
	}

	if err := dl.SetMeta(1); err != nil {
		t.Fatalf("SetMeta(1): %v", err)
	}
	if dl.Mode() != ModeMeta {
		t.Errorf("mode = %v, want ModeMeta", dl.Mode())
	}
	if dl.Meta() != 1 {
		t.Errorf("Meta() = %d, want 1", dl.Meta())
	}

	if err := dl.SetMeta(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetMeta(-1) = %v, want ErrOutOfRange", err)
	}
	if err := dl.SetMeta(32); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetMeta(32) = %v, want ErrOutOfRange", err)
	}
	// 失敗したsetterは状態を変更しない
	if dl.Mode() != ModeMeta || dl.Meta() != 1 {
		t.Errorf("failed SetMeta changed state: mode=%v meta=%d", dl.Mode(), dl.Meta())
	}
}

func TestSetPairs(t *testing.T) {
	dl := New()
	mapping := make([]int, MaxButtons)

	if err := dl.SetPairs(mapping); err != nil {
		t.Fatalf("SetPairs(all zero): %v", err)
	}
	if dl.Mode() != ModeDisabled {
		t.Errorf("mode = %v, want ModeDisabled", dl.Mode())
	}

	if err := dl.SetPairs(mapping[:1]); err != nil {
		t.Fatalf("SetPairs(len 1): %v", err)
	}
	if dl.Mode() != ModeDisabled {
		t.Errorf("mode = %v, want ModeDisabled", dl.Mode())
	}

	// mapping[0]は常に0でなければならない
	mapping[0] = 1
	if err := dl.SetPairs(mapping[:1]); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetPairs(mapping[0]=1) = %v, want ErrOutOfRange", err)
	}

	mapping[0] = 0
	mapping[1] = 2
	if err := dl.SetPairs(mapping); err != nil {
		t.Fatalf("SetPairs: %v", err)
	}
	if dl.Mode() != ModePairs {
		t.Errorf("mode = %v, want ModePairs", dl.Mode())
	}

	mapping[1] = 0
	mapping[10] = 8
	if err := dl.SetPairs(mapping); err != nil {
		t.Fatalf("SetPairs: %v", err)
	}
	if dl.Mode() != ModePairs {
		t.Errorf("mode = %v, want ModePairs", dl.Mode())
	}

	if err := dl.SetPairs(make([]int, MaxButtons+2)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetPairs(oversized) = %v, want ErrOutOfRange", err)
	}
}

func TestSetPairsRoundTrip(t *testing.T) {
	dl := New()
	mapping := make([]int, MaxButtons)
	mapping[1] = 11
	mapping[3] = 13

	if err := dl.SetPairs(mapping); err != nil {
		t.Fatalf("SetPairs: %v", err)
	}

	out := make([]int, MaxButtons)
	if got := dl.Pairs(out); got != 3 {
		t.Errorf("Pairs() = %d, want 3", got)
	}
	for i := range mapping {
		if out[i] != mapping[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], mapping[i])
		}
	}
}

// ペア方式にメタボタンが残っている場合、getterはメタボタンだけを返す
func TestPairsWithStaleMetaButton(t *testing.T) {
	dl := New()
	if err := dl.SetMeta(5); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	mapping := make([]int, MaxButtons)
	mapping[1] = 11
	if err := dl.SetPairs(mapping); err != nil {
		t.Fatalf("SetPairs: %v", err)
	}

	out := make([]int, MaxButtons)
	if got := dl.Pairs(out); got != 1 {
		t.Errorf("Pairs() = %d, want 1", got)
	}
	if out[0] != 5 {
		t.Errorf("out[0] = %d, want 5", out[0])
	}
}

func filter(t *testing.T, dl *DragLock, button int, press bool) (int, bool) {
	t.Helper()
	return dl.FilterButton(button, press)
}

func TestFilterMetaPassthrough(t *testing.T) {
	dl, err := NewFromString("10")
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}

	for i := 0; i < 10; i++ {
		if b, press := filter(t, dl, i, true); b != i || !press {
			t.Errorf("button %d press -> (%d, %v), want passthrough", i, b, press)
		}
		if b, press := filter(t, dl, i, true); b != i || !press {
			t.Errorf("button %d press -> (%d, %v), want passthrough", i, b, press)
		}
	}
}

func TestFilterMetaClickMetaOnly(t *testing.T) {
	dl, _ := NewFromString("10")

	if b, _ := filter(t, dl, 10, true); b != 0 {
		t.Errorf("meta press -> %d, want 0", b)
	}
	if b, _ := filter(t, dl, 10, false); b != 0 {
		t.Errorf("meta release -> %d, want 0", b)
	}
}

func TestFilterMeta(t *testing.T) {
	dl, _ := NewFromString("10")

	for i := 1; i < 10; i++ {
		/* meta down */
		if b, _ := filter(t, dl, 10, true); b != 0 {
			t.Fatalf("meta press -> %d, want 0", b)
		}
		/* meta up */
		if b, _ := filter(t, dl, 10, false); b != 0 {
			t.Fatalf("meta release -> %d, want 0", b)
		}
		/* button down -> passthrough */
		if b, _ := filter(t, dl, i, true); b != i {
			t.Fatalf("press %d -> %d, want passthrough", i, b)
		}
		/* button up -> eaten */
		if b, _ := filter(t, dl, i, false); b != 0 {
			t.Fatalf("release %d -> %d, want 0", i, b)
		}
		/* button down -> eaten */
		if b, _ := filter(t, dl, i, true); b != 0 {
			t.Fatalf("press %d -> %d, want 0", i, b)
		}
		/* button up -> passthrough */
		if b, press := filter(t, dl, i, false); b != i || press {
			t.Fatalf("release %d -> (%d, %v), want passthrough", i, b, press)
		}
	}
}

func TestFilterMetaExtraClick(t *testing.T) {
	dl, _ := NewFromString("10")

	for i := 1; i < 10; i++ {
		filter(t, dl, 10, true)
		filter(t, dl, 10, false)

		if b, _ := filter(t, dl, i, true); b != i {
			t.Fatalf("press %d -> %d, want passthrough", i, b)
		}
		if b, _ := filter(t, dl, i, false); b != 0 {
			t.Fatalf("release %d -> %d, want 0", i, b)
		}

		// ロック中にもう一度メタをクリックしても影響しない
		filter(t, dl, 10, true)
		filter(t, dl, 10, false)

		if b, _ := filter(t, dl, i, true); b != 0 {
			t.Fatalf("press %d -> %d, want 0", i, b)
		}
		if b, press := filter(t, dl, i, false); b != i || press {
			t.Fatalf("release %d -> (%d, %v), want passthrough", i, b, press)
		}
	}
}

func TestFilterMetaInterleaved(t *testing.T) {
	dl, _ := NewFromString("10")

	// すべてのボタンをロック状態にする
	for i := 1; i < 10; i++ {
		filter(t, dl, 10, true)
		filter(t, dl, 10, false)

		if b, _ := filter(t, dl, i, true); b != i {
			t.Fatalf("press %d -> %d, want passthrough", i, b)
		}
		if b, _ := filter(t, dl, i, false); b != 0 {
			t.Fatalf("release %d -> %d, want 0", i, b)
		}
	}

	// まとめて解除する
	for i := 0; i < 10; i++ {
		/* button down -> eaten */
		if b, _ := filter(t, dl, i, true); b != 0 {
			t.Fatalf("press %d -> %d, want 0", i, b)
		}
		if b, press := filter(t, dl, i, false); b != i || press {
			t.Fatalf("release %d -> (%d, %v), want passthrough", i, b, press)
		}
	}
}

func TestFilterPairs(t *testing.T) {
	dl, err := NewFromString("1 11 2 0 3 13 4 0 5 15 6 0 7 17 8 0 9 19")
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}

	// 1周目: 奇数ボタンはターゲットに付け替え、偶数ボタンはそのまま
	for i := 1; i < 10; i++ {
		b, press := filter(t, dl, i, true)
		if i%2 == 1 {
			if b != i+10 {
				t.Fatalf("press %d -> %d, want %d", i, b, i+10)
			}
		} else if b != i {
			t.Fatalf("press %d -> %d, want passthrough", i, b)
		}
		if !press {
			t.Fatalf("press %d: press flag lost", i)
		}

		b, press = filter(t, dl, i, false)
		if i%2 == 1 {
			if b != 0 {
				t.Fatalf("release %d -> %d, want 0", i, b)
			}
		} else if b != i || press {
			t.Fatalf("release %d -> (%d, %v), want passthrough", i, b, press)
		}
	}

	// 2周目: 奇数ボタンの押下は飲み込まれ、解放でターゲットが解放される
	for i := 1; i < 10; i++ {
		b, press := filter(t, dl, i, true)
		if i%2 == 1 {
			if b != 0 {
				t.Fatalf("press %d -> %d, want 0", i, b)
			}
		} else if b != i || !press {
			t.Fatalf("press %d -> (%d, %v), want passthrough", i, b, press)
		}

		b, press = filter(t, dl, i, false)
		if i%2 == 1 {
			if b != i+10 {
				t.Fatalf("release %d -> %d, want %d", i, b, i+10)
			}
		} else if b != i {
			t.Fatalf("release %d -> %d, want passthrough", i, b)
		}
		if press {
			t.Fatalf("release %d: press flag set", i)
		}
	}
}

func TestFilterButtonZeroInert(t *testing.T) {
	configs := []string{"", "10", "1 11"}
	for _, config := range configs {
		dl, _ := NewFromString(config)
		for _, press := range []bool{true, false} {
			if b, p := dl.FilterButton(0, press); b != 0 || p != press {
				t.Errorf("config %q: FilterButton(0, %v) = (%d, %v)", config, press, b, p)
			}
		}
		// ボタン0がモード状態に影響しないこと
		if config == "10" {
			if b, _ := dl.FilterButton(3, true); b != 3 {
				t.Errorf("config %q: button 3 unexpectedly locked", config)
			}
		}
	}
}

func TestFilterDisabledPassthrough(t *testing.T) {
	dl := New()
	for i := 0; i < MaxButtons; i++ {
		for _, press := range []bool{true, false} {
			if b, p := dl.FilterButton(i, press); b != i || p != press {
				t.Errorf("FilterButton(%d, %v) = (%d, %v), want unchanged", i, press, b, p)
			}
		}
	}
}

func TestFilterOutOfRangePassthrough(t *testing.T) {
	dl, _ := NewFromString("10")
	if b, press := dl.FilterButton(40, true); b != 40 || !press {
		t.Errorf("FilterButton(40, true) = (%d, %v), want unchanged", b, press)
	}
}
