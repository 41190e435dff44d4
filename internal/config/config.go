package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/char5742/keyball-draglock/internal/bezier"
)

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	DragLock DragLockConfig `toml:"draglock"`
	Pressure PressureConfig `toml:"pressure"`
	Device   DeviceConfig   `toml:"device"`
	Output   OutputConfig   `toml:"output"`
	API      APIConfig      `toml:"api"`
}

// DragLockConfig はドラッグロックの設定
type DragLockConfig struct {
	// Buttons はメタボタン番号1つ（"8"）またはボタンペアの列（"1 11 2 12"）。
	// 空文字列で無効
	Buttons string `toml:"buttons"`
}

// PressureConfig は筆圧応答カーブの設定
type PressureConfig struct {
	// Curve は4つの制御点を "x/y x/y x/y x/y" の形式で指定する
	Curve string `toml:"curve"`
	// AxisMax は筆圧軸の最大値。ルックアップテーブルのサイズはAxisMax+1になる
	AxisMax int `toml:"axis_max"`
}

// DeviceConfig は入力デバイス選択の設定
type DeviceConfig struct {
	PreferredPointer string `toml:"preferred_pointer"`
}

// OutputConfig は仮想出力デバイスの設定
type OutputConfig struct {
	Name string `toml:"name"`
}

// APIConfig はAPIサーバーの設定
type APIConfig struct {
	Port int `toml:"port"`
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		DragLock: DragLockConfig{
			Buttons: "",
		},
		Pressure: PressureConfig{
			Curve:   "0/0 0/0 1/1 1/1",
			AxisMax: 2047,
		},
		Device: DeviceConfig{
			PreferredPointer: "",
		},
		Output: OutputConfig{
			Name: "DragLock Pointer",
		},
		API: APIConfig{
			Port: 8080,
		},
	}
}

// GetDefaultConfigDir はデフォルトの設定ディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "keyball-draglock"), nil
}

// LoadConfig は設定ファイルから設定を読み込む
func LoadConfig(configPath string) (*Config, error) {
	// デフォルト設定を用意
	config := DefaultConfig()

	// ファイルが存在しない場合はデフォルト設定を保存して返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}
		return config, nil
	}

	// 設定ファイルの読み込み
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return config, err
	}

	return config, nil
}

// SaveConfig は設定をTOMLファイルに保存する
func SaveConfig(configPath string, config *Config) error {
	// 設定ディレクトリの作成
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(config)
}

// ParsePressureCurve は "x/y x/y x/y x/y" 形式の文字列を制御点に変換する
func ParsePressureCurve(s string) ([4]bezier.ControlPoint, error) {
	var controls [4]bezier.ControlPoint

	fields := strings.Fields(s)
	if len(fields) != 4 {
		return controls, fmt.Errorf("pressure curve must have 4 control points, got %d", len(fields))
	}

	for i, field := range fields {
		xs, ys, ok := strings.Cut(field, "/")
		if !ok {
			return controls, fmt.Errorf("bad control point %q", field)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return controls, fmt.Errorf("bad control point %q: %w", field, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return controls, fmt.Errorf("bad control point %q: %w", field, err)
		}
		if x < 0.0 || x > 1.0 || y < 0.0 || y > 1.0 {
			return controls, fmt.Errorf("control point %q outside [0, 1]", field)
		}
		controls[i] = bezier.ControlPoint{X: x, Y: y}
	}

	return controls, nil
}
