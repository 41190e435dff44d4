package bezier

import (
	"errors"
	"fmt"
)

// ErrInvalidCurve は制御点が[0,1]の範囲外か、xが単調でないことを表す
var ErrInvalidCurve = errors.New("invalid bezier control points")

// ControlPoint は単位正方形内の3次ベジェ曲線の制御点を表す
type ControlPoint struct {
	X float64
	Y float64
}

// Defaults は恒等変換（直線）になる制御点
var Defaults = [4]ControlPoint{
	{0.0, 0.0},
	{0.0, 0.0},
	{1.0, 1.0},
	{1.0, 1.0},
}

// 曲線を折れ線に近似する際の分割数
const nsegments = 50

type point struct {
	x, y int
}

// de Casteljauのアルゴリズムでパラメータtの曲線上の点を求める
// 隣接する制御点同士を線形補間してn点をn-1点に減らす操作を1点になるまで繰り返す
func decasteljau(controls [4]point, t float64) point {
	pts := controls
	for n := len(pts); n > 1; n-- {
		for i := 0; i < n-1; i++ {
			pts[i].x = int((1.0-t)*float64(pts[i].x) + t*float64(pts[i+1].x))
			pts[i].y = int((1.0-t)*float64(pts[i].y) + t*float64(pts[i+1].y))
		}
	}
	return pts[0]
}

// 曲線をnsegments個の点に平坦化する
func flattenCurve(controls [4]point, curve []point) {
	last := len(curve) - 1
	for i := 0; i <= last; i++ {
		t := float64(i) / float64(last)
		curve[i] = decasteljau(controls, t)
	}
}

// aとbを通る直線を引き、[a.x, b.x]の各整数xに対してcurve[x]を埋める
func lineBetween(a, b point, curve []point) {
	if a.x == b.x {
		curve[a.x] = point{a.x, a.y}
		return
	}

	slope := float64(b.y-a.y) / float64(b.x-a.x)
	offset := float64(a.y) - slope*float64(a.x)

	for x := a.x; x <= b.x; x++ {
		curve[x] = point{x, int(slope*float64(x) + offset)}
	}
}

// CubicBezier は4つの制御点から応答カーブのルックアップテーブルを生成する
//
// outの各添字x（入力値）に対応する出力値を書き込む。制御点が不正な場合は
// ErrInvalidCurveを返し、outには一切書き込まない
func CubicBezier(controls [4]ControlPoint, out []int) error {
	size := len(out)
	if size < 2 {
		return fmt.Errorf("%w: output size %d too small", ErrInvalidCurve, size)
	}
	r := size - 1

	// 制御点を[0, size)の整数空間に拡大する
	var ctrls [4]point
	for i, c := range controls {
		if c.X < 0.0 || c.X > 1.0 || c.Y < 0.0 || c.Y > 1.0 {
			return fmt.Errorf("%w: point %d (%v/%v) outside [0, 1]", ErrInvalidCurve, i, c.X, c.Y)
		}
		ctrls[i].x = int(c.X * float64(r))
		ctrls[i].y = int(c.Y * float64(r))
	}

	// x座標は昇順でなければならない
	for i := 0; i < 3; i++ {
		if controls[i+1].X < controls[i].X {
			return fmt.Errorf("%w: x coordinates not monotonic", ErrInvalidCurve)
		}
	}

	// 描画プログラムではないので折れ線への近似で十分
	var curve [nsegments]point
	flattenCurve(ctrls, curve[:])

	// 近似した点同士を直線で結べばカーブが得られる。
	// 最初の制御点がx == 0にない、または最後の制御点が最大値にない場合は、
	// 0/0から最初の点へ、最後の点からxmax/ymaxへそれぞれ直線を引いて埋める
	bezier := make([]point, size)

	lineBetween(point{0, 0}, curve[0], bezier)

	for i := 0; i < nsegments-1; i++ {
		lineBetween(curve[i], curve[i+1], bezier)
	}

	max := point{r, r}
	if curve[nsegments-1].x < max.x {
		lineBetween(curve[nsegments-1], max, bezier)
	}

	for i := range bezier {
		out[i] = bezier[i].y
	}

	return nil
}
