package seat

import "fmt"

// 座席ラベルは2つの決定的な採番方式を持つ。
//
// グリッド方式（初回予約時の自動シード用）: 行ラベルは A..Z の後 AA, AB.. と
// 伸びていき、ラベルは「A1」「B3」のように行+列を連結する。1行あたりの
// 席数は設定可能（既定10）。
//
// 照合方式（収容数変更時の座席同期用）: 1行50席固定でラベルは「A-1」形式。
// 行は A..Z までで、それ以降は最終行 Z が溢れを吸収するため、どれだけ
// 大きな収容数でも決定的なまま。

// ReconcileSeatsPerRow は照合方式の1行あたりの席数
const ReconcileSeatsPerRow = 50

// RowLetters は0始まりの行インデックスを行ラベルに変換する
// 0->A, 25->Z, 26->AA, 27->AB, ...
func RowLetters(i int) string {
	s := ""
	for {
		s = string(rune('A'+i%26)) + s
		i = i/26 - 1
		if i < 0 {
			return s
		}
	}
}

// GridPosition は0始まりの席インデックスをグリッド方式の位置に変換する
func GridPosition(i, perRow int) (rowLabel string, colNumber int, label string) {
	if perRow < 1 {
		perRow = 1
	}
	rowLabel = RowLetters(i / perRow)
	colNumber = i%perRow + 1
	label = fmt.Sprintf("%s%d", rowLabel, colNumber)
	return rowLabel, colNumber, label
}

// ReconcilePosition は1始まりの席インデックスを照合方式の位置に変換する
func ReconcilePosition(idx int) (rowLabel string, colNumber int, label string) {
	if idx < 1 {
		idx = 1
	}
	rowIdx := (idx - 1) / ReconcileSeatsPerRow
	colNumber = (idx-1)%ReconcileSeatsPerRow + 1
	if rowIdx > 25 {
		// A..Z を超える分は最終行 Z が吸収する
		rowIdx = 25
	}
	rowLabel = string(rune('A' + rowIdx))
	label = fmt.Sprintf("%s-%d", rowLabel, colNumber)
	return rowLabel, colNumber, label
}
