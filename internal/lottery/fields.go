package lottery

import (
	"fmt"
	"time"
)

// Sentinel là giá trị giữ chỗ cho một giải chưa quay.
const Sentinel = "..."

// FieldMachineCodes là ô chứa ký hiệu bộ máy quay (mã ĐB), luôn được công bố ngay trước giải đặc biệt.
const FieldMachineCodes = "maDB"

// FieldSpecialPrize là giải đặc biệt, giải được quay cuối cùng.
const FieldSpecialPrize = "specialPrize_0"

// tier mô tả một hạng giải: tên gốc của field, số lượng ô và độ dài con số.
type tier struct {
	name   string
	count  int
	digits int
}

// Thứ tự quay thực tế của XSMB: giải nhất trước, xuống dần tới giải bảy.
var tiers = []tier{
	{name: "firstPrize", count: 1, digits: 5},
	{name: "secondPrize", count: 2, digits: 5},
	{name: "threePrizes", count: 6, digits: 5},
	{name: "fourPrizes", count: 4, digits: 4},
	{name: "fivePrizes", count: 6, digits: 4},
	{name: "sixPrizes", count: 3, digits: 3},
	{name: "sevenPrizes", count: 4, digits: 2},
}

// specialPrizeDigits là độ dài con số của giải đặc biệt.
const specialPrizeDigits = 5

var (
	fieldOrder  = buildFieldOrder()
	fieldIndex  = buildFieldIndex(fieldOrder)
	fieldDigits = buildFieldDigits()
)

func buildFieldOrder() []string {
	fields := make([]string, 0, 28)
	for _, t := range tiers {
		for i := 0; i < t.count; i++ {
			fields = append(fields, fmt.Sprintf("%s_%d", t.name, i))
		}
	}
	return append(fields, FieldMachineCodes, FieldSpecialPrize)
}

func buildFieldIndex(order []string) map[string]int {
	index := make(map[string]int, len(order))
	for i, f := range order {
		index[f] = i
	}
	return index
}

// Fields returns every field name of a draw in canonical reveal order.
// The returned slice is a copy and may be modified by the caller.
func Fields() []string {
	out := make([]string, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

// IsField reports whether name belongs to the fixed field set.
func IsField(name string) bool {
	_, ok := fieldIndex[name]
	return ok
}

// FieldPosition returns the position of name in the canonical order, or -1.
func FieldPosition(name string) int {
	if i, ok := fieldIndex[name]; ok {
		return i
	}
	return -1
}

// FieldDigits returns how many digits a result of the field has,
// or 0 for fields that are not a plain number (maDB, unknown names).
func FieldDigits(name string) int {
	return fieldDigits[name]
}

func buildFieldDigits() map[string]int {
	digits := make(map[string]int, 27)
	for _, t := range tiers {
		for i := 0; i < t.count; i++ {
			digits[fmt.Sprintf("%s_%d", t.name, i)] = t.digits
		}
	}
	digits[FieldSpecialPrize] = specialPrizeDigits
	return digits
}

// DefaultFields builds the full field set with every value set to Sentinel.
func DefaultFields() map[string]string {
	fields := make(map[string]string, len(fieldOrder))
	for _, f := range fieldOrder {
		fields[f] = Sentinel
	}
	return fields
}

// IsRevealed reports whether value is a real result rather than the placeholder.
func IsRevealed(value string) bool {
	return value != "" && value != Sentinel
}

// DateLayout là định dạng ngày quay dùng cho tham số truy vấn và khóa lưu trữ (DD-MM-YYYY).
const DateLayout = "02-01-2006"

// FormatDate converts t to the draw-date key used across store and broker.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
