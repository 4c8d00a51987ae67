package feed

import (
	"time"

	"github.com/katatrina/xsmb-live/internal/lottery"
)

// DefaultDelay is the simulator's pause between two reveals.
const DefaultDelay = 500 * time.Millisecond

// mockValues là bộ kết quả mẫu cố định dùng cho chế độ mô phỏng.
var mockValues = map[string]string{
	"firstPrize_0":   "12345",
	"secondPrize_0":  "67890",
	"secondPrize_1":  "24680",
	"threePrizes_0":  "13579",
	"threePrizes_1":  "86420",
	"threePrizes_2":  "97531",
	"threePrizes_3":  "11223",
	"threePrizes_4":  "44556",
	"threePrizes_5":  "77889",
	"fourPrizes_0":   "1234",
	"fourPrizes_1":   "5678",
	"fourPrizes_2":   "9012",
	"fourPrizes_3":   "3456",
	"fivePrizes_0":   "7890",
	"fivePrizes_1":   "2345",
	"fivePrizes_2":   "6789",
	"fivePrizes_3":   "0123",
	"fivePrizes_4":   "4567",
	"fivePrizes_5":   "8901",
	"sixPrizes_0":    "234",
	"sixPrizes_1":    "567",
	"sixPrizes_2":    "890",
	"sevenPrizes_0":  "12",
	"sevenPrizes_1":  "34",
	"sevenPrizes_2":  "56",
	"sevenPrizes_3":  "78",
	"maDB":           "1KZ-6KZ-14KZ",
	"specialPrize_0": "98765",
}

// Step is one reveal of the simulated draw.
type Step struct {
	Field string
	Value string
	Delay time.Duration
}

// MockSchedule returns every field once, in canonical reveal order, with its mock value.
func MockSchedule(delay time.Duration) []Step {
	fields := lottery.Fields()
	steps := make([]Step, 0, len(fields))
	for _, f := range fields {
		steps = append(steps, Step{
			Field: f,
			Value: mockValues[f],
			Delay: delay,
		})
	}
	return steps
}
