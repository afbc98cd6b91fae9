package formattools

import "fmt"

// AccountRef formats a raw account number into the dashed reference used
// in logs and notifications, analogous to the teacher's medical-record
// number formatting.
type AccountRef struct {
	number uint64
}

// NewAccountRef wraps a raw account number for display.
func NewAccountRef(number uint64) *AccountRef {
	return &AccountRef{number: number}
}

// String renders the account reference as NNN-NN-NN.
func (a AccountRef) String() string {
	x1 := a.number / 1e4
	x2 := a.number / 1e2 % 1e2
	x3 := a.number % 1e2
	return fmt.Sprintf("%03d-%02d-%02d", x1, x2, x3)
}
