// Package rent computes the lamport balance an account must hold to be exempt
// from rent collection.
package rent

// Default cluster rent parameters.
const (
	LamportsPerByteYear    uint64 = 3480
	ExemptionThresholdYrs  uint64 = 2
	AccountStorageOverhead uint64 = 128
)

// MinimumBalance returns the rent-exempt minimum for an account holding dataLen bytes.
func MinimumBalance(dataLen int) uint64 {
	return (AccountStorageOverhead + uint64(dataLen)) * LamportsPerByteYear * ExemptionThresholdYrs
}
