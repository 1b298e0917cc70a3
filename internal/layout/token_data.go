// Package layout encodes the fixed-size binary records kept in ledger accounts.
//
// TokenData uses the Anchor account convention: an 8-byte discriminator
// followed by the borsh encoding of the fields. Mint and TokenAccount use the
// SPL token program's packed layouts.
package layout

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"tokenforge/internal/domain"
	"tokenforge/internal/pda"
)

// Field bounds of a TokenData record.
const (
	MaxNameLen   = 50
	MaxSymbolLen = 10

	DiscriminatorLen = 8

	// TokenDataSize is the largest borsh encoding of the fields.
	TokenDataSize = 32 + (4 + MaxNameLen) + (4 + MaxSymbolLen) + 8 + 1 + 8 + 1 + 8

	// TokenDataSpace is the allocation of a TokenData account.
	TokenDataSpace = DiscriminatorLen + TokenDataSize
)

var (
	// ErrInvalidData is returned when account bytes cannot be decoded.
	ErrInvalidData = errors.New("invalid account data")

	// ErrFieldTooLong is returned when a string field exceeds its bound.
	ErrFieldTooLong = errors.New("field exceeds maximum length")
)

// TokenDataDiscriminator tags TokenData accounts.
var TokenDataDiscriminator = discriminator("account:TokenData")

func discriminator(preimage string) [DiscriminatorLen]byte {
	var d [DiscriminatorLen]byte
	sum := sha256.Sum256([]byte(preimage))
	copy(d[:], sum[:DiscriminatorLen])
	return d
}

// ValidateName checks the byte bound and encoding of a token name.
func ValidateName(name string) error {
	return validateString("name", name, MaxNameLen)
}

// ValidateSymbol checks the byte bound and encoding of a token symbol.
func ValidateSymbol(symbol string) error {
	return validateString("symbol", symbol, MaxSymbolLen)
}

func validateString(field, s string, max int) error {
	if len(s) > max {
		return fmt.Errorf("%w: %s is %d bytes, max %d", ErrFieldTooLong, field, len(s), max)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidData, field)
	}
	return nil
}

// EncodeTokenData serializes t into exactly TokenDataSpace bytes.
func EncodeTokenData(t *domain.TokenData) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil token data", ErrInvalidData)
	}
	if err := ValidateName(t.Name); err != nil {
		return nil, err
	}
	if err := ValidateSymbol(t.Symbol); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, TokenDataSpace)
	buf = append(buf, TokenDataDiscriminator[:]...)
	buf = append(buf, t.Creator[:]...)
	buf = appendString(buf, t.Name)
	buf = appendString(buf, t.Symbol)
	buf = binary.LittleEndian.AppendUint64(buf, t.Supply)
	buf = append(buf, t.Decimals)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.CreatedAt))
	buf = append(buf, boolByte(t.TradingEnabled))
	buf = binary.LittleEndian.AppendUint64(buf, t.TotalRevenueDistributed)

	// zero-fill up to the fixed allocation
	return buf[:TokenDataSpace], nil
}

// DecodeTokenData parses an account produced by EncodeTokenData.
func DecodeTokenData(data []byte) (*domain.TokenData, error) {
	if len(data) < DiscriminatorLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidData, len(data))
	}
	if [DiscriminatorLen]byte(data[:DiscriminatorLen]) != TokenDataDiscriminator {
		return nil, fmt.Errorf("%w: discriminator mismatch", ErrInvalidData)
	}

	r := reader{buf: data, off: DiscriminatorLen}
	var t domain.TokenData

	creator, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	t.Creator = creator

	if t.Name, err = r.string(MaxNameLen); err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if t.Symbol, err = r.string(MaxSymbolLen); err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}
	if t.Supply, err = r.u64(); err != nil {
		return nil, err
	}
	if t.Decimals, err = r.u8(); err != nil {
		return nil, err
	}
	createdAt, err := r.u64()
	if err != nil {
		return nil, err
	}
	t.CreatedAt = int64(createdAt)
	if t.TradingEnabled, err = r.bool(); err != nil {
		return nil, err
	}
	if t.TotalRevenueDistributed, err = r.u64(); err != nil {
		return nil, err
	}

	return &t, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// reader walks a byte slice with bounds checks.
type reader struct {
	buf []byte
	off int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrInvalidData, n, r.off, len(r.buf))
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) bool() (bool, error) {
	b, err := r.u8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid bool byte %d", ErrInvalidData, b)
	}
}

func (r *reader) pubkey() (pda.Pubkey, error) {
	b, err := r.take(pda.PubkeyLen)
	if err != nil {
		return pda.Pubkey{}, err
	}
	return pda.PubkeyFromBytes(b)
}

func (r *reader) string(max int) (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if n > uint32(max) {
		return "", fmt.Errorf("%w: length %d, max %d", ErrFieldTooLong, n, max)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
