package layout

import (
	"encoding/binary"
	"fmt"

	"tokenforge/internal/domain"
	"tokenforge/internal/pda"
)

// SPL token program account sizes.
const (
	MintSize         = 82
	TokenAccountSize = 165
)

// Mint layout:
// mint_authority COption<Pubkey>(4+32) | supply u64 | decimals u8 | is_initialized u8 |
// freeze_authority COption<Pubkey>(4+32)
const (
	mintSupplyOffset      = 36
	mintDecimalsOffset    = 44
	mintInitializedOffset = 45
	mintFreezeOffset      = 46
)

// TokenAccount layout:
// mint(32) | owner(32) | amount(8) | delegate COption(36) | state(1) | is_native COption<u64>(12) |
// delegated_amount(8) | close_authority COption(36)
const (
	accountMintOffset   = 0
	accountOwnerOffset  = 32
	accountAmountOffset = 64
	accountStateOffset  = 108
)

// EncodeMint packs m into MintSize bytes.
func EncodeMint(m *domain.Mint) []byte {
	buf := make([]byte, MintSize)
	putOptionPubkey(buf[0:36], m.MintAuthority)
	binary.LittleEndian.PutUint64(buf[mintSupplyOffset:], m.Supply)
	buf[mintDecimalsOffset] = m.Decimals
	buf[mintInitializedOffset] = boolByte(m.IsInitialized)
	putOptionPubkey(buf[mintFreezeOffset:MintSize], m.FreezeAuthority)
	return buf
}

// DecodeMint unpacks a mint account.
func DecodeMint(data []byte) (*domain.Mint, error) {
	if len(data) < MintSize {
		return nil, fmt.Errorf("%w: mint data too short: %d", ErrInvalidData, len(data))
	}
	authority, err := optionPubkey(data[0:36])
	if err != nil {
		return nil, fmt.Errorf("mint authority: %w", err)
	}
	freeze, err := optionPubkey(data[mintFreezeOffset:MintSize])
	if err != nil {
		return nil, fmt.Errorf("freeze authority: %w", err)
	}
	initialized := data[mintInitializedOffset]
	if initialized > 1 {
		return nil, fmt.Errorf("%w: invalid is_initialized byte %d", ErrInvalidData, initialized)
	}
	return &domain.Mint{
		MintAuthority:   authority,
		Supply:          binary.LittleEndian.Uint64(data[mintSupplyOffset:]),
		Decimals:        data[mintDecimalsOffset],
		IsInitialized:   initialized == 1,
		FreezeAuthority: freeze,
	}, nil
}

// EncodeTokenAccount packs a holding record into TokenAccountSize bytes.
// Delegate, native and close-authority fields are left empty.
func EncodeTokenAccount(a *domain.TokenAccount) []byte {
	buf := make([]byte, TokenAccountSize)
	copy(buf[accountMintOffset:], a.Mint[:])
	copy(buf[accountOwnerOffset:], a.Owner[:])
	binary.LittleEndian.PutUint64(buf[accountAmountOffset:], a.Amount)
	buf[accountStateOffset] = byte(a.State)
	return buf
}

// DecodeTokenAccount unpacks a holding record.
func DecodeTokenAccount(data []byte) (*domain.TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("%w: token account data too short: %d", ErrInvalidData, len(data))
	}
	state := domain.TokenAccountState(data[accountStateOffset])
	if state > domain.TokenAccountFrozen {
		return nil, fmt.Errorf("%w: invalid account state %d", ErrInvalidData, state)
	}
	var a domain.TokenAccount
	copy(a.Mint[:], data[accountMintOffset:accountOwnerOffset])
	copy(a.Owner[:], data[accountOwnerOffset:accountAmountOffset])
	a.Amount = binary.LittleEndian.Uint64(data[accountAmountOffset:])
	a.State = state
	return &a, nil
}

func putOptionPubkey(dst []byte, pk *pda.Pubkey) {
	if pk == nil {
		return
	}
	binary.LittleEndian.PutUint32(dst[0:4], 1)
	copy(dst[4:36], pk[:])
}

func optionPubkey(src []byte) (*pda.Pubkey, error) {
	switch tag := binary.LittleEndian.Uint32(src[0:4]); tag {
	case 0:
		return nil, nil
	case 1:
		pk, err := pda.PubkeyFromBytes(src[4:36])
		if err != nil {
			return nil, err
		}
		return &pk, nil
	default:
		return nil, fmt.Errorf("%w: invalid option tag %d", ErrInvalidData, tag)
	}
}
