package pda

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPubkey(r *rand.Rand) Pubkey {
	var pk Pubkey
	r.Read(pk[:])
	return pk
}

func TestTokenDataAddress_Determinism(t *testing.T) {
	creator := MustParsePubkey("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

	first, bump, err := TokenDataAddress(DefaultForgeProgramID, creator, "Foo")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		addr, b, err := TokenDataAddress(DefaultForgeProgramID, creator, "Foo")
		require.NoError(t, err)
		assert.Equal(t, first, addr, "derivation %d differs", i)
		assert.Equal(t, bump, b)
	}
}

func TestTokenDataAddress_NoCollisions(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	seen := make(map[Pubkey]string)

	creators := make([]Pubkey, 20)
	for i := range creators {
		creators[i] = randomPubkey(r)
	}
	names := []string{"Foo", "foo", "Bar", "Foo ", "F", "Forge Token", "ab", "a"}

	for _, creator := range creators {
		for _, name := range names {
			addr, _, err := TokenDataAddress(DefaultForgeProgramID, creator, name)
			require.NoError(t, err)

			key := creator.String() + "|" + name
			if prev, exists := seen[addr]; exists {
				t.Fatalf("collision between %q and %q", prev, key)
			}
			seen[addr] = key
		}
	}
	assert.Len(t, seen, len(creators)*len(names))
}

func TestTokenDataAddress_NamespaceSeparation(t *testing.T) {
	creator := MustParsePubkey("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

	tokenData, _, err := TokenDataAddress(DefaultForgeProgramID, creator, "Foo")
	require.NoError(t, err)

	auth, err := MintAuthority(DefaultForgeProgramID)
	require.NoError(t, err)

	mint, _, err := MintAddress(DefaultForgeProgramID, tokenData)
	require.NoError(t, err)

	other, _, err := TokenDataAddress(TokenProgramID, creator, "Foo")
	require.NoError(t, err)

	addrs := []Pubkey{tokenData, auth.Address(), mint, other}
	for i := range addrs {
		for j := i + 1; j < len(addrs); j++ {
			assert.NotEqual(t, addrs[i], addrs[j], "addresses %d and %d collide", i, j)
		}
	}
}

func TestFindProgramAddress_OffCurve(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		seed := make([]byte, 1+r.Intn(MaxSeedLen))
		r.Read(seed)

		addr, bump, err := FindProgramAddress([][]byte{seed}, DefaultForgeProgramID)
		require.NoError(t, err)
		assert.False(t, IsOnCurve(addr[:]), "derived address must be off curve")

		again, err := CreateProgramAddress([][]byte{seed, {bump}}, DefaultForgeProgramID)
		require.NoError(t, err)
		assert.Equal(t, addr, again)
	}
}

func TestIsOnCurve_Generator(t *testing.T) {
	g := edwards25519.NewGeneratorPoint().Bytes()
	assert.True(t, IsOnCurve(g))
	assert.False(t, IsOnCurve(g[:31]))
}

func TestCreateProgramAddress_Limits(t *testing.T) {
	long := bytes.Repeat([]byte{1}, MaxSeedLen+1)
	_, err := CreateProgramAddress([][]byte{long}, DefaultForgeProgramID)
	assert.ErrorIs(t, err, ErrInvalidSeeds)

	many := make([][]byte, MaxSeeds+1)
	for i := range many {
		many[i] = []byte{byte(i)}
	}
	_, err = CreateProgramAddress(many, DefaultForgeProgramID)
	assert.ErrorIs(t, err, ErrInvalidSeeds)

	// the bump takes the last seed slot
	_, _, err = FindProgramAddress(many[:MaxSeeds], DefaultForgeProgramID)
	assert.ErrorIs(t, err, ErrInvalidSeeds)
}

func TestTokenDataAddress_NameBeyondSeedLimit(t *testing.T) {
	creator := MustParsePubkey("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	name := string(bytes.Repeat([]byte("n"), MaxSeedLen+1))

	_, _, err := TokenDataAddress(DefaultForgeProgramID, creator, name)
	assert.ErrorIs(t, err, ErrInvalidSeeds)
}

func TestFindProgramAddress_Exhausted(t *testing.T) {
	orig := onCurve
	onCurve = func([]byte) bool { return true }
	defer func() { onCurve = orig }()

	_, _, err := FindProgramAddress([][]byte{[]byte("x")}, DefaultForgeProgramID)
	assert.True(t, errors.Is(err, ErrDerivationExhausted), "got %v", err)

	_, err = MintAuthority(DefaultForgeProgramID)
	assert.ErrorIs(t, err, ErrDerivationExhausted)
}

func TestSigner_Verify(t *testing.T) {
	auth, err := MintAuthority(DefaultForgeProgramID)
	require.NoError(t, err)
	assert.NoError(t, auth.Verify(DefaultForgeProgramID))
	assert.Equal(t, DefaultForgeProgramID, auth.Program())

	again, err := MintAuthority(DefaultForgeProgramID)
	require.NoError(t, err)
	assert.Equal(t, auth.Address(), again.Address())
	assert.Equal(t, auth.Bump(), again.Bump())

	// wrong program
	assert.ErrorIs(t, auth.Verify(TokenProgramID), ErrInvalidSigner)

	// zero value carries no capability
	assert.ErrorIs(t, Signer{}.Verify(DefaultForgeProgramID), ErrInvalidSigner)

	// tampered bump
	forged := auth
	forged.bump--
	assert.ErrorIs(t, forged.Verify(DefaultForgeProgramID), ErrInvalidSigner)
}

func TestPubkey_TextRoundTrip(t *testing.T) {
	const s = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	pk, err := ParsePubkey(s)
	require.NoError(t, err)
	assert.Equal(t, s, pk.String())

	text, err := pk.MarshalText()
	require.NoError(t, err)

	var back Pubkey
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, pk, back)

	for _, bad := range []string{"", "0OIl", "abc", s + s} {
		_, err := ParsePubkey(bad)
		assert.ErrorIs(t, err, ErrInvalidPubkey, "input %q", bad)
	}
	assert.True(t, SystemProgramID.IsZero())
	assert.Equal(t, "11111111111111111111111111111111", SystemProgramID.String())
}
