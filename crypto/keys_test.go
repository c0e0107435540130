package crypto

import (
	"testing"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/stretchr/testify/require"
)

func TestGeneratedKeyDerivesPoolAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	addr := key.PubKey().Address()
	require.Equal(t, PoolPrefix, addr.Prefix())
	require.Len(t, addr.Bytes(), 20)

	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Bytes(), decoded.Bytes())
	require.Equal(t, PoolPrefix, decoded.Prefix())
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	restored, err := PrivateKeyFromBytes(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().String(), restored.PubKey().Address().String())
}

func TestDecodeAddressRejectsWrongPayloadLength(t *testing.T) {
	conv, err := bech32.ConvertBits(make([]byte, 32), 8, 5, true)
	require.NoError(t, err)
	encoded, err := bech32.Encode(string(PoolPrefix), conv)
	require.NoError(t, err)

	_, err = DecodeAddress(encoded)
	require.Error(t, err)
	require.Contains(t, err.Error(), "20 bytes")
}
