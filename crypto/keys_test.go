package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalPublicKey_RoundTrip(t *testing.T) {
	key := encryptionKey(t)

	der, err := MarshalPublicKey(&key.PublicKey)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(der), MaxPublicKeySize)

	parsed, err := ParsePublicKey(der)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(parsed))
}

func TestParsePublicKey_Garbage(t *testing.T) {
	_, err := ParsePublicKey([]byte("not DER"))
	assert.Error(t, err)
}

func TestPublicKeyFingerprint_Stable(t *testing.T) {
	key := encryptionKey(t)
	der, err := MarshalPublicKey(&key.PublicKey)
	require.NoError(t, err)

	fp := PublicKeyFingerprint(der)
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, PublicKeyFingerprint(der))

	other := issuerKey(t)
	otherDER, err := MarshalPublicKey(&other.PublicKey)
	require.NoError(t, err)
	assert.NotEqual(t, fp, PublicKeyFingerprint(otherDER))
}

func TestIdentity_SignVerify(t *testing.T) {
	pub, priv, err := GenerateIdentity()
	require.NoError(t, err)

	derived, err := priv.PublicKey()
	require.NoError(t, err)
	assert.True(t, pub.Equal(derived))

	data := []byte("instruction payload")
	sig, err := Sign(priv, data)
	require.NoError(t, err)

	assert.True(t, sig.Verify(pub, data))
	assert.False(t, sig.Verify(pub, []byte("different payload")))

	otherPub, _, err := GenerateIdentity()
	require.NoError(t, err)
	assert.False(t, sig.Verify(otherPub, data))
}

func TestPublicKey_HexRoundTrip(t *testing.T) {
	pub, _, err := GenerateIdentity()
	require.NoError(t, err)

	parsed, err := NewPublicKeyFromString(pub.String())
	require.NoError(t, err)
	assert.True(t, pub.Equal(parsed))
}

func TestSign_InvalidKeySize(t *testing.T) {
	_, err := Sign(PrivateKey("short"), []byte("data"))
	assert.Error(t, err)

	_, err = PrivateKey("short").PublicKey()
	assert.Error(t, err)
}
