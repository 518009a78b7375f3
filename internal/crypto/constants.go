package crypto

const (
	// CurveName is the JWK curve identifier for every key in the protocol.
	CurveName = "P-256"

	// CoordinateSize is the size of a P-256 field element in bytes.
	CoordinateSize = 32

	// SignatureSize is the size of an IEEE P1363 (r || s) ECDSA P-256 signature.
	SignatureSize = 2 * CoordinateSize

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// PBKDF2Iterations is the iteration count used to stretch symmetric secrets.
	PBKDF2Iterations = 100000

	// SecretSize is the number of random bytes behind a human-readable secret.
	SecretSize = 10
)

// PBKDF2Salt is the fixed public salt for symmetric key stretching. It is
// public on purpose: the derived key must be reproducible from the secret
// alone when restoring a backup on a fresh device.
var PBKDF2Salt = []byte("kiebitz:aes:v1")

// HKDFSalt is the fixed public salt used by DeriveSecrets.
var HKDFSalt = []byte("kiebitz:secrets:v1")
