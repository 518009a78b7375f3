// Package crypto provides the cryptographic envelopes of the Kiebitz
// protocol. Every actor talks to the others through an untrusted relay, so
// everything that matters is either signed, encrypted, or both.
//
// # Algorithm Suite
//
// The algorithms are fixed; records produced by browser clients using
// WebCrypto must verify and decrypt here and vice versa.
//
//   - ECDSA P-256 with SHA-256: signatures in IEEE P1363 form (r || s, 64 bytes).
//
//   - ECDH P-256: the 32-byte shared x-coordinate is used as the AES key.
//
//   - AES-256-GCM: 96-bit random IV per message, 128-bit tag appended to the
//     ciphertext.
//
//   - PBKDF2-SHA-256 (100 000 iterations, fixed public salt): stretches
//     secrets into AES keys for backups.
//
//   - HKDF-SHA-256 (fixed public salt): [DeriveSecrets] turns one secret into
//     several unlinkable values, such as a storage id and a storage key.
//
// # Envelopes
//
//   - [SignedData]: payload JSON plus signature plus the signer's key. The
//     embedded key is advisory; [Verify] only accepts keys the caller already
//     trusts.
//
//   - [ECDHData]: ciphertext plus the sender's ECDH public key. Produced by
//     [Suite.ECDHEncrypt] (durable sender key) or [Suite.EphemeralECDHEncrypt]
//     (single-use sender key). Both open with [ECDHDecrypt].
//
//   - [AESData]: symmetric ciphertext for backups.
//
// # Keys
//
// Private keys are JWKs, public keys base64 SPKI. [KeyPair] carries both.
// Signing and encryption keys are generated separately and never reused
// across purposes.
//
// Operations that need randomness hang off [Suite], which is injected into
// every caller; verification and decryption are plain functions.
//
// # Encodings
//
//   - [ToBase64]/[FromBase64]: standard base64 for every wire field.
//   - [ToBase64URL]/[FromBase64URL]: unpadded URL-safe base64 for JWK fields.
//   - [ToBase32]/[FromBase32]: human-friendly alphabet for secrets people copy.
package crypto
