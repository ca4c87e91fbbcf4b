package ipc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// KeyProof derives the auth handshake proof: HMAC-SHA256 of the envelope ID
// under the pre-shared key. The ID doubles as the challenge nonce because
// clients generate it fresh per request, and the server's replay protection
// rejects reused sequence numbers on the same connection.
func KeyProof(preSharedKey, envelopeID string) string {
	mac := hmac.New(sha256.New, []byte(preSharedKey))
	mac.Write([]byte(envelopeID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyKeyProof checks a client proof in constant time.
func VerifyKeyProof(preSharedKey, envelopeID, proof string) bool {
	expected := KeyProof(preSharedKey, envelopeID)
	return hmac.Equal([]byte(expected), []byte(proof))
}
