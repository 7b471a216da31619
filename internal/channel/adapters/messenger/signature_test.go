package messenger

import (
	"encoding/hex"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	secret := []byte("app-secret")
	body := []byte(`{"object":"page","entry":[]}`)
	valid := SignatureValue(body, secret)

	tests := []struct {
		name   string
		body   []byte
		header string
		secret []byte
		want   bool
	}{
		{name: "valid", body: body, header: valid, secret: secret, want: true},
		{name: "surrounding space", body: body, header: "  " + valid + " ", secret: secret, want: true},
		{name: "missing header", body: body, header: "", secret: secret},
		{name: "no prefix", body: body, header: valid[len("sha256="):], secret: secret},
		{name: "sha1 prefix", body: body, header: "sha1=" + valid[len("sha256="):], secret: secret},
		{name: "not hex", body: body, header: "sha256=zz", secret: secret},
		{name: "tampered body", body: []byte(`{"object":"page","entry":[{}]}`), header: valid, secret: secret},
		{name: "wrong secret", body: body, header: valid, secret: []byte("other")},
		{name: "empty secret", body: body, header: SignatureValue(body, nil), secret: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.body, tt.header, tt.secret); got != tt.want {
				t.Fatalf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifySignatureKnownVector(t *testing.T) {
	t.Parallel()

	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	header := "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if !VerifySignature([]byte("The quick brown fox jumps over the lazy dog"), header, []byte("key")) {
		t.Fatal("expected known vector to verify")
	}
}

func TestVerifySignatureRejectsSingleBitFlips(t *testing.T) {
	t.Parallel()

	secret := []byte("app-secret")
	body := []byte(`{"object":"page","entry":[{"messaging":[{"sender":{"id":"1"}}]}]}`)
	digest := Sign(body, secret)
	if !VerifySignature(body, SignatureValue(body, secret), secret) {
		t.Fatal("expected unmodified body to verify")
	}

	for i := 0; i < len(body)*8; i++ {
		mutated := append([]byte(nil), body...)
		mutated[i/8] ^= 1 << (i % 8)
		if VerifySignature(mutated, SignatureValue(body, secret), secret) {
			t.Fatalf("body bit %d flipped but signature verified", i)
		}
	}
	for i := 0; i < len(digest)*8; i++ {
		mutated := append([]byte(nil), digest...)
		mutated[i/8] ^= 1 << (i % 8)
		if VerifySignature(body, "sha256="+hex.EncodeToString(mutated), secret) {
			t.Fatalf("signature bit %d flipped but still verified", i)
		}
	}
}
