package connector

import (
	"strings"
	"testing"
)

// Known vector from the X API signing documentation.
func TestOAuth1KnownSignature(t *testing.T) {
	signer := &OAuth1Signer{
		ConsumerKey:    "xvz1evFS4wEEPTGEFPHBog",
		ConsumerSecret: "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw",
		Token:          "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		TokenSecret:    "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE",
	}

	header := signer.header(
		"POST",
		"https://api.twitter.com/1.1/statuses/update.json",
		map[string]string{
			"status":           "Hello Ladies + Gentlemen, a signed OAuth request!",
			"include_entities": "true",
		},
		"kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg",
		1318622958,
	)

	if !strings.HasPrefix(header, "OAuth ") {
		t.Fatalf("header = %q, want OAuth prefix", header)
	}
	want := `oauth_signature="hCtSmYh%2BiHYCEqBWrE7C7hYmtUk%3D"`
	if !strings.Contains(header, want) {
		t.Errorf("header = %q, want it to contain %q", header, want)
	}
	if !strings.Contains(header, `oauth_signature_method="HMAC-SHA1"`) {
		t.Errorf("header = %q, missing signature method", header)
	}
}

func TestOAuth1NonceUniqueWithinSecond(t *testing.T) {
	signer := &OAuth1Signer{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		Token:          "tok",
		TokenSecret:    "ts",
	}

	first, err := signer.AuthorizationHeader("POST", "https://api.twitter.com/2/tweets", nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := signer.AuthorizationHeader("POST", "https://api.twitter.com/2/tweets", nil)
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Error("two headers signed back to back are identical; nonce is not unique")
	}
}

func TestPercentEncode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a b", "a%20b"},
		{"a+b", "a%2Bb"},
		{"~keep", "~keep"},
		{"Ladies + Gentlemen", "Ladies%20%2B%20Gentlemen"},
	}
	for _, tt := range tests {
		if got := percentEncode(tt.in); got != tt.want {
			t.Errorf("percentEncode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
