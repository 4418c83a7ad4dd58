// Package cryptometa builds and parses the opaque crypto-metadata header that
// clients attach to blob writes. The server stores the header verbatim and
// never interprets the encryption parameters inside it.
package cryptometa

import (
	"encoding/base64"
	"strings"

	"github.com/avolkov/cryptbucket/internal/errs"
)

// HeaderName is the HTTP header carrying crypto metadata on blob endpoints.
// It is a fixed wire contract shared with every client.
const HeaderName = "nk-crypto-meta"

// Spec identifies the header layout version.
const Spec = "NK001"

// Build assembles a header from base64-encoded iv and salt.
func Build(iv, salt string) string {
	return Spec + "|" + iv + "|" + salt
}

// Parse splits a header into its decoded iv and salt.
func Parse(header string) (iv, salt []byte, err error) {
	parts := strings.Split(header, "|")
	if len(parts) != 3 {
		return nil, nil, errs.User("CRYPTO_META_HEADER_INVALID", "Provided crypto metadata header is invalid")
	}
	iv, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, errs.User("CRYPTO_META_HEADER_INVALID", "Crypto metadata header contains invalid base64")
	}
	salt, err = base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, nil, errs.User("CRYPTO_META_HEADER_INVALID", "Crypto metadata header contains invalid base64")
	}
	return iv, salt, nil
}
