// Package secret encrypts scheduler-opts fields that hold credentials
// (ssh_password, ssh_passphrase, winrm_password) at rest in a pipeline
// file, grounded on the gocrypt struct-tag encrypt/decrypt pattern.
// Unlike the struct-tag version, scheduler opts are a free-form
// map[string]any, so the relevant fields are addressed by name instead
// of by a tagged struct field.
package secret

import (
	"fmt"

	"github.com/firdasafridi/gocrypt"
)

// Fields lists the scheduler-opts keys treated as credentials.
var Fields = []string{"ssh_password", "ssh_passphrase", "winrm_password"}

// Placeholder replaces a credential field's value in anything hashed
// into a job signature, so rotating a secret never invalidates the cache
// and the secret itself never reaches job.signature.json.
const Placeholder = "***"

// cipher is the subset of gocrypt's AES option type this package relies
// on, named here so Vault doesn't have to spell out the concrete type
// NewAESOpt returns.
type cipher interface {
	Encrypt([]byte) ([]byte, error)
	Decrypt([]byte) ([]byte, error)
}

// Vault encrypts/decrypts credential fields with a single AES key, the
// same gocrypt.AESOpt wrapping the teacher's encryption helpers use.
type Vault struct {
	aes cipher
}

// New builds a Vault from a 64-byte hex key (the same NMS_SECRET shape
// the teacher's encryption package expects).
func New(key string) (*Vault, error) {
	aesOpt, err := gocrypt.NewAESOpt(key)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	return &Vault{aes: aesOpt}, nil
}

// Seal encrypts every credential field present in opts, in place,
// returning a copy so the caller's original map (e.g. a loaded
// ProcessSpec) is untouched.
func (v *Vault) Seal(opts map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(opts))
	for k, val := range opts {
		out[k] = val
	}
	for _, field := range Fields {
		s, ok := out[field].(string)
		if !ok || s == "" {
			continue
		}
		enc, err := v.aes.Encrypt([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("secret: encrypt %s: %w", field, err)
		}
		out[field] = string(enc)
	}
	return out, nil
}

// Open decrypts every credential field present in opts, returning a copy
// ready to hand to a backend's Submit/dial call.
func (v *Vault) Open(opts map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(opts))
	for k, val := range opts {
		out[k] = val
	}
	for _, field := range Fields {
		s, ok := out[field].(string)
		if !ok || s == "" {
			continue
		}
		dec, err := v.aes.Decrypt([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("secret: decrypt %s: %w", field, err)
		}
		out[field] = string(dec)
	}
	return out, nil
}

// Redact replaces every credential field present in opts with Placeholder.
// Nothing in the engine calls it: a job's Signature does not include
// scheduler opts at all.
func Redact(opts map[string]any) map[string]any {
	out := make(map[string]any, len(opts))
	for k, val := range opts {
		out[k] = val
	}
	for _, field := range Fields {
		if _, ok := out[field]; ok {
			out[field] = Placeholder
		}
	}
	return out
}
