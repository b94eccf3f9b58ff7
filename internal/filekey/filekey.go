package filekey

import (
	"errors"
	"strings"
)

// Separator joins the remote file id and its content fingerprint.
const Separator = ";"

var (
	ErrEmptyID          = errors.New("filekey: empty id")
	ErrEmptyFingerprint = errors.New("filekey: empty fingerprint")
	ErrMalformed        = errors.New("filekey: malformed key")
)

// Key identifies one version of one remote file, serialized as "<id>;<fingerprint>".
// A content change on the remote produces a new fingerprint and therefore a new Key.
type Key string

// New builds a Key from a remote file id and its content fingerprint
func New(id, fingerprint string) (Key, error) {
	if id == "" {
		return "", ErrEmptyID
	}
	if fingerprint == "" {
		return "", ErrEmptyFingerprint
	}
	if strings.Contains(fingerprint, Separator) {
		return "", ErrMalformed
	}
	return Key(id + Separator + fingerprint), nil
}

// Parse validates a serialized key. The fingerprint is everything after the last separator.
func Parse(s string) (Key, error) {
	i := strings.LastIndex(s, Separator)
	if i < 0 {
		return "", ErrMalformed
	}
	return New(s[:i], s[i+1:])
}

// ID returns the remote file id part of the key
func (k Key) ID() string {
	i := strings.LastIndex(string(k), Separator)
	if i < 0 {
		return string(k)
	}
	return string(k)[:i]
}

// Fingerprint returns the content fingerprint part of the key
func (k Key) Fingerprint() string {
	i := strings.LastIndex(string(k), Separator)
	if i < 0 {
		return ""
	}
	return string(k)[i+1:]
}

func (k Key) String() string {
	return string(k)
}
