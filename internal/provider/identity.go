package provider

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/oshokin/alert-hub/internal/domain/alert"
)

// separator splits the local ID from the source key. Local IDs may contain
// it too, so decoding splits at the last occurrence.
const separator = ":"

// CompositeID is a federated alert identity: a source-local ID plus the
// registry key of the owning source.
type CompositeID struct {
	// Local is the identity inside the owning source.
	Local alert.ID
	// Source is the registry key of the owning source.
	Source string
}

// String implements alert.ID and returns the encoded form.
func (id CompositeID) String() string {
	return Encode(id)
}

// Equal reports whether both identities point at the same alert.
func (id CompositeID) Equal(other CompositeID) bool {
	return id.Source == other.Source && localText(id.Local) == localText(other.Local)
}

// Encode renders id as "<local-id>:<source-key>".
func Encode(id CompositeID) string {
	return localText(id.Local) + separator + id.Source
}

// Decode parses text produced by Encode and resolves it against sources.
func Decode(text string, sources map[string]Source) (CompositeID, error) {
	idx := strings.LastIndex(text, separator)
	if idx < 0 {
		return CompositeID{}, fmt.Errorf("%w: %q has no source key", alert.ErrInvalidIdentity, text)
	}

	localPart, key := text[:idx], text[idx+len(separator):]
	if key == "" {
		return CompositeID{}, fmt.Errorf("%w: %q has an empty source key", alert.ErrInvalidIdentity, text)
	}

	src, ok := sources[key]
	if !ok || src == nil {
		return CompositeID{}, fmt.Errorf("%w: %q", alert.ErrUnresolvedSource, key)
	}

	local, err := src.Resolve(localPart)
	if err != nil {
		return CompositeID{}, fmt.Errorf("%w: %q: %w", alert.ErrUnresolvedAlert, localPart, err)
	}

	return CompositeID{
		Local:  local,
		Source: key,
	}, nil
}

// SourceKey derives the registry key of src. Keyed sources choose their own;
// for the rest the key hashes the dynamic type and instance address, so it
// is stable for the instance lifetime only. A source that is neither Keyed
// nor a reference has no instance identity and gets an empty key.
func SourceKey(src Source) string {
	if keyed, ok := src.(Keyed); ok {
		return keyed.SourceKey()
	}

	v := reflect.ValueOf(src)

	switch v.Kind() { //nolint:exhaustive // Only reference kinds carry an address.
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
	default:
		return ""
	}

	h := xxhash.New()
	_, _ = h.WriteString(fmt.Sprintf("%T", src))

	var addr [8]byte

	binary.LittleEndian.PutUint64(addr[:], uint64(v.Pointer()))
	_, _ = h.Write(addr[:])

	return strconv.FormatUint(h.Sum64(), 36)
}

// validSourceKey reports whether key can be decoded back unambiguously.
func validSourceKey(key string) bool {
	return key != "" && !strings.Contains(key, separator)
}

func localText(id alert.ID) string {
	if id == nil {
		return ""
	}

	return id.String()
}
