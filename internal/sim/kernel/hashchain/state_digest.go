package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"rivet.ai/internal/sim/encoding"
	"rivet.ai/internal/sim/encoding/digestcodec"
	"rivet.ai/internal/sim/kernel/state"
)

// DomainDigester lets a domain stream itself into the state digest instead
// of going through canonical JSON.
type DomainDigester interface {
	DigestDomain(w digestcodec.Writer, tmp *[8]byte)
}

const stateDigestVersion = "rivet/state/v1"

// StateHash digests a snapshot: header, entities in id order with their
// components in kind order, the domain, and the run config. The StateHash
// field itself is not covered.
func StateHash(s *state.State) (string, error) {
	h := sha256.New()
	var tmp [8]byte

	digestHeader(h, &tmp, s)
	if err := digestEntities(h, &tmp, s); err != nil {
		return "", err
	}
	if err := digestDomain(h, &tmp, s); err != nil {
		return "", err
	}
	if err := digestJSON(h, &tmp, "config", s.Config); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func digestHeader(h hash.Hash, tmp *[8]byte, s *state.State) {
	digestcodec.WriteString(h, tmp, stateDigestVersion)
	digestcodec.WriteString(h, tmp, s.WorldID)
	digestcodec.WriteU64(h, tmp, s.Tick)
	digestcodec.WriteString(h, tmp, s.LastEventHash)
	digestcodec.WriteString(h, tmp, s.Result)
}

func digestEntities(h hash.Hash, tmp *[8]byte, s *state.State) error {
	ents := s.Entities.All()
	digestcodec.WriteU64(h, tmp, uint64(len(ents)))
	for _, e := range ents {
		digestcodec.WriteString(h, tmp, e.ID)
		digestcodec.WriteString(h, tmp, e.Type)
		comps := e.Components()
		digestcodec.WriteU64(h, tmp, uint64(len(comps)))
		for _, c := range comps {
			digestcodec.WriteString(h, tmp, string(c.Kind()))
			b, err := encoding.CanonicalJSON(c)
			if err != nil {
				return fmt.Errorf("entity %s component %s: %w", e.ID, c.Kind(), err)
			}
			digestcodec.WriteBytes(h, tmp, b)
		}
	}
	return nil
}

func digestDomain(h hash.Hash, tmp *[8]byte, s *state.State) error {
	if d, ok := s.Domain.(DomainDigester); ok {
		h.Write([]byte{'D'})
		d.DigestDomain(h, tmp)
		return nil
	}
	return digestJSON(h, tmp, "domain", s.Domain)
}

func digestJSON(h hash.Hash, tmp *[8]byte, what string, v any) error {
	if v == nil {
		h.Write([]byte{0})
		return nil
	}
	b, err := encoding.CanonicalJSON(v)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	h.Write([]byte{1})
	digestcodec.WriteBytes(h, tmp, b)
	return nil
}
