package lifecycle

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrymomot/certward/core/certstore"
)

// Filter selects authorization ids from the credential store. The three
// variants are Predicate, DomainList and AgeThreshold; anything else
// (including nil) fails with ErrUnsupportedFilter. A tagged variant type is
// used instead of runtime type inspection so the set of filter shapes is
// closed and checked at compile time.
type Filter interface {
	filter()
}

// Predicate selects every authorization id for which the function returns
// true. It receives a copy of the stored bundle and its id.
type Predicate func(creds certstore.Credentials, authID string) bool

func (Predicate) filter() {}

// DomainList resolves domain names to their authorization ids. Every listed
// domain must have active credentials; an unmatched domain fails the whole
// filter with ErrUnknownDomain.
type DomainList []string

func (DomainList) filter() {}

// Domain is a convenience constructor for filtering by a single domain name.
func Domain(name string) DomainList {
	return DomainList{name}
}

// AgeThreshold selects bundles issued more than OlderThan ago, or before
// IssuedBefore when set. Issuance age is derived from the stored expiry via
// the fixed 90-day certificate lifetime.
type AgeThreshold struct {
	OlderThan    time.Duration
	IssuedBefore time.Time
}

func (AgeThreshold) filter() {}

// resolveFilter evaluates a filter against the store and returns the
// selected authorization ids in deterministic order.
func (o *Orchestrator) resolveFilter(f Filter) ([]string, error) {
	switch f := f.(type) {
	case Predicate:
		if f == nil {
			return nil, ErrUnsupportedFilter
		}
		var ids []string
		for id, creds := range o.store.Auth() {
			if f(creds, id) {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		return ids, nil

	case DomainList:
		var ids []string
		seen := make(map[string]struct{}, len(f))
		for _, domain := range f {
			id, ok := o.store.AuthIDForDomain(domain)
			if !ok {
				return nil, errors.Join(ErrUnknownDomain, fmt.Errorf("domain %q", domain))
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		return ids, nil

	case AgeThreshold:
		cutoff := f.cutoff(time.Now())
		var ids []string
		for id, creds := range o.store.Auth() {
			if creds.ExpiresAt.Before(cutoff) {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		return ids, nil

	default:
		return nil, ErrUnsupportedFilter
	}
}

// cutoff converts the threshold into an expiry cutoff: bundles expiring
// before it were issued more than the threshold ago, given the fixed
// CertificateLifetime.
func (t AgeThreshold) cutoff(now time.Time) time.Time {
	if !t.IssuedBefore.IsZero() {
		return t.IssuedBefore.Add(CertificateLifetime)
	}
	return now.Add(CertificateLifetime - t.OlderThan)
}
