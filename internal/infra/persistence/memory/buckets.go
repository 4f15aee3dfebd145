package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"herdbook/pkg/domain"
)

// Bucket is one durable row of the snapshot layout: the full collection of an
// owner's entities of one type, serialized as a JSON array.
type Bucket struct {
	Key     string
	Payload []byte
}

const (
	bucketCategories = "categories"
	bucketCompanies  = "companies"
	bucketFarms      = "farms"
	bucketProtocols  = "protocols"
)

type ownerCollections struct {
	categories []Category
	companies  []Company
	farms      []Farm
	protocols  []Protocol
}

// EncodeBuckets flattens a snapshot into per-owner buckets keyed
// "<collection>_<owner>". All four collections are emitted for every owner,
// and owners and entities are sorted so identical states produce identical
// bytes. Entities whose ownership chain does not resolve are skipped; the
// snapshot migration drops them on the next load anyway.
func EncodeBuckets(snapshot Snapshot) ([]Bucket, error) {
	owners := make(map[string]*ownerCollections)
	collect := func(owner string) *ownerCollections {
		if owner == "" {
			return nil
		}
		c, ok := owners[owner]
		if !ok {
			c = &ownerCollections{}
			owners[owner] = c
		}
		return c
	}
	farmOwner := func(f Farm) string {
		company, ok := snapshot.Companies[f.CompanyID]
		if !ok {
			return ""
		}
		return company.OwnerID
	}

	for _, category := range snapshot.Categories {
		if c := collect(category.OwnerID); c != nil {
			c.categories = append(c.categories, category)
		}
	}
	for _, company := range snapshot.Companies {
		if c := collect(company.OwnerID); c != nil {
			c.companies = append(c.companies, company)
		}
	}
	for _, farm := range snapshot.Farms {
		if c := collect(farmOwner(farm)); c != nil {
			c.farms = append(c.farms, farm)
		}
	}
	for _, protocol := range snapshot.Protocols {
		farm, ok := snapshot.Farms[protocol.FarmID]
		if !ok {
			continue
		}
		if c := collect(farmOwner(farm)); c != nil {
			c.protocols = append(c.protocols, protocol)
		}
	}

	ownerIDs := make([]string, 0, len(owners))
	for owner := range owners {
		ownerIDs = append(ownerIDs, owner)
	}
	sort.Strings(ownerIDs)

	buckets := make([]Bucket, 0, len(ownerIDs)*4)
	for _, owner := range ownerIDs {
		c := owners[owner]
		sort.Slice(c.categories, func(i, j int) bool { return entityBefore(c.categories[i].Base, c.categories[j].Base) })
		sort.Slice(c.companies, func(i, j int) bool { return entityBefore(c.companies[i].Base, c.companies[j].Base) })
		sort.Slice(c.farms, func(i, j int) bool { return entityBefore(c.farms[i].Base, c.farms[j].Base) })
		sort.Slice(c.protocols, func(i, j int) bool { return entityBefore(c.protocols[i].Base, c.protocols[j].Base) })

		for _, entry := range []struct {
			collection string
			value      any
		}{
			{bucketCategories, emptyIfNil(c.categories)},
			{bucketCompanies, emptyIfNil(c.companies)},
			{bucketFarms, emptyIfNil(c.farms)},
			{bucketProtocols, emptyIfNil(c.protocols)},
		} {
			payload, err := json.Marshal(entry.value)
			if err != nil {
				return nil, fmt.Errorf("encode %s for owner %s: %w", entry.collection, owner, err)
			}
			buckets = append(buckets, Bucket{Key: entry.collection + "_" + owner, Payload: payload})
		}
	}
	return buckets, nil
}

// DecodeBuckets reassembles a snapshot from durable bucket rows. Keys with an
// unrecognized collection prefix are rejected.
func DecodeBuckets(buckets []Bucket) (Snapshot, error) {
	snapshot := Snapshot{
		Categories: map[string]Category{},
		Companies:  map[string]Company{},
		Farms:      map[string]Farm{},
		Protocols:  map[string]Protocol{},
	}
	for _, bucket := range buckets {
		collection, _, ok := strings.Cut(bucket.Key, "_")
		if !ok {
			return Snapshot{}, fmt.Errorf("malformed bucket key %q", bucket.Key)
		}
		switch collection {
		case bucketCategories:
			var categories []Category
			if err := json.Unmarshal(bucket.Payload, &categories); err != nil {
				return Snapshot{}, fmt.Errorf("decode %s: %w", bucket.Key, err)
			}
			for _, category := range categories {
				snapshot.Categories[category.ID] = category
			}
		case bucketCompanies:
			var companies []Company
			if err := json.Unmarshal(bucket.Payload, &companies); err != nil {
				return Snapshot{}, fmt.Errorf("decode %s: %w", bucket.Key, err)
			}
			for _, company := range companies {
				snapshot.Companies[company.ID] = company
			}
		case bucketFarms:
			var farms []Farm
			if err := json.Unmarshal(bucket.Payload, &farms); err != nil {
				return Snapshot{}, fmt.Errorf("decode %s: %w", bucket.Key, err)
			}
			for _, farm := range farms {
				snapshot.Farms[farm.ID] = farm
			}
		case bucketProtocols:
			var protocols []Protocol
			if err := json.Unmarshal(bucket.Payload, &protocols); err != nil {
				return Snapshot{}, fmt.Errorf("decode %s: %w", bucket.Key, err)
			}
			for _, protocol := range protocols {
				snapshot.Protocols[protocol.ID] = protocol
			}
		default:
			return Snapshot{}, fmt.Errorf("unknown bucket collection in key %q", bucket.Key)
		}
	}
	return snapshot, nil
}

func entityBefore(a, b domain.Base) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func emptyIfNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
