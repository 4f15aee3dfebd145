package domain_test

import (
	"testing"

	"herdbook/testutil"
)

// The domain layer is the dependency floor of the module: entities, line item
// records, and rule primitives must stay importable from anywhere without
// dragging in storage or service packages.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"domain layer must not depend on internal implementation packages")
}
