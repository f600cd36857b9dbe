package loadtest

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/marcelom97/scimprobe/scim"
)

const lowerAlpha = "abcdefghijklmnopqrstuvwxyz"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = lowerAlpha[rand.Intn(len(lowerAlpha))]
	}
	return string(b)
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

var teamNames = []string{
	"Engineering", "Marketing", "Sales", "Support", "Finance",
	"Legal", "Operations", "Product", "Design", "Research",
}

// generateUserBody builds the i-th synthetic user for a load-test phase.
// userName is unique per call (random suffix plus the dense index), per
// spec.md §4.3.
func generateUserBody(i int) string {
	suffix := randomSuffix(8)
	userName := fmt.Sprintf("loadtest_%s_%04d@test.example.com", suffix, i)
	given := "Load" + randomSuffix(4)
	family := "Test" + randomSuffix(4)
	u := scim.User{
		Schemas:     []string{"urn:ietf:params:scim:schemas:core:2.0:User"},
		UserName:    userName,
		Name:        &scim.Name{GivenName: given, FamilyName: family},
		DisplayName: given + " " + family,
		Active:      scim.Bool(true),
		Emails: []scim.Email{
			{Value: userName, Type: "work", Primary: true},
		},
	}
	return mustJSON(u)
}

// generateGroupBody builds the i-th synthetic group, cycling through a
// fixed team-name list so concurrent phases don't all collide on one
// displayName, per spec.md §4.3.
func generateGroupBody(i int) string {
	team := teamNames[i%len(teamNames)]
	suffix := randomSuffix(6)
	g := scim.Group{
		Schemas:     []string{"urn:ietf:params:scim:schemas:core:2.0:Group"},
		DisplayName: fmt.Sprintf("%s Team %s %04d", team, suffix, i),
	}
	return mustJSON(g)
}

// generatePatchBody builds a PATCH replacing displayName with a fresh
// random value, used by create_update and update_groups.
func generatePatchBody() string {
	p := scim.PatchOp{
		Schemas: []string{patchSchemaURN},
		Operations: []scim.PatchOperation{
			{Op: "replace", Path: "displayName", Value: "Updated_" + randomSuffix(6)},
		},
	}
	return mustJSON(p)
}
