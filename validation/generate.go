package validation

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
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// generateTestUserBody builds a disposable user body for create/CRUD
// probes, distinct from the Load-Test Engine's own generator (spec.md
// §4.3) which follows a different deterministic naming scheme.
func generateTestUserBody() string {
	suffix := randomSuffix(8)
	userName := fmt.Sprintf("scimtest_%s@test.example.com", suffix)
	u := scim.User{
		Schemas:  []string{"urn:ietf:params:scim:schemas:core:2.0:User"},
		UserName: userName,
		Name: &scim.Name{
			GivenName:  "Conformance",
			FamilyName: "Probe",
		},
		DisplayName: "Conformance Probe",
		Emails: []scim.Email{
			{Value: userName, Type: "work", Primary: true},
		},
		Active: scim.Bool(true),
	}
	return mustJSON(u)
}

func generateTestGroupBody() string {
	suffix := randomSuffix(8)
	g := scim.Group{
		Schemas:     []string{"urn:ietf:params:scim:schemas:core:2.0:Group"},
		DisplayName: fmt.Sprintf("Conformance Probe Group %s", suffix),
	}
	return mustJSON(g)
}
