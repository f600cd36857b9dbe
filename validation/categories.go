package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/marcelom97/scimprobe/model"
	"github.com/marcelom97/scimprobe/scim"
)

const patchSchema = "urn:ietf:params:scim:api:messages:2.0:PatchOp"

// createDisposableUser creates a throwaway user for probes that need one
// as a prerequisite but don't count the creation itself against the
// category's test total (spec.md §4.2: "creates a disposable user").
func (e *Engine) createDisposableUser() (id, userName string, ok bool) {
	body := generateTestUserBody()
	resp, err := e.client.Post("/Users", body)
	if err != nil {
		return "", "", false
	}
	if resp.Status != 200 && resp.Status != 201 {
		return "", "", false
	}
	var u scim.User
	if err := json.Unmarshal([]byte(resp.Body), &u); err != nil || u.ID == "" {
		return "", "", false
	}
	return u.ID, u.UserName, true
}

func (e *Engine) runSchemaDiscovery(rec *recorder) {
	const category = "schema_discovery"
	checks := []struct{ name, path string }{
		{"ServiceProviderConfig discovery", "/ServiceProviderConfig"},
		{"Schemas discovery", "/Schemas"},
		{"ResourceTypes discovery", "/ResourceTypes"},
	}
	for _, c := range checks {
		rec.before(c.name, category)
		resp, err := e.client.Get(c.path)
		if err != nil {
			rec.add(transportFailureResult(c.name, category, "GET", c.path, nil, err))
			continue
		}
		var js any
		wellFormed := json.Unmarshal([]byte(resp.Body), &js) == nil
		passed := resp.Status == 200 && wellFormed
		reason := ""
		switch {
		case resp.Status != 200:
			reason = fmt.Sprintf("Expected status 200, got %d", resp.Status)
		case !wellFormed:
			reason = "Response body is not well-formed JSON"
		}
		rec.add(resultFromResponse(c.name, category, "GET", c.path, nil, resp, passed, reason))
	}
}

func (e *Engine) runUsersCRUD(rec *recorder, joinProp string) {
	const category = "users_crud"
	var createdID, userName string

	name := "Create user"
	rec.before(name, category)
	reqBody := generateTestUserBody()
	created := false
	resp, err := e.client.Post("/Users", reqBody)
	if err != nil {
		rec.add(transportFailureResult(name, category, "POST", "/Users", &reqBody, err))
	} else {
		passed, reason := expectStatusIn(resp, 200, 201)
		if passed {
			var u scim.User
			if json.Unmarshal([]byte(resp.Body), &u) == nil && u.ID != "" {
				createdID, userName, created = u.ID, u.UserName, true
			} else {
				passed = false
				reason = "Response did not contain a resource id"
			}
		}
		rec.add(resultFromResponse(name, category, "POST", "/Users", &reqBody, resp, passed, reason))
	}

	name = "Filter-verify created user"
	rec.before(name, category)
	if !created {
		rec.add(skippedResult(name, category, "GET", "/Users", "create failed"))
	} else {
		path := "/Users?filter=" + url.QueryEscape(fmt.Sprintf(`%s eq "%s"`, joinProp, userName))
		resp, err := e.client.Get(path)
		if err != nil {
			rec.add(transportFailureResult(name, category, "GET", path, nil, err))
		} else {
			passed := resp.Status == 200
			reason := ""
			if passed {
				var list scim.ListResponse[scim.User]
				if err := json.Unmarshal([]byte(resp.Body), &list); err != nil || len(list.Resources) == 0 {
					passed = false
					reason = "Filter returned no results"
				} else if list.Resources[0].UserName != userName {
					passed = false
					reason = fmt.Sprintf("Returned userName %q does not match POSTed value %q", list.Resources[0].UserName, userName)
				}
			} else {
				reason = fmt.Sprintf("Expected status 200, got %d", resp.Status)
			}
			rec.add(resultFromResponse(name, category, "GET", path, nil, resp, passed, reason))
		}
	}

	name = "List users"
	rec.before(name, category)
	resp, err = e.client.Get("/Users")
	if err != nil {
		rec.add(transportFailureResult(name, category, "GET", "/Users", nil, err))
	} else {
		passed, reason := expectStatusIn(resp, 200)
		rec.add(resultFromResponse(name, category, "GET", "/Users", nil, resp, passed, reason))
	}

	name = "Update user via PUT"
	rec.before(name, category)
	if !created {
		rec.add(skippedResult(name, category, "PUT", "/Users/{id}", "create failed"))
	} else {
		putPath := "/Users/" + createdID
		updatedBody := mustJSON(scim.User{
			Schemas:     []string{"urn:ietf:params:scim:schemas:core:2.0:User"},
			UserName:    userName,
			DisplayName: "Updated Display Name",
			Active:      scim.Bool(true),
		})
		resp, err := e.client.Put(putPath, updatedBody)
		if err != nil {
			rec.add(transportFailureResult(name, category, "PUT", putPath, &updatedBody, err))
		} else {
			passed, reason := expectStatusIn(resp, 200)
			rec.add(resultFromResponse(name, category, "PUT", putPath, &updatedBody, resp, passed, reason))
		}
	}

	name = "Delete user"
	rec.before(name, category)
	deleted := false
	if !created {
		rec.add(skippedResult(name, category, "DELETE", "/Users/{id}", "create failed"))
	} else {
		delPath := "/Users/" + createdID
		resp, err := e.client.Delete(delPath)
		if err != nil {
			rec.add(transportFailureResult(name, category, "DELETE", delPath, nil, err))
		} else {
			passed, reason := expectStatusIn(resp, 200, 204)
			deleted = passed
			rec.add(resultFromResponse(name, category, "DELETE", delPath, nil, resp, passed, reason))
		}
	}

	name = "Verify user deleted"
	rec.before(name, category)
	if !deleted {
		rec.add(skippedResult(name, category, "GET", "/Users/{id}", "delete failed"))
	} else {
		getPath := "/Users/" + createdID
		resp, err := e.client.Get(getPath)
		if err != nil {
			rec.add(transportFailureResult(name, category, "GET", getPath, nil, err))
		} else {
			passed, reason := expectStatusIn(resp, 404)
			rec.add(resultFromResponse(name, category, "GET", getPath, nil, resp, passed, reason))
		}
	}
}

func (e *Engine) runGroupsCRUD(rec *recorder, joinProp string) {
	const category = "groups_crud"
	var createdID, displayName string

	name := "Create group"
	rec.before(name, category)
	reqBody := generateTestGroupBody()
	created := false
	resp, err := e.client.Post("/Groups", reqBody)
	if err != nil {
		rec.add(transportFailureResult(name, category, "POST", "/Groups", &reqBody, err))
	} else {
		passed, reason := expectStatusIn(resp, 200, 201)
		if passed {
			var g scim.Group
			if json.Unmarshal([]byte(resp.Body), &g) == nil && g.ID != "" {
				createdID, displayName, created = g.ID, g.DisplayName, true
			} else {
				passed = false
				reason = "Response did not contain a resource id"
			}
		}
		rec.add(resultFromResponse(name, category, "POST", "/Groups", &reqBody, resp, passed, reason))
	}

	name = "Filter-verify created group"
	rec.before(name, category)
	if !created {
		rec.add(skippedResult(name, category, "GET", "/Groups", "create failed"))
	} else {
		path := "/Groups?filter=" + url.QueryEscape(fmt.Sprintf(`%s eq "%s"`, joinProp, displayName))
		resp, err := e.client.Get(path)
		if err != nil {
			rec.add(transportFailureResult(name, category, "GET", path, nil, err))
		} else {
			passed := resp.Status == 200
			reason := ""
			if passed {
				var list scim.ListResponse[scim.Group]
				if err := json.Unmarshal([]byte(resp.Body), &list); err != nil || len(list.Resources) == 0 {
					passed = false
					reason = "Filter returned no results"
				} else if list.Resources[0].DisplayName != displayName {
					passed = false
					reason = fmt.Sprintf("Returned displayName %q does not match POSTed value %q", list.Resources[0].DisplayName, displayName)
				}
			} else {
				reason = fmt.Sprintf("Expected status 200, got %d", resp.Status)
			}
			rec.add(resultFromResponse(name, category, "GET", path, nil, resp, passed, reason))
		}
	}

	name = "List groups"
	rec.before(name, category)
	resp, err = e.client.Get("/Groups")
	if err != nil {
		rec.add(transportFailureResult(name, category, "GET", "/Groups", nil, err))
	} else {
		passed, reason := expectStatusIn(resp, 200)
		rec.add(resultFromResponse(name, category, "GET", "/Groups", nil, resp, passed, reason))
	}

	name = "Update group via PUT"
	rec.before(name, category)
	if !created {
		rec.add(skippedResult(name, category, "PUT", "/Groups/{id}", "create failed"))
	} else {
		putPath := "/Groups/" + createdID
		updatedBody := mustJSON(scim.Group{
			Schemas:     []string{"urn:ietf:params:scim:schemas:core:2.0:Group"},
			DisplayName: displayName + " Updated",
		})
		resp, err := e.client.Put(putPath, updatedBody)
		if err != nil {
			rec.add(transportFailureResult(name, category, "PUT", putPath, &updatedBody, err))
		} else {
			passed, reason := expectStatusIn(resp, 200)
			rec.add(resultFromResponse(name, category, "PUT", putPath, &updatedBody, resp, passed, reason))
		}
	}

	name = "Delete group"
	rec.before(name, category)
	deleted := false
	if !created {
		rec.add(skippedResult(name, category, "DELETE", "/Groups/{id}", "create failed"))
	} else {
		delPath := "/Groups/" + createdID
		resp, err := e.client.Delete(delPath)
		if err != nil {
			rec.add(transportFailureResult(name, category, "DELETE", delPath, nil, err))
		} else {
			passed, reason := expectStatusIn(resp, 200, 204)
			deleted = passed
			rec.add(resultFromResponse(name, category, "DELETE", delPath, nil, resp, passed, reason))
		}
	}

	name = "Verify group deleted"
	rec.before(name, category)
	if !deleted {
		rec.add(skippedResult(name, category, "GET", "/Groups/{id}", "delete failed"))
	} else {
		getPath := "/Groups/" + createdID
		resp, err := e.client.Get(getPath)
		if err != nil {
			rec.add(transportFailureResult(name, category, "GET", getPath, nil, err))
		} else {
			passed, reason := expectStatusIn(resp, 404)
			rec.add(resultFromResponse(name, category, "GET", getPath, nil, resp, passed, reason))
		}
	}
}

func (e *Engine) runPatchOperations(rec *recorder) {
	const category = "patch_operations"
	userID, _, ok := e.createDisposableUser()

	name := "PATCH add operation"
	rec.before(name, category)
	if !ok {
		rec.add(skippedResult(name, category, "PATCH", "/Users/{id}", "could not create prerequisite user"))
	} else {
		path := "/Users/" + userID
		patchBody := mustJSON(scim.PatchOp{
			Schemas:    []string{patchSchema},
			Operations: []scim.PatchOperation{{Op: "add", Path: "nickName", Value: "scimprobe"}},
		})
		resp, err := e.client.Patch(path, patchBody)
		if err != nil {
			rec.add(transportFailureResult(name, category, "PATCH", path, &patchBody, err))
		} else {
			passed, reason := expectStatus2xx(resp)
			rec.add(resultFromResponse(name, category, "PATCH", path, &patchBody, resp, passed, reason))
		}
	}

	name = "PATCH replace operation persists"
	rec.before(name, category)
	if !ok {
		rec.add(skippedResult(name, category, "PATCH", "/Users/{id}", "could not create prerequisite user"))
	} else {
		path := "/Users/" + userID
		const newDisplay = "Patched Display Name"
		patchBody := mustJSON(scim.PatchOp{
			Schemas:    []string{patchSchema},
			Operations: []scim.PatchOperation{{Op: "replace", Path: "displayName", Value: newDisplay}},
		})
		resp, err := e.client.Patch(path, patchBody)
		switch {
		case err != nil:
			rec.add(transportFailureResult(name, category, "PATCH", path, &patchBody, err))
		default:
			if passed, reason := expectStatus2xx(resp); !passed {
				rec.add(resultFromResponse(name, category, "PATCH", path, &patchBody, resp, false, reason))
			} else {
				getResp, getErr := e.client.Get(path)
				if getErr != nil {
					rec.add(transportFailureResult(name, category, "PATCH", path, &patchBody, getErr))
				} else {
					verifyPassed := getResp.Status == 200
					reason := ""
					if verifyPassed {
						var u scim.User
						if err := json.Unmarshal([]byte(getResp.Body), &u); err != nil || u.DisplayName != newDisplay {
							verifyPassed = false
							reason = fmt.Sprintf("displayName did not persist as %q", newDisplay)
						}
					} else {
						reason = fmt.Sprintf("GET-verify returned status %d", getResp.Status)
					}
					rec.add(resultFromResponse(name, category, "PATCH", path, &patchBody, resp, verifyPassed, reason))
				}
			}
		}
	}

	name = "PATCH remove operation"
	rec.before(name, category)
	if !ok {
		rec.add(skippedResult(name, category, "PATCH", "/Users/{id}", "could not create prerequisite user"))
	} else {
		path := "/Users/" + userID
		patchBody := mustJSON(scim.PatchOp{
			Schemas:    []string{patchSchema},
			Operations: []scim.PatchOperation{{Op: "remove", Path: "nickName"}},
		})
		resp, err := e.client.Patch(path, patchBody)
		if err != nil {
			rec.add(transportFailureResult(name, category, "PATCH", path, &patchBody, err))
		} else {
			passed, reason := expectStatus2xx(resp)
			rec.add(resultFromResponse(name, category, "PATCH", path, &patchBody, resp, passed, reason))
		}
		e.client.Delete(path)
	}

	name = "PATCH nonexistent id returns 404"
	rec.before(name, category)
	path := "/Users/nonexistent-00000000-0000-0000-0000-000000000000"
	patchBody := mustJSON(scim.PatchOp{
		Schemas:    []string{patchSchema},
		Operations: []scim.PatchOperation{{Op: "replace", Path: "displayName", Value: "x"}},
	})
	resp, err := e.client.Patch(path, patchBody)
	if err != nil {
		rec.add(transportFailureResult(name, category, "PATCH", path, &patchBody, err))
	} else {
		passed, reason := expectStatusIn(resp, 404)
		rec.add(resultFromResponse(name, category, "PATCH", path, &patchBody, resp, passed, reason))
	}
}

func (e *Engine) runFilteringPagination(rec *recorder) {
	const category = "filtering_pagination"
	userID, userName, ok := e.createDisposableUser()
	if ok {
		defer e.client.Delete("/Users/" + userID)
	}

	name := "Equality filter returns match"
	rec.before(name, category)
	if !ok {
		rec.add(skippedResult(name, category, "GET", "/Users", "could not create prerequisite user"))
	} else {
		path := "/Users?filter=" + url.QueryEscape(fmt.Sprintf(`userName eq "%s"`, userName))
		resp, err := e.client.Get(path)
		if err != nil {
			rec.add(transportFailureResult(name, category, "GET", path, nil, err))
		} else {
			passed := resp.Status == 200
			reason := ""
			if passed {
				var list scim.ListResponse[scim.User]
				if err := json.Unmarshal([]byte(resp.Body), &list); err != nil || list.TotalResults < 1 {
					passed = false
					reason = "Filter returned zero results for a just-created user"
				}
			} else {
				reason = fmt.Sprintf("Expected status 200, got %d", resp.Status)
			}
			rec.add(resultFromResponse(name, category, "GET", path, nil, resp, passed, reason))
		}
	}

	name = "Pagination returns totalResults"
	rec.before(name, category)
	path := "/Users?startIndex=1&count=1"
	resp, err := e.client.Get(path)
	if err != nil {
		rec.add(transportFailureResult(name, category, "GET", path, nil, err))
	} else {
		passed := resp.Status == 200
		reason := ""
		if passed {
			var list scim.ListResponse[scim.User]
			if err := json.Unmarshal([]byte(resp.Body), &list); err != nil {
				passed = false
				reason = "Response is not a well-formed list response"
			}
		} else {
			reason = fmt.Sprintf("Expected status 200, got %d", resp.Status)
		}
		rec.add(resultFromResponse(name, category, "GET", path, nil, resp, passed, reason))
	}

	name = "Invalid filter returns 400"
	rec.before(name, category)
	path = "/Users?filter=" + url.QueryEscape(`this ( is not a valid filter`)
	resp, err = e.client.Get(path)
	if err != nil {
		rec.add(transportFailureResult(name, category, "GET", path, nil, err))
	} else {
		var passed bool
		var reason string
		switch resp.Status {
		case 400:
			passed = true
		case 200:
			// Pass-with-warning, per spec.md §4.2.
			passed = true
		default:
			reason = fmt.Sprintf("Server returned %d instead of 400 for an invalid filter", resp.Status)
		}
		rec.add(resultFromResponse(name, category, "GET", path, nil, resp, passed, reason))
	}

	name = "Attributes selector returns 200"
	rec.before(name, category)
	path = "/Users?attributes=userName"
	resp, err = e.client.Get(path)
	if err != nil {
		rec.add(transportFailureResult(name, category, "GET", path, nil, err))
	} else {
		passed, reason := expectStatusIn(resp, 200)
		rec.add(resultFromResponse(name, category, "GET", path, nil, resp, passed, reason))
	}
}

func (e *Engine) runDuplicateDetection(rec *recorder) {
	const category = "duplicate_detection"

	userBody := generateTestUserBody()
	name := "Create user for duplicate check"
	rec.before(name, category)
	var userID string
	userCreated := false
	resp, err := e.client.Post("/Users", userBody)
	if err != nil {
		rec.add(transportFailureResult(name, category, "POST", "/Users", &userBody, err))
	} else {
		passed, reason := expectStatusIn(resp, 200, 201)
		if passed {
			var u scim.User
			if json.Unmarshal([]byte(resp.Body), &u) == nil && u.ID != "" {
				userID, userCreated = u.ID, true
			}
		}
		rec.add(resultFromResponse(name, category, "POST", "/Users", &userBody, resp, passed, reason))
	}

	name = "Duplicate user create returns 409"
	rec.before(name, category)
	if !userCreated {
		rec.add(skippedResult(name, category, "POST", "/Users", "prerequisite create failed"))
	} else {
		resp, err := e.client.Post("/Users", userBody)
		if err != nil {
			rec.add(transportFailureResult(name, category, "POST", "/Users", &userBody, err))
		} else {
			passed, reason := expectStatusIn(resp, 409)
			rec.add(resultFromResponse(name, category, "POST", "/Users", &userBody, resp, passed, reason))
		}
	}
	if userCreated {
		e.client.Delete("/Users/" + userID)
	}

	groupBody := generateTestGroupBody()
	name = "Create group for duplicate check"
	rec.before(name, category)
	var groupID string
	groupCreated := false
	resp, err = e.client.Post("/Groups", groupBody)
	if err != nil {
		rec.add(transportFailureResult(name, category, "POST", "/Groups", &groupBody, err))
	} else {
		passed, reason := expectStatusIn(resp, 200, 201)
		if passed {
			var g scim.Group
			if json.Unmarshal([]byte(resp.Body), &g) == nil && g.ID != "" {
				groupID, groupCreated = g.ID, true
			}
		}
		rec.add(resultFromResponse(name, category, "POST", "/Groups", &groupBody, resp, passed, reason))
	}

	name = "Duplicate group create returns 409"
	rec.before(name, category)
	if !groupCreated {
		rec.add(skippedResult(name, category, "POST", "/Groups", "prerequisite create failed"))
	} else {
		resp, err := e.client.Post("/Groups", groupBody)
		if err != nil {
			rec.add(transportFailureResult(name, category, "POST", "/Groups", &groupBody, err))
		} else {
			passed, reason := expectStatusIn(resp, 409)
			rec.add(resultFromResponse(name, category, "POST", "/Groups", &groupBody, resp, passed, reason))
		}
	}
	if groupCreated {
		e.client.Delete("/Groups/" + groupID)
	}
}

func (e *Engine) runSoftDelete(rec *recorder) {
	const category = "soft_delete"

	userBody := generateTestUserBody()
	name := "Create user for soft delete"
	rec.before(name, category)
	var userID, path string
	created := false
	resp, err := e.client.Post("/Users", userBody)
	if err != nil {
		rec.add(transportFailureResult(name, category, "POST", "/Users", &userBody, err))
	} else {
		passed, reason := expectStatusIn(resp, 200, 201)
		if passed {
			var u scim.User
			if json.Unmarshal([]byte(resp.Body), &u) == nil && u.ID != "" {
				userID, created = u.ID, true
			}
		}
		rec.add(resultFromResponse(name, category, "POST", "/Users", &userBody, resp, passed, reason))
	}

	name = "PATCH active=false succeeds"
	rec.before(name, category)
	patched := false
	if !created {
		rec.add(skippedResult(name, category, "PATCH", "/Users/{id}", "prerequisite create failed"))
	} else {
		path = "/Users/" + userID
		patchBody := mustJSON(scim.PatchOp{
			Schemas:    []string{patchSchema},
			Operations: []scim.PatchOperation{{Op: "replace", Path: "active", Value: false}},
		})
		resp, err := e.client.Patch(path, patchBody)
		if err != nil {
			rec.add(transportFailureResult(name, category, "PATCH", path, &patchBody, err))
		} else {
			passed, reason := expectStatus2xx(resp)
			patched = passed
			rec.add(resultFromResponse(name, category, "PATCH", path, &patchBody, resp, passed, reason))
		}
	}

	name = "GET after soft delete shows active=false"
	rec.before(name, category)
	if !patched {
		rec.add(skippedResult(name, category, "GET", "/Users/{id}", "prerequisite patch failed"))
	} else {
		resp, err := e.client.Get(path)
		if err != nil {
			rec.add(transportFailureResult(name, category, "GET", path, nil, err))
		} else {
			passed := resp.Status == 200
			reason := ""
			if passed {
				var u scim.User
				if err := json.Unmarshal([]byte(resp.Body), &u); err != nil {
					passed = false
					reason = "Response is not a well-formed user"
				} else if u.Active == nil || *u.Active {
					passed = false
					reason = "Resource still reports active=true after soft delete"
				}
			} else {
				reason = fmt.Sprintf("Expected status 200, got %d", resp.Status)
			}
			rec.add(resultFromResponse(name, category, "GET", path, nil, resp, passed, reason))
		}
	}

	if created {
		e.client.Delete("/Users/" + userID)
	}
}

func (e *Engine) runGroupOperations(rec *recorder) {
	const category = "group_operations"

	groupBody := generateTestGroupBody()
	name := "Create group"
	rec.before(name, category)
	var groupID, groupPath string
	groupCreated := false
	resp, err := e.client.Post("/Groups", groupBody)
	if err != nil {
		rec.add(transportFailureResult(name, category, "POST", "/Groups", &groupBody, err))
	} else {
		passed, reason := expectStatusIn(resp, 200, 201)
		if passed {
			var g scim.Group
			if json.Unmarshal([]byte(resp.Body), &g) == nil && g.ID != "" {
				groupID, groupCreated = g.ID, true
				groupPath = "/Groups/" + groupID
			}
		}
		rec.add(resultFromResponse(name, category, "POST", "/Groups", &groupBody, resp, passed, reason))
	}

	const newGroupName = "Patched Group Name"
	name = "PATCH group displayName"
	rec.before(name, category)
	patched := false
	if !groupCreated {
		rec.add(skippedResult(name, category, "PATCH", "/Groups/{id}", "prerequisite create failed"))
	} else {
		patchBody := mustJSON(scim.PatchOp{
			Schemas:    []string{patchSchema},
			Operations: []scim.PatchOperation{{Op: "replace", Path: "displayName", Value: newGroupName}},
		})
		resp, err := e.client.Patch(groupPath, patchBody)
		if err != nil {
			rec.add(transportFailureResult(name, category, "PATCH", groupPath, &patchBody, err))
		} else {
			passed, reason := expectStatus2xx(resp)
			patched = passed
			rec.add(resultFromResponse(name, category, "PATCH", groupPath, &patchBody, resp, passed, reason))
		}
	}

	name = "GET-verify group displayName"
	rec.before(name, category)
	if !patched {
		rec.add(skippedResult(name, category, "GET", "/Groups/{id}", "prerequisite patch failed"))
	} else {
		resp, err := e.client.Get(groupPath)
		if err != nil {
			rec.add(transportFailureResult(name, category, "GET", groupPath, nil, err))
		} else {
			passed := resp.Status == 200
			reason := ""
			if passed {
				var g scim.Group
				if err := json.Unmarshal([]byte(resp.Body), &g); err != nil || g.DisplayName != newGroupName {
					passed = false
					reason = fmt.Sprintf("displayName did not persist as %q", newGroupName)
				}
			} else {
				reason = fmt.Sprintf("Expected status 200, got %d", resp.Status)
			}
			rec.add(resultFromResponse(name, category, "GET", groupPath, nil, resp, passed, reason))
		}
	}

	name = "Create member user"
	rec.before(name, category)
	memberID, _, memberOK := e.createDisposableUser()
	if memberOK {
		rec.add(model.ValidationResult{
			TestName:   name,
			Category:   category,
			HTTPMethod: "POST",
			URL:        "/Users",
			Passed:     true,
		})
	} else {
		rec.add(skippedResult(name, category, "POST", "/Users", "could not create member user"))
	}

	name = "PATCH add member to group"
	rec.before(name, category)
	addedMember := false
	if !groupCreated || !memberOK {
		rec.add(skippedResult(name, category, "PATCH", "/Groups/{id}", "prerequisite group or member missing"))
	} else {
		patchBody := mustJSON(scim.PatchOp{
			Schemas: []string{patchSchema},
			Operations: []scim.PatchOperation{{
				Op:    "add",
				Path:  "members",
				Value: []map[string]string{{"value": memberID}},
			}},
		})
		resp, err := e.client.Patch(groupPath, patchBody)
		if err != nil {
			rec.add(transportFailureResult(name, category, "PATCH", groupPath, &patchBody, err))
		} else {
			passed, reason := expectStatus2xx(resp)
			addedMember = passed
			rec.add(resultFromResponse(name, category, "PATCH", groupPath, &patchBody, resp, passed, reason))
		}
	}

	name = "GET-verify group membership"
	rec.before(name, category)
	if !addedMember {
		rec.add(skippedResult(name, category, "GET", "/Groups/{id}", "prerequisite add-member failed"))
	} else {
		resp, err := e.client.Get(groupPath)
		if err != nil {
			rec.add(transportFailureResult(name, category, "GET", groupPath, nil, err))
		} else {
			passed := resp.Status == 200
			reason := ""
			if passed {
				var g scim.Group
				if err := json.Unmarshal([]byte(resp.Body), &g); err != nil || !g.HasMember(memberID) {
					passed = false
					reason = "Group does not list the added member"
				}
			} else {
				reason = fmt.Sprintf("Expected status 200, got %d", resp.Status)
			}
			rec.add(resultFromResponse(name, category, "GET", groupPath, nil, resp, passed, reason))
		}
	}

	if memberOK {
		e.client.Delete("/Users/" + memberID)
	}
	if groupCreated {
		e.client.Delete(groupPath)
	}
}

func (e *Engine) runFieldMapping(rec *recorder, rules []model.FieldMappingRule) {
	const category = "field_mapping"
	if len(rules) == 0 {
		name := "Field mapping (no rules configured)"
		rec.before(name, category)
		rec.add(skippedResult(name, category, "GET", "", "no field mapping rules configured"))
		return
	}

	userID, _, ok := e.createDisposableUser()
	var doc map[string]any
	userPath := ""
	if ok {
		userPath = "/Users/" + userID
		resp, err := e.client.Get(userPath)
		if err == nil && resp.Status == 200 {
			json.Unmarshal([]byte(resp.Body), &doc)
		}
	}

	for _, rule := range rules {
		name := fmt.Sprintf("Field mapping: %s", rule.SCIMAttribute)
		rec.before(name, category)
		if doc == nil {
			rec.add(skippedResult(name, category, "GET", "/Users/{id}", "could not fetch a user to evaluate against"))
			continue
		}
		value, found := ResolvePath(doc, rule.SCIMAttribute)
		var passed bool
		var reason string
		if !found || value == nil || value == "" {
			if rule.Required {
				reason = fmt.Sprintf("required attribute %q is missing, null, or empty", rule.SCIMAttribute)
			} else {
				passed = true
			}
		} else if err := checkFormat(rule.Format, value, rule.RegexPattern); err != nil {
			reason = err.Error()
		} else {
			passed = true
		}
		rec.add(model.ValidationResult{
			TestName:      name,
			Category:      category,
			HTTPMethod:    "GET",
			URL:           userPath,
			Passed:        passed,
			FailureReason: strPtr(reason),
		})
	}

	if ok {
		e.client.Delete(userPath)
	}
}

func (e *Engine) runCustomSchema(rec *recorder, attrs []scim.DiscoveredAttribute) {
	const category = "custom_schema"
	if len(attrs) == 0 {
		name := "Custom schema (none discovered)"
		rec.before(name, category)
		rec.add(skippedResult(name, category, "GET", "/Schemas", "no custom schema attributes discovered"))
		return
	}

	for _, attr := range attrs {
		if attr.AttrType == "boolean" {
			for _, v := range []bool{true, false} {
				name := fmt.Sprintf("Custom attribute %s=%v (%s)", attr.AttrName, v, attr.SchemaURN)
				rec.before(name, category)
				e.probeCustomAttribute(rec, attr, v, name, category)
			}
			continue
		}
		value := testValueForType(attr.AttrType)
		name := fmt.Sprintf("Custom attribute %s (%s)", attr.AttrName, attr.SchemaURN)
		rec.before(name, category)
		e.probeCustomAttribute(rec, attr, value, name, category)
	}
}

func (e *Engine) probeCustomAttribute(rec *recorder, attr scim.DiscoveredAttribute, value any, name, category string) {
	reqBody := mustJSON(map[string]any{
		"schemas":      []string{"urn:ietf:params:scim:schemas:core:2.0:User", attr.SchemaURN},
		"userName":     fmt.Sprintf("scimtest_%s@test.example.com", randomSuffix(8)),
		attr.SchemaURN: map[string]any{attr.AttrName: value},
	})
	resp, err := e.client.Post("/Users", reqBody)
	if err != nil {
		rec.add(transportFailureResult(name, category, "POST", "/Users", &reqBody, err))
		return
	}
	passed, reason := expectStatusIn(resp, 200, 201)
	var createdID string
	if passed {
		var doc map[string]any
		if err := json.Unmarshal([]byte(resp.Body), &doc); err != nil {
			passed, reason = false, "response is not well-formed JSON"
		} else {
			if id, idOK := doc["id"].(string); idOK {
				createdID = id
			}
			ext, extOK := doc[attr.SchemaURN].(map[string]any)
			switch {
			case !extOK:
				passed, reason = false, fmt.Sprintf("response did not echo extension schema %q", attr.SchemaURN)
			case !valuesEqual(ext[attr.AttrName], value):
				passed, reason = false, fmt.Sprintf("extension attribute %q did not round-trip", attr.AttrName)
			}
		}
	}
	rec.add(resultFromResponse(name, category, "POST", "/Users", &reqBody, resp, passed, reason))
	if createdID != "" {
		e.client.Delete("/Users/" + createdID)
	}
}

func testValueForType(t string) any {
	switch t {
	case "integer":
		return 42
	case "decimal":
		return math.Pi
	case "datetime":
		return time.Now().UTC().Format(time.RFC3339)
	case "reference":
		return "https://example.com/test"
	default:
		return "scim_test_value"
	}
}

func valuesEqual(a, b any) bool {
	switch bv := b.(type) {
	case bool:
		av, ok := a.(bool)
		return ok && av == bv
	case int:
		af, ok := a.(float64)
		return ok && af == float64(bv)
	case float64:
		af, ok := a.(float64)
		return ok && af == bv
	case string:
		av, ok := a.(string)
		return ok && av == bv
	default:
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
}
