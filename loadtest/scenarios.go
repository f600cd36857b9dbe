package loadtest

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/marcelom97/scimprobe/model"
	"github.com/marcelom97/scimprobe/scim"
)

func (e *Engine) postAndTrack(resourcePath, body string) (attempt, string) {
	resp, err := e.client.Post(resourcePath, body)
	if err != nil {
		return fromError("POST", resourcePath, &body, err), ""
	}
	a := fromResponse("POST", resourcePath, &body, resp)
	if !a.success {
		return a, ""
	}
	var created scim.Resource
	if json.Unmarshal([]byte(resp.Body), &created) != nil {
		return a, ""
	}
	return a, created.ID
}

func (e *Engine) deleteByID(resourcePath, id string) attempt {
	path := resourcePath + "/" + id
	resp, err := e.client.Delete(path)
	if err != nil {
		return fromError("DELETE", path, nil, err)
	}
	return fromResponse("DELETE", path, nil, resp)
}

// cleanup deletes every tracked id under resourcePath as its own phase,
// per spec.md §4.3 ("Cleaning up").
func (e *Engine) cleanup(runID, resourcePath string, ids []string, concurrency int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	attempts, _ := e.runPhase(runID, "Cleaning up", len(ids), len(ids), concurrency, 0, cancel, onProgress, func(i int) unitOutcome {
		return unitOutcome{attempts: []attempt{e.deleteByID(resourcePath, ids[i])}}
	})
	return attempts
}

func (e *Engine) scenarioCreateUsers(runID string, n, concurrency, rampUp int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	created, ids := e.runPhase(runID, "Creating users", n, n, concurrency, rampUp, cancel, onProgress, func(i int) unitOutcome {
		a, id := e.postAndTrack("/Users", generateUserBody(i))
		return unitOutcome{attempts: []attempt{a}, createdID: id}
	})
	return append(created, e.cleanup(runID, "/Users", ids, concurrency, cancel, onProgress)...)
}

func (e *Engine) scenarioCreateGroups(runID string, n, concurrency, rampUp int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	created, ids := e.runPhase(runID, "Creating groups", n, n, concurrency, rampUp, cancel, onProgress, func(i int) unitOutcome {
		a, id := e.postAndTrack("/Groups", generateGroupBody(i))
		return unitOutcome{attempts: []attempt{a}, createdID: id}
	})
	return append(created, e.cleanup(runID, "/Groups", ids, concurrency, cancel, onProgress)...)
}

func (e *Engine) scenarioCreateUpdate(runID string, n, concurrency, rampUp int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	main, ids := e.runPhase(runID, "Creating and updating users", n, n*2, concurrency, rampUp, cancel, onProgress, func(i int) unitOutcome {
		createAttempt, id := e.postAndTrack("/Users", generateUserBody(i))
		if id == "" {
			return unitOutcome{attempts: []attempt{createAttempt, syntheticSkip("PATCH", "/Users/{id}")}}
		}
		path := "/Users/" + id
		patchBody := generatePatchBody()
		resp, err := e.client.Patch(path, patchBody)
		var patchAttempt attempt
		if err != nil {
			patchAttempt = fromError("PATCH", path, &patchBody, err)
		} else {
			patchAttempt = fromResponse("PATCH", path, &patchBody, resp)
		}
		return unitOutcome{attempts: []attempt{createAttempt, patchAttempt}, createdID: id}
	})
	return append(main, e.cleanup(runID, "/Users", ids, concurrency, cancel, onProgress)...)
}

func (e *Engine) scenarioUpdateGroups(runID string, n, concurrency, rampUp int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	main, ids := e.runPhase(runID, "Creating and updating groups", n, n*2, concurrency, rampUp, cancel, onProgress, func(i int) unitOutcome {
		createAttempt, id := e.postAndTrack("/Groups", generateGroupBody(i))
		if id == "" {
			return unitOutcome{attempts: []attempt{createAttempt, syntheticSkip("PATCH", "/Groups/{id}")}}
		}
		path := "/Groups/" + id
		patchBody := generatePatchBody()
		resp, err := e.client.Patch(path, patchBody)
		var patchAttempt attempt
		if err != nil {
			patchAttempt = fromError("PATCH", path, &patchBody, err)
		} else {
			patchAttempt = fromResponse("PATCH", path, &patchBody, resp)
		}
		return unitOutcome{attempts: []attempt{createAttempt, patchAttempt}, createdID: id}
	})
	return append(main, e.cleanup(runID, "/Groups", ids, concurrency, cancel, onProgress)...)
}

func (e *Engine) scenarioFullLifecycle(runID string, n, concurrency, rampUp int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	attempts, _ := e.runPhase(runID, "Full lifecycle", n, n*3, concurrency, rampUp, cancel, onProgress, func(i int) unitOutcome {
		createAttempt, id := e.postAndTrack("/Users", generateUserBody(i))
		if id == "" {
			return unitOutcome{attempts: []attempt{createAttempt, syntheticSkip("GET", "/Users/{id}"), syntheticSkip("DELETE", "/Users/{id}")}}
		}
		path := "/Users/" + id
		var getAttempt attempt
		if resp, err := e.client.Get(path); err != nil {
			getAttempt = fromError("GET", path, nil, err)
		} else {
			getAttempt = fromResponse("GET", path, nil, resp)
		}
		delAttempt := e.deleteByID("/Users", id)
		return unitOutcome{attempts: []attempt{createAttempt, getAttempt, delAttempt}}
	})
	return attempts
}

func (e *Engine) scenarioGroupLifecycle(runID string, n, concurrency, rampUp int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	attempts, _ := e.runPhase(runID, "Group lifecycle", n, n*3, concurrency, rampUp, cancel, onProgress, func(i int) unitOutcome {
		createAttempt, id := e.postAndTrack("/Groups", generateGroupBody(i))
		if id == "" {
			return unitOutcome{attempts: []attempt{createAttempt, syntheticSkip("GET", "/Groups/{id}"), syntheticSkip("DELETE", "/Groups/{id}")}}
		}
		path := "/Groups/" + id
		var getAttempt attempt
		if resp, err := e.client.Get(path); err != nil {
			getAttempt = fromError("GET", path, nil, err)
		} else {
			getAttempt = fromResponse("GET", path, nil, resp)
		}
		delAttempt := e.deleteByID("/Groups", id)
		return unitOutcome{attempts: []attempt{createAttempt, getAttempt, delAttempt}}
	})
	return attempts
}

func (e *Engine) scenarioListUsers(runID string, n, concurrency, rampUp int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	attempts, _ := e.runPhase(runID, "Listing users", n, n, concurrency, rampUp, cancel, onProgress, func(i int) unitOutcome {
		path := fmt.Sprintf("/Users?startIndex=%d&count=10", 10*i+1)
		resp, err := e.client.Get(path)
		if err != nil {
			return unitOutcome{attempts: []attempt{fromError("GET", path, nil, err)}}
		}
		return unitOutcome{attempts: []attempt{fromResponse("GET", path, nil, resp)}}
	})
	return attempts
}

// scenarioAddRemoveMembers creates one group, n member users, adds each to
// the group, removes each again, then cleans up — matching the "Units: 1"
// row in spec.md §4.3's scenario table: the whole flow is one task even
// though n user-level requests run inside it.
func (e *Engine) scenarioAddRemoveMembers(runID string, n, concurrency, rampUp int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	var all []attempt

	groupAttempts, groupIDs := e.runPhase(runID, "Creating group", 1, 1, 1, 0, cancel, onProgress, func(i int) unitOutcome {
		a, id := e.postAndTrack("/Groups", generateGroupBody(0))
		return unitOutcome{attempts: []attempt{a}, createdID: id}
	})
	all = append(all, groupAttempts...)
	var groupID string
	if len(groupIDs) > 0 {
		groupID = groupIDs[0]
	}

	userAttempts, userIDs := e.runPhase(runID, "Creating users", n, n, concurrency, rampUp, cancel, onProgress, func(i int) unitOutcome {
		a, id := e.postAndTrack("/Users", generateUserBody(i))
		return unitOutcome{attempts: []attempt{a}, createdID: id}
	})
	all = append(all, userAttempts...)

	all = append(all, e.patchMembers(runID, "Adding members", groupID, userIDs, "add", concurrency, cancel, onProgress)...)
	all = append(all, e.patchMembers(runID, "Removing members", groupID, userIDs, "remove", concurrency, cancel, onProgress)...)

	all = append(all, e.cleanup(runID, "/Users", userIDs, concurrency, cancel, onProgress)...)
	if groupID != "" {
		all = append(all, e.deleteByID("/Groups", groupID))
	}
	return all
}

func (e *Engine) patchMembers(runID, phaseName, groupID string, userIDs []string, op string, concurrency int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	if groupID == "" {
		out := make([]attempt, len(userIDs))
		for i := range out {
			out[i] = syntheticSkip("PATCH", "/Groups/{id}")
		}
		return out
	}
	attempts, _ := e.runPhase(runID, phaseName, len(userIDs), len(userIDs), concurrency, 0, cancel, onProgress, func(i int) unitOutcome {
		memberID := userIDs[i]
		path := "/Groups/" + groupID
		var patchOp scim.PatchOperation
		if op == "add" {
			patchOp = scim.PatchOperation{Op: "add", Path: "members", Value: []map[string]string{{"value": memberID}}}
		} else {
			patchOp = scim.PatchOperation{Op: "remove", Path: fmt.Sprintf("members[value eq %q]", memberID)}
		}
		body := mustJSON(scim.PatchOp{Schemas: []string{patchSchemaURN}, Operations: []scim.PatchOperation{patchOp}})
		resp, err := e.client.Patch(path, body)
		if err != nil {
			return unitOutcome{attempts: []attempt{fromError("PATCH", path, &body, err)}}
		}
		return unitOutcome{attempts: []attempt{fromResponse("PATCH", path, &body, resp)}}
	})
	return attempts
}
