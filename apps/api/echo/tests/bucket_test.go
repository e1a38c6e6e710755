package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/waynerigley/migslist/core/bucket"
	"github.com/waynerigley/migslist/core/user"
)

func Test_bucketApi_query(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	unA := createTrialUnion(t, app, "Local A")
	unB := createTrialUnion(t, app, "Local B")
	createBucket(t, app, unA.ID, 1, "Hotel One")
	createBucket(t, app, unA.ID, 2, "Hotel Two")
	createBucket(t, app, unB.ID, 1, "Other Hotel")

	prezA := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, unA.ID)
	admin := createUser(t, app, "Root", "Admin", "root@test.cd", "s3cret", user.RoleSuperAdmin, "")
	prezToken := openSession(t, app, prezA)
	adminToken := openSession(t, app, admin)

	bucketsA, err := app.bucketSvc.QueryByUnion(ctx, unA.ID)
	if err != nil {
		t.Fatalf("QueryByUnion() failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "president sees own union only", path: "/v1/buckets", token: prezToken,
			wantCode: http.StatusOK, wantData: marshalObj(t, bucketsA),
		},
		{
			name: "super admin must name a union", path: "/v1/buckets", token: adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"union_id": "union_id is required"}),
		},
		{
			name: "super admin with union_id", path: "/v1/buckets?union_id=" + unA.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marshalObj(t, bucketsA),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_bucketApi_create(t *testing.T) {
	app := setup(t)

	un := createTrialUnion(t, app, "Local A")
	createBucket(t, app, un.ID, 7, "Taken")

	prez := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	sec := createUser(t, app, "Sam", "Sec", "sam@test.cd", "s3cret", user.RoleSecretary, un.ID)
	prezToken := openSession(t, app, prez)
	secToken := openSession(t, app, sec)

	tests := []httpTest{
		{
			name: "secretary cannot create", token: secToken, body: []byte(`{"number":3,"name":"Hotel Three"}`),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "missing fields", token: prezToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate number", token: prezToken, body: []byte(`{"number":7,"name":"Hotel Seven"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "president creates", token: prezToken, body: []byte(`{"number":3,"name":"Hotel Three"}`),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/buckets", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if tt.name == "president creates" {
				var b bucket.Bucket
				if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
					t.Fatalf("unmarshalling bucket failed: %v", err)
				}
				if b.UnionID != un.ID || b.Number != 3 || b.Name != "Hotel Three" {
					t.Errorf("bucket = %+v; want number 3 in union %s", b, un.ID)
				}
			}
		})
	}
}

func Test_bucketApi_crossTenantReadsAsNotFound(t *testing.T) {
	app := setup(t)

	unA := createTrialUnion(t, app, "Local A")
	unB := createTrialUnion(t, app, "Local B")
	foreign := createBucket(t, app, unB.ID, 1, "Other Hotel")

	prezA := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, unA.ID)
	token := openSession(t, app, prezA)

	paths := []string{
		"/v1/buckets/" + foreign.ID,
		"/v1/buckets/" + foreign.ID + "/members",
		"/v1/buckets/" + foreign.ID + "/export",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			tt := httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)}
			req, rec := newAuthRequest(http.MethodGet, path, token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_bucketApi_deleteAndRestore(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	un := createTrialUnion(t, app, "Local A")
	b := createBucket(t, app, un.ID, 1, "Hotel One")

	prez := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	sec := createUser(t, app, "Sam", "Sec", "sam@test.cd", "s3cret", user.RoleSecretary, un.ID)
	prezToken := openSession(t, app, prez)
	secToken := openSession(t, app, sec)

	t.Run("secretary cannot delete", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodDelete, "/v1/buckets/"+b.ID, secToken)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("president deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/buckets/"+b.ID, prezToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}
	})

	t.Run("deleted bucket reads as not found", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/buckets/"+b.ID, prezToken)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("deleted listing still shows it", func(t *testing.T) {
		deleted, err := app.bucketSvc.QueryDeleted(ctx, un.ID)
		if err != nil {
			t.Fatalf("QueryDeleted() failed: %v", err)
		}
		if len(deleted) != 1 {
			t.Fatalf("QueryDeleted() returned %d buckets; want 1", len(deleted))
		}
		tt := httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, deleted)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/buckets/deleted", prezToken)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("restore blocked when the number was reused", func(t *testing.T) {
		taken := createBucket(t, app, un.ID, 1, "Replacement")
		req, rec := newAuthRequest(http.MethodPost, "/v1/buckets/"+b.ID+"/restore", prezToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
		if err := app.bucketSvc.HardDelete(ctx, taken.ID); err != nil {
			t.Fatalf("HardDelete() failed: %v", err)
		}
	})

	t.Run("president restores", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/buckets/"+b.ID+"/restore", prezToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		restored, err := app.bucketSvc.Get(ctx, b.ID)
		if err != nil {
			t.Fatalf("Get() after restore failed: %v", err)
		}
		if restored.IsDeleted() {
			t.Error("bucket still marked deleted after restore")
		}
	})
}

func Test_bucketApi_subscriptionGate(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	un := createTrialUnion(t, app, "Local A")
	createBucket(t, app, un.ID, 1, "Hotel One")
	prez := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	token := openSession(t, app, prez)

	if _, err := app.unionSvc.Deactivate(ctx, un.ID); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}

	tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errSubExpired)}
	req, rec := newAuthRequest(http.MethodGet, "/v1/buckets", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	// reactivation reopens access
	if _, err := app.unionSvc.Activate(ctx, un.ID, "chk-001"); err != nil {
		t.Fatalf("Activate() failed: %v", err)
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/buckets", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("code after reactivation = %v; want %v", rec.Code, http.StatusOK)
	}
}

func Test_bucketApi_emailMembers(t *testing.T) {
	app := setup(t)

	un := createTrialUnion(t, app, "Local A")
	b := createBucket(t, app, un.ID, 1, "Hotel One")
	empty := createBucket(t, app, un.ID, 2, "Hotel Two")
	createMember(t, app, b.ID, "Alice", "Adams", "alice@test.cd")
	createMember(t, app, b.ID, "Bob", "Brown", "bob@test.cd")
	createMember(t, app, b.ID, "Carol", "Chen", "") // no email, skipped

	prez := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	token := openSession(t, app, prez)

	body := []byte(`{"subject":"Meeting","message":"General meeting on Friday."}`)

	t.Run("no addressable members", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/buckets/"+empty.ID+"/email-members", token, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("blasts members with an email", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, map[string]int{"sent": 2})}
		req, rec := newAuthRequest(http.MethodPost, "/v1/buckets/"+b.ID+"/email-members", token, body)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_bucketApi_get(t *testing.T) {
	app := setup(t)

	un := createTrialUnion(t, app, "Local A")
	b := createBucket(t, app, un.ID, 1, "Hotel One")
	prez := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	token := openSession(t, app, prez)

	// reads come back annotated
	b, err := app.bucketSvc.Get(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	tests := []httpTest{
		{name: "unknown id", path: "/v1/buckets/nope", wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{name: "ok", path: fmt.Sprintf("/v1/buckets/%s", b.ID), wantCode: http.StatusOK, wantData: marshalObj(t, b)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
