package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/waynerigley/migslist/core/member"
	"github.com/waynerigley/migslist/core/user"
)

func Test_memberApi_create(t *testing.T) {
	app := setup(t)

	un := createTrialUnion(t, app, "Local A")
	b := createBucket(t, app, un.ID, 1, "Hotel One")
	sec := createUser(t, app, "Sam", "Sec", "sam@test.cd", "s3cret", user.RoleSecretary, un.ID)
	token := openSession(t, app, sec)

	tests := []httpTest{
		{
			name: "missing names", body: []byte(`{"email":"alice@test.cd"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"first_name": "this field is required",
				"last_name":  "this field is required",
			}),
		},
		{
			name: "malformed email", body: []byte(`{"first_name":"Alice","last_name":"Adams","email":"lol"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name:     "secretary creates",
			body:     []byte(`{"first_name":"Alice","last_name":"Adams","email":"alice@test.cd","city":"Windsor"}`),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/buckets/"+b.ID+"/members", token, tt.body)
			app.server.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			var m member.Member
			if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
				t.Fatalf("unmarshalling member failed: %v", err)
			}
			if m.BucketID != b.ID || m.FirstName != "Alice" || m.City != "Windsor" {
				t.Errorf("member = %+v; want Alice in bucket %s", m, b.ID)
			}
			if m.InGoodStanding() {
				t.Error("new member should not be in good standing before a PDF is on file")
			}
		})
	}
}

func Test_memberApi_goodStanding(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	un := createTrialUnion(t, app, "Local A")
	b := createBucket(t, app, un.ID, 1, "Hotel One")
	signed := createMember(t, app, b.ID, "Alice", "Adams", "alice@test.cd")
	createMember(t, app, b.ID, "Bob", "Brown", "bob@test.cd")

	prez := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	token := openSession(t, app, prez)

	// good standing means a signed membership PDF on file
	if _, err := app.memberSvc.SetPDF(ctx, signed.ID, "alice.pdf"); err != nil {
		t.Fatalf("SetPDF() failed: %v", err)
	}

	goodStanding, err := app.memberSvc.QueryGoodStanding(ctx, b.ID)
	if err != nil {
		t.Fatalf("QueryGoodStanding() failed: %v", err)
	}
	if len(goodStanding) != 1 || goodStanding[0].ID != signed.ID {
		t.Fatalf("QueryGoodStanding() = %+v; want only %s", goodStanding, signed.ID)
	}

	tt := httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, goodStanding)}
	req, rec := newAuthRequest(http.MethodGet, "/v1/buckets/"+b.ID+"/members/good-standing", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	// removing the PDF drops them back out
	if _, err = app.memberSvc.RemovePDF(ctx, signed.ID); err != nil {
		t.Fatalf("RemovePDF() failed: %v", err)
	}
	tt = httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}
	req, rec = newAuthRequest(http.MethodGet, "/v1/buckets/"+b.ID+"/members/good-standing", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_memberApi_retireAndRestore(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	un := createTrialUnion(t, app, "Local A")
	b := createBucket(t, app, un.ID, 1, "Hotel One")
	m := createMember(t, app, b.ID, "Alice", "Adams", "alice@test.cd")

	prez := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	token := openSession(t, app, prez)

	t.Run("retire with a reason", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/members/"+m.ID+"/retire", token, []byte(`{"reason":"moved away"}`))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var retired member.Member
		if err := json.Unmarshal(rec.Body.Bytes(), &retired); err != nil {
			t.Fatalf("unmarshalling member failed: %v", err)
		}
		if !retired.IsRetired() || retired.RetiredReason != "moved away" {
			t.Errorf("member = %+v; want retired with reason 'moved away'", retired)
		}
	})

	t.Run("retired members leave the active listing", func(t *testing.T) {
		active, err := app.memberSvc.QueryByBucket(ctx, b.ID)
		if err != nil {
			t.Fatalf("QueryByBucket() failed: %v", err)
		}
		if len(active) != 0 {
			t.Errorf("QueryByBucket() = %+v; want none", active)
		}

		retired, err := app.memberSvc.QueryRetired(ctx, b.ID)
		if err != nil {
			t.Fatalf("QueryRetired() failed: %v", err)
		}
		tt := httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, retired)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/buckets/"+b.ID+"/members/retired", token)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("restore", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/members/"+m.ID+"/restore", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var restored member.Member
		if err := json.Unmarshal(rec.Body.Bytes(), &restored); err != nil {
			t.Fatalf("unmarshalling member failed: %v", err)
		}
		if restored.IsRetired() || restored.RetiredReason != "" {
			t.Errorf("member = %+v; want active with no retirement reason", restored)
		}
	})
}

func Test_memberApi_search(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	un := createTrialUnion(t, app, "Local A")
	b := createBucket(t, app, un.ID, 1, "Hotel One")
	createMember(t, app, b.ID, "Alice", "Adams", "alice@test.cd")
	createMember(t, app, b.ID, "Bob", "Brown", "bob@test.cd")

	unB := createTrialUnion(t, app, "Local B")
	bB := createBucket(t, app, unB.ID, 1, "Other Hotel")
	createMember(t, app, bB.ID, "Alice", "Borders", "other@test.cd")

	prez := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	token := openSession(t, app, prez)

	matches, err := app.memberSvc.Search(ctx, un.ID, "ali")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(matches) != 1 || matches[0].LastName != "Adams" {
		t.Fatalf("Search() = %+v; want only the Local A Alice", matches)
	}

	tests := []httpTest{
		{name: "blank query returns nothing", path: "/v1/members/search", wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "matches stay within the union", path: "/v1/members/search?q=ali", wantCode: http.StatusOK, wantData: marshalObj(t, matches)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_memberApi_crossTenantReadsAsNotFound(t *testing.T) {
	app := setup(t)

	unA := createTrialUnion(t, app, "Local A")
	unB := createTrialUnion(t, app, "Local B")
	bB := createBucket(t, app, unB.ID, 1, "Other Hotel")
	foreign := createMember(t, app, bB.ID, "Alice", "Borders", "other@test.cd")

	prezA := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, unA.ID)
	token := openSession(t, app, prezA)

	tests := []httpTest{
		{name: "get", method: http.MethodGet, path: "/v1/members/" + foreign.ID},
		{name: "update", method: http.MethodPut, path: "/v1/members/" + foreign.ID, body: []byte(`{"first_name":"Hacked"}`)},
		{name: "delete", method: http.MethodDelete, path: "/v1/members/" + foreign.ID},
		{name: "retire", method: http.MethodPost, path: "/v1/members/" + foreign.ID + "/retire", body: []byte(`{}`)},
	}
	for _, tt := range tests {
		tt.wantCode = http.StatusNotFound
		tt.wantData = marshalObj(t, errNotFound)

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
