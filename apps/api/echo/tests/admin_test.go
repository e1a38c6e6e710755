package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/waynerigley/migslist/core/signup"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/core/user"
)

func Test_adminApi_superAdminOnly(t *testing.T) {
	app := setup(t)

	un := createTrialUnion(t, app, "Local A")
	prez := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	sec := createUser(t, app, "Sam", "Sec", "sam@test.cd", "s3cret", user.RoleSecretary, un.ID)
	prezToken := openSession(t, app, prez)
	secToken := openSession(t, app, sec)

	tests := []httpTest{
		{name: "anonymous", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errNotAuthed)},
		{name: "president", token: prezToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "secretary", token: secToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/admin/unions", tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_adminApi_unions(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	admin := createUser(t, app, "Root", "Admin", "root@test.cd", "s3cret", user.RoleSuperAdmin, "")
	token := openSession(t, app, admin)

	var created union.Union

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"name":"Local 100","contact_name":"Pat Doe","contact_email":"pat@test.cd"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/unions", token, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("unmarshalling union failed: %v", err)
		}
		if created.Status != union.StatusPending || created.PaymentStatus != union.PaymentUnpaid {
			t.Errorf("union = %s/%s; want %s/%s",
				created.Status, created.PaymentStatus, union.StatusPending, union.PaymentUnpaid)
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		body := []byte(`{"name":"Local 100","contact_name":"Other","contact_email":"other@test.cd"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/unions", token, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("invalid status filter", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"status": "must be active or pending"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/unions?status=lol", token)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("pending listing", func(t *testing.T) {
		pending, err := app.unionSvc.QueryPending(ctx)
		if err != nil {
			t.Fatalf("QueryPending() failed: %v", err)
		}
		tt := httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, pending)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/unions?status=pending", token)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("activate", func(t *testing.T) {
		body := []byte(`{"payment_reference":"chk-042"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/unions/"+created.ID+"/activate", token, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var un union.Union
		if err := json.Unmarshal(rec.Body.Bytes(), &un); err != nil {
			t.Fatalf("unmarshalling union failed: %v", err)
		}
		if un.Status != union.StatusActive || un.PaymentStatus != union.PaymentPaid {
			t.Errorf("union = %s/%s; want %s/%s", un.Status, un.PaymentStatus, union.StatusActive, union.PaymentPaid)
		}
		if un.PaymentReference != "chk-042" || un.SubscriptionEnd == nil {
			t.Errorf("union = %+v; want payment reference and a subscription window", un)
		}
	})

	t.Run("extend rejects non-positive days", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/unions/"+created.ID+"/extend", token, []byte(`{"days":0}`))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("unknown union", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)}
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/unions/nope/activate", token, []byte(`{}`))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_adminApi_users(t *testing.T) {
	app := setup(t)

	un := createTrialUnion(t, app, "Local A")
	admin := createUser(t, app, "Root", "Admin", "root@test.cd", "s3cret", user.RoleSuperAdmin, "")
	token := openSession(t, app, admin)

	t.Run("union role needs a union", func(t *testing.T) {
		body := []byte(`{"first_name":"Jane","last_name":"Prez","email":"jane@test.cd",` +
			`"role":"union_president","password":"s3cret","password_confirm":"s3cret"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/users", token, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("create president", func(t *testing.T) {
		body := marshalObj(t, user.NewUser{
			FirstName: "Jane", LastName: "Prez", Email: "jane@test.cd",
			Role: user.RolePresident, UnionID: un.ID,
			Password: "s3cret", PasswordConfirm: "s3cret",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/users", token, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling user failed: %v", err)
		}
		if usr.Role != user.RolePresident || usr.UnionID != un.ID {
			t.Errorf("user = %+v; want president of %s", usr, un.ID)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := marshalObj(t, user.NewUser{
			FirstName: "Jane", LastName: "Again", Email: "jane@test.cd",
			Role: user.RolePresident, UnionID: un.ID,
			Password: "s3cret", PasswordConfirm: "s3cret",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/users", token, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("cannot delete own account", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "you cannot remove your own account"}),
		}
		req, rec := newAuthRequest(http.MethodDelete, "/v1/admin/users/"+admin.ID, token)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_adminApi_signupApproval(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	admin := createUser(t, app, "Root", "Admin", "root@test.cd", "s3cret", user.RoleSuperAdmin, "")
	token := openSession(t, app, admin)

	req, err := app.signupSvc.Create(ctx, signup.NewRequest{
		UnionName:      "Local 700",
		ContactName:    "Pat Doe",
		ContactEmail:   "pat@test.cd",
		AdminFirstName: "Jane",
		AdminLastName:  "Prez",
		AdminEmail:     "jane@test.cd",
	})
	if err != nil {
		t.Fatalf("signupSvc.Create() failed: %v", err)
	}

	t.Run("approve", func(t *testing.T) {
		httpReq, rec := newAuthRequest(http.MethodPost, "/v1/admin/signups/"+req.ID+"/approve", token)
		app.server.ServeHTTP(rec, httpReq)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var approved struct {
			Request signup.Request `json:"request"`
			Union   union.Union    `json:"union"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &approved); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		if approved.Request.Status != signup.StatusApproved {
			t.Errorf("request status = %s; want %s", approved.Request.Status, signup.StatusApproved)
		}
		if approved.Union.Status != union.StatusActive || approved.Union.PaymentStatus != union.PaymentTrial {
			t.Errorf("union = %s/%s; want an open trial",
				approved.Union.Status, approved.Union.PaymentStatus)
		}

		// the president account exists with emailed temporary credentials
		prez, err := app.usrSvc.GetByEmail(ctx, "jane@test.cd")
		if err != nil {
			t.Fatalf("GetByEmail() failed: %v", err)
		}
		if prez.Role != user.RolePresident || prez.UnionID != approved.Union.ID {
			t.Errorf("president = %+v; want president of %s", prez, approved.Union.ID)
		}
	})

	t.Run("approving twice fails", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "signup request has already been processed"}),
		}
		httpReq, rec := newAuthRequest(http.MethodPost, "/v1/admin/signups/"+req.ID+"/approve", token)
		app.server.ServeHTTP(rec, httpReq)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_signupApi_publicRequest(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	body := []byte(`{"union_name":"Local 800","contact_name":"Pat Doe","contact_email":"pat@test.cd",` +
		`"admin_first_name":"Jane","admin_last_name":"Prez","admin_email":"jane@test.cd"}`)

	// no session needed
	req, rec := newRequest(http.MethodPost, "/v1/signup", body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	pending, err := app.signupSvc.QueryPending(ctx)
	if err != nil {
		t.Fatalf("QueryPending() failed: %v", err)
	}
	if len(pending) != 1 || pending[0].UnionName != "Local 800" {
		t.Errorf("QueryPending() = %+v; want the filed request", pending)
	}
}
