package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/waynerigley/migslist/core/session"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/core/user"
)

func Test_authApi_login(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	un := createTrialUnion(t, app, "Local 100")
	usr := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)

	deactivated := createUser(t, app, "Gone", "User", "gone@test.cd", "s3cret", user.RoleSecretary, un.ID)
	isActive := false
	if _, err := app.usrSvc.Update(ctx, deactivated.ID, user.UpdateUser{IsActive: &isActive}); err != nil {
		t.Fatalf("usrSvc.Update() failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"email":    "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "malformed email", body: []byte(`{"email":"lol","password":"s3cret"}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown email", body: []byte(`{"email":"who@test.cd","password":"s3cret"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, errInvalidCred),
		},
		{
			name: "wrong password", body: []byte(`{"email":"jane@test.cd","password":"nope"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, errInvalidCred),
		},
		{
			name: "deactivated account", body: []byte(`{"email":"gone@test.cd","password":"s3cret"}`),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "valid credentials", body: []byte(`{"email":"jane@test.cd","password":"s3cret"}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.name != "valid credentials" {
				checkCodeAndData(t, tt, rec)
				return
			}

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var sess session.Session
			if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
				t.Fatalf("unmarshalling session failed: %v", err)
			}
			if sess.Email != usr.Email || sess.Role != user.RolePresident || sess.UnionID != un.ID {
				t.Errorf("session = %+v; want user %s of union %s", sess, usr.Email, un.ID)
			}
			if sess.UnionName != un.Name {
				t.Errorf("UnionName = %s; want %s", sess.UnionName, un.Name)
			}

			var cookie *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == "migslist_session" {
					cookie = c
				}
			}
			if cookie == nil || cookie.Value == "" {
				t.Fatal("session cookie was not set")
			}
			if !cookie.HttpOnly {
				t.Error("session cookie is not HttpOnly")
			}
			// conf.Debug is off, so the token must not ride plain HTTP
			if !cookie.Secure {
				t.Error("session cookie is not Secure")
			}
			if cookie.SameSite != http.SameSiteLaxMode {
				t.Errorf("SameSite = %v; want %v", cookie.SameSite, http.SameSiteLaxMode)
			}
			if _, err := app.sessionSvc.Get(ctx, cookie.Value); err != nil {
				t.Errorf("cookie does not map to a stored session: %v", err)
			}
		})
	}
}

func Test_authApi_login_demotesLapsedTrial(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	un := createTrialUnion(t, app, "Local 200")
	lapsed := time.Now().UTC().Add(-48 * time.Hour)
	un.SubscriptionEnd = &lapsed
	if _, err := app.unionRepo.UpdateUnion(ctx, un); err != nil {
		t.Fatalf("UpdateUnion() failed: %v", err)
	}
	createUser(t, app, "Late", "Prez", "late@test.cd", "s3cret", user.RolePresident, un.ID)

	req, rec := newRequest(http.MethodPost, "/v1/auth/login", []byte(`{"email":"late@test.cd","password":"s3cret"}`))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	refreshed, err := app.unionSvc.GetByID(ctx, un.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if refreshed.Status != union.StatusExpired || refreshed.PaymentStatus != union.PaymentExpired {
		t.Errorf("union = %s/%s; want %s/%s",
			refreshed.Status, refreshed.PaymentStatus, union.StatusExpired, union.PaymentExpired)
	}

	// lapsed unions can still log in but gated endpoints are closed
	var sess session.Session
	if err = json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("unmarshalling session failed: %v", err)
	}
	cookie := rec.Result().Cookies()[0]

	tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errSubExpired)}
	req, rec = newAuthRequest(http.MethodGet, "/v1/dashboard", cookie.Value)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_sessionMiddleware(t *testing.T) {
	app := setup(t)

	un := createTrialUnion(t, app, "Local 300")
	usr := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)

	origTTL := app.conf.SessionTTL
	app.conf.SessionTTL = -time.Hour
	expiredToken := openSession(t, app, usr)
	app.conf.SessionTTL = origTTL
	token := openSession(t, app, usr)

	tests := []httpTest{
		{name: "no cookie", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errNotAuthed)},
		{name: "garbage token", token: "lol", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errNotAuthed)},
		{name: "expired session", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errNotAuthed)},
		{name: "valid session", token: token, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/auth/me", tt.token)
			app.server.ServeHTTP(rec, req)
			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_me(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	un := createTrialUnion(t, app, "Local 400")
	usr := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	sess, err := app.sessionSvc.Create(ctx, usr, un.Name)
	if err != nil {
		t.Fatalf("sessionSvc.Create() failed: %v", err)
	}

	tt := httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, sess)}
	req, rec := newAuthRequest(http.MethodGet, "/v1/auth/me", sess.Token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_authApi_logout(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	un := createTrialUnion(t, app, "Local 500")
	usr := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	token := openSession(t, app, usr)

	req, rec := newAuthRequest(http.MethodPost, "/v1/auth/logout", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout code = %v; want %v", rec.Code, http.StatusNoContent)
	}
	if _, err := app.sessionSvc.Get(ctx, token); err == nil {
		t.Error("session survived logout")
	}

	// the dead token no longer authenticates
	tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errNotAuthed)}
	req, rec = newAuthRequest(http.MethodGet, "/v1/auth/me", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_authApi_changePassword(t *testing.T) {
	app := setup(t)

	un := createTrialUnion(t, app, "Local 600")
	usr := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	token := openSession(t, app, usr)

	tests := []httpTest{
		{
			name: "wrong old password", token: token,
			body:     []byte(`{"old_password":"nope","password":"n3w-s3cret","password_confirm":"n3w-s3cret"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"old_password": "incorrect password"}),
		},
		{
			name: "mismatched confirmation", token: token,
			body:     []byte(`{"old_password":"s3cret","password":"n3w-s3cret","password_confirm":"other"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "ok", token: token,
			body:     []byte(`{"old_password":"s3cret","password":"n3w-s3cret","password_confirm":"n3w-s3cret"}`),
			wantCode: http.StatusOK,
			wantData: marshalObj(t, map[string]string{"success": "Password changed."}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/auth/change-password", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// the new password sticks
	req, rec := newRequest(http.MethodPost, "/v1/auth/login", []byte(`{"email":"jane@test.cd","password":"n3w-s3cret"}`))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password code = %v; want %v", rec.Code, http.StatusOK)
	}
}
