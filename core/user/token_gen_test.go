package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey = []byte("secret")
	passwordResetTimeoutDelta = time.Hour

	now := time.Now()
	active := true
	usr := User{
		ID:        "0b36ed4e-33bd-4ae0-90bf-a76e44c73a4d",
		FirstName: "T",
		LastName:  "T",
		Email:     "t@test.test",
		IsActive:  &active,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken := makeToken(usr)

	// generate an expired token
	hourLate := passwordResetTimeoutDelta + time.Hour
	nowFunc = func() time.Time { return time.Now().Add(-hourLate) }
	expiredToken := makeToken(usr)
	nowFunc = time.Now // reset

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenInvalidatedByPasswordChange(t *testing.T) {
	secretKey = []byte("secret")
	passwordResetTimeoutDelta = time.Hour

	usr := User{ID: "4f2076c4-3b37-42a1-b1db-30ba62e7b0ad"}
	_ = usr.SetPassword("pwd")

	token := makeToken(usr)
	if err := verifyToken(usr, token); err != nil {
		t.Fatalf("verifyToken() error = %v", err)
	}

	_ = usr.SetPassword("newpwd")
	if err := verifyToken(usr, token); err != errInvalidToken {
		t.Errorf("verifyToken() error = %v, wantErr %v", err, errInvalidToken)
	}
}

func TestSubjectPredicates(t *testing.T) {
	superAdmin := Subject{UserID: "u1", Role: RoleSuperAdmin}
	president := Subject{UserID: "u2", Role: RolePresident, UnionID: "un1"}
	legacyAdmin := Subject{UserID: "u3", Role: legacyRoleAdmin, UnionID: "un1"}
	secretary := Subject{UserID: "u4", Role: RoleSecretary, UnionID: "un1"}

	tests := []struct {
		name                                           string
		subj                                           Subject
		unionID                                        string
		canManageUnion, canManageTeam, canDeleteBucket bool
	}{
		{name: "super admin any union", subj: superAdmin, unionID: "un2", canManageUnion: true, canManageTeam: true, canDeleteBucket: true},
		{name: "president own union", subj: president, unionID: "un1", canManageUnion: true, canManageTeam: true, canDeleteBucket: true},
		{name: "president other union", subj: president, unionID: "un2"},
		{name: "legacy admin read as president", subj: legacyAdmin, unionID: "un1", canManageUnion: true, canManageTeam: true, canDeleteBucket: true},
		{name: "secretary own union", subj: secretary, unionID: "un1", canManageUnion: true},
		{name: "secretary other union", subj: secretary, unionID: "un2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.subj.CanManageUnion(tt.unionID); got != tt.canManageUnion {
				t.Errorf("CanManageUnion() = %v, want %v", got, tt.canManageUnion)
			}
			if got := tt.subj.CanManageTeam(tt.unionID); got != tt.canManageTeam {
				t.Errorf("CanManageTeam() = %v, want %v", got, tt.canManageTeam)
			}
			if got := tt.subj.CanDeleteBuckets(tt.unionID); got != tt.canDeleteBucket {
				t.Errorf("CanDeleteBuckets() = %v, want %v", got, tt.canDeleteBucket)
			}
		})
	}
}
